// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eval

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

func requireSubqueries(ctx *Context) (SubqueryRunner, error) {
	if ctx == nil || ctx.Subqueries == nil {
		return nil, sql.ErrInternal.New("no subquery runner bound in evaluator context")
	}
	return ctx.Subqueries, nil
}

// evalScalarSubquery runs a non-correlated scalar subquery once and
// broadcasts its single value across every row of table, matching
// sql.Broadcast's use for Literal evaluation.
func evalScalarSubquery(ctx *Context, s *expression.ScalarSubquery, table *sql.Table) (*sql.Column, error) {
	runner, err := requireSubqueries(ctx)
	if err != nil {
		return nil, err
	}
	v, err := runner.RunScalar(s.Plan)
	if err != nil {
		return nil, err
	}
	return sql.Broadcast(v, table.RowCount()), nil
}

func evalArraySubquery(ctx *Context, a *expression.ArraySubquery, table *sql.Table) (*sql.Column, error) {
	runner, err := requireSubqueries(ctx)
	if err != nil {
		return nil, err
	}
	v, err := runner.RunArray(a.Plan, a.ElemTyp)
	if err != nil {
		return nil, err
	}
	return sql.Broadcast(v, table.RowCount()), nil
}

func evalExists(ctx *Context, e *expression.Exists, table *sql.Table) (*sql.Column, error) {
	runner, err := requireSubqueries(ctx)
	if err != nil {
		return nil, err
	}
	exists, err := runner.RunExists(e.Plan)
	if err != nil {
		return nil, err
	}
	if e.Negated {
		exists = !exists
	}
	return sql.Broadcast(sql.NewBool(exists), table.RowCount()), nil
}

// evalInSubquery evaluates the target expression, then calls RunInSubquery
// once per distinct non-null target value (memoized by row key) and writes
// its three-valued membership result to every row holding that value: a
// null target yields null membership without running the subquery,
// matching evalInList's NULL-propagation rule.
func evalInSubquery(ctx *Context, in *expression.InSubquery, table *sql.Table) (*sql.Column, error) {
	runner, err := requireSubqueries(ctx)
	if err != nil {
		return nil, err
	}
	target, err := Evaluate(ctx, in.Target, table)
	if err != nil {
		return nil, err
	}

	n := table.RowCount()
	out := sql.NewColumn(sql.TypeBool, n)
	memberCache := map[string]sql.Value{}
	for i := 0; i < n; i++ {
		if target.IsNull(i) {
			continue
		}
		v := target.GetValue(i)
		key := sql.RowKey([]sql.Value{v})
		result, ok := memberCache[key]
		if !ok {
			result, err = runner.RunInSubquery(in.Plan, v)
			if err != nil {
				return nil, err
			}
			memberCache[key] = result
		}
		if result.IsNull() {
			continue
		}
		member := result.Bool()
		if in.Negated {
			member = !member
		}
		out.Set(i, sql.NewBool(member))
	}
	return out, nil
}
