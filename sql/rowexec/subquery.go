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

package rowexec

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// subqueryRunner implements eval.SubqueryRunner on top of a Builder, letting
// sql/eval run non-correlated subqueries without importing this package
// (see eval.go's SubqueryRunner doc comment for the import-direction
// rationale).
type subqueryRunner struct {
	b   *Builder
	ctx *sql.Context
}

func (r *subqueryRunner) asPlan(s expression.Subqueryable) (plan.LogicalPlan, error) {
	p, ok := s.(plan.LogicalPlan)
	if !ok {
		return nil, sql.ErrInternal.New("subquery plan does not satisfy plan.LogicalPlan")
	}
	return p, nil
}

func (r *subqueryRunner) RunScalar(s expression.Subqueryable) (sql.Value, error) {
	p, err := r.asPlan(s)
	if err != nil {
		return sql.Null, err
	}
	t, err := r.b.Exec(r.ctx, p)
	if err != nil {
		return sql.Null, err
	}
	switch t.RowCount() {
	case 0:
		return sql.Null, nil
	case 1:
		return t.Cols[0].GetValue(0), nil
	default:
		return sql.Null, sql.ErrInvalidQuery.New("scalar subquery returned more than one row")
	}
}

func (r *subqueryRunner) RunArray(s expression.Subqueryable, elemTyp sql.TypeID) (sql.Value, error) {
	p, err := r.asPlan(s)
	if err != nil {
		return sql.Null, err
	}
	t, err := r.b.Exec(r.ctx, p)
	if err != nil {
		return sql.Null, err
	}
	n := t.RowCount()
	elems := make([]sql.Value, n)
	for i := 0; i < n; i++ {
		elems[i] = t.Cols[0].GetValue(i)
	}
	return sql.NewArray(elems), nil
}

func (r *subqueryRunner) RunExists(s expression.Subqueryable) (bool, error) {
	p, err := r.asPlan(s)
	if err != nil {
		return false, err
	}
	t, err := r.b.Exec(r.ctx, p)
	if err != nil {
		return false, err
	}
	return t.RowCount() > 0, nil
}

// RunInSubquery reports three-valued membership of target in the
// subquery's single output column, per the NULL-handling rule evalInList
// documents: TRUE if any row equals target, NULL if no row matched but some
// row was itself NULL, else FALSE.
func (r *subqueryRunner) RunInSubquery(s expression.Subqueryable, target sql.Value) (sql.Value, error) {
	p, err := r.asPlan(s)
	if err != nil {
		return sql.Null, err
	}
	t, err := r.b.Exec(r.ctx, p)
	if err != nil {
		return sql.Null, err
	}
	if target.IsNull() {
		return sql.Null, nil
	}
	col := t.Cols[0]
	hasNull := false
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			hasNull = true
			continue
		}
		if col.GetValue(i).Equal(target) {
			return sql.NewBool(true), nil
		}
	}
	if hasNull {
		return sql.Null, nil
	}
	return sql.NewBool(false), nil
}
