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

// Package eval is the vectorized expression evaluator: it walks an
// expression.Expr tree and produces one sql.Column of the same length as
// the input Table, dispatching on the expression's concrete type. Most
// handlers still do their actual work row-by-row (materializing
// sql.Values via Column.GetValue) rather than branching on Column's
// variant for every operator; only the hot arithmetic/comparison paths go
// through Column's three-valued helpers directly.
package eval

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// SubqueryRunner executes a Subqueryable plan and is supplied by sql/rowexec
// (which imports sql/eval, so the dependency can only flow this direction --
// eval never imports rowexec). Only non-correlated subqueries reach these
// methods: a correlated subquery is evaluated row-by-row by the Filter
// operator itself, which substitutes OuterRef values into Literal nodes
// before delegating a single-row Table back into Evaluate.
type SubqueryRunner interface {
	RunScalar(plan expression.Subqueryable) (sql.Value, error)
	RunArray(plan expression.Subqueryable, elemTyp sql.TypeID) (sql.Value, error)
	RunExists(plan expression.Subqueryable) (bool, error)
	// RunInSubquery reports three-valued membership: Bool(true/false) or
	// Null if target is null or if no match is found but the subquery
	// yielded a null row (the same "has_null" rule as InList).
	RunInSubquery(plan expression.Subqueryable, target sql.Value) (sql.Value, error)
}

// UserFunctionCaller dispatches a ScalarFunction name not recognized by the
// builtin registry to the catalog's registered user functions. ok is
// false when name is not a registered user function, so Evaluate can
// fall through to ErrFunctionNotFound.
type UserFunctionCaller interface {
	Call(name string, args []sql.Value) (v sql.Value, ok bool, err error)
}

// Context carries the per-call collaborators Evaluate needs beyond the
// expression tree and input table: subquery execution, user-defined scalar
// functions, and session variable bindings. All fields are optional; a zero
// Context evaluates anything free of subqueries, UDFs, and @variables.
type Context struct {
	Subqueries SubqueryRunner
	Functions  UserFunctionCaller
	Variables  map[string]sql.Value
}

// Evaluate computes expr against every row of table, returning one Column.
func Evaluate(ctx *Context, e expression.Expr, table *sql.Table) (*sql.Column, error) {
	n := table.RowCount()
	switch t := e.(type) {
	case *expression.Column:
		if t.Index < 0 || t.Index >= len(table.Cols) {
			return nil, sql.ErrInternal.New("column index out of range in evaluator")
		}
		return table.Cols[t.Index], nil

	case *expression.Literal:
		return sql.Broadcast(t.Val, n), nil

	case *expression.Alias:
		return Evaluate(ctx, t.Child, table)

	case *expression.Variable:
		if ctx == nil || ctx.Variables == nil {
			return nil, sql.ErrInvalidQuery.New("unbound variable @" + t.Name)
		}
		v, ok := ctx.Variables[t.Name]
		if !ok {
			return nil, sql.ErrInvalidQuery.New("unbound variable @" + t.Name)
		}
		return sql.Broadcast(v, n), nil

	case *expression.BinaryOp:
		return evalBinaryOp(ctx, t, table)

	case *expression.UnaryOp:
		return evalUnaryOp(ctx, t, table)

	case *expression.Case:
		return evalCase(ctx, t, table)

	case *expression.Cast:
		return evalCast(ctx, t, table)

	case *expression.Between:
		return evalBetween(ctx, t, table)

	case *expression.IsDistinctFrom:
		return evalIsDistinctFrom(ctx, t, table)

	case *expression.Like:
		return evalLike(ctx, t, table)

	case *expression.InList:
		return evalInList(ctx, t, table)

	case *expression.InUnnest:
		return evalInUnnest(ctx, t, table)

	case *expression.StructExpr:
		return evalStructExpr(ctx, t, table)

	case *expression.ArrayExpr:
		return evalArrayExpr(ctx, t, table)

	case *expression.StructAccess:
		return evalStructAccess(ctx, t, table)

	case *expression.ArrayAccess:
		return evalArrayAccess(ctx, t, table)

	case *expression.JSONAccess:
		return evalJSONAccess(ctx, t, table)

	case *expression.AtTimeZone:
		return evalAtTimeZone(ctx, t, table)

	case *expression.Trim:
		return evalTrim(ctx, t, table)

	case *expression.Substring:
		return evalSubstring(ctx, t, table)

	case *expression.Overlay:
		return evalOverlay(ctx, t, table)

	case *expression.Position:
		return evalPosition(ctx, t, table)

	case *expression.IntervalExpr:
		return evalIntervalExpr(ctx, t, table)

	case *expression.ScalarFunction:
		return evalScalarFunction(ctx, t, table)

	case *expression.ScalarSubquery:
		return evalScalarSubquery(ctx, t, table)

	case *expression.ArraySubquery:
		return evalArraySubquery(ctx, t, table)

	case *expression.Exists:
		return evalExists(ctx, t, table)

	case *expression.InSubquery:
		return evalInSubquery(ctx, t, table)

	case *expression.OuterRef:
		return nil, sql.ErrInternal.New("unresolved outer reference reached the vectorized evaluator")

	case *expression.Aggregate, *expression.AggregateWindow, *expression.Window:
		return nil, sql.ErrInternal.New("aggregate/window expression reached the evaluator unhoisted")

	default:
		return nil, sql.ErrUnsupported.New("expression type in evaluator")
	}
}

// evalChildren evaluates a fixed list of child expressions against table,
// a pattern nearly every row-wise handler below starts with.
func evalChildren(ctx *Context, table *sql.Table, exprs ...expression.Expr) ([]*sql.Column, error) {
	out := make([]*sql.Column, len(exprs))
	for i, e := range exprs {
		if e == nil {
			continue
		}
		c, err := Evaluate(ctx, e, table)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
