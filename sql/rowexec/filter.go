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
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// execFilterLike evaluates predicate against child's rows and keeps the
// ones that evaluate true; it backs both Filter and Qualify, which differ
// only in where the analyzer places them in the tree.
func (b *Builder) execFilterLike(ctx *sql.Context, child plan.LogicalPlan, predicate expression.Expr) (*sql.Table, error) {
	in, err := b.Exec(ctx, child)
	if err != nil {
		return nil, err
	}
	if expression.ContainsOuterRef(predicate) {
		return b.filterCorrelated(ctx, in, predicate)
	}
	mask, err := eval.Evaluate(b.evalCtx(ctx), predicate, in)
	if err != nil {
		return nil, err
	}
	return in.FilterByMask(mask), nil
}

// filterCorrelated evaluates predicate once per row, substituting each
// OuterRef with that row's own value via a Literal, since the vectorized
// evaluator treats OuterRef reaching it as an internal error (sql/eval's
// Evaluate doc comment). This is the row-by-row fallback used for
// correlated subqueries and correlated predicates generally.
func (b *Builder) filterCorrelated(ctx *sql.Context, in *sql.Table, predicate expression.Expr) (*sql.Table, error) {
	n := in.RowCount()
	keep := make([]int, 0, n)
	ectx := b.evalCtx(ctx)
	for i := 0; i < n; i++ {
		row := in.Row(i)
		bound, err := bindOuterRefs(predicate, row)
		if err != nil {
			return nil, err
		}
		one := oneRowTable()
		result, err := eval.Evaluate(ectx, bound, one)
		if err != nil {
			return nil, err
		}
		if !result.IsNull(0) && result.GetValue(0).Bool() {
			keep = append(keep, i)
		}
	}
	return in.GatherRows(keep), nil
}

// bindOuterRefs replaces every OuterRef in e with a Literal holding that
// outer row's value at the referenced column index, so the resulting
// expression tree is OuterRef-free and safe to hand to eval.Evaluate.
func bindOuterRefs(e expression.Expr, outerRow []sql.Value) (expression.Expr, error) {
	return expression.Transform(e, func(child expression.Expr) (expression.Expr, error) {
		if ref, ok := child.(*expression.OuterRef); ok {
			return expression.NewLiteral(outerRow[ref.Column.Index]), nil
		}
		return child, nil
	})
}
