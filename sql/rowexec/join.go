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

// execJoin evaluates n over its materialized children. Equality conditions
// (single or AND-chained Column = Column comparisons naming one column from
// each side) take a hash-join path; anything else falls back to a
// nested-loop evaluation of the whole condition over the cross product,
// matching the cost model sql/optimizer already assumes while keeping the
// executor correct for arbitrary predicates.
func (b *Builder) execJoin(ctx *sql.Context, n *plan.Join) (*sql.Table, error) {
	left, err := b.Exec(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.Exec(ctx, n.Right)
	if err != nil {
		return nil, err
	}

	if n.Kind == plan.JoinCross || n.Condition == nil {
		li, ri := crossIndices(left.RowCount(), right.RowCount())
		return b.assembleJoin(n, left, right, li, ri)
	}

	leftKeys, rightKeys, residual, ok := extractEquiKeys(n.Condition, len(n.Left.Schema()))
	var li, ri []int
	if ok && len(leftKeys) > 0 {
		li, ri, err = b.hashJoinPairs(ctx, left, right, leftKeys, rightKeys)
	} else {
		li, ri, err = b.nestedLoopPairs(ctx, left, right, n.Condition)
	}
	if err != nil {
		return nil, err
	}

	if ok && residual != nil && len(li) > 0 {
		li, ri, err = b.applyResidual(ctx, left, right, li, ri, residual)
		if err != nil {
			return nil, err
		}
	}

	return b.finishJoin(ctx, n, left, right, li, ri)
}

func crossIndices(leftN, rightN int) (li, ri []int) {
	li = make([]int, 0, leftN*rightN)
	ri = make([]int, 0, leftN*rightN)
	for l := 0; l < leftN; l++ {
		for r := 0; r < rightN; r++ {
			li = append(li, l)
			ri = append(ri, r)
		}
	}
	return li, ri
}

// extractEquiKeys decomposes an AND-chain of Column = Column comparisons
// into parallel key-expression lists, one per side, determined by which
// child schema each column's Index falls under; leftSchemaLen separates
// the concatenated schema into its two halves. Any non-equality,
// non-column-to-column conjunct is returned as residual instead of
// failing the whole extraction, so mixed equi/non-equi conditions (e.g.
// `a.id = b.id AND a.amount > b.threshold`) still use the hash path for
// their equality component.
func extractEquiKeys(cond expression.Expr, leftSchemaLen int) (leftKeys, rightKeys []expression.Expr, residual expression.Expr, ok bool) {
	var conjuncts []expression.Expr
	var walk func(e expression.Expr)
	walk = func(e expression.Expr) {
		if b, isAnd := e.(*expression.BinaryOp); isAnd && b.Kind == expression.OpAnd {
			walk(b.Left)
			walk(b.Right)
			return
		}
		conjuncts = append(conjuncts, e)
	}
	walk(cond)

	for _, c := range conjuncts {
		b, isEq := c.(*expression.BinaryOp)
		if !isEq || b.Kind != expression.OpEq {
			residual = andExpr(residual, c)
			continue
		}
		lc, lok := b.Left.(*expression.Column)
		rc, rok := b.Right.(*expression.Column)
		if !lok || !rok {
			residual = andExpr(residual, c)
			continue
		}
		if lc.Index < leftSchemaLen && rc.Index >= leftSchemaLen {
			leftKeys = append(leftKeys, lc)
			rightKeys = append(rightKeys, &expression.Column{Table: rc.Table, Name: rc.Name, Index: rc.Index - leftSchemaLen, Typ: rc.Typ, Null: rc.Null})
		} else if rc.Index < leftSchemaLen && lc.Index >= leftSchemaLen {
			leftKeys = append(leftKeys, rc)
			rightKeys = append(rightKeys, &expression.Column{Table: lc.Table, Name: lc.Name, Index: lc.Index - leftSchemaLen, Typ: lc.Typ, Null: lc.Null})
		} else {
			residual = andExpr(residual, c)
		}
	}
	return leftKeys, rightKeys, residual, len(leftKeys) > 0
}

func andExpr(acc, next expression.Expr) expression.Expr {
	if acc == nil {
		return next
	}
	return expression.NewBinaryOp(expression.OpAnd, acc, next, sql.TypeBool)
}

// hashJoinPairs builds a hash table over right's key columns and probes it
// with left's key columns, producing the list of matching (left, right)
// row-index pairs. Rows with a null key value never match, per SQL
// equality semantics.
func (b *Builder) hashJoinPairs(ctx *sql.Context, left, right *sql.Table, leftKeys, rightKeys []expression.Expr) (li, ri []int, err error) {
	ectx := b.evalCtx(ctx)
	leftCols, err := evalAll(ectx, leftKeys, left)
	if err != nil {
		return nil, nil, err
	}
	rightCols, err := evalAll(ectx, rightKeys, right)
	if err != nil {
		return nil, nil, err
	}

	buckets := map[string][]int{}
	for r := 0; r < right.RowCount(); r++ {
		key, hasNull := rowKeyOf(rightCols, r)
		if hasNull {
			continue
		}
		buckets[key] = append(buckets[key], r)
	}

	for l := 0; l < left.RowCount(); l++ {
		key, hasNull := rowKeyOf(leftCols, l)
		if hasNull {
			continue
		}
		for _, r := range buckets[key] {
			li = append(li, l)
			ri = append(ri, r)
		}
	}
	return li, ri, nil
}

func evalAll(ectx *eval.Context, exprs []expression.Expr, table *sql.Table) ([]*sql.Column, error) {
	cols := make([]*sql.Column, len(exprs))
	for i, e := range exprs {
		c, err := eval.Evaluate(ectx, e, table)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

func rowKeyOf(cols []*sql.Column, row int) (key string, hasNull bool) {
	vs := make([]sql.Value, len(cols))
	for i, c := range cols {
		if c.IsNull(row) {
			return "", true
		}
		vs[i] = c.GetValue(row)
	}
	return sql.RowKey(vs), false
}

// nestedLoopPairs evaluates condition against the full cross product and
// keeps the row-index pairs where it is true; used when no equi-join key
// can be extracted.
func (b *Builder) nestedLoopPairs(ctx *sql.Context, left, right *sql.Table, condition expression.Expr) (li, ri []int, err error) {
	lAll, rAll := crossIndices(left.RowCount(), right.RowCount())
	joined := left.GatherRows(lAll)
	rightSide := right.GatherRows(rAll)
	cross := hconcat(joined, rightSide)
	mask, err := eval.Evaluate(b.evalCtx(ctx), condition, cross)
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < mask.Len(); i++ {
		if mask.IsNull(i) || !mask.GetValue(i).Bool() {
			continue
		}
		li = append(li, lAll[i])
		ri = append(ri, rAll[i])
	}
	return li, ri, nil
}

// applyResidual filters an existing (li, ri) match set by a residual
// predicate that could not be folded into the hash-join key, evaluated
// over just the matched pairs rather than the whole cross product.
func (b *Builder) applyResidual(ctx *sql.Context, left, right *sql.Table, li, ri []int, residual expression.Expr) ([]int, []int, error) {
	matched := hconcat(left.GatherRows(li), right.GatherRows(ri))
	mask, err := eval.Evaluate(b.evalCtx(ctx), residual, matched)
	if err != nil {
		return nil, nil, err
	}
	var outL, outR []int
	for i := 0; i < mask.Len(); i++ {
		if mask.IsNull(i) || !mask.GetValue(i).Bool() {
			continue
		}
		outL = append(outL, li[i])
		outR = append(outR, ri[i])
	}
	return outL, outR, nil
}

func hconcat(a, b *sql.Table) *sql.Table {
	schema := append(append(sql.Schema{}, a.Schema...), b.Schema...)
	cols := append(append([]*sql.Column{}, a.Cols...), b.Cols...)
	return &sql.Table{Schema: schema, Cols: cols}
}

// finishJoin applies Semi/Anti/outer-row semantics on top of the inner
// match set (li, ri) already computed via hash or nested-loop join.
func (b *Builder) finishJoin(ctx *sql.Context, n *plan.Join, left, right *sql.Table, li, ri []int) (*sql.Table, error) {
	switch n.Kind {
	case plan.JoinSemi:
		seen := map[int]bool{}
		var out []int
		for _, l := range li {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
		return left.GatherRows(out), nil
	case plan.JoinAnti:
		matched := map[int]bool{}
		for _, l := range li {
			matched[l] = true
		}
		var out []int
		for l := 0; l < left.RowCount(); l++ {
			if !matched[l] {
				out = append(out, l)
			}
		}
		return left.GatherRows(out), nil
	case plan.JoinLeft:
		li, ri = addUnmatchedLeft(li, ri, left.RowCount())
		return b.assembleJoin(n, left, right, li, ri)
	case plan.JoinRight:
		ri, li = addUnmatchedLeft(ri, li, right.RowCount())
		return b.assembleJoin(n, left, right, li, ri)
	case plan.JoinFull:
		li, ri = addUnmatchedLeft(li, ri, left.RowCount())
		ri, li = addUnmatchedLeft(ri, li, right.RowCount())
		return b.assembleJoin(n, left, right, li, ri)
	default:
		return b.assembleJoin(n, left, right, li, ri)
	}
}

// addUnmatchedLeft appends, for every "left"-side index with no entry in
// li, a pair (index, -1) so assembleJoin fills the other side with nulls;
// used symmetrically for LEFT, RIGHT (with sides swapped by the caller)
// and FULL (applied twice).
func addUnmatchedLeft(li, ri []int, leftN int) ([]int, []int) {
	matched := map[int]bool{}
	for _, l := range li {
		matched[l] = true
	}
	for l := 0; l < leftN; l++ {
		if !matched[l] {
			li = append(li, l)
			ri = append(ri, -1)
		}
	}
	return li, ri
}

// assembleJoin builds the final output table from matched row-index pairs,
// where a -1 index on either side produces nulls for that side's columns
// (outer-join unmatched rows).
func (b *Builder) assembleJoin(n *plan.Join, left, right *sql.Table, li, ri []int) (*sql.Table, error) {
	schema := n.Schema()
	cols := make([]*sql.Column, 0, len(left.Cols)+len(right.Cols))
	for _, c := range left.Cols {
		cols = append(cols, gatherWithNulls(c, li))
	}
	for _, c := range right.Cols {
		cols = append(cols, gatherWithNulls(c, ri))
	}
	return &sql.Table{Schema: schema, Cols: cols}, nil
}

// gatherWithNulls is Column.Gather extended to treat a -1 index as an
// explicit null output row, needed for outer-join unmatched sides.
func gatherWithNulls(c *sql.Column, indices []int) *sql.Column {
	out := sql.NewColumn(c.Typ, len(indices))
	for j, i := range indices {
		if i < 0 || c.IsNull(i) {
			continue
		}
		out.Set(j, c.GetValue(i))
	}
	return out
}
