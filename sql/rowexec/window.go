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

// execWindow appends one output column per WindowItem without collapsing
// rows: each partition (per PartitionBy, or the whole table if empty) is
// sorted by OrderBy, then the ranking/navigational function or framed
// aggregate is computed per row within that partition ordering.
func (b *Builder) execWindow(ctx *sql.Context, n *plan.Window) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	ectx := b.evalCtx(ctx)

	outCols := append([]*sql.Column{}, in.Cols...)
	for _, item := range n.Items {
		col, err := b.evalWindowItem(ectx, in, item)
		if err != nil {
			return nil, err
		}
		outCols = append(outCols, col)
	}
	return &sql.Table{Schema: n.Schema(), Cols: outCols}, nil
}

func (b *Builder) evalWindowItem(ectx *eval.Context, in *sql.Table, item plan.WindowItem) (*sql.Column, error) {
	switch e := item.Expr.(type) {
	case *expression.Window:
		return b.evalRankingWindow(ectx, in, e)
	case *expression.AggregateWindow:
		return b.evalFramedAggregate(ectx, in, e)
	default:
		return nil, sql.ErrInternal.New("unsupported window item expression")
	}
}

// partitionAndOrder groups row indices by PartitionBy key (partitions in
// order of first appearance, rows then sorted by OrderBy within each
// partition) and returns, for each row i (in original table order), the
// index of the partition it belongs to, plus each partition's row indices
// in sorted order.
func (b *Builder) partitionAndOrder(ectx *eval.Context, in *sql.Table, spec expression.WindowSpec) (partitionOf []int, sortedRows [][]int, err error) {
	n := in.RowCount()
	partitionOf = make([]int, n)

	if len(spec.PartitionBy) == 0 {
		sortedRows = [][]int{make([]int, n)}
		for i := 0; i < n; i++ {
			sortedRows[0][i] = i
		}
	} else {
		keyCols := make([]*sql.Column, len(spec.PartitionBy))
		for i, e := range spec.PartitionBy {
			c, err := eval.Evaluate(ectx, e, in)
			if err != nil {
				return nil, nil, err
			}
			keyCols[i] = c
		}
		index := map[string]int{}
		for r := 0; r < n; r++ {
			vs := make([]sql.Value, len(keyCols))
			for k, c := range keyCols {
				vs[k] = c.GetValue(r)
			}
			key := sql.RowKey(vs)
			pi, ok := index[key]
			if !ok {
				pi = len(sortedRows)
				index[key] = pi
				sortedRows = append(sortedRows, nil)
			}
			partitionOf[r] = pi
			sortedRows[pi] = append(sortedRows[pi], r)
		}
	}

	if len(spec.OrderBy) > 0 {
		orderCols := make([]*sql.Column, len(spec.OrderBy))
		for i, o := range spec.OrderBy {
			c, err := eval.Evaluate(ectx, o.Expr, in)
			if err != nil {
				return nil, nil, err
			}
			orderCols[i] = c
		}
		for _, part := range sortedRows {
			sortRowsStable(part, spec.OrderBy, orderCols)
		}
	}
	return partitionOf, sortedRows, nil
}

func sortRowsStable(rows []int, keys []expression.OrderByItem, cols []*sql.Column) {
	n := len(rows)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && rowLess(rows[j], rows[j-1], keys, cols); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}

func rowLess(a, c int, keys []expression.OrderByItem, cols []*sql.Column) bool {
	for k, col := range cols {
		aNull, cNull := col.IsNull(a), col.IsNull(c)
		if aNull && cNull {
			continue
		}
		if aNull || cNull {
			if keys[k].NullsFirst {
				return aNull
			}
			return cNull
		}
		cmp := sql.CompareValues(col.GetValue(a), col.GetValue(c))
		if cmp == 0 {
			continue
		}
		if keys[k].Descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

// evalRankingWindow computes ranking/navigational functions over each
// partition's sorted row order.
func (b *Builder) evalRankingWindow(ectx *eval.Context, in *sql.Table, w *expression.Window) (*sql.Column, error) {
	_, sortedRows, err := b.partitionAndOrder(ectx, in, w.Spec)
	if err != nil {
		return nil, err
	}

	var argCol *sql.Column
	if len(w.Args) > 0 {
		argCol, err = eval.Evaluate(ectx, w.Args[0], in)
		if err != nil {
			return nil, err
		}
	}

	var orderCols []*sql.Column
	for _, o := range w.Spec.OrderBy {
		c, err := eval.Evaluate(ectx, o.Expr, in)
		if err != nil {
			return nil, err
		}
		orderCols = append(orderCols, c)
	}

	out := sql.NewColumn(w.Typ, in.RowCount())
	for _, part := range sortedRows {
		switch w.Func {
		case expression.WinRowNumber:
			for i, r := range part {
				out.Set(r, sql.NewInt64(int64(i+1)))
			}
		case expression.WinRank, expression.WinDenseRank:
			rank, dense := 1, 1
			for i, r := range part {
				if i > 0 && rowsEqualByOrder(part[i-1], r, w.Spec.OrderBy, orderCols) {
					if w.Func == expression.WinDenseRank {
						out.Set(r, sql.NewInt64(int64(dense)))
					} else {
						out.Set(r, sql.NewInt64(int64(rank)))
					}
					continue
				}
				rank = i + 1
				if i > 0 {
					dense++
				}
				if w.Func == expression.WinDenseRank {
					out.Set(r, sql.NewInt64(int64(dense)))
				} else {
					out.Set(r, sql.NewInt64(int64(rank)))
				}
			}
		case expression.WinNtile:
			buckets := int64(1)
			if argCol != nil && len(part) > 0 && !argCol.IsNull(part[0]) {
				buckets = argCol.GetValue(part[0]).Int64()
			}
			if buckets < 1 {
				buckets = 1
			}
			total := int64(len(part))
			for i, r := range part {
				bucket := int64(i)*buckets/total + 1
				out.Set(r, sql.NewInt64(bucket))
			}
		case expression.WinLag, expression.WinLead:
			offset := int64(1)
			if len(w.Args) > 1 {
				oc, err := eval.Evaluate(ectx, w.Args[1], in)
				if err != nil {
					return nil, err
				}
				if !oc.IsNull(part[0]) {
					offset = oc.GetValue(part[0]).Int64()
				}
			}
			dir := int64(1)
			if w.Func == expression.WinLag {
				dir = -1
			}
			for i, r := range part {
				src := i + int(dir*offset)
				if src < 0 || src >= len(part) || argCol == nil {
					continue
				}
				sr := part[src]
				if !argCol.IsNull(sr) {
					out.Set(r, argCol.GetValue(sr))
				}
			}
		case expression.WinFirstValue:
			if argCol != nil && len(part) > 0 && !argCol.IsNull(part[0]) {
				v := argCol.GetValue(part[0])
				for _, r := range part {
					out.Set(r, v)
				}
			}
		case expression.WinLastValue:
			if argCol != nil && len(part) > 0 && !argCol.IsNull(part[len(part)-1]) {
				v := argCol.GetValue(part[len(part)-1])
				for _, r := range part {
					out.Set(r, v)
				}
			}
		case expression.WinNthValue:
			nth := int64(1)
			if len(w.Args) > 1 {
				nc, err := eval.Evaluate(ectx, w.Args[1], in)
				if err != nil {
					return nil, err
				}
				if !nc.IsNull(part[0]) {
					nth = nc.GetValue(part[0]).Int64()
				}
			}
			if argCol != nil && nth >= 1 && int(nth) <= len(part) {
				src := part[nth-1]
				if !argCol.IsNull(src) {
					v := argCol.GetValue(src)
					for _, r := range part {
						out.Set(r, v)
					}
				}
			}
		}
	}
	return out, nil
}

func rowsEqualByOrder(a, c int, keys []expression.OrderByItem, cols []*sql.Column) bool {
	for _, col := range cols {
		aNull, cNull := col.IsNull(a), col.IsNull(c)
		if aNull != cNull {
			return false
		}
		if aNull {
			continue
		}
		if sql.CompareValues(col.GetValue(a), col.GetValue(c)) != 0 {
			return false
		}
	}
	return true
}

// evalFramedAggregate computes an aggregate over each row's window frame
// (defaulting to the whole partition when no explicit Frame is given)
// within its partition's sorted order, reusing computeAggregate per row.
func (b *Builder) evalFramedAggregate(ectx *eval.Context, in *sql.Table, a *expression.AggregateWindow) (*sql.Column, error) {
	_, sortedRows, err := b.partitionAndOrder(ectx, in, a.Spec)
	if err != nil {
		return nil, err
	}

	argCols := make([]*sql.Column, len(a.Agg.Args))
	for i, e := range a.Agg.Args {
		c, err := eval.Evaluate(ectx, e, in)
		if err != nil {
			return nil, err
		}
		argCols[i] = c
	}

	out := sql.NewColumn(a.Agg.Typ, in.RowCount())
	for _, part := range sortedRows {
		for i := range part {
			frameRows := frameRowsFor(part, i, a.Spec.Frame)
			v, err := computeAggregate(a.Agg, argCols, nil, nil, frameRows)
			if err != nil {
				return nil, err
			}
			if !v.IsNull() {
				out.Set(part[i], v)
			}
		}
	}
	return out, nil
}

// frameRowsFor resolves a window frame relative to position i within part
// into the concrete row indices it covers. A nil frame defaults to the
// whole partition (matching an aggregate used as a window function with no
// explicit ROWS/RANGE clause).
func frameRowsFor(part []int, i int, frame *expression.WindowFrame) []int {
	if frame == nil {
		return part
	}
	start, end := 0, len(part)-1
	if frame.Start != nil {
		s := i + int(*frame.Start)
		if s > start {
			start = s
		}
	}
	if frame.End != nil {
		e := i + int(*frame.End)
		if e < end {
			end = e
		}
	}
	if start < 0 {
		start = 0
	}
	if end >= len(part) {
		end = len(part) - 1
	}
	if start > end {
		return nil
	}
	return part[start : end+1]
}
