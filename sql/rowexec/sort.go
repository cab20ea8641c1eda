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
	"sort"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// sortedIndices evaluates each key once against in and returns a row-index
// permutation in sorted order, comparing keys left to right with NULLs
// placed per NullsFirst and ties broken by keeping input order (stable).
func (b *Builder) sortedIndices(ctx *sql.Context, in *sql.Table, keys []expression.OrderByItem) ([]int, error) {
	cols := make([]*sql.Column, len(keys))
	ectx := b.evalCtx(ctx)
	for i, k := range keys {
		c, err := eval.Evaluate(ectx, k.Expr, in)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	n := in.RowCount()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, c int) bool {
		ia, ic := idx[a], idx[c]
		for k, col := range cols {
			aNull, cNull := col.IsNull(ia), col.IsNull(ic)
			if aNull && cNull {
				continue
			}
			if aNull || cNull {
				if keys[k].NullsFirst {
					return aNull
				}
				return cNull
			}
			cmp := sql.CompareValues(col.GetValue(ia), col.GetValue(ic))
			if cmp == 0 {
				continue
			}
			if keys[k].Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return idx, nil
}

func (b *Builder) execSort(ctx *sql.Context, n *plan.Sort) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	idx, err := b.sortedIndices(ctx, in, n.Keys)
	if err != nil {
		return nil, err
	}
	return in.GatherRows(idx), nil
}

// execTopN fuses ORDER BY + LIMIT: sort then truncate, avoiding a full
// materialized intermediate permutation held any longer than Sort would.
func (b *Builder) execTopN(ctx *sql.Context, n *plan.TopN) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	idx, err := b.sortedIndices(ctx, in, n.Keys)
	if err != nil {
		return nil, err
	}
	if int64(len(idx)) > n.Count {
		idx = idx[:n.Count]
	}
	return in.GatherRows(idx), nil
}

func (b *Builder) execLimit(ctx *sql.Context, n *plan.Limit) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	total := in.RowCount()
	start := 0
	if n.Offset != nil {
		start = int(*n.Offset)
	}
	if start > total {
		start = total
	}
	end := total
	if n.Count >= 0 && start+int(n.Count) < end {
		end = start + int(n.Count)
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return in.GatherRows(idx), nil
}
