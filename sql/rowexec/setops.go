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
	"github.com/bqlite/bqlite/sql/plan"
)

// execDistinct dedups in on the full row, keeping the first occurrence of
// each distinct key in input order.
func (b *Builder) execDistinct(ctx *sql.Context, n *plan.Distinct) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	return dedupRows(in), nil
}

func dedupRows(in *sql.Table) *sql.Table {
	seen := map[string]bool{}
	idx := make([]int, 0, in.RowCount())
	for i := 0; i < in.RowCount(); i++ {
		key := sql.RowKey(in.Row(i))
		if seen[key] {
			continue
		}
		seen[key] = true
		idx = append(idx, i)
	}
	return in.GatherRows(idx)
}

// execSetOp implements UNION/INTERSECT/EXCEPT under ALL/DISTINCT semantics.
// ALL preserves every row's multiplicity (UNION ALL is a plain concat;
// INTERSECT ALL/EXCEPT ALL adjust per-key counts); DISTINCT collapses the
// result to unique rows.
func (b *Builder) execSetOp(ctx *sql.Context, n *plan.SetOp) (*sql.Table, error) {
	inputs := make([]*sql.Table, len(n.Inputs))
	for i, child := range n.Inputs {
		t, err := b.Exec(ctx, child)
		if err != nil {
			return nil, err
		}
		inputs[i] = t
	}

	switch n.Kind {
	case plan.SetUnion:
		out := sql.ConcatTables(inputs...)
		if !n.All {
			out = dedupRows(out)
		}
		return out, nil
	case plan.SetIntersect:
		return b.setIntersect(inputs, n.All)
	case plan.SetExcept:
		return b.setExcept(inputs, n.All)
	default:
		return nil, sql.ErrInternal.New("unknown set operation kind")
	}
}

func rowCounts(t *sql.Table) map[string]int {
	counts := map[string]int{}
	for i := 0; i < t.RowCount(); i++ {
		counts[sql.RowKey(t.Row(i))]++
	}
	return counts
}

func (b *Builder) setIntersect(inputs []*sql.Table, all bool) (*sql.Table, error) {
	if len(inputs) == 0 {
		return nil, sql.ErrInternal.New("set operation with no inputs")
	}
	counts := rowCounts(inputs[0])
	for _, t := range inputs[1:] {
		other := rowCounts(t)
		for k, c := range counts {
			if oc := other[k]; oc < c {
				counts[k] = oc
			}
		}
		for k := range counts {
			if _, ok := other[k]; !ok {
				counts[k] = 0
			}
		}
	}
	return gatherByCount(inputs[0], counts, all), nil
}

func (b *Builder) setExcept(inputs []*sql.Table, all bool) (*sql.Table, error) {
	if len(inputs) == 0 {
		return nil, sql.ErrInternal.New("set operation with no inputs")
	}
	counts := rowCounts(inputs[0])
	for _, t := range inputs[1:] {
		other := rowCounts(t)
		for k, c := range other {
			if remaining, ok := counts[k]; ok {
				if remaining <= c {
					counts[k] = 0
				} else {
					counts[k] = remaining - c
				}
			}
		}
	}
	return gatherByCount(inputs[0], counts, all), nil
}

// gatherByCount re-walks base in order, emitting each row while its
// remaining budget in counts is positive (decrementing per emission for
// ALL semantics, or capping at one for DISTINCT).
func gatherByCount(base *sql.Table, counts map[string]int, all bool) *sql.Table {
	remaining := map[string]int{}
	for k, c := range counts {
		remaining[k] = c
	}
	emitted := map[string]bool{}
	idx := make([]int, 0, base.RowCount())
	for i := 0; i < base.RowCount(); i++ {
		key := sql.RowKey(base.Row(i))
		if remaining[key] <= 0 {
			continue
		}
		if !all {
			if emitted[key] {
				continue
			}
			emitted[key] = true
		}
		idx = append(idx, i)
		remaining[key]--
	}
	return base.GatherRows(idx)
}
