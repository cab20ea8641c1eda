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
	"github.com/bqlite/bqlite/sql/plan"
)

// execUnnest expands n.Array for each input row into zero or more output
// rows (one per array element), carrying the source row's other columns
// along unchanged (a cross join with the array's elements), and optionally
// appends a zero-based element-offset column.
func (b *Builder) execUnnest(ctx *sql.Context, n *plan.Unnest) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	arrCol, err := eval.Evaluate(b.evalCtx(ctx), n.Array, in)
	if err != nil {
		return nil, err
	}

	var srcIdx []int
	var elems []sql.Value
	var elemNull []bool
	var offsets []int64
	for r := 0; r < in.RowCount(); r++ {
		if arrCol.IsNull(r) {
			continue
		}
		for off, v := range arrCol.GetValue(r).Array() {
			srcIdx = append(srcIdx, r)
			elems = append(elems, v)
			elemNull = append(elemNull, v.IsNull())
			offsets = append(offsets, int64(off))
		}
	}

	schema := n.Schema()
	cols := make([]*sql.Column, 0, len(schema))
	for _, c := range in.Cols {
		cols = append(cols, gatherWithNulls(c, srcIdx))
	}

	elemCol := sql.NewColumn(n.ElemField.Type, len(elems))
	for i, v := range elems {
		if !elemNull[i] {
			elemCol.Set(i, v)
		}
	}
	cols = append(cols, elemCol)

	if n.WithOffset {
		offCol := sql.NewColumn(sql.TypeInt64, len(offsets))
		for i, o := range offsets {
			offCol.Set(i, sql.NewInt64(o))
		}
		cols = append(cols, offCol)
	}

	return &sql.Table{Schema: schema, Cols: cols}, nil
}
