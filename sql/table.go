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

package sql

// Table is an immutable (schema, columns) pair: len(Columns) ==
// len(Schema) and every column has the same length, RowCount. Operators in
// sql/rowexec each materialize one Table from their children; DML produces
// new base-table versions under the catalog rather than mutating a Table
// in place.
type Table struct {
	Schema Schema
	Cols   []*Column
}

// NewTable validates and builds a Table. It panics on a shape mismatch
// (component B's invariant) since that can only happen from an operator
// bug, never from user input.
func NewTable(schema Schema, cols []*Column) *Table {
	if len(schema) != len(cols) {
		panic("sql: schema/column count mismatch")
	}
	n := -1
	for _, c := range cols {
		if n == -1 {
			n = c.Len()
		} else if c.Len() != n {
			panic("sql: column length mismatch")
		}
	}
	return &Table{Schema: schema, Cols: cols}
}

// EmptyTable builds a zero-row table with the given schema, used by Empty
// plan nodes and by empty-propagation optimizer rewrites.
func EmptyTable(schema Schema) *Table {
	cols := make([]*Column, len(schema))
	for i, f := range schema {
		cols[i] = NewColumn(f.Type, 0)
	}
	return &Table{Schema: schema, Cols: cols}
}

func (t *Table) RowCount() int {
	if len(t.Cols) == 0 {
		return 0
	}
	return t.Cols[0].Len()
}

// Row materializes row i as a slice of Values, in schema order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Cols))
	for j, c := range t.Cols {
		row[j] = c.GetValue(i)
	}
	return row
}

// ConcatTables vertically concatenates tables under a unified schema (the
// first table's schema). Callers (UNION ALL, set-operation children) are
// responsible for ensuring compatible column types.
func ConcatTables(tables ...*Table) *Table {
	if len(tables) == 0 {
		return nil
	}
	schema := tables[0].Schema
	total := 0
	for _, t := range tables {
		total += t.RowCount()
	}
	cols := make([]*Column, len(schema))
	for ci, f := range schema {
		out := NewColumn(f.Type, total)
		row := 0
		for _, t := range tables {
			src := t.Cols[ci]
			for r := 0; r < src.Len(); r++ {
				if !src.IsNull(r) {
					out.Set(row, src.GetValue(r))
				}
				row++
			}
		}
		cols[ci] = out
	}
	return &Table{Schema: schema, Cols: cols}
}

// GatherRows produces a new table with only the chosen rows, in the given
// order (duplicates and repeats are allowed, used by join probes and sort).
func (t *Table) GatherRows(indices []int) *Table {
	cols := make([]*Column, len(t.Cols))
	for i, c := range t.Cols {
		cols[i] = c.Gather(indices)
	}
	return &Table{Schema: t.Schema, Cols: cols}
}

// FilterByMask gathers rows whose mask entry is true; rows where the mask
// is Null are excluded, matching SQL's three-valued WHERE semantics.
func (t *Table) FilterByMask(mask *Column) *Table {
	indices := make([]int, 0, t.RowCount())
	for i := 0; i < mask.Len(); i++ {
		if mask.IsNull(i) {
			continue
		}
		if mask.boolVals[i] {
			indices = append(indices, i)
		}
	}
	return t.GatherRows(indices)
}

// Project returns a new table containing only the given column indices, in
// the given order, used by projection pushdown and by Project nodes whose
// expressions are plain column references.
func (t *Table) Project(indices []int) *Table {
	schema := make(Schema, len(indices))
	cols := make([]*Column, len(indices))
	for j, i := range indices {
		schema[j] = t.Schema[i]
		cols[j] = t.Cols[i]
	}
	return &Table{Schema: schema, Cols: cols}
}
