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

package driver

import (
	"database/sql/driver"
	"io"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/eval"
)

// Rows is an iterator over a statement's already-materialized result table
// (bqlite.Engine.Query never streams: sql/rowexec builds one columnar
// *sql.Table per statement), so Next just walks table indices.
type Rows struct {
	table *sql.Table
	idx   int
}

// Columns returns the result's column names.
func (r *Rows) Columns() []string {
	names := make([]string, len(r.table.Schema))
	for i, f := range r.table.Schema {
		names[i] = f.Name
	}
	return names
}

// Close releases the rows iterator. The underlying Table needs no cleanup.
func (r *Rows) Close() error {
	r.idx = r.table.RowCount()
	return nil
}

// Next populates dest with the next row's values, returning io.EOF once the
// table is exhausted.
func (r *Rows) Next(dest []driver.Value) error {
	if r.idx >= r.table.RowCount() {
		return io.EOF
	}
	row := r.table.Row(r.idx)
	for i, v := range row {
		dest[i] = toDriverValue(v)
	}
	r.idx++
	return nil
}

// toDriverValue converts a bqlite sql.Value to the native Go type
// database/sql expects back from a driver.Rows.Next call.
func toDriverValue(v sql.Value) driver.Value {
	switch v.Type() {
	case sql.TypeNull:
		return nil
	case sql.TypeBool:
		return v.Bool()
	case sql.TypeInt64:
		return v.Int64()
	case sql.TypeFloat64:
		return float64(v.Float64())
	case sql.TypeNumeric, sql.TypeBigNumeric:
		return v.Numeric().String()
	case sql.TypeString, sql.TypeGeography:
		return v.String()
	case sql.TypeBytes:
		return v.Bytes()
	case sql.TypeDate, sql.TypeTime, sql.TypeDateTime, sql.TypeTimestamp:
		return v.Time()
	default:
		// Array, Struct, JSON, Interval, Range: no flat database/sql scan
		// target exists for these, so callers get the same formatted string
		// CAST(... AS STRING) would produce (cmd/bqlite's displayValue does
		// the same thing for its table cells).
		s, err := eval.CastValue(v, sql.TypeString)
		if err != nil {
			return ""
		}
		return s.String()
	}
}
