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
	"errors"

	"github.com/bqlite/bqlite/sql"
)

// Result is the outcome of a DML or DDL statement run through Stmt.Exec.
type Result struct {
	affected int64
	err      error
}

// newResult recognizes the affected-row-count schema every DML plan node
// returns (sql/plan/ddl.go's affectedRowsSchema: a single num_affected_rows
// INT64 column) and wraps its value; DDL statements, which return an empty
// schema, report zero rows affected. Any other result (a query's rows) is
// accepted by Exec, and the rejection surfaces from RowsAffected instead.
func newResult(t *sql.Table) (*Result, error) {
	switch {
	case len(t.Schema) == 0:
		return &Result{}, nil
	case len(t.Schema) == 1 && t.Schema[0].Name == "num_affected_rows" && t.RowCount() == 1:
		return &Result{affected: t.Row(0)[0].Int64()}, nil
	default:
		return &Result{err: errors.New("bqlite: statement returned rows; use Query instead of Exec")}, nil
	}
}

// LastInsertId is unsupported: bqlite's type taxonomy has no
// auto-increment column concept.
func (r *Result) LastInsertId() (int64, error) {
	return 0, errors.New("bqlite: LastInsertId is not supported")
}

// RowsAffected returns the number of rows the statement inserted, updated,
// deleted, or merged, or an error when the statement returned rows.
func (r *Result) RowsAffected() (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.affected, nil
}
