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

// Package memory provides the engine's only sql.StoredTable
// implementation: a table held entirely in process memory, replaced
// wholesale on every write rather than mutated in place. It keeps the
// same name/schema/RWMutex-guarded row storage shape as a conventional
// in-memory table implementation, with any partition/row-iterator
// machinery collapsed down to a single whole-table snapshot model.
package memory

import (
	"sync"

	"github.com/bqlite/bqlite/sql"
)

// Table is a catalog-registered base table backed by a single *sql.Table
// value, swapped atomically under a RWMutex. Snapshot readers never block
// each other; Replace takes the write lock for the duration of the swap.
type Table struct {
	mu          sync.RWMutex
	writeMu     sync.Mutex
	name        string
	data        *sql.Table
	constraints sql.TableConstraints
}

// NewTable builds an empty table under schema, with no PRIMARY KEY/UNIQUE
// constraints.
func NewTable(name string, schema sql.Schema) *Table {
	return &Table{name: name, data: sql.EmptyTable(schema)}
}

// NewTableWithData builds a table already populated with data, used by
// CREATE TABLE ... AS SELECT and by tests seeding fixtures directly.
func NewTableWithData(name string, data *sql.Table) *Table {
	return &Table{name: name, data: data}
}

// NewConstrainedTable builds an empty table carrying PRIMARY KEY/UNIQUE
// constraints, as registered by a CREATE TABLE statement.
func NewConstrainedTable(name string, schema sql.Schema, constraints sql.TableConstraints) *Table {
	return &Table{name: name, data: sql.EmptyTable(schema), constraints: constraints}
}

// NewConstrainedTableWithData builds a table already populated with data
// and carrying constraints, used by ALTER TABLE (which re-registers the
// whole StoredTable under the new schema rather than mutating one in
// place, since Replace itself refuses a column-count change).
func NewConstrainedTableWithData(name string, data *sql.Table, constraints sql.TableConstraints) *Table {
	return &Table{name: name, data: data, constraints: constraints}
}

func (t *Table) Name() string { return t.name }

func (t *Table) Schema() sql.Schema {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.data.Schema
}

// Snapshot returns the table's current data. Since *sql.Table is treated as
// immutable once published (every rowexec operator builds a fresh one
// rather than mutating Cols in place), callers may read it freely after
// the lock is released.
func (t *Table) Snapshot() *sql.Table {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.data
}

// Replace installs next as the table's data, checked against the existing
// schema's column count only; column names and types are not compared
// (DDL that changes the schema, e.g.
// ALTER TABLE, goes through the catalog replacing the whole StoredTable
// registration instead).
func (t *Table) Replace(ctx *sql.Context, next *sql.Table) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(next.Schema) != len(t.data.Schema) {
		return sql.ErrInternal.New("replace changes column count for table " + t.name)
	}
	t.data = next
	return nil
}

func (t *Table) Constraints() sql.TableConstraints {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.constraints
}

// Lock and Unlock are the table's writer lock, held by a DML statement from
// its Snapshot through its Replace. They use writeMu, not mu, so Snapshot,
// Schema, Constraints and Replace stay callable while the writer lock is
// held; readers are not blocked by it and see the last published data.
func (t *Table) Lock()          { t.writeMu.Lock() }
func (t *Table) Unlock()        { t.writeMu.Unlock() }
func (t *Table) RLocker() sync.Locker { return t.mu.RLocker() }

func (t *Table) String() string { return t.name }
