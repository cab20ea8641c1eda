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

import (
	"sync"
)

// StoredTable is a mutable, catalog-registered base table. Reads take a
// point-in-time Snapshot; writes go through Replace, which DML executors
// call after computing the post-image table. Lock/Unlock is the table's
// writer lock, which a DML executor holds from its Snapshot through its
// Replace; RLocker is the read side of the sync.RWMutex guarding the data.
// In memory.Table the writer lock is a separate mutex, so it does not
// block readers, which see the last published Snapshot.
type StoredTable interface {
	Name() string
	Schema() Schema
	Snapshot() *Table
	Replace(ctx *Context, next *Table) error
	Constraints() TableConstraints
	sync.Locker
	RLocker() sync.Locker
}

// TableConstraints names the PRIMARY KEY and UNIQUE constraints CREATE
// TABLE registered for a StoredTable, checked by the DML executors on
// INSERT/UPDATE/MERGE, raising ConstraintViolation on a hit. Column names
// are matched case-insensitively against the table's current Schema.
type TableConstraints struct {
	PrimaryKey []string
	Unique     [][]string
}

// ViewDefinition is a named query text registered by CREATE VIEW. The
// logical plan is rebuilt from QueryText on each reference (the analyzer
// owns LogicalPlan and would otherwise create an import cycle back into
// this package). Materialized is recorded but no Table snapshot is
// cached; a materialized view is rebuilt on each reference as well.
type ViewDefinition struct {
	Name         string
	QueryText    string
	Materialized bool
	cached       *Table
}

// FunctionKind distinguishes a pure-expression user scalar function from
// an opaquely scripted one.
type FunctionKind uint8

const (
	FunctionExpression FunctionKind = iota
	FunctionScripted
)

// FunctionDefinition is a registered CREATE FUNCTION/PROCEDURE. Body is
// `any` (an expression.Expr or a parsed statement list) to avoid an import
// cycle from sql into sql/expression; sql/analyzer type-asserts it back.
type FunctionDefinition struct {
	Name       string
	Params     []*Field
	ReturnType TypeID
	Kind       FunctionKind
	Body       any
	Source     string // scripted body source, for FunctionScripted
}

// Database is a named collection of tables, views, and user functions. A
// single default database is typical for the in-memory engine, but the
// catalog supports CREATE/DROP SCHEMA to register more.
type Database struct {
	mu        sync.RWMutex
	Name      string
	tables    map[string]StoredTable
	views     map[string]*ViewDefinition
	functions map[string]*FunctionDefinition
}

func NewDatabase(name string) *Database {
	return &Database{
		Name:      name,
		tables:    map[string]StoredTable{},
		views:     map[string]*ViewDefinition{},
		functions: map[string]*FunctionDefinition{},
	}
}

func (d *Database) Table(name string) (StoredTable, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[lower(name)]
	return t, ok
}

func (d *Database) TableNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.tables))
	for n := range d.tables {
		out = append(out, n)
	}
	return out
}

func (d *Database) AddTable(t StoredTable) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := lower(t.Name())
	if _, ok := d.tables[key]; ok {
		return ErrTableAlreadyExists.New(t.Name())
	}
	d.tables[key] = t
	return nil
}

func (d *Database) DropTable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := lower(name)
	if _, ok := d.tables[key]; !ok {
		return ErrTableNotFound.New(name)
	}
	delete(d.tables, key)
	return nil
}

func (d *Database) View(name string) (*ViewDefinition, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.views[lower(name)]
	return v, ok
}

func (d *Database) AddView(v *ViewDefinition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := lower(v.Name)
	if _, ok := d.views[key]; ok {
		return ErrViewAlreadyExists.New(v.Name)
	}
	d.views[key] = v
	return nil
}

func (d *Database) DropView(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := lower(name)
	if _, ok := d.views[key]; !ok {
		return ErrViewNotFound.New(name)
	}
	delete(d.views, key)
	return nil
}

func (d *Database) Function(name string) (*FunctionDefinition, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.functions[lower(name)]
	return f, ok
}

func (d *Database) AddFunction(f *FunctionDefinition) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.functions[lower(f.Name)] = f
}

func (d *Database) DropFunction(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.functions, lower(name))
}

// Catalog is the session-scoped (never a process-wide static) root of
// tables, views, and user functions across one or more Databases. Its
// RWMutex guards only the database map and the current-database name:
// CreateDatabase, DropDatabase and SetCurrentDatabase hold the write side
// for that update alone. No catalog-wide lock is held across a DDL
// statement; table, view and function DDL lock only the affected
// Database's own maps.
type Catalog struct {
	mu   sync.RWMutex
	dbs  map[string]*Database
	curr string
}

// NewCatalog builds a Catalog with a single default database.
func NewCatalog(defaultDB string) *Catalog {
	c := &Catalog{dbs: map[string]*Database{}, curr: defaultDB}
	c.dbs[lower(defaultDB)] = NewDatabase(defaultDB)
	return c
}

func (c *Catalog) Database(name string) (*Database, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.dbs[lower(name)]
	return d, ok
}

func (c *Catalog) CurrentDatabase() *Database {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dbs[lower(c.curr)]
}

func (c *Catalog) CurrentDatabaseName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.curr
}

func (c *Catalog) SetCurrentDatabase(name string) { c.mu.Lock(); c.curr = name; c.mu.Unlock() }

// CreateDatabase adds an empty database, holding the catalog's write lock
// for the map update.
func (c *Catalog) CreateDatabase(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := lower(name)
	if _, ok := c.dbs[key]; ok {
		return ErrInvalidQuery.New("schema already exists: " + name)
	}
	c.dbs[key] = NewDatabase(name)
	return nil
}

func (c *Catalog) DropDatabase(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := lower(name)
	if _, ok := c.dbs[key]; !ok {
		return ErrInvalidQuery.New("schema not found: " + name)
	}
	delete(c.dbs, key)
	return nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
