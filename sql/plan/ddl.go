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

package plan

import (
	"fmt"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// affectedRowsSchema is the result shape of every DML statement: a single
// INT64 row count, mirroring BigQuery's job statistics numDmlAffectedRows
// rather than returning the modified rows themselves.
func affectedRowsSchema() sql.Schema {
	return sql.Schema{sql.NewField("", "num_affected_rows", sql.TypeInt64, false)}
}

func noSchema() sql.Schema { return sql.Schema{} }

func noChildrenWithChildren(p LogicalPlan, ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 0 {
		return nil, childCountErr(p, 0, len(ch))
	}
	return p, nil
}

// CreateTable registers a new base table, optionally seeded by AsSelect
// (CREATE TABLE ... AS SELECT); when AsSelect is nil the table starts
// empty under TableSchema.
type CreateTable struct {
	Database    string
	Table       string
	TableSchema sql.Schema
	Constraints sql.TableConstraints
	IfNotExists bool
	AsSelect    LogicalPlan
}

func (c *CreateTable) Schema() sql.Schema { return noSchema() }
func (c *CreateTable) Children() []LogicalPlan {
	if c.AsSelect == nil {
		return nil
	}
	return []LogicalPlan{c.AsSelect}
}
func (c *CreateTable) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if c.AsSelect == nil {
		return noChildrenWithChildren(c, ch...)
	}
	if len(ch) != 1 {
		return nil, childCountErr(c, 1, len(ch))
	}
	cp := *c
	cp.AsSelect = ch[0]
	return &cp, nil
}
func (c *CreateTable) String() string {
	if c.AsSelect == nil {
		return fmt.Sprintf("CreateTable(%s.%s)", c.Database, c.Table)
	}
	return fmt.Sprintf("CreateTable(%s.%s)\n%s", c.Database, c.Table, indent(c.AsSelect))
}

// DropTable removes a base table from the catalog.
type DropTable struct {
	Database string
	Table    string
	IfExists bool
}

func (d *DropTable) Schema() sql.Schema                             { return noSchema() }
func (d *DropTable) Children() []LogicalPlan                        { return nil }
func (d *DropTable) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(d, ch...) }
func (d *DropTable) String() string                                 { return fmt.Sprintf("DropTable(%s.%s)", d.Database, d.Table) }

// AlterTableKind distinguishes the supported ALTER TABLE sub-forms.
type AlterTableKind uint8

const (
	AlterAddColumn AlterTableKind = iota
	AlterDropColumn
	AlterRenameTable
)

// AlterTable covers ALTER TABLE ADD COLUMN/DROP COLUMN/RENAME TO. Only one
// of NewColumn/DropColumnName/NewTableName is populated, per Kind.
type AlterTable struct {
	Database       string
	Table          string
	Kind           AlterTableKind
	NewColumn      *sql.Field
	DropColumnName string
	NewTableName   string
}

func (a *AlterTable) Schema() sql.Schema                             { return noSchema() }
func (a *AlterTable) Children() []LogicalPlan                        { return nil }
func (a *AlterTable) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(a, ch...) }
func (a *AlterTable) String() string {
	return fmt.Sprintf("AlterTable(%s.%s, kind=%d)", a.Database, a.Table, a.Kind)
}

// CreateView registers a named query (QueryText) as a view. Materialized is
// recorded on the view definition; every reference re-plans QueryText
// either way, and no result is cached.
type CreateView struct {
	Database     string
	Name         string
	QueryText    string
	OrReplace    bool
	Materialized bool
}

func (c *CreateView) Schema() sql.Schema                             { return noSchema() }
func (c *CreateView) Children() []LogicalPlan                        { return nil }
func (c *CreateView) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(c, ch...) }
func (c *CreateView) String() string                                 { return fmt.Sprintf("CreateView(%s.%s)", c.Database, c.Name) }

// DropView removes a view definition.
type DropView struct {
	Database string
	Name     string
	IfExists bool
}

func (d *DropView) Schema() sql.Schema                             { return noSchema() }
func (d *DropView) Children() []LogicalPlan                        { return nil }
func (d *DropView) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(d, ch...) }
func (d *DropView) String() string                                 { return fmt.Sprintf("DropView(%s.%s)", d.Database, d.Name) }

// CreateSchema registers a new database (BigQuery "dataset"/"schema").
type CreateSchema struct {
	Name        string
	IfNotExists bool
}

func (c *CreateSchema) Schema() sql.Schema                             { return noSchema() }
func (c *CreateSchema) Children() []LogicalPlan                        { return nil }
func (c *CreateSchema) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(c, ch...) }
func (c *CreateSchema) String() string                                 { return fmt.Sprintf("CreateSchema(%s)", c.Name) }

// DropSchema removes a database.
type DropSchema struct {
	Name     string
	IfExists bool
}

func (d *DropSchema) Schema() sql.Schema                             { return noSchema() }
func (d *DropSchema) Children() []LogicalPlan                        { return nil }
func (d *DropSchema) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(d, ch...) }
func (d *DropSchema) String() string                                 { return fmt.Sprintf("DropSchema(%s)", d.Name) }

// CreateFunction registers a CREATE FUNCTION/PROCEDURE definition.
type CreateFunction struct {
	Database  string
	Def       *sql.FunctionDefinition
	OrReplace bool
}

func (c *CreateFunction) Schema() sql.Schema                             { return noSchema() }
func (c *CreateFunction) Children() []LogicalPlan                        { return nil }
func (c *CreateFunction) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(c, ch...) }
func (c *CreateFunction) String() string {
	return fmt.Sprintf("CreateFunction(%s.%s)", c.Database, c.Def.Name)
}

// DropFunction removes a user function/procedure.
type DropFunction struct {
	Database string
	Name     string
	IfExists bool
}

func (d *DropFunction) Schema() sql.Schema                             { return noSchema() }
func (d *DropFunction) Children() []LogicalPlan                        { return nil }
func (d *DropFunction) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(d, ch...) }
func (d *DropFunction) String() string                                 { return fmt.Sprintf("DropFunction(%s.%s)", d.Database, d.Name) }

// Insert writes Source's rows into Table. ColumnMap, when non-nil, maps
// Source's column position i to the target table's column index
// ColumnMap[i] (an explicit INSERT INTO t (colA, colB) column list); nil
// means Source's columns line up with the table's schema positionally.
type Insert struct {
	unary // Child = Source
	Database    string
	Table       string
	TableSchema sql.Schema
	ColumnMap   []int
}

func NewInsert(database, table string, schema sql.Schema, columnMap []int, source LogicalPlan) *Insert {
	return &Insert{unary: unary{Child: source}, Database: database, Table: table, TableSchema: schema, ColumnMap: columnMap}
}

func (i *Insert) Schema() sql.Schema { return affectedRowsSchema() }
func (i *Insert) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(i, 1, len(ch))
	}
	cp := *i
	cp.Child = ch[0]
	return &cp, nil
}
func (i *Insert) String() string {
	return fmt.Sprintf("Insert(%s.%s)\n%s", i.Database, i.Table, indent(i.Child))
}

// UpdateAssignment sets the column at Index to Expr's evaluated value.
type UpdateAssignment struct {
	Index int
	Expr  expression.Expr
}

// Update rewrites rows of Table matching Filter (nil Filter means every
// row) by applying Assignments. Source supplies the rows to match against:
// a Scan of Table itself, whose columns line up with TableSchema
// (planbuilder rejects UPDATE ... FROM).
type Update struct {
	unary // Child = Source
	Database    string
	Table       string
	TableSchema sql.Schema
	Assignments []UpdateAssignment
	Filter      expression.Expr
}

func (u *Update) Schema() sql.Schema { return affectedRowsSchema() }
func (u *Update) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(u, 1, len(ch))
	}
	cp := *u
	cp.Child = ch[0]
	return &cp, nil
}
func (u *Update) String() string {
	return fmt.Sprintf("Update(%s.%s, %s)\n%s", u.Database, u.Table, u.Filter, indent(u.Child))
}

// Delete removes rows of Table matching Filter (nil Filter means every
// row). Child is a Source of candidate rows, as in Update.
type Delete struct {
	unary
	Database    string
	Table       string
	TableSchema sql.Schema
	Filter      expression.Expr
}

func (d *Delete) Schema() sql.Schema { return affectedRowsSchema() }
func (d *Delete) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(d, 1, len(ch))
	}
	cp := *d
	cp.Child = ch[0]
	return &cp, nil
}
func (d *Delete) String() string {
	return fmt.Sprintf("Delete(%s.%s, %s)\n%s", d.Database, d.Table, d.Filter, indent(d.Child))
}

// Truncate removes every row of Table, leaving its schema intact.
type Truncate struct {
	Database string
	Table    string
}

func (t *Truncate) Schema() sql.Schema                             { return affectedRowsSchema() }
func (t *Truncate) Children() []LogicalPlan                        { return nil }
func (t *Truncate) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) { return noChildrenWithChildren(t, ch...) }
func (t *Truncate) String() string                                 { return fmt.Sprintf("Truncate(%s.%s)", t.Database, t.Table) }

// MergeAction names a MERGE clause's action.
type MergeAction uint8

const (
	MergeActionUpdate MergeAction = iota
	MergeActionDelete
	MergeActionInsert
)

// MergeClause is one WHEN [NOT] MATCHED [AND extra] THEN ... clause.
// Assignments applies to MergeActionUpdate, ColumnMap to
// MergeActionInsert; Extra is an additional boolean condition narrowing
// which matched/unmatched rows the clause applies to (nil means none).
type MergeClause struct {
	Action      MergeAction
	Extra       expression.Expr
	Assignments []UpdateAssignment
	ColumnMap   []int
}

// Merge implements MERGE INTO Table USING Source ON On
// WHEN MATCHED/WHEN NOT MATCHED [BY TARGET|BY SOURCE] THEN ... .
type Merge struct {
	unary // Child = Source
	Database               string
	Table                   string
	TableSchema             sql.Schema
	On                      expression.Expr
	WhenMatched             []MergeClause
	WhenNotMatchedByTarget  []MergeClause
	WhenNotMatchedBySource  []MergeClause
}

func (m *Merge) Schema() sql.Schema { return affectedRowsSchema() }
func (m *Merge) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(m, 1, len(ch))
	}
	cp := *m
	cp.Child = ch[0]
	return &cp, nil
}
func (m *Merge) String() string {
	return fmt.Sprintf("Merge(%s.%s, %s)\n%s", m.Database, m.Table, m.On, indent(m.Child))
}

// ExportData implements EXPORT DATA OPTIONS(...) AS SELECT ...: it runs
// Source to completion and hands the result table to an external sink
// (the actual file/object write is an external collaborator's job; this
// node only carries the destination URI/format).
type ExportData struct {
	unary // Child = Source
	URI    string
	Format string
}

func (e *ExportData) Schema() sql.Schema { return affectedRowsSchema() }
func (e *ExportData) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(e, 1, len(ch))
	}
	cp := *e
	cp.Child = ch[0]
	return &cp, nil
}
func (e *ExportData) String() string {
	return fmt.Sprintf("ExportData(%s, %s)\n%s", e.Format, e.URI, indent(e.Child))
}
