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

// Package rowexec walks the optimized plan.LogicalPlan tree and produces a
// concrete sql.Table: one function per node kind, composed by a single
// top-level dispatcher (Exec). Rather than a row-iterator model, each node
// here materializes a whole sql.Table from its children, matching this
// engine's columnar, batch-oriented execution model.
package rowexec

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/analyzer"
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/plan"
)

// Builder holds the per-statement collaborators every node handler needs:
// the catalog to resolve Scan nodes against, and the set of CTE bindings
// currently in scope. It implements eval.SubqueryRunner (via subqueryRunner,
// in subquery.go) so expressions evaluated through it can run nested plans
// without sql/eval importing sql/rowexec.
type Builder struct {
	Catalog *sql.Catalog
	ctes    map[string]*sql.Table
}

// NewBuilder constructs a Builder bound to catalog.
func NewBuilder(catalog *sql.Catalog) *Builder {
	return &Builder{Catalog: catalog, ctes: map[string]*sql.Table{}}
}

// Exec runs p to completion and returns its result table.
func (b *Builder) Exec(ctx *sql.Context, p plan.LogicalPlan) (*sql.Table, error) {
	switch n := p.(type) {
	case *plan.Scan:
		return b.execScan(ctx, n)
	case *plan.Values:
		return b.execValues(ctx, n)
	case *plan.Empty:
		return sql.EmptyTable(n.Schema()), nil
	case *plan.Filter:
		return b.execFilterLike(ctx, n.Child, n.Predicate)
	case *plan.Project:
		return b.execProject(ctx, n)
	case *plan.Join:
		return b.execJoin(ctx, n)
	case *plan.Aggregate:
		return b.execAggregate(ctx, n)
	case *plan.Sort:
		return b.execSort(ctx, n)
	case *plan.TopN:
		return b.execTopN(ctx, n)
	case *plan.Limit:
		return b.execLimit(ctx, n)
	case *plan.Distinct:
		return b.execDistinct(ctx, n)
	case *plan.SetOp:
		return b.execSetOp(ctx, n)
	case *plan.Window:
		return b.execWindow(ctx, n)
	case *plan.Unnest:
		return b.execUnnest(ctx, n)
	case *plan.Qualify:
		return b.execFilterLike(ctx, n.Child, n.Predicate)
	case *plan.Sample:
		return b.execSample(ctx, n)
	case *plan.SubqueryAlias:
		return b.Exec(ctx, n.Child)
	case *plan.WithCte:
		return b.execWithCte(ctx, n)
	case *plan.CteRef:
		t, ok := b.ctes[n.Name]
		if !ok {
			return nil, sql.ErrInternal.New("unbound CTE reference: " + n.Name)
		}
		return t, nil
	case *analyzer.RecursionPlaceholder:
		t, ok := b.ctes[n.Name]
		if !ok {
			return nil, sql.ErrInternal.New("unbound recursive CTE working table: " + n.Name)
		}
		return t, nil
	case *plan.CreateTable:
		return b.execCreateTable(ctx, n)
	case *plan.DropTable:
		return b.execDropTable(ctx, n)
	case *plan.AlterTable:
		return b.execAlterTable(ctx, n)
	case *plan.CreateView:
		return b.execCreateView(ctx, n)
	case *plan.DropView:
		return b.execDropView(ctx, n)
	case *plan.CreateSchema:
		return b.execCreateSchema(ctx, n)
	case *plan.DropSchema:
		return b.execDropSchema(ctx, n)
	case *plan.CreateFunction:
		return b.execCreateFunction(ctx, n)
	case *plan.DropFunction:
		return b.execDropFunction(ctx, n)
	case *plan.Insert:
		return b.execInsert(ctx, n)
	case *plan.Update:
		return b.execUpdate(ctx, n)
	case *plan.Delete:
		return b.execDelete(ctx, n)
	case *plan.Merge:
		return b.execMerge(ctx, n)
	case *plan.Truncate:
		return b.execTruncate(ctx, n)
	case *plan.ExportData:
		return b.execExportData(ctx, n)
	default:
		return nil, sql.ErrUnsupported.New("plan node in executor")
	}
}

// evalCtx builds the eval.Context for expressions evaluated against a
// single materialized table: b itself serves non-correlated subqueries
// through subqueryRunner.
func (b *Builder) evalCtx(ctx *sql.Context) *eval.Context {
	return &eval.Context{Subqueries: &subqueryRunner{b: b, ctx: ctx}}
}

func (b *Builder) execScan(ctx *sql.Context, n *plan.Scan) (*sql.Table, error) {
	dbName := n.Database
	if dbName == "" {
		dbName = ctx.Session.Catalog.CurrentDatabaseName()
	}
	db, ok := b.Catalog.Database(dbName)
	if !ok {
		return nil, sql.ErrInvalidQuery.New("unknown database: " + dbName)
	}
	st, ok := db.Table(n.Table)
	if !ok {
		return nil, sql.ErrTableNotFound.New(n.Table)
	}
	st.RLocker().Lock()
	snap := st.Snapshot()
	st.RLocker().Unlock()
	if n.Projection != nil {
		return snap.Project(n.Projection), nil
	}
	return snap, nil
}

// oneRowTable is a length-1 table carrying a single unused placeholder
// column, used to evaluate expressions known not to reference any input
// column -- VALUES rows, whose grammar only admits literals and simple
// unary/cast expressions over them. Table.RowCount derives its length from
// Cols[0], so a genuinely columnless table would read as zero rows.
func oneRowTable() *sql.Table {
	placeholder := sql.NewColumn(sql.TypeBool, 1)
	return sql.NewTable(sql.Schema{sql.NewField("", "", sql.TypeBool, true)}, []*sql.Column{placeholder})
}

func (b *Builder) execValues(ctx *sql.Context, n *plan.Values) (*sql.Table, error) {
	schema := n.Schema()
	cols := make([]*sql.Column, len(schema))
	for i, f := range schema {
		cols[i] = sql.NewColumn(f.Type, len(n.Rows))
	}
	ectx := b.evalCtx(ctx)
	one := oneRowTable()
	for r, row := range n.Rows {
		for c, e := range row {
			v, err := eval.Evaluate(ectx, e, one)
			if err != nil {
				return nil, err
			}
			if !v.IsNull(0) {
				cols[c].Set(r, v.GetValue(0))
			}
		}
	}
	return &sql.Table{Schema: schema, Cols: cols}, nil
}
