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

package bqlite

import (
	"time"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/optimizer"
	"github.com/bqlite/bqlite/sql/plan"
	"github.com/bqlite/bqlite/sql/planbuilder"
	"github.com/bqlite/bqlite/sql/rowexec"
)

// Engine is the single entry point callers (the driver and cmd/bqlite)
// submit query text to. It wires the three stages the rest of the module
// implements separately -- planbuilder (parse + resolve), optimizer
// (rewrite), rowexec (execute) -- with none of a server's network/auth/
// event-scheduler concerns, which are out of scope for an embedded
// in-memory engine.
type Engine struct {
	Catalog *sql.Catalog
}

// New builds an Engine over an existing catalog, letting callers share one
// catalog across multiple Engines (e.g. a driver opening several
// connections against the same in-memory database).
func New(cat *sql.Catalog) *Engine {
	return &Engine{Catalog: cat}
}

// NewDefault builds an Engine with a fresh catalog, its default database
// named "default" (sql.NewSession's own fallback, mirrored here so a
// caller that only wants a quick in-memory database doesn't have to know
// the name).
func NewDefault() *Engine {
	return &Engine{Catalog: sql.NewCatalog("default")}
}

// mutatesCatalog reports whether p is a DDL or DML node whose effects
// invalidate previously cached physical plans -- every statement that can
// change a table's schema, rows, or existence, so the plan cache is
// invalidated wholesale (DML counts too: a cached Scan-based plan's row
// count estimates go stale just as surely as its schema would).
func mutatesCatalog(p plan.LogicalPlan) bool {
	switch p.(type) {
	case *plan.CreateTable, *plan.DropTable, *plan.AlterTable,
		*plan.CreateView, *plan.DropView,
		*plan.CreateSchema, *plan.DropSchema,
		*plan.CreateFunction, *plan.DropFunction,
		*plan.Insert, *plan.Update, *plan.Delete, *plan.Merge, *plan.Truncate:
		return true
	default:
		return false
	}
}

// AnalyzeQuery parses and resolves query against ctx's session catalog --
// a session owns its catalog, so ctx.Session.Catalog is authoritative,
// not e.Catalog, and a caller that pointed a session at a different
// catalog than the one Engine was built with still gets consistent
// behavior -- and returns the unoptimized logical plan. This is the
// building block Query/Explain both start from.
func (e *Engine) AnalyzeQuery(ctx *sql.Context, query string) (plan.LogicalPlan, error) {
	return planbuilder.New(ctx.Session.Catalog).BuildText(query)
}

// statsFromCatalog builds an optimizer.Stats snapshot from every base
// table's current row count in ctx's current database, the row-count
// input the cost-based join reorderer (optimizer.ReorderJoins) needs.
// Views and tables in other databases are left unestimated, falling back
// to the optimizer's default selectivity constants.
func statsFromCatalog(ctx *sql.Context) *optimizer.Stats {
	stats := optimizer.NewStats()
	db := ctx.Session.Catalog.CurrentDatabase()
	if db == nil {
		return stats
	}
	for _, name := range db.TableNames() {
		st, ok := db.Table(name)
		if !ok {
			continue
		}
		stats.Tables[name] = optimizer.NewTableStats(st.Snapshot().RowCount())
	}
	return stats
}

// plan builds and optimizes query, consulting and populating ctx's plan
// cache: planbuilder (AnalyzeQuery) runs on every call, and a cache hit
// skips only the optimizer, returning the stored physical plan. DDL/DML
// statements are
// never served from, or entered into, the cache -- CreateTable and friends
// name a new table identity on every build (so caching them buys nothing),
// and DML's affected-row-count result has no meaningful "physical plan"
// reuse across calls.
func (e *Engine) plan(ctx *sql.Context, query string) (logical, physical plan.LogicalPlan, err error) {
	logical, err = e.AnalyzeQuery(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	if mutatesCatalog(logical) {
		physical = logical
		return logical, physical, nil
	}

	if cached, ok := ctx.Session.Cache.Get(query); ok {
		physical = cached.(plan.LogicalPlan)
		return logical, physical, nil
	}

	level := ctx.Session.System.OptimizerLevel()
	physical, err = optimizer.Optimize(logical, level, statsFromCatalog(ctx))
	if err != nil {
		return nil, nil, err
	}
	ctx.Session.Cache.Put(query, physical)
	return logical, physical, nil
}

// Query runs query to completion against ctx's session catalog and returns its
// result table. DDL/DML statements return plan.affectedRowsSchema's
// one-row, one-column result (see sql/plan/ddl.go); SELECT statements
// return the query's projected rows.
func (e *Engine) Query(ctx *sql.Context, query string) (*sql.Table, error) {
	_, physical, err := e.plan(ctx, query)
	if err != nil {
		return nil, err
	}
	if mutatesCatalog(physical) {
		ctx.Session.Cache.Invalidate()
	}
	return rowexec.NewBuilder(ctx.Session.Catalog).Exec(ctx, physical)
}

// Explain returns the EXPLAIN result table: the query's logical plan as
// produced by the planner, and its physical plan after optimization,
// without executing either.
func (e *Engine) Explain(ctx *sql.Context, query string) (*sql.Table, error) {
	logical, physical, err := e.plan(ctx, query)
	if err != nil {
		return nil, err
	}
	return ExplainTable(logical, physical), nil
}

// ExplainAnalyze executes query for real, timing it, and returns the
// EXPLAIN ANALYZE result table: the same two plan rows as Explain plus
// execution_time (microseconds) and rows_returned.
func (e *Engine) ExplainAnalyze(ctx *sql.Context, query string) (*sql.Table, error) {
	logical, physical, err := e.plan(ctx, query)
	if err != nil {
		return nil, err
	}
	if mutatesCatalog(physical) {
		ctx.Session.Cache.Invalidate()
	}

	start := time.Now()
	result, err := rowexec.NewBuilder(ctx.Session.Catalog).Exec(ctx, physical)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	return ExplainAnalyzeTable(logical, physical, elapsed, result.RowCount()), nil
}
