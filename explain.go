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

// Package bqlite is the engine's root package: it wires the semantic
// planner, optimizer, and executor into the single Engine entry point
// (engine.go) and renders EXPLAIN/EXPLAIN ANALYZE output (this file). Both
// live here rather than under sql/ because rendering a plan.LogicalPlan
// tree requires importing sql/plan, and sql/plan already imports sql --
// putting this in package sql itself would be a cycle.
package bqlite

import (
	"strconv"
	"time"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/plan"
)

func explainSchema() sql.Schema {
	return sql.Schema{
		sql.NewField("", "plan_type", sql.TypeString, false),
		sql.NewField("", "plan", sql.TypeString, false),
	}
}

// explainRows renders the two-column (plan_type, plan) table for a single
// EXPLAIN. logical is the plan as produced by the semantic planner,
// physical is the same query after the optimizer's rewrite passes --
// both rendered with plan.LogicalPlan's own String()/indent() tree
// printer (sql/plan/plan.go).
func explainRows(logical, physical plan.LogicalPlan) [][2]string {
	return [][2]string{
		{"logical", logical.String()},
		{"physical", physical.String()},
	}
}

// ExplainTable builds the result table for EXPLAIN logical_plan
// physical_plan.
func ExplainTable(logical, physical plan.LogicalPlan) *sql.Table {
	return stringTable(explainSchema(), explainRows(logical, physical))
}

// ExplainAnalyzeTable builds the result table for EXPLAIN ANALYZE: the same
// two rows as ExplainTable, plus execution_time (microseconds) and
// rows_returned.
func ExplainAnalyzeTable(logical, physical plan.LogicalPlan, elapsed time.Duration, rowsReturned int) *sql.Table {
	rows := explainRows(logical, physical)
	rows = append(rows,
		[2]string{"execution_time", strconv.FormatInt(elapsed.Microseconds(), 10)},
		[2]string{"rows_returned", strconv.Itoa(rowsReturned)},
	)
	return stringTable(schema2Col(), rows)
}

func schema2Col() sql.Schema { return explainSchema() }

func stringTable(schema sql.Schema, rows [][2]string) *sql.Table {
	c0 := sql.NewColumn(sql.TypeString, len(rows))
	c1 := sql.NewColumn(sql.TypeString, len(rows))
	for i, r := range rows {
		c0.Set(i, sql.NewString(r[0]))
		c1.Set(i, sql.NewString(r[1]))
	}
	return &sql.Table{Schema: schema, Cols: []*sql.Column{c0, c1}}
}
