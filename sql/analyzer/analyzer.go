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

package analyzer

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/plan"
)

// ResolveScans walks p and fills in every Scan node's TableSchema from cat,
// replacing view references with their parsed body inline (recursively,
// so a view over a view resolves transitively). sql/planbuilder emits Scan
// nodes with Table/Alias set but TableSchema nil, and calls ResolveScans
// with its own catalog on each FROM-clause fragment as it builds.
func ResolveScans(cat *sql.Catalog, p plan.LogicalPlan, parseView func(text string) (plan.LogicalPlan, error)) (plan.LogicalPlan, error) {
	switch t := p.(type) {
	case *plan.Scan:
		if t.TableSchema != nil {
			return t, nil
		}
		db := cat.CurrentDatabase()
		if t.Database != "" {
			d, ok := cat.Database(t.Database)
			if !ok {
				return nil, sql.ErrInvalidQuery.New("unknown database: " + t.Database)
			}
			db = d
		}
		if tbl, ok := db.Table(t.Table); ok {
			alias := t.Alias
			if alias == "" {
				alias = t.Table
			}
			schema := requalify(tbl.Schema(), alias)
			return plan.NewScan(t.Database, t.Table, alias, schema), nil
		}
		if view, ok := db.View(t.Table); ok {
			body, err := parseView(view.QueryText)
			if err != nil {
				return nil, err
			}
			alias := t.Alias
			if alias == "" {
				alias = t.Table
			}
			return plan.NewSubqueryAlias(alias, body), nil
		}
		return nil, sql.ErrTableNotFound.New(t.Table)
	default:
		children := p.Children()
		if len(children) == 0 {
			return p, nil
		}
		newChildren := make([]plan.LogicalPlan, len(children))
		changed := false
		for i, c := range children {
			nc, err := ResolveScans(cat, c, parseView)
			if err != nil {
				return nil, err
			}
			newChildren[i] = nc
			if nc != c {
				changed = true
			}
		}
		if !changed {
			return p, nil
		}
		return p.WithChildren(newChildren...)
	}
}

func requalify(schema sql.Schema, alias string) sql.Schema {
	out := make(sql.Schema, len(schema))
	for i, f := range schema {
		cp := *f
		cp.TableName = alias
		out[i] = &cp
	}
	return out
}
