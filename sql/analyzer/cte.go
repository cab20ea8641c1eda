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
	"strings"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/plan"
)

// FindRecursiveAnchor walks a UNION [ALL] chain (the only set operation a
// recursive CTE body may use) to find the left-most branch that does not
// reference cteName, which becomes the recursive query's anchor (base
// case); everything after it is the recursive step, evaluated repeatedly
// against the working table until it returns no new rows.
func FindRecursiveAnchor(body plan.LogicalPlan, cteName string) plan.LogicalPlan {
	setOp, ok := body.(*plan.SetOp)
	if !ok || setOp.Kind != plan.SetUnion || len(setOp.Inputs) == 0 {
		return body
	}
	left := setOp.Inputs[0]
	if !ReferencesTable(left, cteName) {
		return left
	}
	return FindRecursiveAnchor(left, cteName)
}

// ReferencesTable reports whether p (or any descendant) scans the named
// table, directly or through a CteRef -- used to find the non-recursive
// anchor branch of a recursive CTE body.
func ReferencesTable(p plan.LogicalPlan, name string) bool {
	switch t := p.(type) {
	case *plan.Scan:
		return strings.EqualFold(t.Table, name)
	case *plan.CteRef:
		return strings.EqualFold(t.Name, name)
	default:
		for _, c := range p.Children() {
			if ReferencesTable(c, name) {
				return true
			}
		}
		return false
	}
}

// DeriveCteSchema computes the output schema a CTE reference sees: the
// anchor branch's schema for a recursive CTE (so the recursive step can be
// planned against a stable, finite schema before the full body is
// resolved), or the full body's schema otherwise. When explicitColumns is
// non-empty (a column-name list on the CTE alias), field names are
// renamed positionally.
func DeriveCteSchema(body plan.LogicalPlan, cteName string, recursive bool, explicitColumns []string) sql.Schema {
	var base sql.Schema
	if recursive {
		anchor := FindRecursiveAnchor(body, cteName)
		base = anchor.Schema()
	} else {
		base = body.Schema()
	}

	out := make(sql.Schema, len(base))
	for i, f := range base {
		name := f.Name
		if i < len(explicitColumns) {
			name = explicitColumns[i]
		}
		out[i] = sql.NewField(cteName, name, f.Type, f.Nullable)
	}
	return out
}

// RecursionPlaceholder stands in for "the working table accumulated so
// far" inside a recursive CTE's recursive step, before each iteration
// substitutes the previous iteration's output (iterate-to-fixpoint
// recursive CTE execution). It carries only a schema: the executor is
// responsible for substituting the live working table at execution time.
type RecursionPlaceholder struct {
	Name         string
	PlanSchema   sql.Schema
}

func NewRecursionPlaceholder(name string, schema sql.Schema) *RecursionPlaceholder {
	return &RecursionPlaceholder{Name: name, PlanSchema: schema}
}

func (r *RecursionPlaceholder) Schema() sql.Schema        { return r.PlanSchema }
func (r *RecursionPlaceholder) Children() []plan.LogicalPlan { return nil }
func (r *RecursionPlaceholder) WithChildren(ch ...plan.LogicalPlan) (plan.LogicalPlan, error) {
	if len(ch) != 0 {
		return nil, sql.ErrInternal.New("RecursionPlaceholder takes no children")
	}
	return r, nil
}
func (r *RecursionPlaceholder) String() string { return "RecursionPlaceholder(" + r.Name + ")" }
