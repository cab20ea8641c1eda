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
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// AggregateHoister collects aggregate expressions out of a SELECT list and
// HAVING/ORDER BY/QUALIFY clauses (which may reference the same aggregate
// again, textually) and dedups them by canonical name so each distinct
// aggregate is computed exactly once by the plan.Aggregate node.
type AggregateHoister struct {
	names  []string
	aggs   []*expression.Aggregate
	byName map[string]int
}

func NewAggregateHoister() *AggregateHoister {
	return &AggregateHoister{byName: make(map[string]int)}
}

// Collect walks e (not descending into subqueries) and registers every
// aggregate found, returning e rewritten so each aggregate subtree is
// replaced with a Column pointing at its hoisted position. Call this once
// per SELECT-list / HAVING / ORDER BY / QUALIFY expression, in that order,
// so the SELECT list's aggregates claim the lowest output indices.
func (h *AggregateHoister) Collect(e expression.Expr) (expression.Expr, error) {
	return h.rewrite(e)
}

func (h *AggregateHoister) rewrite(e expression.Expr) (expression.Expr, error) {
	switch t := e.(type) {
	case *expression.Aggregate:
		idx := h.register(t)
		return expression.NewColumn("", h.names[idx], idx, t.Type(), true), nil
	case *expression.AggregateWindow:
		// Window aggregates are not hoisted into the Aggregate node --
		// they run after aggregation, over a Window plan node instead.
		// Only their non-window arguments could themselves reference
		// grouped columns, which the caller's window-planning stage
		// handles; here we leave the node untouched.
		return e, nil
	case *expression.ScalarSubquery, *expression.ArraySubquery, *expression.Exists, *expression.InSubquery:
		return e, nil
	default:
		children := e.Children()
		if len(children) == 0 {
			return e, nil
		}
		newChildren := make([]expression.Expr, len(children))
		changed := false
		for i, c := range children {
			nc, err := h.rewrite(c)
			if err != nil {
				return nil, err
			}
			newChildren[i] = nc
			if nc != c {
				changed = true
			}
		}
		if !changed {
			return e, nil
		}
		return e.WithChildren(newChildren...)
	}
}

// register dedups agg by its canonical textual form, appending it to the
// hoisted list on first sight, and returns its output index either way.
func (h *AggregateHoister) register(agg *expression.Aggregate) int {
	canon := agg.CanonicalName()
	if idx, ok := h.byName[canon]; ok {
		return idx
	}
	idx := len(h.aggs)
	h.aggs = append(h.aggs, agg)
	h.names = append(h.names, canon)
	h.byName[canon] = idx
	return idx
}

// Items returns the hoisted aggregates as plan.AggregateItems, in
// registration order, ready to become a plan.Aggregate node's Aggregates
// field.
func (h *AggregateHoister) Items() []plan.AggregateItem {
	out := make([]plan.AggregateItem, len(h.aggs))
	for i, a := range h.aggs {
		out[i] = plan.AggregateItem{
			Agg:   a,
			Field: sql.NewField("", h.names[i], a.Type(), true),
		}
	}
	return out
}

// Len reports how many distinct aggregates have been hoisted so far.
func (h *AggregateHoister) Len() int { return len(h.aggs) }

// BuildAggregate wraps child in a plan.Aggregate node using the group-by
// expressions and the hoisted aggregate list, matching the column layout
// Collect's rewritten expressions assume (group-by columns first, then
// aggregates, indices 0..n-1 for aggregates starting right after the
// group-by columns -- callers must re-offset Collect's output indices by
// len(groupBy) before use; RebaseColumn does this).
func (h *AggregateHoister) BuildAggregate(groupBy []expression.Expr, groupByNames []string, child plan.LogicalPlan) *plan.Aggregate {
	return plan.NewAggregate(groupBy, groupByNames, h.Items(), child)
}

// RebaseColumn shifts a Column produced by Collect (which numbers
// aggregates starting at 0) to its true position in the Aggregate node's
// output schema, which places group-by columns first.
func RebaseColumn(e expression.Expr, groupByCount int) (expression.Expr, error) {
	return expression.Transform(e, func(n expression.Expr) (expression.Expr, error) {
		col, ok := n.(*expression.Column)
		if !ok || col.Table != "" {
			return n, nil
		}
		return expression.NewColumn(col.Table, col.Name, col.Index+groupByCount, col.Typ, col.Null), nil
	})
}
