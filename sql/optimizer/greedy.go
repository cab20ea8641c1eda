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

package optimizer

import (
	"sort"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// JoinCost is the greedy reorderer's per-step cost estimate: the
// estimated output row count of adding one relation to the current join,
// plus a total_cost figure that also accounts for the work of producing
// that output (used only to rank candidates against each other, not
// reported to users).
type JoinCost struct {
	OutputRows int
	TotalCost  float64
}

func estimateJoinCost(leftRows, rightRows int, edges []*JoinEdge) JoinCost {
	if len(edges) == 0 {
		// No predicate connects the candidate: a cross product. Heavily
		// penalized so the greedy search strongly prefers relations it
		// has an edge to.
		rows := leftRows * rightRows
		return JoinCost{OutputRows: rows, TotalCost: float64(rows) * 10}
	}
	selectivity := 1.0
	for _, e := range edges {
		selectivity *= e.SelectivityEstimate
	}
	rows := int(float64(leftRows) * float64(rightRows) * selectivity)
	if rows < 1 {
		rows = 1
	}
	return JoinCost{OutputRows: rows, TotalCost: float64(leftRows) + float64(rightRows) + float64(rows)}
}

// ReorderJoins finds every maximal inner-join subtree in p and replaces it
// with a greedily-reordered equivalent, preserving the original output
// schema and column order via a restoration Project when the chosen join
// order differs from the input order.
func ReorderJoins(p plan.LogicalPlan, stats *Stats) (plan.LogicalPlan, error) {
	if graph, ok := FlattenInnerJoins(p, stats); ok {
		return greedyReorder(graph, p.Schema()), nil
	}
	children := append([]plan.LogicalPlan(nil), p.Children()...)
	if len(children) == 0 {
		return p, nil
	}
	for i, c := range children {
		nc, err := ReorderJoins(c, stats)
		if err != nil {
			return nil, err
		}
		children[i] = nc
	}
	return p.WithChildren(children...)
}

func greedyReorder(g *JoinGraph, originalSchema sql.Schema) plan.LogicalPlan {
	available := map[RelationID]bool{}
	for i := range g.relations {
		available[i] = true
	}

	first := findSmallestRelation(g, available)
	delete(available, first)

	order := []RelationID{first}
	current := g.Relation(first).Plan
	currentRows := g.Relation(first).RowCountEstimate
	originalOffsets := relationOffsets(g)

	for len(available) > 0 {
		nextID, cost, predicates := findBestNext(g, order, currentRows, available)
		next := g.Relation(nextID)
		condition := combinePredicates(rebaseJoinColumns(g, originalOffsets, order, nextID, predicates))
		current = plan.NewJoin(current, next.Plan, plan.JoinInner, condition)
		order = append(order, nextID)
		currentRows = cost.OutputRows
		delete(available, nextID)
	}

	return maybeRestoreSchema(g, order, current, originalSchema)
}

// rebaseJoinColumns rewrites each predicate's Column.Index values -- computed
// against the original, pre-reorder flattened schema offsets -- to match the
// schema of the Join about to be built: order's relations, concatenated in
// their new sequence, on the left, and nextID's relation on the right. Every
// edge predicate touches exactly the two relations being joined at this
// step (addEdgesForCondition only keeps two-relation conditions), so both
// of a predicate's columns always resolve against order or nextID.
func rebaseJoinColumns(g *JoinGraph, originalOffsets []int, order []RelationID, nextID RelationID, preds []expression.Expr) []expression.Expr {
	newOffset := map[RelationID]int{}
	sum := 0
	for _, id := range order {
		newOffset[id] = sum
		sum += len(g.Relation(id).Plan.Schema())
	}
	newOffset[nextID] = sum

	out := make([]expression.Expr, len(preds))
	for i, p := range preds {
		rebased, _ := expression.Transform(p, func(n expression.Expr) (expression.Expr, error) {
			col, ok := n.(*expression.Column)
			if !ok {
				return n, nil
			}
			relID := relationForIndex(originalOffsets, col.Index)
			within := col.Index - originalOffsets[relID]
			cp := *col
			cp.Index = newOffset[relID] + within
			return &cp, nil
		})
		out[i] = rebased
	}
	return out
}

func combinePredicates(preds []expression.Expr) expression.Expr {
	if len(preds) == 0 {
		return nil
	}
	out := preds[0]
	for _, p := range preds[1:] {
		out = expression.NewBinaryOp(expression.OpAnd, out, p, sql.TypeBool)
	}
	return out
}

func findSmallestRelation(g *JoinGraph, available map[RelationID]bool) RelationID {
	ids := sortedIDs(available)
	best := ids[0]
	bestRows := g.Relation(best).RowCountEstimate
	for _, id := range ids[1:] {
		if rows := g.Relation(id).RowCountEstimate; rows < bestRows {
			best, bestRows = id, rows
		}
	}
	return best
}

// findBestNext picks the available relation that minimizes TotalCost when
// joined onto current, breaking ties by the smaller candidate row count.
// Candidates are visited in sorted order so that a tie the cost model and
// row-count tie-break both leave unresolved still always picks the same
// (lowest-id) relation rather than whichever map iteration happened to
// visit first.
func findBestNext(g *JoinGraph, current []RelationID, currentRows int, available map[RelationID]bool) (RelationID, JoinCost, []expression.Expr) {
	bestID := -1
	var bestCost JoinCost
	var bestPreds []expression.Expr
	for _, candidate := range sortedIDs(available) {
		var edges []*JoinEdge
		for _, relID := range current {
			edges = append(edges, g.EdgesBetween(relID, candidate)...)
		}
		cost := estimateJoinCost(currentRows, g.Relation(candidate).RowCountEstimate, edges)
		preds := make([]expression.Expr, len(edges))
		for i, e := range edges {
			preds[i] = e.Predicate
		}
		switch {
		case bestID == -1:
			bestID, bestCost, bestPreds = candidate, cost, preds
		case cost.TotalCost < bestCost.TotalCost:
			bestID, bestCost, bestPreds = candidate, cost, preds
		case cost.TotalCost == bestCost.TotalCost && g.Relation(candidate).RowCountEstimate < g.Relation(bestID).RowCountEstimate:
			bestID, bestCost, bestPreds = candidate, cost, preds
		}
	}
	return bestID, bestCost, bestPreds
}

func sortedIDs(ids map[RelationID]bool) []RelationID {
	out := make([]RelationID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func maybeRestoreSchema(g *JoinGraph, order []RelationID, joined plan.LogicalPlan, originalSchema sql.Schema) plan.LogicalPlan {
	isOriginalOrder := true
	for idx, id := range order {
		if g.Relation(id).OriginalPosition != idx {
			isOriginalOrder = false
			break
		}
	}
	if isOriginalOrder {
		return joined
	}

	widths := make([]int, len(g.relations))
	for i, r := range g.relations {
		widths[i] = len(r.Plan.Schema())
	}
	originalOffset := make([]int, len(g.relations))
	sum := 0
	for i, r := range g.relations {
		originalOffset[r.OriginalPosition] = sum
		sum += widths[i]
	}

	var mappings []columnMapping
	reorderedOffset := 0
	for _, id := range order {
		base := originalOffset[g.Relation(id).OriginalPosition]
		width := widths[id]
		for col := 0; col < width; col++ {
			mappings = append(mappings, columnMapping{reorderedOffset + col, base + col})
		}
		reorderedOffset += width
	}

	sortMappingsByOriginal(mappings)

	joinedSchema := joined.Schema()
	items := make([]plan.ProjectItem, len(mappings))
	for i, m := range mappings {
		f := joinedSchema[m.reorderedIdx]
		col := expression.NewColumn(f.TableName, f.Name, m.reorderedIdx, f.Type, f.Nullable)
		items[i] = plan.ProjectItem{Expr: col, Field: originalSchema[i]}
	}
	return plan.NewProject(items, joined)
}

type columnMapping struct{ reorderedIdx, originalIdx int }

func sortMappingsByOriginal(m []columnMapping) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && m[j].originalIdx < m[j-1].originalIdx; j-- {
			m[j], m[j-1] = m[j-1], m[j]
		}
	}
}
