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

	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// RelationID indexes a JoinGraph's relation slice.
type RelationID = int

// JoinRelation is one leaf of a flattened inner-join tree: a Scan (or
// other non-join subplan) plus its estimated row count and its position
// in the original, pre-reorder join list.
type JoinRelation struct {
	ID                RelationID
	TableName         string
	OriginalPosition  int
	Plan              plan.LogicalPlan
	RowCountEstimate  int
}

// JoinEdge is an equi- or general-predicate connection between two
// relations, extracted from an ANDed chain of inner-join conditions.
type JoinEdge struct {
	Left, Right           RelationID
	Predicate             expression.Expr
	SelectivityEstimate float64
}

// JoinGraph is the flattened n-ary join problem the greedy reorderer
// solves.
type JoinGraph struct {
	relations []JoinRelation
	edges     []JoinEdge
	adjacency [][]int // relation id -> edge indices
}

func NewJoinGraph() *JoinGraph { return &JoinGraph{} }

func (g *JoinGraph) AddRelation(r JoinRelation) RelationID {
	id := len(g.relations)
	r.ID = id
	r.OriginalPosition = id
	g.relations = append(g.relations, r)
	g.adjacency = append(g.adjacency, nil)
	return id
}

func (g *JoinGraph) AddEdge(e JoinEdge) {
	idx := len(g.edges)
	g.adjacency[e.Left] = append(g.adjacency[e.Left], idx)
	g.adjacency[e.Right] = append(g.adjacency[e.Right], idx)
	g.edges = append(g.edges, e)
}

func (g *JoinGraph) Relation(id RelationID) *JoinRelation { return &g.relations[id] }
func (g *JoinGraph) Relations() []JoinRelation            { return g.relations }

func (g *JoinGraph) EdgesBetween(a, b RelationID) []*JoinEdge {
	var out []*JoinEdge
	for _, idx := range g.adjacency[a] {
		e := &g.edges[idx]
		if (e.Left == a && e.Right == b) || (e.Left == b && e.Right == a) {
			out = append(out, e)
		}
	}
	return out
}

// FlattenInnerJoins decomposes a left-deep (or any-shaped) tree of inner
// joins rooted at p into a JoinGraph: every non-Join descendant becomes a
// relation, and every Join's condition is split on top-level AND into
// edges between the relations its operands reference. Outer/semi/anti/
// cross joins are left untouched -- the reorderer starts from wherever the
// inner-join subtree bottoms out.
func FlattenInnerJoins(p plan.LogicalPlan, stats *Stats) (*JoinGraph, bool) {
	j, ok := p.(*plan.Join)
	if !ok || j.Kind != plan.JoinInner {
		return nil, false
	}
	g := NewJoinGraph()
	var conditions []expression.Expr
	flattenRelations(j, g, stats, &conditions)
	if len(g.relations) < 2 {
		return nil, false
	}
	offsets := relationOffsets(g)
	for _, cond := range conditions {
		addEdgesForCondition(g, cond, offsets)
	}
	return g, true
}

func flattenRelations(p plan.LogicalPlan, g *JoinGraph, stats *Stats, conditions *[]expression.Expr) {
	if j, ok := p.(*plan.Join); ok && j.Kind == plan.JoinInner {
		if j.Condition != nil {
			*conditions = append(*conditions, splitConjuncts(j.Condition)...)
		}
		flattenRelations(j.Left, g, stats, conditions)
		flattenRelations(j.Right, g, stats, conditions)
		return
	}
	name := ""
	if scan, ok := p.(*plan.Scan); ok {
		name = scan.Table
	}
	rowCount := 1000
	if stats != nil {
		rowCount = stats.RowCountEstimate(name, rowCount)
	}
	g.AddRelation(JoinRelation{TableName: name, Plan: p, RowCountEstimate: rowCount})
}

func splitConjuncts(e expression.Expr) []expression.Expr {
	if b, ok := e.(*expression.BinaryOp); ok && b.Kind == expression.OpAnd {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []expression.Expr{e}
}

// relationOffsets returns, for each relation id, the index its first
// output column occupies in the flattened (pre-reorder) schema -- needed
// to map a predicate's Column.Index back to which relation(s) it touches.
func relationOffsets(g *JoinGraph) []int {
	offsets := make([]int, len(g.relations))
	sum := 0
	for i, r := range g.relations {
		offsets[i] = sum
		sum += len(r.Plan.Schema())
	}
	return offsets
}

func addEdgesForCondition(g *JoinGraph, cond expression.Expr, offsets []int) {
	touched := map[RelationID]bool{}
	expression.Walk(func(n expression.Expr) bool {
		if col, ok := n.(*expression.Column); ok {
			touched[relationForIndex(offsets, col.Index)] = true
		}
		return true
	}, cond)
	if len(touched) != 2 {
		return
	}
	ids := make([]RelationID, 0, 2)
	for id := range touched {
		ids = append(ids, id)
	}
	// Sorted so Left/Right is a deterministic function of the relation ids,
	// not of Go's randomized map iteration order.
	sort.Ints(ids)
	g.AddEdge(JoinEdge{Left: ids[0], Right: ids[1], Predicate: cond, SelectivityEstimate: 0.1})
}

func relationForIndex(offsets []int, index int) RelationID {
	best := 0
	for i, off := range offsets {
		if off <= index {
			best = i
		}
	}
	return best
}
