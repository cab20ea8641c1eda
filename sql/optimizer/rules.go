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
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// ConstantFold rewrites NOT applied to a non-null BOOL Literal into the
// negated Literal. That is the only fold it performs: arithmetic,
// comparisons, CASE and function calls over Literal operands are left
// unchanged and evaluated at run time.
type ConstantFold struct{}

func (ConstantFold) Name() string       { return "constant_fold" }
func (ConstantFold) Overhead() Overhead { return OverheadNegligible }
func (ConstantFold) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		return rewriteExprs(n, foldConstants)
	})
}

func foldConstants(e expression.Expr) (expression.Expr, error) {
	return expression.Transform(e, func(n expression.Expr) (expression.Expr, error) {
		u, ok := n.(*expression.UnaryOp)
		if ok {
			if lit, ok := u.Operand.(*expression.Literal); ok && u.Kind == expression.OpNot && lit.Val.Type() == sql.TypeBool && !lit.Val.IsNull() {
				return expression.NewLiteral(sql.NewBool(!lit.Val.Bool())), nil
			}
		}
		return n, nil
	})
}

// SimplifyPredicates applies boolean-algebra identities: `x AND TRUE` ->
// `x`, `x AND FALSE` -> `FALSE`, `x OR TRUE` -> `TRUE`, `x OR FALSE` ->
// `x`, double negation elimination.
type SimplifyPredicates struct{}

func (SimplifyPredicates) Name() string       { return "simplify_predicates" }
func (SimplifyPredicates) Overhead() Overhead { return OverheadNegligible }
func (SimplifyPredicates) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		return rewriteExprs(n, simplifyBoolAlgebra)
	})
}

func simplifyBoolAlgebra(e expression.Expr) (expression.Expr, error) {
	return expression.Transform(e, func(n expression.Expr) (expression.Expr, error) {
		if u, ok := n.(*expression.UnaryOp); ok && u.Kind == expression.OpNot {
			if inner, ok := u.Operand.(*expression.UnaryOp); ok && inner.Kind == expression.OpNot {
				return inner.Operand, nil
			}
			return n, nil
		}
		b, ok := n.(*expression.BinaryOp)
		if !ok {
			return n, nil
		}
		lLit, lok := b.Left.(*expression.Literal)
		rLit, rok := b.Right.(*expression.Literal)
		switch b.Kind {
		case expression.OpAnd:
			if lok && !lLit.Val.IsNull() && lLit.Val.Type() == sql.TypeBool {
				if lLit.Val.Bool() {
					return b.Right, nil
				}
				return expression.NewLiteral(sql.NewBool(false)), nil
			}
			if rok && !rLit.Val.IsNull() && rLit.Val.Type() == sql.TypeBool {
				if rLit.Val.Bool() {
					return b.Left, nil
				}
				return expression.NewLiteral(sql.NewBool(false)), nil
			}
		case expression.OpOr:
			if lok && !lLit.Val.IsNull() && lLit.Val.Type() == sql.TypeBool {
				if lLit.Val.Bool() {
					return expression.NewLiteral(sql.NewBool(true)), nil
				}
				return b.Right, nil
			}
			if rok && !rLit.Val.IsNull() && rLit.Val.Type() == sql.TypeBool {
				if rLit.Val.Bool() {
					return expression.NewLiteral(sql.NewBool(true)), nil
				}
				return b.Left, nil
			}
		}
		return n, nil
	})
}

// RemoveTrivialPredicates replaces a Filter whose predicate folded to the
// literal FALSE (or NULL) with plan.Empty, and a Filter whose predicate
// folded to TRUE with its child directly.
type RemoveTrivialPredicates struct{}

func (RemoveTrivialPredicates) Name() string       { return "remove_trivial_predicates" }
func (RemoveTrivialPredicates) Overhead() Overhead { return OverheadNegligible }
func (RemoveTrivialPredicates) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		f, ok := n.(*plan.Filter)
		if !ok {
			return n, nil
		}
		lit, ok := f.Predicate.(*expression.Literal)
		if !ok {
			return n, nil
		}
		if lit.Val.IsNull() || (lit.Val.Type() == sql.TypeBool && !lit.Val.Bool()) {
			return plan.NewEmpty(f.Schema()), nil
		}
		if lit.Val.Type() == sql.TypeBool && lit.Val.Bool() {
			return f.Child, nil
		}
		return n, nil
	})
}

// EliminateEmptyPropagation propagates a statically-empty child relation
// upward through operators whose output is provably also empty: Filter,
// Project, Sort, and a Join whose empty side empties its output (either
// side of an inner, cross or semi join, the left side of a left join, the
// right side of a right join).
type EliminateEmptyPropagation struct{}

func (EliminateEmptyPropagation) Name() string       { return "eliminate_empty_propagation" }
func (EliminateEmptyPropagation) Overhead() Overhead { return OverheadNegligible }
func (EliminateEmptyPropagation) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		switch t := n.(type) {
		case *plan.Filter:
			if _, ok := t.Child.(*plan.Empty); ok {
				return plan.NewEmpty(t.Schema()), nil
			}
		case *plan.Project:
			if _, ok := t.Child.(*plan.Empty); ok {
				return plan.NewEmpty(t.Schema()), nil
			}
		case *plan.Sort:
			if _, ok := t.Child.(*plan.Empty); ok {
				return plan.NewEmpty(t.Schema()), nil
			}
		case *plan.Join:
			_, leftEmpty := t.Left.(*plan.Empty)
			_, rightEmpty := t.Right.(*plan.Empty)
			switch t.Kind {
			case plan.JoinInner, plan.JoinCross, plan.JoinSemi:
				if leftEmpty || rightEmpty {
					return plan.NewEmpty(t.Schema()), nil
				}
			case plan.JoinLeft:
				if leftEmpty {
					return plan.NewEmpty(t.Schema()), nil
				}
			case plan.JoinRight:
				if rightEmpty {
					return plan.NewEmpty(t.Schema()), nil
				}
			}
		}
		return n, nil
	})
}

// MergeFilters collapses Filter(Filter(x)) into a single Filter with an
// ANDed predicate, avoiding a redundant intermediate materialization.
type MergeFilters struct{}

func (MergeFilters) Name() string       { return "merge_filters" }
func (MergeFilters) Overhead() Overhead { return OverheadNegligible }
func (MergeFilters) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		outer, ok := n.(*plan.Filter)
		if !ok {
			return n, nil
		}
		inner, ok := outer.Child.(*plan.Filter)
		if !ok {
			return n, nil
		}
		combined := expression.NewBinaryOp(expression.OpAnd, inner.Predicate, outer.Predicate, sql.TypeBool)
		return plan.NewFilter(combined, inner.Child), nil
	})
}

// PushdownLimit moves a Limit below a Project (row count is
// projection-invariant), letting downstream short-circuit earlier.
type PushdownLimit struct{}

func (PushdownLimit) Name() string       { return "pushdown_limit" }
func (PushdownLimit) Overhead() Overhead { return OverheadLow }
func (PushdownLimit) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		lim, ok := n.(*plan.Limit)
		if !ok {
			return n, nil
		}
		proj, ok := lim.Child.(*plan.Project)
		if !ok {
			return n, nil
		}
		pushed := plan.NewLimit(lim.Count, lim.Offset, proj.Child)
		newProj, err := proj.WithChildren(pushed)
		if err != nil {
			return nil, err
		}
		return newProj, nil
	})
}

// EliminateRedundantSort drops a Sort immediately beneath another Sort,
// keeping only the outermost ordering request. A Sort beneath any other
// operator is left in place.
type EliminateRedundantSort struct{}

func (EliminateRedundantSort) Name() string       { return "eliminate_redundant_sort" }
func (EliminateRedundantSort) Overhead() Overhead { return OverheadLow }
func (EliminateRedundantSort) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		outer, ok := n.(*plan.Sort)
		if !ok {
			return n, nil
		}
		if inner, ok := outer.Child.(*plan.Sort); ok {
			return plan.NewSort(outer.Keys, inner.Child), nil
		}
		return n, nil
	})
}

// CrossJoinToInner rewrites a Cross Join immediately wrapped by a Filter
// whose predicate references both sides into an inner join with that
// predicate as its condition -- the classic "comma join with a WHERE
// clause" rewrite.
type CrossJoinToInner struct{}

func (CrossJoinToInner) Name() string       { return "cross_join_to_inner" }
func (CrossJoinToInner) Overhead() Overhead { return OverheadLow }
func (CrossJoinToInner) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		f, ok := n.(*plan.Filter)
		if !ok {
			return n, nil
		}
		j, ok := f.Child.(*plan.Join)
		if !ok || j.Kind != plan.JoinCross {
			return n, nil
		}
		leftWidth := len(j.Left.Schema())
		if !referencesBothSides(f.Predicate, leftWidth) {
			return n, nil
		}
		return plan.NewJoin(j.Left, j.Right, plan.JoinInner, f.Predicate), nil
	})
}

func referencesBothSides(e expression.Expr, leftWidth int) bool {
	left, right := false, false
	expression.Walk(func(n expression.Expr) bool {
		if col, ok := n.(*expression.Column); ok {
			if col.Index < leftWidth {
				left = true
			} else {
				right = true
			}
		}
		return true
	}, e)
	return left && right
}

// PushdownProjection restricts a Scan's materialized columns to those
// actually referenced higher in the tree, when the immediate parent is a
// Project of bare columns (no computed expressions) over the Scan.
type PushdownProjection struct{}

func (PushdownProjection) Name() string       { return "pushdown_projection" }
func (PushdownProjection) Overhead() Overhead { return OverheadLow }
func (PushdownProjection) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		proj, ok := n.(*plan.Project)
		if !ok {
			return n, nil
		}
		scan, ok := proj.Child.(*plan.Scan)
		if !ok || scan.Projection != nil {
			return n, nil
		}
		indices := make([]int, 0, len(proj.Items))
		cols := make([]*expression.Column, 0, len(proj.Items))
		for _, it := range proj.Items {
			col, ok := expression.IsFromColumn(it.Expr)
			if !ok {
				return n, nil
			}
			indices = append(indices, col.Index)
			cols = append(cols, col)
		}
		newScan := &plan.Scan{Database: scan.Database, Table: scan.Table, Alias: scan.Alias, TableSchema: scan.TableSchema, Projection: indices}
		remap := make(map[int]int, len(indices))
		for newIdx, oldIdx := range indices {
			remap[oldIdx] = newIdx
		}
		newItems := make([]plan.ProjectItem, len(proj.Items))
		for i, it := range proj.Items {
			col := cols[i]
			newCol := expression.NewColumn(col.Table, col.Name, remap[col.Index], col.Typ, col.Null)
			newItems[i] = plan.ProjectItem{Expr: newCol, Field: it.Field}
		}
		return plan.NewProject(newItems, newScan), nil
	})
}

// InlineTrivialCte replaces a CteRef to a non-recursive, non-materialized
// CTE that is referenced at most once with the body itself, avoiding a
// pointless indirection. (References are counted over the WithCte's main
// body and every CTE body, so this pass is applied at the WithCte node;
// an inlined body is also substituted into later CTE bodies that use it.)
type InlineTrivialCte struct{}

func (InlineTrivialCte) Name() string       { return "inline_trivial_cte" }
func (InlineTrivialCte) Overhead() Overhead { return OverheadMedium }
func (InlineTrivialCte) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		w, ok := n.(*plan.WithCte)
		if !ok {
			return n, nil
		}
		refCounts := map[string]int{}
		countRefs(w.Body, refCounts)
		for _, c := range w.Ctes {
			countRefs(c.Body, refCounts)
		}
		keep := make([]plan.CteDef, 0, len(w.Ctes))
		bodies := map[string]plan.LogicalPlan{}
		for _, c := range w.Ctes {
			body, err := inlineRefs(c.Body, bodies)
			if err != nil {
				return nil, err
			}
			c.Body = body
			if !c.Recursive && !c.Materialized && refCounts[c.Name] <= 1 {
				bodies[c.Name] = c.Body
				continue
			}
			keep = append(keep, c)
		}
		if len(bodies) == 0 {
			return n, nil
		}
		newBody, err := inlineRefs(w.Body, bodies)
		if err != nil {
			return nil, err
		}
		if len(keep) == 0 {
			return newBody, nil
		}
		return plan.NewWithCte(keep, newBody), nil
	})
}

func countRefs(p plan.LogicalPlan, counts map[string]int) {
	if ref, ok := p.(*plan.CteRef); ok {
		counts[ref.Name]++
		return
	}
	for _, c := range p.Children() {
		countRefs(c, counts)
	}
}

func inlineRefs(p plan.LogicalPlan, bodies map[string]plan.LogicalPlan) (plan.LogicalPlan, error) {
	if ref, ok := p.(*plan.CteRef); ok {
		if body, ok := bodies[ref.Name]; ok {
			return body, nil
		}
		return p, nil
	}
	children := p.Children()
	if len(children) == 0 {
		return p, nil
	}
	newChildren := make([]plan.LogicalPlan, len(children))
	changed := false
	for i, c := range children {
		nc, err := inlineRefs(c, bodies)
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

// SortLimitToTopN fuses a Limit directly over a Sort into a single TopN
// node, letting the executor maintain a bounded heap instead of a full
// sort.
type SortLimitToTopN struct{}

func (SortLimitToTopN) Name() string       { return "sort_limit_to_topn" }
func (SortLimitToTopN) Overhead() Overhead { return OverheadLow }
func (SortLimitToTopN) Apply(p plan.LogicalPlan) (plan.LogicalPlan, error) {
	return transformPlan(p, func(n plan.LogicalPlan) (plan.LogicalPlan, error) {
		lim, ok := n.(*plan.Limit)
		if !ok || lim.Offset != nil {
			return n, nil
		}
		sort, ok := lim.Child.(*plan.Sort)
		if !ok {
			return n, nil
		}
		return plan.NewTopN(sort.Keys, lim.Count, sort.Child), nil
	})
}

// rewriteExprs applies f to every expression.Expr field a plan node
// carries, via a small per-type switch (the plan package intentionally
// has no generic "expressions()" accessor, keeping each node's shape
// concrete).
func rewriteExprs(n plan.LogicalPlan, f func(expression.Expr) (expression.Expr, error)) (plan.LogicalPlan, error) {
	switch t := n.(type) {
	case *plan.Filter:
		pred, err := f(t.Predicate)
		if err != nil {
			return nil, err
		}
		if pred == t.Predicate {
			return n, nil
		}
		return plan.NewFilter(pred, t.Child), nil
	case *plan.Project:
		changed := false
		items := make([]plan.ProjectItem, len(t.Items))
		for i, it := range t.Items {
			ne, err := f(it.Expr)
			if err != nil {
				return nil, err
			}
			if ne != it.Expr {
				changed = true
			}
			items[i] = plan.ProjectItem{Expr: ne, Field: it.Field}
		}
		if !changed {
			return n, nil
		}
		return plan.NewProject(items, t.Child), nil
	case *plan.Join:
		if t.Condition == nil {
			return n, nil
		}
		cond, err := f(t.Condition)
		if err != nil {
			return nil, err
		}
		if cond == t.Condition {
			return n, nil
		}
		return plan.NewJoin(t.Left, t.Right, t.Kind, cond), nil
	case *plan.Qualify:
		pred, err := f(t.Predicate)
		if err != nil {
			return nil, err
		}
		if pred == t.Predicate {
			return n, nil
		}
		return plan.NewQualify(pred, t.Child), nil
	default:
		return n, nil
	}
}
