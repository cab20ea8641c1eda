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

package expression

// Walk calls f on e and every descendant, depth-first pre-order, stopping
// early for a subtree if f returns false for its root.
func Walk(f func(Expr) bool, e Expr) {
	if e == nil || !f(e) {
		return
	}
	for _, c := range e.Children() {
		Walk(f, c)
	}
}

// Transform rebuilds e bottom-up, replacing every node with f(node) after
// its children have already been transformed. This is the primitive the
// optimizer's constant-folding and predicate-simplification passes are
// built on.
func Transform(e Expr, f func(Expr) (Expr, error)) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	children := e.Children()
	if len(children) > 0 {
		newChildren := make([]Expr, len(children))
		changed := false
		for i, c := range children {
			nc, err := Transform(c, f)
			if err != nil {
				return nil, err
			}
			newChildren[i] = nc
			if nc != c {
				changed = true
			}
		}
		if changed {
			var err error
			e, err = e.WithChildren(newChildren...)
			if err != nil {
				return nil, err
			}
		}
	}
	return f(e)
}

// CollectAggregates gathers every Aggregate and AggregateWindow reachable
// from e, without descending into nested subqueries (their aggregates
// belong to their own scope).
func CollectAggregates(e Expr) []*Aggregate {
	var out []*Aggregate
	var visit func(Expr)
	visit = func(n Expr) {
		switch t := n.(type) {
		case *Aggregate:
			out = append(out, t)
			return
		case *AggregateWindow:
			out = append(out, t.Agg)
			return
		case *ScalarSubquery, *ArraySubquery, *Exists, *InSubquery:
			return
		default:
			for _, c := range n.Children() {
				visit(c)
			}
		}
	}
	visit(e)
	return out
}

// ContainsSubquery reports whether e (or a descendant, not crossing into a
// nested subquery's own tree) is one of the subquery expression forms.
func ContainsSubquery(e Expr) bool {
	found := false
	Walk(func(n Expr) bool {
		switch n.(type) {
		case *ScalarSubquery, *ArraySubquery, *Exists, *InSubquery:
			found = true
			return false
		}
		return !found
	}, e)
	return found
}

// ContainsOuterRef reports whether e references an OuterRef, used to
// determine whether a subquery plan is correlated.
func ContainsOuterRef(e Expr) bool {
	found := false
	Walk(func(n Expr) bool {
		if _, ok := n.(*OuterRef); ok {
			found = true
			return false
		}
		return !found
	}, e)
	return found
}
