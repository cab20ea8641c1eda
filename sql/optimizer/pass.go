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

// Package optimizer implements the rule-based and cost-based rewrite
// passes, scheduled by sql.OptimizerLevel.
package optimizer

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/plan"
)

// Overhead estimates a pass's relative cost, used to decide which passes
// run at which sql.OptimizerLevel.
type Overhead uint8

const (
	OverheadNegligible Overhead = iota
	OverheadLow
	OverheadMedium
	OverheadHigh
)

// Pass is one logical-plan rewrite rule. Passes are pure functions over
// the plan tree: Apply returns a new tree (or the same node, unchanged,
// when nothing applies) and never mutates its input in place.
type Pass interface {
	Name() string
	Overhead() Overhead
	Apply(p plan.LogicalPlan) (plan.LogicalPlan, error)
}

// MinLevel returns the lowest sql.OptimizerLevel at which a pass of the
// given overhead runs.
func MinLevel(o Overhead) sql.OptimizerLevel {
	switch o {
	case OverheadNegligible:
		return sql.OptimizerBasic
	case OverheadLow:
		return sql.OptimizerStandard
	case OverheadMedium:
		return sql.OptimizerAggressive
	default:
		return sql.OptimizerFull
	}
}

// Optimize runs every registered rule pass (in order, repeatedly until a
// full pass over the list produces no change or maxIterations is reached)
// whose overhead is scheduled at or below level, then applies the
// cost-based join reorderer if level >= OptimizerAggressive.
func Optimize(p plan.LogicalPlan, level sql.OptimizerLevel, stats *Stats) (plan.LogicalPlan, error) {
	if level == sql.OptimizerNone {
		return p, nil
	}

	passes := []Pass{
		ConstantFold{},
		SimplifyPredicates{},
		RemoveTrivialPredicates{},
		MergeFilters{},
		EliminateEmptyPropagation{},
		PushdownLimit{},
		EliminateRedundantSort{},
		CrossJoinToInner{},
		PushdownProjection{},
		InlineTrivialCte{},
		SortLimitToTopN{},
	}

	const maxIterations = 8
	for i := 0; i < maxIterations; i++ {
		changed := false
		for _, pass := range passes {
			if MinLevel(pass.Overhead()) > level {
				continue
			}
			next, err := pass.Apply(p)
			if err != nil {
				return nil, err
			}
			if next != p {
				p = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	if level >= sql.OptimizerAggressive {
		var err error
		p, err = ReorderJoins(p, stats)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// transformPlan rebuilds p bottom-up, applying f to every node after its
// children have been rewritten -- the plan-level analog of
// expression.Transform.
func transformPlan(p plan.LogicalPlan, f func(plan.LogicalPlan) (plan.LogicalPlan, error)) (plan.LogicalPlan, error) {
	children := p.Children()
	if len(children) > 0 {
		newChildren := make([]plan.LogicalPlan, len(children))
		changed := false
		for i, c := range children {
			nc, err := transformPlan(c, f)
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
			p, err = p.WithChildren(newChildren...)
			if err != nil {
				return nil, err
			}
		}
	}
	return f(p)
}
