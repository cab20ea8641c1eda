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

package rowexec

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/analyzer"
	"github.com/bqlite/bqlite/sql/plan"
)

// execWithCte binds each CteDef's materialized result into b.ctes before
// running Body, so nested CteRef/Scan nodes resolve it. Recursive CTEs
// iterate to a fixpoint: the anchor branch seeds the working
// table, then the recursive step re-runs against the previous iteration's
// output (substituted for its RecursionPlaceholder) until an iteration
// contributes no new rows.
func (b *Builder) execWithCte(ctx *sql.Context, n *plan.WithCte) (*sql.Table, error) {
	var bound []string
	defer func() {
		for _, name := range bound {
			delete(b.ctes, name)
		}
	}()

	for _, def := range n.Ctes {
		var t *sql.Table
		var err error
		if def.Recursive {
			t, err = b.execRecursiveCte(ctx, def)
		} else {
			t, err = b.Exec(ctx, def.Body)
		}
		if err != nil {
			return nil, err
		}
		b.ctes[def.Name] = t
		bound = append(bound, def.Name)
	}

	return b.Exec(ctx, n.Body)
}

// execRecursiveCte runs def.Anchor once for the base case, then repeatedly
// rebinds name to the previous iteration's output (so the step's
// RecursionPlaceholder, resolved by Exec's *analyzer.RecursionPlaceholder
// case, reads it) and re-executes the recursive step, appending only the
// rows each iteration adds, until an iteration adds none.
func (b *Builder) execRecursiveCte(ctx *sql.Context, def plan.CteDef) (*sql.Table, error) {
	anchor := analyzer.FindRecursiveAnchor(def.Body, def.Name)
	working, err := b.Exec(ctx, anchor)
	if err != nil {
		return nil, err
	}
	accumulated := working

	setOp, ok := def.Body.(*plan.SetOp)
	if !ok || len(setOp.Inputs) == 0 {
		return accumulated, nil
	}
	step := setOp.Inputs[len(setOp.Inputs)-1]

	for working.RowCount() > 0 {
		b.ctes[def.Name] = working
		next, err := b.Exec(ctx, step)
		delete(b.ctes, def.Name)
		if err != nil {
			return nil, err
		}
		if next.RowCount() == 0 {
			break
		}
		accumulated = sql.ConcatTables(accumulated, next)
		working = next
	}
	return accumulated, nil
}
