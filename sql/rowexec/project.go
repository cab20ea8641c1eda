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
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/plan"
)

// execProject evaluates each output expression against child's rows and
// assembles the resulting columns under n's schema.
func (b *Builder) execProject(ctx *sql.Context, n *plan.Project) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	schema := n.Schema()
	cols := make([]*sql.Column, len(n.Items))
	ectx := b.evalCtx(ctx)
	for i, item := range n.Items {
		col, err := eval.Evaluate(ectx, item.Expr, in)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return &sql.Table{Schema: schema, Cols: cols}, nil
}
