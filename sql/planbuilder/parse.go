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

package planbuilder

import (
	"strings"

	"github.com/ha1tch/tsqlparser"
	"github.com/ha1tch/tsqlparser/ast"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/plan"
)

// parse wraps tsqlparser.Parse, the single place planbuilder turns query
// text into an AST -- used both by BuildText below and by parseView's
// on-reference view re-planning.
func parse(text string) (*ast.Program, []string) {
	return tsqlparser.Parse(text)
}

// BuildText parses and builds the single statement in text, the entry
// point engine.go calls for each submitted query.
func (b *Builder) BuildText(text string) (plan.LogicalPlan, error) {
	prog, errs := parse(text)
	if len(errs) > 0 {
		return nil, sql.ErrParse.New(strings.Join(errs, "; "))
	}
	if len(prog.Statements) != 1 {
		return nil, sql.ErrInvalidQuery.New("expected exactly one statement")
	}
	return b.Build(prog.Statements[0])
}
