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

import (
	"fmt"

	"github.com/bqlite/bqlite/sql"
)

// Subqueryable is implemented by logical plans so this package can embed a
// plan root in a subquery expression without importing sql/plan (which
// itself imports sql/expression). The executor type-asserts back to the
// concrete plan type it expects.
type Subqueryable interface {
	Schema() sql.Schema
	fmt.Stringer
}

// OuterRef marks a column reference inside a correlated subquery that
// binds to the enclosing query's row rather than the subquery's own input;
// the filter executor substitutes its value before each subquery probe.
type OuterRef struct {
	*Column
}

func NewOuterRef(c *Column) *OuterRef { return &OuterRef{Column: c} }

func (o *OuterRef) String() string { return "OUTER(" + o.Column.String() + ")" }

// ScalarSubquery evaluates Plan and expects exactly one row, one column;
// more than one row is InvalidQuery, zero rows yields Null.
type ScalarSubquery struct {
	Plan Subqueryable
	Typ  sql.TypeID
}

func NewScalarSubquery(plan Subqueryable, typ sql.TypeID) *ScalarSubquery {
	return &ScalarSubquery{Plan: plan, Typ: typ}
}

func (s *ScalarSubquery) Type() sql.TypeID { return s.Typ }
func (s *ScalarSubquery) Nullable() bool   { return true }
func (s *ScalarSubquery) Children() []Expr { return nil }
func (s *ScalarSubquery) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 0 {
		return nil, childCountErr(s, 0, len(ch))
	}
	return s, nil
}
func (s *ScalarSubquery) String() string { return "(" + s.Plan.String() + ")" }

// ArraySubquery evaluates Plan (one column) and collects every row into an
// ARRAY value.
type ArraySubquery struct {
	Plan    Subqueryable
	ElemTyp sql.TypeID
}

func NewArraySubquery(plan Subqueryable, elemTyp sql.TypeID) *ArraySubquery {
	return &ArraySubquery{Plan: plan, ElemTyp: elemTyp}
}

func (a *ArraySubquery) Type() sql.TypeID { return sql.TypeArray }
func (a *ArraySubquery) Nullable() bool   { return false }
func (a *ArraySubquery) Children() []Expr { return nil }
func (a *ArraySubquery) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 0 {
		return nil, childCountErr(a, 0, len(ch))
	}
	return a, nil
}
func (a *ArraySubquery) String() string { return "ARRAY(" + a.Plan.String() + ")" }

// Exists implements `[NOT] EXISTS (subquery)`.
type Exists struct {
	Plan    Subqueryable
	Negated bool
}

func NewExists(plan Subqueryable, negated bool) *Exists { return &Exists{Plan: plan, Negated: negated} }

func (e *Exists) Type() sql.TypeID { return sql.TypeBool }
func (e *Exists) Nullable() bool   { return false }
func (e *Exists) Children() []Expr { return nil }
func (e *Exists) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 0 {
		return nil, childCountErr(e, 0, len(ch))
	}
	return e, nil
}
func (e *Exists) String() string {
	if e.Negated {
		return "NOT EXISTS(" + e.Plan.String() + ")"
	}
	return "EXISTS(" + e.Plan.String() + ")"
}

// InSubquery implements `x [NOT] IN (subquery)`.
type InSubquery struct {
	Target  Expr
	Plan    Subqueryable
	Negated bool
}

func NewInSubquery(target Expr, plan Subqueryable, negated bool) *InSubquery {
	return &InSubquery{Target: target, Plan: plan, Negated: negated}
}

func (i *InSubquery) Type() sql.TypeID { return sql.TypeBool }
func (i *InSubquery) Nullable() bool   { return true }
func (i *InSubquery) Children() []Expr { return []Expr{i.Target} }
func (i *InSubquery) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 1 {
		return nil, childCountErr(i, 1, len(ch))
	}
	cp := *i
	cp.Target = ch[0]
	return &cp, nil
}
func (i *InSubquery) String() string {
	not := ""
	if i.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sIN (%s)", i.Target, not, i.Plan)
}
