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
	"strings"

	"github.com/bqlite/bqlite/sql"
)

// Between implements `x BETWEEN lo AND hi`, evaluated as `x >= lo AND x <=
// hi` under three-valued logic in a single node (sql/eval's evalBetween)
// rather than as two separate comparisons ANDed together at the plan level.
type Between struct {
	Target   Expr
	Lo, Hi   Expr
	Negated  bool
}

func NewBetween(target, lo, hi Expr, negated bool) *Between {
	return &Between{Target: target, Lo: lo, Hi: hi, Negated: negated}
}

func (b *Between) Type() sql.TypeID { return sql.TypeBool }
func (b *Between) Nullable() bool   { return true }
func (b *Between) Children() []Expr { return []Expr{b.Target, b.Lo, b.Hi} }
func (b *Between) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 3 {
		return nil, childCountErr(b, 3, len(ch))
	}
	cp := *b
	cp.Target, cp.Lo, cp.Hi = ch[0], ch[1], ch[2]
	return &cp, nil
}
func (b *Between) String() string {
	not := ""
	if b.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sBETWEEN %s AND %s", b.Target, not, b.Lo, b.Hi)
}

// IsDistinctFrom implements `a IS [NOT] DISTINCT FROM b`: unlike `=`, NULL
// is treated as a comparable value (two NULLs ARE NOT DISTINCT FROM each
// other) -- a documented exception to the usual NULL-propagation rules.
type IsDistinctFrom struct {
	Left, Right Expr
	Negated     bool // IS NOT DISTINCT FROM
}

func NewIsDistinctFrom(left, right Expr, negated bool) *IsDistinctFrom {
	return &IsDistinctFrom{Left: left, Right: right, Negated: negated}
}

func (i *IsDistinctFrom) Type() sql.TypeID { return sql.TypeBool }
func (i *IsDistinctFrom) Nullable() bool   { return false }
func (i *IsDistinctFrom) Children() []Expr { return []Expr{i.Left, i.Right} }
func (i *IsDistinctFrom) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 2 {
		return nil, childCountErr(i, 2, len(ch))
	}
	cp := *i
	cp.Left, cp.Right = ch[0], ch[1]
	return &cp, nil
}
func (i *IsDistinctFrom) String() string {
	not := ""
	if i.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s IS %sDISTINCT FROM %s", i.Left, not, i.Right)
}

// Like implements pattern matching; CaseInsensitive selects `_ LIKE _`
// vs a case-folding variant some dialect builtins expose.
type Like struct {
	Target          Expr
	Pattern         Expr
	Escape          Expr // nil if no ESCAPE clause
	CaseInsensitive bool
	Negated         bool
}

func NewLike(target, pattern, escape Expr, negated bool) *Like {
	return &Like{Target: target, Pattern: pattern, Escape: escape, Negated: negated}
}

func (l *Like) Type() sql.TypeID { return sql.TypeBool }
func (l *Like) Nullable() bool   { return true }
func (l *Like) Children() []Expr {
	out := []Expr{l.Target, l.Pattern}
	if l.Escape != nil {
		out = append(out, l.Escape)
	}
	return out
}
func (l *Like) WithChildren(ch ...Expr) (Expr, error) {
	cp := *l
	cp.Target, cp.Pattern = ch[0], ch[1]
	if l.Escape != nil {
		cp.Escape = ch[2]
	}
	return &cp, nil
}
func (l *Like) String() string {
	not := ""
	if l.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sLIKE %s", l.Target, not, l.Pattern)
}

// InList implements `x IN (a, b, c, ...)` with three-valued semantics:
// TRUE if any element equals x, else NULL if any element was NULL, else
// FALSE. Negated inverts TRUE/FALSE but leaves NULL alone.
type InList struct {
	Target   Expr
	List     []Expr
	Negated  bool
}

func NewInList(target Expr, list []Expr, negated bool) *InList {
	return &InList{Target: target, List: list, Negated: negated}
}

func (i *InList) Type() sql.TypeID { return sql.TypeBool }
func (i *InList) Nullable() bool   { return true }
func (i *InList) Children() []Expr { return append([]Expr{i.Target}, i.List...) }
func (i *InList) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) < 1 {
		return nil, childCountErr(i, 1, len(ch))
	}
	cp := *i
	cp.Target = ch[0]
	cp.List = ch[1:]
	return &cp, nil
}
func (i *InList) String() string {
	parts := make([]string, len(i.List))
	for idx, e := range i.List {
		parts[idx] = e.String()
	}
	not := ""
	if i.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sIN (%s)", i.Target, not, strings.Join(parts, ", "))
}

// InUnnest implements `x IN UNNEST(array_expr)`, the array-valued analog
// of InList with identical three-valued semantics over the array's
// elements (including per-element NULLs).
type InUnnest struct {
	Target  Expr
	Array   Expr
	Negated bool
}

func NewInUnnest(target, array Expr, negated bool) *InUnnest {
	return &InUnnest{Target: target, Array: array, Negated: negated}
}

func (i *InUnnest) Type() sql.TypeID { return sql.TypeBool }
func (i *InUnnest) Nullable() bool   { return true }
func (i *InUnnest) Children() []Expr { return []Expr{i.Target, i.Array} }
func (i *InUnnest) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 2 {
		return nil, childCountErr(i, 2, len(ch))
	}
	cp := *i
	cp.Target, cp.Array = ch[0], ch[1]
	return &cp, nil
}
func (i *InUnnest) String() string {
	not := ""
	if i.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sIN UNNEST(%s)", i.Target, not, i.Array)
}
