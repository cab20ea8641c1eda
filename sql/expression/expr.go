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

// Package expression implements the typed expression IR: built by the
// semantic planner, rewritten by the optimizer, and finally consumed by
// the vectorized evaluator in sql/eval. Every node is an owned tree (no
// shared sub-expression graph, since the IR is recursive rather than a
// DAG of cyclic references).
package expression

import (
	"fmt"
	"strings"

	"github.com/bqlite/bqlite/sql"
)

// Expr is the common interface every expression node satisfies. Analysis
// passes (aggregate collection, subquery detection, column rewriting) are
// expressed as pattern-matching recursion over the concrete type --
// callers type-switch rather than requiring a visitor protocol.
type Expr interface {
	// Type is the expression's static result type, known after semantic
	// planning (types of Column nodes depend on the resolved schema).
	Type() sql.TypeID
	// Nullable reports whether the expression may produce Null.
	Nullable() bool
	Children() []Expr
	WithChildren(children ...Expr) (Expr, error)
	String() string
}

func childCountErr(e Expr, want, got int) error {
	return sql.ErrInternal.New(fmt.Sprintf("%T: expected %d children, got %d", e, want, got))
}

// Column references a resolved schema position. Index is filled in by the
// semantic planner (sql/analyzer); the evaluator requires it to be >= 0.
type Column struct {
	Table string
	Name  string
	Index int
	Typ   sql.TypeID
	Null  bool
}

func NewColumn(table, name string, index int, typ sql.TypeID, nullable bool) *Column {
	return &Column{Table: table, Name: name, Index: index, Typ: typ, Null: nullable}
}

func (c *Column) Type() sql.TypeID        { return c.Typ }
func (c *Column) Nullable() bool          { return c.Null }
func (c *Column) Children() []Expr        { return nil }
func (c *Column) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 0 {
		return nil, childCountErr(c, 0, len(ch))
	}
	return c, nil
}
func (c *Column) String() string {
	if c.Table != "" {
		return c.Table + "." + c.Name
	}
	return c.Name
}

// Literal is a constant value baked into the plan by constant folding or by
// the planner translating an AST literal.
type Literal struct {
	Val sql.Value
	Typ sql.TypeID
}

func NewLiteral(v sql.Value) *Literal { return &Literal{Val: v, Typ: v.Type()} }

func (l *Literal) Type() sql.TypeID { return l.Typ }
func (l *Literal) Nullable() bool   { return l.Val.IsNull() }
func (l *Literal) Children() []Expr { return nil }
func (l *Literal) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 0 {
		return nil, childCountErr(l, 0, len(ch))
	}
	return l, nil
}
func (l *Literal) String() string {
	if l.Val.IsNull() {
		return "NULL"
	}
	return fmt.Sprintf("%v", l.Val)
}

// BinaryOpKind enumerates the arithmetic/comparison/logical binary
// operators the evaluator dispatches on.
type BinaryOpKind uint8

const (
	OpAdd BinaryOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpSafeDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpConcat
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShiftLeft
	OpShiftRight
)

func (k BinaryOpKind) String() string {
	names := map[BinaryOpKind]string{
		OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpSafeDiv: "SAFE_DIVIDE",
		OpMod: "%", OpEq: "=", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
		OpAnd: "AND", OpOr: "OR", OpConcat: "||",
		OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^", OpShiftLeft: "<<", OpShiftRight: ">>",
	}
	return names[k]
}

// BinaryOp is a two-operand operator node; see BinaryOpKind for the
// covered set.
type BinaryOp struct {
	Kind        BinaryOpKind
	Left, Right Expr
	ResultType  sql.TypeID
}

func NewBinaryOp(kind BinaryOpKind, left, right Expr, resultType sql.TypeID) *BinaryOp {
	return &BinaryOp{Kind: kind, Left: left, Right: right, ResultType: resultType}
}

func (b *BinaryOp) Type() sql.TypeID { return b.ResultType }
func (b *BinaryOp) Nullable() bool   { return true }
func (b *BinaryOp) Children() []Expr { return []Expr{b.Left, b.Right} }
func (b *BinaryOp) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 2 {
		return nil, childCountErr(b, 2, len(ch))
	}
	cp := *b
	cp.Left, cp.Right = ch[0], ch[1]
	return &cp, nil
}
func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Kind, b.Right)
}

// UnaryOpKind enumerates NOT, unary minus, and IS NULL-family operators.
type UnaryOpKind uint8

const (
	OpNot UnaryOpKind = iota
	OpNeg
	OpIsNull
	OpIsNotNull
	OpIsTrue
	OpIsFalse
	OpBitNot
)

func (k UnaryOpKind) String() string {
	names := map[UnaryOpKind]string{
		OpNot: "NOT", OpNeg: "-", OpIsNull: "IS NULL", OpIsNotNull: "IS NOT NULL",
		OpIsTrue: "IS TRUE", OpIsFalse: "IS FALSE", OpBitNot: "~",
	}
	return names[k]
}

type UnaryOp struct {
	Kind       UnaryOpKind
	Operand    Expr
	ResultType sql.TypeID
}

func NewUnaryOp(kind UnaryOpKind, operand Expr, resultType sql.TypeID) *UnaryOp {
	return &UnaryOp{Kind: kind, Operand: operand, ResultType: resultType}
}

func (u *UnaryOp) Type() sql.TypeID { return u.ResultType }
func (u *UnaryOp) Nullable() bool {
	switch u.Kind {
	case OpIsNull, OpIsNotNull, OpIsTrue, OpIsFalse:
		return false
	default:
		return true
	}
}
func (u *UnaryOp) Children() []Expr { return []Expr{u.Operand} }
func (u *UnaryOp) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 1 {
		return nil, childCountErr(u, 1, len(ch))
	}
	cp := *u
	cp.Operand = ch[0]
	return &cp, nil
}
func (u *UnaryOp) String() string { return fmt.Sprintf("%s(%s)", u.Kind, u.Operand) }

// Alias gives a child expression an output name; aggregate hoisting uses
// synthetic aliases to re-reference hoisted aggregates.
type Alias struct {
	Name  string
	Child Expr
}

func NewAlias(name string, child Expr) *Alias { return &Alias{Name: name, Child: child} }

func (a *Alias) Type() sql.TypeID { return a.Child.Type() }
func (a *Alias) Nullable() bool   { return a.Child.Nullable() }
func (a *Alias) Children() []Expr { return []Expr{a.Child} }
func (a *Alias) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 1 {
		return nil, childCountErr(a, 1, len(ch))
	}
	cp := *a
	cp.Child = ch[0]
	return &cp, nil
}
func (a *Alias) String() string { return fmt.Sprintf("%s AS %s", a.Child, a.Name) }

// CaseWhen is one WHEN/THEN arm of a Case expression.
type CaseWhen struct {
	When Expr
	Then Expr
}

// Case implements CASE [operand] WHEN w1 THEN t1 ... [ELSE e] END. When
// Operand is non-nil this is the "simple" CASE form (each When is compared
// for equality against Operand); otherwise each When must itself be a
// boolean expression.
type Case struct {
	Operand Expr
	Whens   []CaseWhen
	Else    Expr
	Typ     sql.TypeID
}

func NewCase(operand Expr, whens []CaseWhen, els Expr, typ sql.TypeID) *Case {
	return &Case{Operand: operand, Whens: whens, Else: els, Typ: typ}
}

func (c *Case) Type() sql.TypeID { return c.Typ }
func (c *Case) Nullable() bool   { return true }
func (c *Case) Children() []Expr {
	var out []Expr
	if c.Operand != nil {
		out = append(out, c.Operand)
	}
	for _, w := range c.Whens {
		out = append(out, w.When, w.Then)
	}
	if c.Else != nil {
		out = append(out, c.Else)
	}
	return out
}
func (c *Case) WithChildren(ch ...Expr) (Expr, error) {
	cp := *c
	i := 0
	if c.Operand != nil {
		cp.Operand = ch[i]
		i++
	}
	cp.Whens = make([]CaseWhen, len(c.Whens))
	for wi := range c.Whens {
		cp.Whens[wi] = CaseWhen{When: ch[i], Then: ch[i+1]}
		i += 2
	}
	if c.Else != nil {
		cp.Else = ch[i]
	}
	return &cp, nil
}
func (c *Case) String() string {
	var sb strings.Builder
	sb.WriteString("CASE ")
	if c.Operand != nil {
		sb.WriteString(c.Operand.String())
		sb.WriteString(" ")
	}
	for _, w := range c.Whens {
		fmt.Fprintf(&sb, "WHEN %s THEN %s ", w.When, w.Then)
	}
	if c.Else != nil {
		fmt.Fprintf(&sb, "ELSE %s ", c.Else)
	}
	sb.WriteString("END")
	return sb.String()
}

// Cast converts Child to DataType; Safe routes NULL-on-failure through
// SAFE_CAST semantics instead of raising InvalidQuery.
type Cast struct {
	Child    Expr
	DataType sql.TypeID
	Safe     bool
}

func NewCast(child Expr, dataType sql.TypeID, safe bool) *Cast {
	return &Cast{Child: child, DataType: dataType, Safe: safe}
}

func (c *Cast) Type() sql.TypeID { return c.DataType }
func (c *Cast) Nullable() bool   { return true }
func (c *Cast) Children() []Expr { return []Expr{c.Child} }
func (c *Cast) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 1 {
		return nil, childCountErr(c, 1, len(ch))
	}
	cp := *c
	cp.Child = ch[0]
	return &cp, nil
}
func (c *Cast) String() string {
	name := "CAST"
	if c.Safe {
		name = "SAFE_CAST"
	}
	return fmt.Sprintf("%s(%s AS %s)", name, c.Child, c.DataType)
}

// Variable is a script/session variable reference (leading @).
type Variable struct {
	Name string
	Typ  sql.TypeID
}

func NewVariable(name string, typ sql.TypeID) *Variable { return &Variable{Name: name, Typ: typ} }

func (v *Variable) Type() sql.TypeID { return v.Typ }
func (v *Variable) Nullable() bool   { return true }
func (v *Variable) Children() []Expr { return nil }
func (v *Variable) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 0 {
		return nil, childCountErr(v, 0, len(ch))
	}
	return v, nil
}
func (v *Variable) String() string { return "@" + v.Name }

// IsFromColumn reports whether e is (or aliases) a bare Column reference,
// used by projection pushdown to decide whether a Project node can be
// elided in favor of direct column selection.
func IsFromColumn(e Expr) (*Column, bool) {
	switch t := e.(type) {
	case *Column:
		return t, true
	case *Alias:
		return IsFromColumn(t.Child)
	default:
		return nil, false
	}
}
