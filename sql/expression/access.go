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

// StructExpr constructs a STRUCT literal from named field expressions.
type StructExpr struct {
	Names []string
	Elems []Expr
}

func NewStructExpr(names []string, elems []Expr) *StructExpr {
	return &StructExpr{Names: names, Elems: elems}
}

func (s *StructExpr) Type() sql.TypeID { return sql.TypeStruct }
func (s *StructExpr) Nullable() bool   { return false }
func (s *StructExpr) Children() []Expr { return s.Elems }
func (s *StructExpr) WithChildren(ch ...Expr) (Expr, error) {
	cp := *s
	cp.Elems = ch
	return &cp, nil
}
func (s *StructExpr) String() string {
	parts := make([]string, len(s.Elems))
	for i, e := range s.Elems {
		parts[i] = fmt.Sprintf("%s AS %s", e, s.Names[i])
	}
	return "STRUCT(" + strings.Join(parts, ", ") + ")"
}

// ArrayExpr constructs an ARRAY literal from element expressions.
type ArrayExpr struct {
	Elems   []Expr
	ElemTyp sql.TypeID
}

func NewArrayExpr(elemTyp sql.TypeID, elems []Expr) *ArrayExpr {
	return &ArrayExpr{Elems: elems, ElemTyp: elemTyp}
}

func (a *ArrayExpr) Type() sql.TypeID { return sql.TypeArray }
func (a *ArrayExpr) Nullable() bool   { return false }
func (a *ArrayExpr) Children() []Expr { return a.Elems }
func (a *ArrayExpr) WithChildren(ch ...Expr) (Expr, error) {
	cp := *a
	cp.Elems = ch
	return &cp, nil
}
func (a *ArrayExpr) String() string {
	parts := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// StructAccess reads a named field off a struct-typed expression.
type StructAccess struct {
	Target Expr
	Field  string
	Typ    sql.TypeID
}

func NewStructAccess(target Expr, field string, typ sql.TypeID) *StructAccess {
	return &StructAccess{Target: target, Field: field, Typ: typ}
}

func (s *StructAccess) Type() sql.TypeID { return s.Typ }
func (s *StructAccess) Nullable() bool   { return true }
func (s *StructAccess) Children() []Expr { return []Expr{s.Target} }
func (s *StructAccess) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 1 {
		return nil, childCountErr(s, 1, len(ch))
	}
	cp := *s
	cp.Target = ch[0]
	return &cp, nil
}
func (s *StructAccess) String() string { return fmt.Sprintf("%s.%s", s.Target, s.Field) }

// ArrayAccessMode is one of the four supported array-indexing modes:
// 1-indexed-safe (Default), 0-indexed-strict (Offset), 1-indexed-strict
// (Ordinal), and their SAFE_ variants.
type ArrayAccessMode uint8

const (
	AccessDefault ArrayAccessMode = iota
	AccessOffset
	AccessOrdinal
	AccessSafeOffset
	AccessSafeOrdinal
)

func (m ArrayAccessMode) IsSafe() bool {
	return m == AccessDefault || m == AccessSafeOffset || m == AccessSafeOrdinal
}

func (m ArrayAccessMode) IsZeroIndexed() bool {
	return m == AccessOffset || m == AccessSafeOffset
}

// ArrayAccess reads an element out of an array-typed expression at Index
// (another expression, so `arr[x+1]` is supported), interpreted per Mode.
type ArrayAccess struct {
	Target Expr
	Index  Expr
	Mode   ArrayAccessMode
	Typ    sql.TypeID
}

func NewArrayAccess(target, index Expr, mode ArrayAccessMode, typ sql.TypeID) *ArrayAccess {
	return &ArrayAccess{Target: target, Index: index, Mode: mode, Typ: typ}
}

func (a *ArrayAccess) Type() sql.TypeID { return a.Typ }
func (a *ArrayAccess) Nullable() bool   { return true }
func (a *ArrayAccess) Children() []Expr { return []Expr{a.Target, a.Index} }
func (a *ArrayAccess) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 2 {
		return nil, childCountErr(a, 2, len(ch))
	}
	cp := *a
	cp.Target, cp.Index = ch[0], ch[1]
	return &cp, nil
}
func (a *ArrayAccess) String() string { return fmt.Sprintf("%s[%s]", a.Target, a.Index) }

// JSONPathElem is one step of a JSON navigation path: either a key lookup
// or an array index.
type JSONPathElem struct {
	Key      string
	Index    int64
	IsIndex  bool
}

// JSONAccess navigates a JSON-typed expression along Path; any miss or
// type mismatch at any step yields Null, never an error.
type JSONAccess struct {
	Target Expr
	Path   []JSONPathElem
}

func NewJSONAccess(target Expr, path []JSONPathElem) *JSONAccess {
	return &JSONAccess{Target: target, Path: path}
}

func (j *JSONAccess) Type() sql.TypeID { return sql.TypeJSON }
func (j *JSONAccess) Nullable() bool   { return true }
func (j *JSONAccess) Children() []Expr { return []Expr{j.Target} }
func (j *JSONAccess) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 1 {
		return nil, childCountErr(j, 1, len(ch))
	}
	cp := *j
	cp.Target = ch[0]
	return &cp, nil
}
func (j *JSONAccess) String() string {
	var sb strings.Builder
	sb.WriteString(j.Target.String())
	for _, p := range j.Path {
		if p.IsIndex {
			fmt.Fprintf(&sb, "[%d]", p.Index)
		} else {
			fmt.Fprintf(&sb, ".%s", p.Key)
		}
	}
	return sb.String()
}
