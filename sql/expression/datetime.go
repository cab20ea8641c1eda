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

// AtTimeZone implements `expr AT TIME ZONE tz`; TzName may itself be an
// expression (usually a string literal).
type AtTimeZone struct {
	Target Expr
	TzName Expr
	Typ    sql.TypeID
}

func NewAtTimeZone(target, tz Expr, typ sql.TypeID) *AtTimeZone {
	return &AtTimeZone{Target: target, TzName: tz, Typ: typ}
}

func (a *AtTimeZone) Type() sql.TypeID { return a.Typ }
func (a *AtTimeZone) Nullable() bool   { return true }
func (a *AtTimeZone) Children() []Expr { return []Expr{a.Target, a.TzName} }
func (a *AtTimeZone) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 2 {
		return nil, childCountErr(a, 2, len(ch))
	}
	cp := *a
	cp.Target, cp.TzName = ch[0], ch[1]
	return &cp, nil
}
func (a *AtTimeZone) String() string { return fmt.Sprintf("%s AT TIME ZONE %s", a.Target, a.TzName) }

// TrimMode selects LEADING/TRAILING/BOTH for the Trim expression.
type TrimMode uint8

const (
	TrimBoth TrimMode = iota
	TrimLeading
	TrimTrailing
)

// Trim implements TRIM([BOTH|LEADING|TRAILING] [chars FROM] target).
type Trim struct {
	Target Expr
	Chars  Expr // nil => a single space
	Mode   TrimMode
}

func NewTrim(target, chars Expr, mode TrimMode) *Trim {
	return &Trim{Target: target, Chars: chars, Mode: mode}
}

func (t *Trim) Type() sql.TypeID { return sql.TypeString }
func (t *Trim) Nullable() bool   { return true }
func (t *Trim) Children() []Expr {
	if t.Chars != nil {
		return []Expr{t.Target, t.Chars}
	}
	return []Expr{t.Target}
}
func (t *Trim) WithChildren(ch ...Expr) (Expr, error) {
	cp := *t
	cp.Target = ch[0]
	if t.Chars != nil {
		cp.Chars = ch[1]
	}
	return &cp, nil
}
func (t *Trim) String() string { return fmt.Sprintf("TRIM(%s)", t.Target) }

// Substring implements SUBSTR(target, start[, length]); Length nil means
// "to the end of the string".
type Substring struct {
	Target Expr
	Start  Expr
	Length Expr // nil if omitted
}

func NewSubstring(target, start, length Expr) *Substring {
	return &Substring{Target: target, Start: start, Length: length}
}

func (s *Substring) Type() sql.TypeID { return sql.TypeString }
func (s *Substring) Nullable() bool   { return true }
func (s *Substring) Children() []Expr {
	if s.Length != nil {
		return []Expr{s.Target, s.Start, s.Length}
	}
	return []Expr{s.Target, s.Start}
}
func (s *Substring) WithChildren(ch ...Expr) (Expr, error) {
	cp := *s
	cp.Target, cp.Start = ch[0], ch[1]
	if s.Length != nil {
		cp.Length = ch[2]
	}
	return &cp, nil
}
func (s *Substring) String() string { return fmt.Sprintf("SUBSTR(%s, %s)", s.Target, s.Start) }

// Overlay implements `OVERLAY(target PLACING replacement FROM start [FOR
// length])`.
type Overlay struct {
	Target      Expr
	Replacement Expr
	Start       Expr
	Length      Expr // nil => len(replacement)
}

func NewOverlay(target, replacement, start, length Expr) *Overlay {
	return &Overlay{Target: target, Replacement: replacement, Start: start, Length: length}
}

func (o *Overlay) Type() sql.TypeID { return sql.TypeString }
func (o *Overlay) Nullable() bool   { return true }
func (o *Overlay) Children() []Expr {
	out := []Expr{o.Target, o.Replacement, o.Start}
	if o.Length != nil {
		out = append(out, o.Length)
	}
	return out
}
func (o *Overlay) WithChildren(ch ...Expr) (Expr, error) {
	cp := *o
	cp.Target, cp.Replacement, cp.Start = ch[0], ch[1], ch[2]
	if o.Length != nil {
		cp.Length = ch[3]
	}
	return &cp, nil
}
func (o *Overlay) String() string {
	return fmt.Sprintf("OVERLAY(%s PLACING %s FROM %s)", o.Target, o.Replacement, o.Start)
}

// Position implements `POSITION(needle IN haystack)`, returning a 1-based
// index or 0 if not found.
type Position struct {
	Needle   Expr
	Haystack Expr
}

func NewPosition(needle, haystack Expr) *Position { return &Position{Needle: needle, Haystack: haystack} }

func (p *Position) Type() sql.TypeID { return sql.TypeInt64 }
func (p *Position) Nullable() bool   { return true }
func (p *Position) Children() []Expr { return []Expr{p.Needle, p.Haystack} }
func (p *Position) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 2 {
		return nil, childCountErr(p, 2, len(ch))
	}
	cp := *p
	cp.Needle, cp.Haystack = ch[0], ch[1]
	return &cp, nil
}
func (p *Position) String() string { return fmt.Sprintf("POSITION(%s IN %s)", p.Needle, p.Haystack) }

// IntervalField names the leading field of an INTERVAL value constructor.
type IntervalField string

const (
	IntervalYear   IntervalField = "YEAR"
	IntervalMonth  IntervalField = "MONTH"
	IntervalDay    IntervalField = "DAY"
	IntervalHour   IntervalField = "HOUR"
	IntervalMinute IntervalField = "MINUTE"
	IntervalSecond IntervalField = "SECOND"
)

// IntervalExpr builds an Interval value from an integer expression and a
// leading field: (value, leading_field) maps to a
// months/days/nanos-decomposed Interval.
type IntervalExpr struct {
	Value Expr
	Field IntervalField
}

func NewIntervalExpr(value Expr, field IntervalField) *IntervalExpr {
	return &IntervalExpr{Value: value, Field: field}
}

func (i *IntervalExpr) Type() sql.TypeID { return sql.TypeInterval }
func (i *IntervalExpr) Nullable() bool   { return true }
func (i *IntervalExpr) Children() []Expr { return []Expr{i.Value} }
func (i *IntervalExpr) WithChildren(ch ...Expr) (Expr, error) {
	if len(ch) != 1 {
		return nil, childCountErr(i, 1, len(ch))
	}
	cp := *i
	cp.Value = ch[0]
	return &cp, nil
}
func (i *IntervalExpr) String() string { return fmt.Sprintf("INTERVAL %s %s", i.Value, i.Field) }
