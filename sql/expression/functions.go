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

// ScalarFunction is a named built-in or user-defined scalar function call.
// SafeMode routes division/cast-style errors to Null instead of raising,
// for the `SAFE.`-prefixed dialect form.
type ScalarFunction struct {
	Name     string
	Args     []Expr
	Typ      sql.TypeID
	SafeMode bool
}

func NewScalarFunction(name string, typ sql.TypeID, args ...Expr) *ScalarFunction {
	return &ScalarFunction{Name: name, Args: args, Typ: typ}
}

func (f *ScalarFunction) Type() sql.TypeID { return f.Typ }
func (f *ScalarFunction) Nullable() bool   { return true }
func (f *ScalarFunction) Children() []Expr { return f.Args }
func (f *ScalarFunction) WithChildren(ch ...Expr) (Expr, error) {
	cp := *f
	cp.Args = ch
	return &cp, nil
}
func (f *ScalarFunction) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	name := f.Name
	if f.SafeMode {
		name = "SAFE." + name
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

// AggregateFunc names the built-in aggregate functions, each implemented
// with a numerically stable online algorithm.
type AggregateFunc string

const (
	AggCount       AggregateFunc = "COUNT"
	AggCountStar   AggregateFunc = "COUNT_STAR"
	AggSum         AggregateFunc = "SUM"
	AggAvg         AggregateFunc = "AVG"
	AggMin         AggregateFunc = "MIN"
	AggMax         AggregateFunc = "MAX"
	AggArrayAgg    AggregateFunc = "ARRAY_AGG"
	AggStringAgg   AggregateFunc = "STRING_AGG"
	AggVariance    AggregateFunc = "VARIANCE"
	AggStdDev      AggregateFunc = "STDDEV"
	AggCovariance  AggregateFunc = "COVAR_POP"
	AggCorrelation AggregateFunc = "CORR"
	AggAnyValue    AggregateFunc = "ANY_VALUE"
	AggLogicalAnd  AggregateFunc = "LOGICAL_AND"
	AggLogicalOr   AggregateFunc = "LOGICAL_OR"
	AggBitAnd      AggregateFunc = "BIT_AND"
	AggBitOr       AggregateFunc = "BIT_OR"
	AggBitXor      AggregateFunc = "BIT_XOR"
)

// OrderByItem is one ORDER BY key, shared by Aggregate (ARRAY_AGG ORDER BY),
// Window, and the Sort plan node.
type OrderByItem struct {
	Expr       Expr
	Descending bool
	NullsFirst bool
}

// Aggregate is an aggregate function call as it appears inside an
// Aggregate plan node's aggregate list, or (pre-hoisting) inline in
// HAVING/ORDER BY/QUALIFY.
type Aggregate struct {
	Func     AggregateFunc
	Args     []Expr
	Distinct bool
	Filter   Expr // FILTER (WHERE ...), nil if absent
	OrderBy  []OrderByItem
	Typ      sql.TypeID
}

func NewAggregate(fn AggregateFunc, typ sql.TypeID, args ...Expr) *Aggregate {
	return &Aggregate{Func: fn, Args: args, Typ: typ}
}

func (a *Aggregate) Type() sql.TypeID { return a.Typ }
func (a *Aggregate) Nullable() bool   { return true }
func (a *Aggregate) Children() []Expr {
	out := append([]Expr{}, a.Args...)
	if a.Filter != nil {
		out = append(out, a.Filter)
	}
	for _, o := range a.OrderBy {
		out = append(out, o.Expr)
	}
	return out
}
func (a *Aggregate) WithChildren(ch ...Expr) (Expr, error) {
	cp := *a
	cp.Args = ch[:len(a.Args)]
	rest := ch[len(a.Args):]
	if a.Filter != nil {
		cp.Filter = rest[0]
		rest = rest[1:]
	}
	cp.OrderBy = make([]OrderByItem, len(a.OrderBy))
	for i, o := range a.OrderBy {
		cp.OrderBy[i] = OrderByItem{Expr: rest[i], Descending: o.Descending, NullsFirst: o.NullsFirst}
	}
	return &cp, nil
}

// CanonicalName returns the normalized textual key the analyzer uses to
// dedup and re-reference aggregate expressions during hoisting: uppercased
// and whitespace-stripped.
func (a *Aggregate) CanonicalName() string {
	return CanonicalAggregateName(a)
}

func (a *Aggregate) String() string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	distinct := ""
	if a.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", a.Func, distinct, strings.Join(parts, ", "))
}

// CanonicalAggregateName normalizes an aggregate's textual form (uppercase,
// whitespace stripped) so that HAVING/ORDER BY/QUALIFY references to the
// "same" aggregate expression as the SELECT list resolve to one hoisted
// column instead of being recomputed.
func CanonicalAggregateName(a *Aggregate) string {
	s := a.String()
	var sb strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// WindowFrameKind distinguishes ROWS vs RANGE framing.
type WindowFrameKind uint8

const (
	FrameRows WindowFrameKind = iota
	FrameRange
)

// WindowFrame is a bounded window frame: [Start, End] offsets relative to
// the current row, measured in rows (FrameRows) or logical peer groups
// (FrameRange). A nil bound means UNBOUNDED on that side.
type WindowFrame struct {
	Kind  WindowFrameKind
	Start *int64
	End   *int64
}

// WindowSpec is the OVER (...) clause shared by Window and AggregateWindow.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
	Frame       *WindowFrame
}

// WindowFunc names the navigational/ranking window functions (as opposed
// to an aggregate used as a window function, which is AggregateWindow).
type WindowFunc string

const (
	WinRowNumber  WindowFunc = "ROW_NUMBER"
	WinRank       WindowFunc = "RANK"
	WinDenseRank  WindowFunc = "DENSE_RANK"
	WinNtile      WindowFunc = "NTILE"
	WinLag        WindowFunc = "LAG"
	WinLead       WindowFunc = "LEAD"
	WinFirstValue WindowFunc = "FIRST_VALUE"
	WinLastValue  WindowFunc = "LAST_VALUE"
	WinNthValue   WindowFunc = "NTH_VALUE"
)

// Window is a ranking/navigational window function call.
type Window struct {
	Func WindowFunc
	Args []Expr
	Spec WindowSpec
	Typ  sql.TypeID
}

func NewWindow(fn WindowFunc, typ sql.TypeID, spec WindowSpec, args ...Expr) *Window {
	return &Window{Func: fn, Args: args, Spec: spec, Typ: typ}
}

func (w *Window) Type() sql.TypeID { return w.Typ }
func (w *Window) Nullable() bool   { return true }
func (w *Window) Children() []Expr {
	out := append([]Expr{}, w.Args...)
	out = append(out, w.Spec.PartitionBy...)
	for _, o := range w.Spec.OrderBy {
		out = append(out, o.Expr)
	}
	return out
}
func (w *Window) WithChildren(ch ...Expr) (Expr, error) {
	cp := *w
	cp.Args = ch[:len(w.Args)]
	rest := ch[len(w.Args):]
	cp.Spec.PartitionBy = rest[:len(w.Spec.PartitionBy)]
	rest = rest[len(w.Spec.PartitionBy):]
	cp.Spec.OrderBy = make([]OrderByItem, len(w.Spec.OrderBy))
	for i, o := range w.Spec.OrderBy {
		cp.Spec.OrderBy[i] = OrderByItem{Expr: rest[i], Descending: o.Descending, NullsFirst: o.NullsFirst}
	}
	return &cp, nil
}
func (w *Window) String() string { return fmt.Sprintf("%s(...) OVER (...)", w.Func) }

// AggregateWindow applies an aggregate function over a window frame rather
// than collapsing rows, e.g. `SUM(x) OVER (PARTITION BY ...)`.
type AggregateWindow struct {
	Agg  *Aggregate
	Spec WindowSpec
}

func NewAggregateWindow(agg *Aggregate, spec WindowSpec) *AggregateWindow {
	return &AggregateWindow{Agg: agg, Spec: spec}
}

func (a *AggregateWindow) Type() sql.TypeID { return a.Agg.Type() }
func (a *AggregateWindow) Nullable() bool   { return true }
func (a *AggregateWindow) Children() []Expr {
	out := append([]Expr{}, a.Agg.Args...)
	out = append(out, a.Spec.PartitionBy...)
	for _, o := range a.Spec.OrderBy {
		out = append(out, o.Expr)
	}
	return out
}
func (a *AggregateWindow) WithChildren(ch ...Expr) (Expr, error) {
	cp := *a
	aggCp := *a.Agg
	aggCp.Args = ch[:len(a.Agg.Args)]
	cp.Agg = &aggCp
	rest := ch[len(a.Agg.Args):]
	cp.Spec.PartitionBy = rest[:len(a.Spec.PartitionBy)]
	rest = rest[len(a.Spec.PartitionBy):]
	cp.Spec.OrderBy = make([]OrderByItem, len(a.Spec.OrderBy))
	for i, o := range a.Spec.OrderBy {
		cp.Spec.OrderBy[i] = OrderByItem{Expr: rest[i], Descending: o.Descending, NullsFirst: o.NullsFirst}
	}
	return &cp, nil
}
func (a *AggregateWindow) String() string { return a.Agg.String() + " OVER (...)" }
