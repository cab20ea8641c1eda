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

// Package plan implements the logical (and, by specialization, physical)
// plan IR: a tagged tree of LogicalPlan nodes built by sql/planbuilder,
// rewritten by sql/optimizer, and finally walked by sql/rowexec.
package plan

import (
	"fmt"
	"strings"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// LogicalPlan is the common interface every plan node satisfies. Like
// expression.Expr, it forms an owned tree: children are replaced wholesale
// via WithChildren, never mutated in place, so optimizer passes can share
// subtrees across candidate rewrites safely.
type LogicalPlan interface {
	Schema() sql.Schema
	Children() []LogicalPlan
	WithChildren(children ...LogicalPlan) (LogicalPlan, error)
	String() string
}

func childCountErr(p LogicalPlan, want, got int) error {
	return sql.ErrInternal.New(fmt.Sprintf("%T: expected %d children, got %d", p, want, got))
}

// unary embeds the single-child bookkeeping shared by Filter, Project,
// Sort, Limit, Distinct, Qualify, Sample, and Unnest.
type unary struct {
	Child LogicalPlan
}

func (u unary) Children() []LogicalPlan { return []LogicalPlan{u.Child} }

// Scan reads the current snapshot of a catalog base table (or, pre-
// resolution, an unresolved table-name placeholder the analyzer replaces).
type Scan struct {
	Database  string
	Table     string
	Alias     string
	TableSchema sql.Schema
	// Projection, when non-nil, restricts which base-table columns are
	// materialized -- set by the optimizer's projection-pushdown pass.
	Projection []int
}

func NewScan(database, table, alias string, schema sql.Schema) *Scan {
	return &Scan{Database: database, Table: table, Alias: alias, TableSchema: schema}
}

func (s *Scan) Schema() sql.Schema {
	if s.Projection == nil {
		return s.TableSchema
	}
	return s.TableSchema.Project(s.Projection)
}
func (s *Scan) Children() []LogicalPlan { return nil }
func (s *Scan) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 0 {
		return nil, childCountErr(s, 0, len(ch))
	}
	return s, nil
}
func (s *Scan) String() string {
	if s.Alias != "" && s.Alias != s.Table {
		return fmt.Sprintf("Scan(%s AS %s)", s.Table, s.Alias)
	}
	return fmt.Sprintf("Scan(%s)", s.Table)
}

// Filter keeps rows for which Predicate evaluates true.
type Filter struct {
	unary
	Predicate expression.Expr
}

func NewFilter(predicate expression.Expr, child LogicalPlan) *Filter {
	return &Filter{unary: unary{Child: child}, Predicate: predicate}
}

func (f *Filter) Schema() sql.Schema { return f.Child.Schema() }
func (f *Filter) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(f, 1, len(ch))
	}
	return &Filter{unary: unary{Child: ch[0]}, Predicate: f.Predicate}, nil
}
func (f *Filter) String() string { return fmt.Sprintf("Filter(%s)\n%s", f.Predicate, indent(f.Child)) }

// ProjectItem is one output expression of a Project node, carrying its own
// output Field so Project can expose a schema without re-deriving types.
type ProjectItem struct {
	Expr  expression.Expr
	Field *sql.Field
}

// Project computes a new row shape from its child's rows.
type Project struct {
	unary
	Items []ProjectItem
}

func NewProject(items []ProjectItem, child LogicalPlan) *Project {
	return &Project{unary: unary{Child: child}, Items: items}
}

func (p *Project) Schema() sql.Schema {
	out := make(sql.Schema, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.Field
	}
	return out
}
func (p *Project) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(p, 1, len(ch))
	}
	return &Project{unary: unary{Child: ch[0]}, Items: p.Items}, nil
}
func (p *Project) String() string {
	parts := make([]string, len(p.Items))
	for i, it := range p.Items {
		parts[i] = it.Expr.String()
	}
	return fmt.Sprintf("Project(%s)\n%s", strings.Join(parts, ", "), indent(p.Child))
}

// JoinKind enumerates the seven join kinds this engine supports.
type JoinKind uint8

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinSemi
	JoinAnti
)

func (k JoinKind) String() string {
	names := [...]string{"INNER", "LEFT", "RIGHT", "FULL", "CROSS", "SEMI", "ANTI"}
	return names[k]
}

// Join combines Left and Right under Kind; Condition is nil for JoinCross.
type Join struct {
	Left, Right LogicalPlan
	Kind        JoinKind
	Condition   expression.Expr
	outSchema   sql.Schema
}

func NewJoin(left, right LogicalPlan, kind JoinKind, condition expression.Expr) *Join {
	j := &Join{Left: left, Right: right, Kind: kind, Condition: condition}
	j.outSchema = j.computeSchema()
	return j
}

func (j *Join) computeSchema() sql.Schema {
	switch j.Kind {
	case JoinSemi, JoinAnti:
		return j.Left.Schema()
	default:
		return j.Left.Schema().Concat(j.Right.Schema())
	}
}

func (j *Join) Schema() sql.Schema { return j.outSchema }
func (j *Join) Children() []LogicalPlan { return []LogicalPlan{j.Left, j.Right} }
func (j *Join) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 2 {
		return nil, childCountErr(j, 2, len(ch))
	}
	return NewJoin(ch[0], ch[1], j.Kind, j.Condition), nil
}
func (j *Join) String() string {
	cond := ""
	if j.Condition != nil {
		cond = " ON " + j.Condition.String()
	}
	return fmt.Sprintf("%sJoin%s\n%s\n%s", j.Kind, cond, indent(j.Left), indent(j.Right))
}

// GroupingSetKind distinguishes plain GROUP BY from GROUPING SETS/ROLLUP/
// CUBE, which each expand into multiple grouping sets at plan-build time.
type GroupingSetKind uint8

const (
	GroupingPlain GroupingSetKind = iota
	GroupingSets
	GroupingRollup
	GroupingCube
)

// AggregateItem is one computed aggregate output, paired with its Field.
type AggregateItem struct {
	Agg   *expression.Aggregate
	Field *sql.Field
}

// Aggregate groups by GroupBy and computes Aggregates per group; when
// GroupingSets has more than one set, the output additionally carries a
// synthetic grouping-ID column appended after the aggregates.
type Aggregate struct {
	unary
	GroupBy      []expression.Expr
	GroupByNames []string
	GroupingSets [][]int // indices into GroupBy; nil => single set of all
	SetKind      GroupingSetKind
	Aggregates   []AggregateItem
}

func NewAggregate(groupBy []expression.Expr, groupByNames []string, aggregates []AggregateItem, child LogicalPlan) *Aggregate {
	return &Aggregate{unary: unary{Child: child}, GroupBy: groupBy, GroupByNames: groupByNames, Aggregates: aggregates}
}

func (a *Aggregate) Schema() sql.Schema {
	out := make(sql.Schema, 0, len(a.GroupBy)+len(a.Aggregates)+1)
	for i, g := range a.GroupBy {
		out = append(out, sql.NewField("", a.GroupByNames[i], g.Type(), true))
	}
	for _, it := range a.Aggregates {
		out = append(out, it.Field)
	}
	if len(a.GroupingSets) > 1 {
		out = append(out, sql.NewField("", "__grouping_id", sql.TypeInt64, false))
	}
	return out
}
func (a *Aggregate) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(a, 1, len(ch))
	}
	cp := *a
	cp.Child = ch[0]
	return &cp, nil
}
func (a *Aggregate) String() string {
	parts := make([]string, len(a.Aggregates))
	for i, it := range a.Aggregates {
		parts[i] = it.Agg.String()
	}
	return fmt.Sprintf("Aggregate(group=%v, aggs=%s)\n%s", a.GroupByNames, strings.Join(parts, ", "), indent(a.Child))
}

// Sort orders rows by Keys.
type Sort struct {
	unary
	Keys []expression.OrderByItem
}

func NewSort(keys []expression.OrderByItem, child LogicalPlan) *Sort {
	return &Sort{unary: unary{Child: child}, Keys: keys}
}
func (s *Sort) Schema() sql.Schema { return s.Child.Schema() }
func (s *Sort) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(s, 1, len(ch))
	}
	return &Sort{unary: unary{Child: ch[0]}, Keys: s.Keys}, nil
}
func (s *Sort) String() string { return fmt.Sprintf("Sort\n%s", indent(s.Child)) }

// Limit caps row count, optionally skipping Offset rows first.
type Limit struct {
	unary
	Count  int64
	Offset *int64
}

func NewLimit(count int64, offset *int64, child LogicalPlan) *Limit {
	return &Limit{unary: unary{Child: child}, Count: count, Offset: offset}
}
func (l *Limit) Schema() sql.Schema { return l.Child.Schema() }
func (l *Limit) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(l, 1, len(ch))
	}
	return &Limit{unary: unary{Child: ch[0]}, Count: l.Count, Offset: l.Offset}, nil
}
func (l *Limit) String() string { return fmt.Sprintf("Limit(%d)\n%s", l.Count, indent(l.Child)) }

// TopN is the Sort+Limit fusion the optimizer may introduce so the
// executor can avoid materializing a full sorted table; the optimizer is
// responsible for recognizing the Sort-then-Limit pattern and substituting
// this node.
type TopN struct {
	unary
	Keys  []expression.OrderByItem
	Count int64
}

func NewTopN(keys []expression.OrderByItem, count int64, child LogicalPlan) *TopN {
	return &TopN{unary: unary{Child: child}, Keys: keys, Count: count}
}
func (t *TopN) Schema() sql.Schema { return t.Child.Schema() }
func (t *TopN) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(t, 1, len(ch))
	}
	return &TopN{unary: unary{Child: ch[0]}, Keys: t.Keys, Count: t.Count}, nil
}
func (t *TopN) String() string { return fmt.Sprintf("TopN(%d)\n%s", t.Count, indent(t.Child)) }

// Distinct deduplicates rows by their full-row key.
type Distinct struct{ unary }

func NewDistinct(child LogicalPlan) *Distinct { return &Distinct{unary{Child: child}} }
func (d *Distinct) Schema() sql.Schema         { return d.Child.Schema() }
func (d *Distinct) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(d, 1, len(ch))
	}
	return &Distinct{unary{Child: ch[0]}}, nil
}
func (d *Distinct) String() string { return fmt.Sprintf("Distinct\n%s", indent(d.Child)) }

// SetOpKind selects UNION/INTERSECT/EXCEPT.
type SetOpKind uint8

const (
	SetUnion SetOpKind = iota
	SetIntersect
	SetExcept
)

func (k SetOpKind) String() string {
	return [...]string{"UNION", "INTERSECT", "EXCEPT"}[k]
}

// SetOp is an n-ary UNION/INTERSECT/EXCEPT; All selects ALL (multiplicity-
// preserving) vs DISTINCT semantics.
type SetOp struct {
	Kind   SetOpKind
	All    bool
	Inputs []LogicalPlan
}

func NewSetOp(kind SetOpKind, all bool, inputs []LogicalPlan) *SetOp {
	return &SetOp{Kind: kind, All: all, Inputs: inputs}
}
func (s *SetOp) Schema() sql.Schema { return s.Inputs[0].Schema() }
func (s *SetOp) Children() []LogicalPlan { return s.Inputs }
func (s *SetOp) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != len(s.Inputs) {
		return nil, childCountErr(s, len(s.Inputs), len(ch))
	}
	return &SetOp{Kind: s.Kind, All: s.All, Inputs: ch}, nil
}
func (s *SetOp) String() string {
	all := ""
	if s.All {
		all = " ALL"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s", s.Kind, all)
	for _, in := range s.Inputs {
		sb.WriteString("\n" + indent(in))
	}
	return sb.String()
}

// WindowItem is one OVER(...) expression computed by a Window node,
// appended as a new output column.
type WindowItem struct {
	Expr  expression.Expr // *expression.Window or *expression.AggregateWindow
	Field *sql.Field
}

// Window appends one or more window-function output columns to its
// child's rows without collapsing them.
type Window struct {
	unary
	Items []WindowItem
}

func NewWindow(items []WindowItem, child LogicalPlan) *Window {
	return &Window{unary: unary{Child: child}, Items: items}
}
func (w *Window) Schema() sql.Schema {
	out := append(sql.Schema{}, w.Child.Schema()...)
	for _, it := range w.Items {
		out = append(out, it.Field)
	}
	return out
}
func (w *Window) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(w, 1, len(ch))
	}
	return &Window{unary: unary{Child: ch[0]}, Items: w.Items}, nil
}
func (w *Window) String() string { return fmt.Sprintf("Window\n%s", indent(w.Child)) }

// Unnest expands an array-typed expression into one row per element,
// preserving the child's other columns. WithOffset appends a 0-indexed
// element-position column.
type Unnest struct {
	unary
	Array      expression.Expr
	ElemField  *sql.Field
	WithOffset bool
	OffsetName string
}

func NewUnnest(array expression.Expr, elemField *sql.Field, withOffset bool, offsetName string, child LogicalPlan) *Unnest {
	return &Unnest{unary: unary{Child: child}, Array: array, ElemField: elemField, WithOffset: withOffset, OffsetName: offsetName}
}
func (u *Unnest) Schema() sql.Schema {
	out := append(sql.Schema{}, u.Child.Schema()...)
	out = append(out, u.ElemField)
	if u.WithOffset {
		out = append(out, sql.NewField("", u.OffsetName, sql.TypeInt64, false))
	}
	return out
}
func (u *Unnest) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(u, 1, len(ch))
	}
	cp := *u
	cp.Child = ch[0]
	return &cp, nil
}
func (u *Unnest) String() string { return fmt.Sprintf("Unnest(%s)\n%s", u.Array, indent(u.Child)) }

// Qualify filters rows by a predicate that may reference window-function
// outputs, evaluated after Window but before the final Project.
type Qualify struct {
	unary
	Predicate expression.Expr
}

func NewQualify(predicate expression.Expr, child LogicalPlan) *Qualify {
	return &Qualify{unary: unary{Child: child}, Predicate: predicate}
}
func (q *Qualify) Schema() sql.Schema { return q.Child.Schema() }
func (q *Qualify) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(q, 1, len(ch))
	}
	return &Qualify{unary: unary{Child: ch[0]}, Predicate: q.Predicate}, nil
}
func (q *Qualify) String() string { return fmt.Sprintf("Qualify(%s)\n%s", q.Predicate, indent(q.Child)) }

// CteDef is one named WITH binding; Recursive anchors set Anchor to the
// non-recursive branch, used to derive the CTE's output schema.
type CteDef struct {
	Name         string
	Body         LogicalPlan
	Recursive    bool
	Anchor       LogicalPlan // recursive only: the non-self-referencing branch
	Materialized bool
}

// WithCte scopes one or more CTE definitions over Body.
type WithCte struct {
	Ctes []CteDef
	Body LogicalPlan
}

func NewWithCte(ctes []CteDef, body LogicalPlan) *WithCte { return &WithCte{Ctes: ctes, Body: body} }
func (w *WithCte) Schema() sql.Schema { return w.Body.Schema() }
func (w *WithCte) Children() []LogicalPlan {
	out := make([]LogicalPlan, 0, len(w.Ctes)+1)
	for _, c := range w.Ctes {
		out = append(out, c.Body)
	}
	out = append(out, w.Body)
	return out
}
func (w *WithCte) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != len(w.Ctes)+1 {
		return nil, childCountErr(w, len(w.Ctes)+1, len(ch))
	}
	newCtes := make([]CteDef, len(w.Ctes))
	for i, c := range w.Ctes {
		c.Body = ch[i]
		newCtes[i] = c
	}
	return &WithCte{Ctes: newCtes, Body: ch[len(ch)-1]}, nil
}
func (w *WithCte) String() string {
	var sb strings.Builder
	sb.WriteString("With")
	for _, c := range w.Ctes {
		fmt.Fprintf(&sb, "\n  %s AS\n%s", c.Name, indent(c.Body))
	}
	fmt.Fprintf(&sb, "\n%s", indent(w.Body))
	return sb.String()
}

// CteRef is a reference to a CTE by name, resolved by the analyzer into a
// pointer at the CTE's body (or, for a recursive reference, at a
// RecursionPlaceholder standing in for "the working table so far").
type CteRef struct {
	Name       string
	RefSchema  sql.Schema
	Recursive  bool
}

func NewCteRef(name string, schema sql.Schema, recursive bool) *CteRef {
	return &CteRef{Name: name, RefSchema: schema, Recursive: recursive}
}
func (c *CteRef) Schema() sql.Schema { return c.RefSchema }
func (c *CteRef) Children() []LogicalPlan { return nil }
func (c *CteRef) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 0 {
		return nil, childCountErr(c, 0, len(ch))
	}
	return c, nil
}
func (c *CteRef) String() string { return "CteRef(" + c.Name + ")" }

// Values is a literal row-list (`VALUES (1,2), (3,4)`), used for inline
// data and as the base case building block for some recursive CTE
// anchors.
type Values struct {
	ValuesSchema sql.Schema
	Rows         [][]expression.Expr
}

func NewValues(schema sql.Schema, rows [][]expression.Expr) *Values {
	return &Values{ValuesSchema: schema, Rows: rows}
}
func (v *Values) Schema() sql.Schema { return v.ValuesSchema }
func (v *Values) Children() []LogicalPlan { return nil }
func (v *Values) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 0 {
		return nil, childCountErr(v, 0, len(ch))
	}
	return v, nil
}
func (v *Values) String() string { return fmt.Sprintf("Values(%d rows)", len(v.Rows)) }

// SampleKind distinguishes ROWS n from PERCENT p sampling.
type SampleKind uint8

const (
	SampleRows SampleKind = iota
	SamplePercent
)

// Sample implements TABLESAMPLE SYSTEM (ROWS n | PERCENT p).
type Sample struct {
	unary
	Kind  SampleKind
	Value float64
	Seed  *int64
}

func NewSample(kind SampleKind, value float64, seed *int64, child LogicalPlan) *Sample {
	return &Sample{unary: unary{Child: child}, Kind: kind, Value: value, Seed: seed}
}
func (s *Sample) Schema() sql.Schema { return s.Child.Schema() }
func (s *Sample) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(s, 1, len(ch))
	}
	return &Sample{unary: unary{Child: ch[0]}, Kind: s.Kind, Value: s.Value, Seed: s.Seed}, nil
}
func (s *Sample) String() string { return fmt.Sprintf("Sample\n%s", indent(s.Child)) }

// Empty is a statically-known-empty relation with a fixed schema, produced
// by the optimizer's trivial-predicate-removal and empty-propagation
// passes.
type Empty struct {
	EmptySchema sql.Schema
}

func NewEmpty(schema sql.Schema) *Empty { return &Empty{EmptySchema: schema} }
func (e *Empty) Schema() sql.Schema { return e.EmptySchema }
func (e *Empty) Children() []LogicalPlan { return nil }
func (e *Empty) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 0 {
		return nil, childCountErr(e, 0, len(ch))
	}
	return e, nil
}
func (e *Empty) String() string { return "Empty" }

// SubqueryAlias wraps a derived-table subquery with a table alias so
// columns within it can be referenced as `alias.col`.
type SubqueryAlias struct {
	unary
	Alias string
}

func NewSubqueryAlias(alias string, child LogicalPlan) *SubqueryAlias {
	return &SubqueryAlias{unary: unary{Child: child}, Alias: alias}
}
func (s *SubqueryAlias) Schema() sql.Schema {
	childSchema := s.Child.Schema()
	out := make(sql.Schema, len(childSchema))
	for i, f := range childSchema {
		cp := *f
		cp.TableName = s.Alias
		out[i] = &cp
	}
	return out
}
func (s *SubqueryAlias) WithChildren(ch ...LogicalPlan) (LogicalPlan, error) {
	if len(ch) != 1 {
		return nil, childCountErr(s, 1, len(ch))
	}
	return &SubqueryAlias{unary: unary{Child: ch[0]}, Alias: s.Alias}, nil
}
func (s *SubqueryAlias) String() string { return fmt.Sprintf("SubqueryAlias(%s)\n%s", s.Alias, indent(s.Child)) }

func indent(p LogicalPlan) string {
	lines := strings.Split(p.String(), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
