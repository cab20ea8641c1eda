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
	"github.com/ha1tch/tsqlparser/ast"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/analyzer"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// buildProjection builds the SELECT list, hoisting any aggregates found in
// it (or in HAVING/ORDER BY) into a plan.Aggregate node, and returns the
// Project items, the group-by expressions, the base plan
// to project over (either the FROM tree unchanged, or an Aggregate wrapping
// it), the HAVING predicate (already rebased against the aggregate's output
// schema), and the ORDER BY keys.
func (b *Builder) buildProjection(
	sel *ast.SelectStatement,
	schema sql.Schema,
	base plan.LogicalPlan,
) (items []plan.ProjectItem, groupBy []expression.Expr, groupByNames []string, newBase plan.LogicalPlan, having expression.Expr, orderKeys []expression.OrderByItem, err error) {
	groupBy = make([]expression.Expr, len(sel.GroupBy))
	groupByNames = make([]string, len(sel.GroupBy))
	for i, ge := range sel.GroupBy {
		built, err := b.buildExpr(ge, schema)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		groupBy[i] = built
		groupByNames[i] = groupByLabel(built)
	}

	hoister := analyzer.NewAggregateHoister()

	selectExprs := make([]expression.Expr, 0, len(sel.Columns))
	fields := make([]*sql.Field, 0, len(sel.Columns))
	for _, col := range sel.Columns {
		if col.AllColumns {
			cols, err := expandStar(schema)
			if err != nil {
				return nil, nil, nil, nil, nil, nil, err
			}
			for _, c := range cols {
				hoisted, err := hoister.Collect(c)
				if err != nil {
					return nil, nil, nil, nil, nil, nil, err
				}
				selectExprs = append(selectExprs, hoisted)
				fields = append(fields, sql.NewField(columnTable(c), columnName(c), c.Type(), c.Nullable()))
			}
			continue
		}
		if q, ok := col.Expression.(*ast.QualifiedIdentifier); ok && len(q.Parts) > 1 && q.Parts[len(q.Parts)-1].Value == "*" {
			table := q.Parts[len(q.Parts)-2].Value
			cols, err := analyzer.ResolveTableStar(schema, table)
			if err != nil {
				return nil, nil, nil, nil, nil, nil, err
			}
			for _, c := range cols {
				hoisted, err := hoister.Collect(c)
				if err != nil {
					return nil, nil, nil, nil, nil, nil, err
				}
				selectExprs = append(selectExprs, hoisted)
				fields = append(fields, sql.NewField(columnTable(c), columnName(c), c.Type(), c.Nullable()))
			}
			continue
		}

		built, err := b.buildExpr(col.Expression, schema)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		hoisted, err := hoister.Collect(built)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		name := exprLabel(col.Expression, col.Alias)
		selectExprs = append(selectExprs, hoisted)
		fields = append(fields, sql.NewField("", name, hoisted.Type(), hoisted.Nullable()))
	}

	if sel.Having != nil {
		builtHaving, err := b.buildExpr(sel.Having, schema)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		having, err = hoister.Collect(builtHaving)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
	}

	orderKeys = make([]expression.OrderByItem, len(sel.OrderBy))
	for i, ob := range sel.OrderBy {
		built, err := b.buildExpr(ob.Expression, schema)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		hoisted, err := hoister.Collect(built)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		orderKeys[i] = expression.OrderByItem{
			Expr:       hoisted,
			Descending: ob.Descending,
			NullsFirst: ob.NullsFirst != nil && *ob.NullsFirst,
		}
	}

	if hoister.Len() == 0 && len(groupBy) == 0 {
		newBase = base
		items = make([]plan.ProjectItem, len(selectExprs))
		for i, e := range selectExprs {
			items[i] = plan.ProjectItem{Expr: e, Field: fields[i]}
		}
		return items, groupBy, groupByNames, newBase, having, orderKeys, nil
	}

	newBase = hoister.BuildAggregate(groupBy, groupByNames, base)

	rebase := func(e expression.Expr) (expression.Expr, error) {
		e, err := analyzer.RebaseColumn(e, len(groupBy))
		if err != nil {
			return nil, err
		}
		return remapToGroupBy(e, groupBy, groupByNames)
	}

	items = make([]plan.ProjectItem, len(selectExprs))
	for i, e := range selectExprs {
		re, err := rebase(e)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		items[i] = plan.ProjectItem{Expr: re, Field: fields[i]}
	}
	if having != nil {
		having, err = rebase(having)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
	}
	for i, k := range orderKeys {
		re, err := rebase(k.Expr)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		orderKeys[i].Expr = re
	}

	return items, groupBy, groupByNames, newBase, having, orderKeys, nil
}

// remapToGroupBy redirects plain column references matching one of the
// GROUP BY expressions (compared by canonical textual form) to that
// expression's position in the Aggregate node's output schema --
// RebaseColumn alone only shifts the hoister's own synthetic aggregate
// placeholders (Table == ""), so a SELECT list referencing a grouped
// column directly (e.g. `SELECT a, COUNT(*) FROM t GROUP BY a`) still
// needs this second pass.
func remapToGroupBy(e expression.Expr, groupBy []expression.Expr, groupByNames []string) (expression.Expr, error) {
	return expression.Transform(e, func(n expression.Expr) (expression.Expr, error) {
		col, ok := n.(*expression.Column)
		if !ok || col.Table == "" {
			return n, nil
		}
		for i, g := range groupBy {
			if n.String() == g.String() {
				return expression.NewColumn("", groupByNames[i], i, n.Type(), n.Nullable()), nil
			}
		}
		return n, nil
	})
}

// expandStar expands a bare `SELECT *` into one Column per schema field, in
// schema order.
func expandStar(schema sql.Schema) ([]expression.Expr, error) {
	out := make([]expression.Expr, len(schema))
	for i, f := range schema {
		out[i] = expression.NewColumn(f.TableName, f.Name, i, f.Type, f.Nullable)
	}
	return out, nil
}

func columnTable(e expression.Expr) string {
	if c, ok := e.(*expression.Column); ok {
		return c.Table
	}
	return ""
}

func columnName(e expression.Expr) string {
	if c, ok := e.(*expression.Column); ok {
		return c.Name
	}
	return e.String()
}

// groupByLabel derives an output field name for a GROUP BY expression: the
// column name when it is a bare/qualified column, otherwise its canonical
// textual form (matching remapToGroupBy's comparison key).
func groupByLabel(e expression.Expr) string {
	if c, ok := e.(*expression.Column); ok {
		return c.Name
	}
	return e.String()
}

// exprLabel derives a SELECT-list output column name: an explicit alias,
// the bare identifier for a simple column reference, or the expression's
// source text otherwise.
func exprLabel(src ast.Expression, alias *ast.Identifier) string {
	if alias != nil {
		return alias.Value
	}
	switch e := src.(type) {
	case *ast.Identifier:
		return e.Value
	case *ast.QualifiedIdentifier:
		if len(e.Parts) > 0 {
			return e.Parts[len(e.Parts)-1].Value
		}
	}
	return src.String()
}
