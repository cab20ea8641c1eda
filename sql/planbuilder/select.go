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

	"github.com/ha1tch/tsqlparser/ast"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/analyzer"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// buildSelect translates one SELECT statement, including any UNION/
// INTERSECT/EXCEPT chain hanging off it, into a LogicalPlan.
func (b *Builder) buildSelect(sel *ast.SelectStatement) (plan.LogicalPlan, error) {
	p, err := b.buildSelectCore(sel)
	if err != nil {
		return nil, err
	}
	if sel.Union == nil {
		return p, nil
	}

	kind, all, err := setOpKind(sel.Union.Type, sel.Union.All)
	if err != nil {
		return nil, err
	}
	right, err := b.buildSelect(sel.Union.Right)
	if err != nil {
		return nil, err
	}
	if r, ok := right.(*plan.SetOp); ok && r.Kind == kind && r.All == all {
		return plan.NewSetOp(kind, all, append([]plan.LogicalPlan{p}, r.Inputs...)), nil
	}
	return plan.NewSetOp(kind, all, []plan.LogicalPlan{p, right}), nil
}

func setOpKind(t string, all bool) (plan.SetOpKind, bool, error) {
	switch strings.ToUpper(t) {
	case "UNION":
		return plan.SetUnion, all, nil
	case "INTERSECT":
		return plan.SetIntersect, all, nil
	case "EXCEPT":
		return plan.SetExcept, all, nil
	default:
		return 0, false, sql.ErrUnsupported.New("set operator " + t)
	}
}

// buildSelectCore builds a single SELECT block (no UNION chain): FROM,
// WHERE, GROUP BY/aggregates, HAVING, ORDER BY, DISTINCT, and
// TOP/OFFSET-FETCH, in SQL's standard logical evaluation order.
func (b *Builder) buildSelectCore(sel *ast.SelectStatement) (plan.LogicalPlan, error) {
	base, schema, err := b.buildFromClause(sel.From)
	if err != nil {
		return nil, err
	}

	if sel.Where != nil {
		pred, err := b.buildExpr(sel.Where, schema)
		if err != nil {
			return nil, err
		}
		base = plan.NewFilter(pred, base)
	}

	items, groupBy, groupByNames, aggBase, havingPred, orderKeys, err := b.buildProjection(sel, schema, base)
	if err != nil {
		return nil, err
	}
	base = aggBase
	_ = groupBy

	if havingPred != nil {
		base = plan.NewFilter(havingPred, base)
	}

	proj := plan.NewProject(items, base)
	var result plan.LogicalPlan = proj

	if sel.Distinct {
		result = plan.NewDistinct(result)
	}

	if len(orderKeys) > 0 {
		result = plan.NewSort(orderKeys, result)
	}

	if count, offset, err := b.limitClause(sel); err != nil {
		return nil, err
	} else if count != nil {
		result = plan.NewLimit(*count, offset, result)
	}

	_ = groupByNames
	return result, nil
}

// limitClause reads TOP/OFFSET+FETCH into a uniform (count, offset) pair;
// BigQuery's LIMIT n [OFFSET m] parses as TOP/FETCH under this grammar.
func (b *Builder) limitClause(sel *ast.SelectStatement) (*int64, *int64, error) {
	var count *int64
	var offset *int64
	if sel.Top != nil {
		n, err := b.constInt(sel.Top.Count)
		if err != nil {
			return nil, nil, err
		}
		count = &n
	}
	if sel.Fetch != nil {
		n, err := b.constInt(sel.Fetch)
		if err != nil {
			return nil, nil, err
		}
		count = &n
	}
	if sel.Offset != nil {
		n, err := b.constInt(sel.Offset)
		if err != nil {
			return nil, nil, err
		}
		offset = &n
	}
	return count, offset, nil
}

func (b *Builder) constInt(e ast.Expression) (int64, error) {
	switch lit := e.(type) {
	case *ast.IntegerLiteral:
		return lit.Value, nil
	default:
		return 0, sql.ErrUnsupported.New("non-constant LIMIT/TOP/OFFSET/FETCH expression")
	}
}

// buildFromClause builds the unresolved-then-resolved join tree for a FROM
// clause, or a single synthetic row when there is none.
func (b *Builder) buildFromClause(from *ast.FromClause) (plan.LogicalPlan, sql.Schema, error) {
	if from == nil || len(from.Tables) == 0 {
		src := singleRowSource()
		return src, src.Schema(), nil
	}
	p, schema, err := b.buildTableRef(from.Tables[0])
	if err != nil {
		return nil, nil, err
	}
	for _, extra := range from.Tables[1:] {
		right, rightSchema, err := b.buildTableRef(extra)
		if err != nil {
			return nil, nil, err
		}
		p = plan.NewJoin(p, right, plan.JoinCross, nil)
		schema = schema.Concat(rightSchema)
	}
	return p, schema, nil
}

// buildTableRef resolves one FROM-list entry (a table, a join, a derived
// table, or an inline VALUES) to a LogicalPlan with a fully resolved
// schema, resolving each leaf through analyzer.ResolveScans as it is built
// so a join's ON condition can be bound against both sides' real columns.
func (b *Builder) buildTableRef(ref ast.TableReference) (plan.LogicalPlan, sql.Schema, error) {
	switch t := ref.(type) {
	case *ast.TableName:
		return b.buildTableName(t)
	case *ast.JoinClause:
		left, leftSchema, err := b.buildTableRef(t.Left)
		if err != nil {
			return nil, nil, err
		}
		right, rightSchema, err := b.buildTableRef(t.Right)
		if err != nil {
			return nil, nil, err
		}
		kind, err := joinKindFromString(t.Type)
		if err != nil {
			return nil, nil, err
		}
		var cond expression.Expr
		if kind != plan.JoinCross && t.Condition != nil {
			combined := leftSchema.Concat(rightSchema)
			cond, err = b.buildExpr(t.Condition, combined)
			if err != nil {
				return nil, nil, err
			}
		}
		j := plan.NewJoin(left, right, kind, cond)
		return j, j.Schema(), nil
	case *ast.ParenthesizedTableRef:
		return b.buildTableRef(t.Inner)
	case *ast.DerivedTable:
		body, err := b.buildSelect(t.Subquery)
		if err != nil {
			return nil, nil, err
		}
		alias := ""
		if t.Alias != nil {
			alias = t.Alias.Value
		}
		sub := plan.NewSubqueryAlias(alias, body)
		return sub, sub.Schema(), nil
	case *ast.ValuesTable:
		rows, schema, err := b.buildValuesRows(t.Rows, t.Columns, t.Alias)
		if err != nil {
			return nil, nil, err
		}
		v := plan.NewValues(schema, rows)
		return v, schema, nil
	default:
		return nil, nil, sql.ErrUnsupported.New("table reference form")
	}
}

func (b *Builder) buildTableName(t *ast.TableName) (plan.LogicalPlan, sql.Schema, error) {
	database, table := "", ""
	parts := qualifiedParts(t.Name)
	switch len(parts) {
	case 1:
		table = parts[0]
	case 2:
		database, table = parts[0], parts[1]
	default:
		database, table = parts[len(parts)-2], parts[len(parts)-1]
	}
	alias := ""
	if t.Alias != nil {
		alias = t.Alias.Value
	}
	scan := plan.NewScan(b.database(database), table, alias, nil)
	resolved, err := analyzer.ResolveScans(b.Catalog, scan, b.parseView)
	if err != nil {
		return nil, nil, err
	}
	return resolved, resolved.Schema(), nil
}

func joinKindFromString(t string) (plan.JoinKind, error) {
	switch strings.ToUpper(t) {
	case "", "INNER":
		return plan.JoinInner, nil
	case "LEFT":
		return plan.JoinLeft, nil
	case "RIGHT":
		return plan.JoinRight, nil
	case "FULL":
		return plan.JoinFull, nil
	case "CROSS":
		return plan.JoinCross, nil
	default:
		return 0, sql.ErrUnsupported.New("join type " + t)
	}
}

// buildValuesRows translates a VALUES table's literal rows into the plan
// IR, synthesizing a schema from either explicit column aliases or
// positional names (column1, column2, ...).
func (b *Builder) buildValuesRows(rows [][]ast.Expression, cols []*ast.Identifier, alias *ast.Identifier) ([][]expression.Expr, sql.Schema, error) {
	if len(rows) == 0 {
		return nil, sql.Schema{}, nil
	}
	tbl := ""
	if alias != nil {
		tbl = alias.Value
	}
	out := make([][]expression.Expr, len(rows))
	var schema sql.Schema
	for ri, row := range rows {
		exprRow := make([]expression.Expr, len(row))
		for ci, e := range row {
			built, err := b.buildExpr(e, sql.Schema{})
			if err != nil {
				return nil, nil, err
			}
			exprRow[ci] = built
			if ri == 0 {
				name := "column" + itoa(ci+1)
				if ci < len(cols) {
					name = cols[ci].Value
				}
				schema = append(schema, sql.NewField(tbl, name, built.Type(), built.Nullable()))
			}
		}
		out[ri] = exprRow
	}
	return out, schema, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}
