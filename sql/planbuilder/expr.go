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
)

// buildExpr translates one AST expression into the typed expression IR,
// resolving any column reference against schema.
func (b *Builder) buildExpr(e ast.Expression, schema sql.Schema) (expression.Expr, error) {
	switch t := e.(type) {
	case *ast.Identifier:
		return analyzer.ResolveIdentifier(schema, []string{t.Value})
	case *ast.QualifiedIdentifier:
		return analyzer.ResolveIdentifier(schema, qualifiedParts(t))
	case *ast.Variable:
		return expression.NewVariable(t.Name, sql.TypeDefault), nil
	case *ast.IntegerLiteral:
		return expression.NewLiteral(sql.NewInt64(t.Value)), nil
	case *ast.FloatLiteral:
		return expression.NewLiteral(sql.NewFloat64(t.Value)), nil
	case *ast.StringLiteral:
		return expression.NewLiteral(sql.NewString(t.Value)), nil
	case *ast.NullLiteral:
		return expression.NewLiteral(sql.Null), nil
	case *ast.PrefixExpression:
		return b.buildPrefix(t, schema)
	case *ast.InfixExpression:
		return b.buildInfix(t, schema)
	case *ast.BetweenExpression:
		target, err := b.buildExpr(t.Expr, schema)
		if err != nil {
			return nil, err
		}
		lo, err := b.buildExpr(t.Low, schema)
		if err != nil {
			return nil, err
		}
		hi, err := b.buildExpr(t.High, schema)
		if err != nil {
			return nil, err
		}
		return expression.NewBetween(target, lo, hi, t.Not), nil
	case *ast.InExpression:
		return b.buildIn(t, schema)
	case *ast.LikeExpression:
		target, err := b.buildExpr(t.Expr, schema)
		if err != nil {
			return nil, err
		}
		pattern, err := b.buildExpr(t.Pattern, schema)
		if err != nil {
			return nil, err
		}
		var escape expression.Expr
		if t.Escape != nil {
			escape, err = b.buildExpr(t.Escape, schema)
			if err != nil {
				return nil, err
			}
		}
		return expression.NewLike(target, pattern, escape, t.Not), nil
	case *ast.IsNullExpression:
		inner, err := b.buildExpr(t.Expr, schema)
		if err != nil {
			return nil, err
		}
		kind := expression.OpIsNull
		if t.Not {
			kind = expression.OpIsNotNull
		}
		return expression.NewUnaryOp(kind, inner, sql.TypeBool), nil
	case *ast.ExistsExpression:
		sub, err := b.buildSelect(t.Subquery)
		if err != nil {
			return nil, err
		}
		return expression.NewExists(sub, false), nil
	case *ast.SubqueryExpression:
		sub, err := b.buildSelect(t.Subquery)
		if err != nil {
			return nil, err
		}
		subSchema := sub.Schema()
		typ := sql.TypeDefault
		if len(subSchema) == 1 {
			typ = subSchema[0].Type
		}
		return expression.NewScalarSubquery(sub, typ), nil
	case *ast.CaseExpression:
		return b.buildCase(t, schema)
	case *ast.CastExpression:
		inner, err := b.buildExpr(t.Expression, schema)
		if err != nil {
			return nil, err
		}
		return expression.NewCast(inner, dataTypeToTypeID(t.TargetType), t.IsTry), nil
	case *ast.FunctionCall:
		return b.buildFunctionCall(t, schema)
	default:
		return nil, sql.ErrUnsupported.New("expression form " + e.TokenLiteral())
	}
}

func (b *Builder) buildPrefix(t *ast.PrefixExpression, schema sql.Schema) (expression.Expr, error) {
	inner, err := b.buildExpr(t.Right, schema)
	if err != nil {
		return nil, err
	}
	switch strings.ToUpper(t.Operator) {
	case "NOT":
		return expression.NewUnaryOp(expression.OpNot, inner, sql.TypeBool), nil
	case "-":
		return expression.NewUnaryOp(expression.OpNeg, inner, inner.Type()), nil
	case "+":
		return inner, nil
	case "~":
		return expression.NewUnaryOp(expression.OpBitNot, inner, sql.TypeInt64), nil
	default:
		return nil, sql.ErrUnsupported.New("prefix operator " + t.Operator)
	}
}

func (b *Builder) buildInfix(t *ast.InfixExpression, schema sql.Schema) (expression.Expr, error) {
	left, err := b.buildExpr(t.Left, schema)
	if err != nil {
		return nil, err
	}
	right, err := b.buildExpr(t.Right, schema)
	if err != nil {
		return nil, err
	}
	kind, resultType, err := binaryOpFromOperator(strings.ToUpper(t.Operator), left.Type())
	if err != nil {
		return nil, err
	}
	return expression.NewBinaryOp(kind, left, right, resultType), nil
}

func binaryOpFromOperator(op string, leftType sql.TypeID) (expression.BinaryOpKind, sql.TypeID, error) {
	switch op {
	case "+":
		return expression.OpAdd, leftType, nil
	case "-":
		return expression.OpSub, leftType, nil
	case "*":
		return expression.OpMul, leftType, nil
	case "/":
		return expression.OpDiv, sql.TypeFloat64, nil
	case "%":
		return expression.OpMod, leftType, nil
	case "=":
		return expression.OpEq, sql.TypeBool, nil
	case "<>", "!=":
		return expression.OpNe, sql.TypeBool, nil
	case "<":
		return expression.OpLt, sql.TypeBool, nil
	case "<=":
		return expression.OpLe, sql.TypeBool, nil
	case ">":
		return expression.OpGt, sql.TypeBool, nil
	case ">=":
		return expression.OpGe, sql.TypeBool, nil
	case "AND":
		return expression.OpAnd, sql.TypeBool, nil
	case "OR":
		return expression.OpOr, sql.TypeBool, nil
	case "||", "+STR":
		return expression.OpConcat, sql.TypeString, nil
	case "&":
		return expression.OpBitAnd, sql.TypeInt64, nil
	case "|":
		return expression.OpBitOr, sql.TypeInt64, nil
	case "^":
		return expression.OpBitXor, sql.TypeInt64, nil
	default:
		return 0, sql.TypeDefault, sql.ErrUnsupported.New("binary operator " + op)
	}
}

func (b *Builder) buildIn(t *ast.InExpression, schema sql.Schema) (expression.Expr, error) {
	target, err := b.buildExpr(t.Expr, schema)
	if err != nil {
		return nil, err
	}
	if t.Subquery != nil {
		sub, err := b.buildSelect(t.Subquery)
		if err != nil {
			return nil, err
		}
		return expression.NewInSubquery(target, sub, t.Not), nil
	}
	list := make([]expression.Expr, len(t.Values))
	for i, v := range t.Values {
		built, err := b.buildExpr(v, schema)
		if err != nil {
			return nil, err
		}
		list[i] = built
	}
	return expression.NewInList(target, list, t.Not), nil
}

func (b *Builder) buildCase(t *ast.CaseExpression, schema sql.Schema) (expression.Expr, error) {
	var operand expression.Expr
	var err error
	if t.Operand != nil {
		operand, err = b.buildExpr(t.Operand, schema)
		if err != nil {
			return nil, err
		}
	}
	whens := make([]expression.CaseWhen, len(t.WhenClauses))
	var typ sql.TypeID = sql.TypeDefault
	for i, wc := range t.WhenClauses {
		cond, err := b.buildExpr(wc.Condition, schema)
		if err != nil {
			return nil, err
		}
		then, err := b.buildExpr(wc.Result, schema)
		if err != nil {
			return nil, err
		}
		whens[i] = expression.CaseWhen{When: cond, Then: then}
		if i == 0 {
			typ = then.Type()
		}
	}
	var els expression.Expr
	if t.ElseClause != nil {
		els, err = b.buildExpr(t.ElseClause, schema)
		if err != nil {
			return nil, err
		}
	}
	return expression.NewCase(operand, whens, els, typ), nil
}

// buildFunctionCall dispatches a parsed function call to a plain
// expression.ScalarFunction, an expression.Aggregate, or one of the window
// forms (expression.Window / expression.AggregateWindow) depending on the
// function's name and whether an OVER clause is present.
func (b *Builder) buildFunctionCall(t *ast.FunctionCall, schema sql.Schema) (expression.Expr, error) {
	name := strings.ToUpper(functionName(t.Function))

	args := make([]expression.Expr, 0, len(t.Arguments))
	for _, a := range t.Arguments {
		// COUNT(*) parses its sole argument as a bare `*` identifier; an
		// aggregate's Args stays empty in that case (AggCountStar).
		if id, ok := a.(*ast.Identifier); ok && id.Value == "*" {
			continue
		}
		built, err := b.buildExpr(a, schema)
		if err != nil {
			return nil, err
		}
		args = append(args, built)
	}

	if fn, ok := aggregateFuncs[name]; ok {
		if name == "COUNT" && len(args) == 0 {
			fn = expression.AggCountStar
		}
		agg := &expression.Aggregate{Func: fn, Args: args, Typ: aggregateReturnType(fn, args)}
		if t.Over != nil {
			spec, err := b.buildWindowSpec(t.Over, schema)
			if err != nil {
				return nil, err
			}
			return expression.NewAggregateWindow(agg, spec), nil
		}
		return agg, nil
	}

	if t.Over != nil {
		if fn, ok := windowFuncs[name]; ok {
			spec, err := b.buildWindowSpec(t.Over, schema)
			if err != nil {
				return nil, err
			}
			return expression.NewWindow(fn, windowReturnType(fn, args), spec, args...), nil
		}
	}

	return expression.NewScalarFunction(name, scalarReturnType(name, args), args...), nil
}

func (b *Builder) buildWindowSpec(over *ast.OverClause, schema sql.Schema) (expression.WindowSpec, error) {
	spec := expression.WindowSpec{}
	for _, p := range over.PartitionBy {
		built, err := b.buildExpr(p, schema)
		if err != nil {
			return spec, err
		}
		spec.PartitionBy = append(spec.PartitionBy, built)
	}
	for _, ob := range over.OrderBy {
		built, err := b.buildExpr(ob.Expression, schema)
		if err != nil {
			return spec, err
		}
		spec.OrderBy = append(spec.OrderBy, expression.OrderByItem{
			Expr:       built,
			Descending: ob.Descending,
			NullsFirst: ob.NullsFirst != nil && *ob.NullsFirst,
		})
	}
	if over.Frame != nil {
		spec.Frame = buildWindowFrame(over.Frame)
	}
	return spec, nil
}

func buildWindowFrame(f *ast.WindowFrame) *expression.WindowFrame {
	kind := expression.FrameRows
	if strings.EqualFold(f.Type, "RANGE") {
		kind = expression.FrameRange
	}
	start := frameBoundOffset(f.Start)
	end := frameBoundOffset(f.End)
	if f.End == nil {
		zero := int64(0)
		end = &zero
	}
	return &expression.WindowFrame{Kind: kind, Start: start, End: end}
}

// frameBoundOffset converts one frame bound to a current-row-relative
// offset (negative for PRECEDING, positive for FOLLOWING), or nil for an
// UNBOUNDED bound.
func frameBoundOffset(b *ast.FrameBound) *int64 {
	if b == nil {
		return nil
	}
	t := strings.ToUpper(b.Type)
	switch {
	case strings.Contains(t, "UNBOUNDED"):
		return nil
	case strings.Contains(t, "CURRENT"):
		n := int64(0)
		return &n
	case strings.Contains(t, "PRECEDING"):
		n := -frameOffsetValue(b.Offset)
		return &n
	case strings.Contains(t, "FOLLOWING"):
		n := frameOffsetValue(b.Offset)
		return &n
	default:
		return nil
	}
}

func frameOffsetValue(e ast.Expression) int64 {
	if lit, ok := e.(*ast.IntegerLiteral); ok {
		return lit.Value
	}
	return 0
}

func functionName(e ast.Expression) string {
	switch t := e.(type) {
	case *ast.Identifier:
		return t.Value
	case *ast.QualifiedIdentifier:
		if len(t.Parts) > 0 {
			return t.Parts[len(t.Parts)-1].Value
		}
	}
	return e.String()
}

func dataTypeToTypeID(dt *ast.DataType) sql.TypeID {
	switch strings.ToUpper(dt.Name) {
	case "INT64", "INT", "BIGINT", "INTEGER", "SMALLINT", "TINYINT":
		return sql.TypeInt64
	case "FLOAT64", "FLOAT", "REAL", "DOUBLE":
		return sql.TypeFloat64
	case "NUMERIC", "DECIMAL":
		return sql.TypeNumeric
	case "BIGNUMERIC":
		return sql.TypeBigNumeric
	case "BOOL", "BOOLEAN", "BIT":
		return sql.TypeBool
	case "BYTES", "BINARY", "VARBINARY":
		return sql.TypeBytes
	case "DATE":
		return sql.TypeDate
	case "TIME":
		return sql.TypeTime
	case "DATETIME":
		return sql.TypeDateTime
	case "TIMESTAMP":
		return sql.TypeTimestamp
	case "JSON":
		return sql.TypeJSON
	case "ARRAY":
		return sql.TypeArray
	case "STRUCT":
		return sql.TypeStruct
	case "GEOGRAPHY":
		return sql.TypeGeography
	case "STRING", "VARCHAR", "NVARCHAR", "CHAR", "NCHAR", "TEXT":
		return sql.TypeString
	default:
		return sql.TypeString
	}
}
