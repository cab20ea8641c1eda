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

package eval

import (
	"github.com/shopspring/decimal"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// asFloat promotes an Int64/Float64/Numeric/BigNumeric value to float64 for
// mixed-type arithmetic and comparison, mirroring the promotion rule
// Column.FromValues already applies for Int64/Float64 mixes.
func asFloat(v sql.Value) (float64, bool) {
	switch v.Type() {
	case sql.TypeInt64:
		return float64(v.Int64()), true
	case sql.TypeFloat64:
		return float64(v.Float64()), true
	case sql.TypeNumeric, sql.TypeBigNumeric:
		f, _ := v.Numeric().Float64()
		return f, true
	default:
		return 0, false
	}
}

func asDecimal(v sql.Value) (decimal.Decimal, bool) {
	switch v.Type() {
	case sql.TypeInt64:
		return decimal.NewFromInt(v.Int64()), true
	case sql.TypeFloat64:
		return decimal.NewFromFloat(float64(v.Float64())), true
	case sql.TypeNumeric, sql.TypeBigNumeric:
		return v.Numeric(), true
	default:
		return decimal.Decimal{}, false
	}
}

func isNumeric(t sql.TypeID) bool {
	switch t {
	case sql.TypeInt64, sql.TypeFloat64, sql.TypeNumeric, sql.TypeBigNumeric:
		return true
	default:
		return false
	}
}

// valuesEqual is the evaluator's `=` rule: NaN is never equal to anything
// (including itself), unlike sql.Value.Equal's row-key semantics.
func valuesEqual(a, b sql.Value) bool {
	if a.IsNull() || b.IsNull() {
		return false
	}
	if isNumeric(a.Type()) && isNumeric(b.Type()) {
		if a.Type() == sql.TypeFloat64 || b.Type() == sql.TypeFloat64 {
			fa, _ := asFloat(a)
			fb, _ := asFloat(b)
			return fa == fb // NaN == NaN is false, matching IEEE-754
		}
		if a.Type() == b.Type() {
			return a.Equal(b)
		}
		da, _ := asDecimal(a)
		db, _ := asDecimal(b)
		return da.Equal(db)
	}
	return a.Equal(b)
}

// compareVals returns -1/0/1 for ordered comparison across numeric-promoted
// types, matching the promotion rule of column.go's compareValues but
// additionally handling mixed Int64/Numeric/Float64 pairs.
func compareVals(a, b sql.Value) int {
	if isNumeric(a.Type()) && isNumeric(b.Type()) {
		if a.Type() == sql.TypeFloat64 || b.Type() == sql.TypeFloat64 {
			fa, _ := asFloat(a)
			fb, _ := asFloat(b)
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
		da, _ := asDecimal(a)
		db, _ := asDecimal(b)
		return da.Cmp(db)
	}
	switch a.Type() {
	case sql.TypeString, sql.TypeBytes:
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		default:
			return 0
		}
	case sql.TypeDate, sql.TypeTime, sql.TypeDateTime, sql.TypeTimestamp:
		switch {
		case a.Time().Before(b.Time()):
			return -1
		case a.Time().After(b.Time()):
			return 1
		default:
			return 0
		}
	case sql.TypeBool:
		if a.Bool() == b.Bool() {
			return 0
		}
		if !a.Bool() {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func evalBinaryOp(ctx *Context, b *expression.BinaryOp, table *sql.Table) (*sql.Column, error) {
	n := table.RowCount()

	if b.Kind == expression.OpAnd || b.Kind == expression.OpOr {
		left, err := Evaluate(ctx, b.Left, table)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(ctx, b.Right, table)
		if err != nil {
			return nil, err
		}
		if b.Kind == expression.OpAnd {
			return left.BinaryAnd(right), nil
		}
		return left.BinaryOr(right), nil
	}

	left, err := Evaluate(ctx, b.Left, table)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(ctx, b.Right, table)
	if err != nil {
		return nil, err
	}

	switch b.Kind {
	case expression.OpEq:
		return left.BinaryEq(right, valuesEqual), nil
	case expression.OpNe:
		return left.BinaryNe(right, valuesEqual), nil
	case expression.OpLt:
		return left.BinaryCompare(right, compareVals, "<"), nil
	case expression.OpLe:
		return left.BinaryCompare(right, compareVals, "<="), nil
	case expression.OpGt:
		return left.BinaryCompare(right, compareVals, ">"), nil
	case expression.OpGe:
		return left.BinaryCompare(right, compareVals, ">="), nil
	}

	out := sql.NewColumn(b.ResultType, n)
	for i := 0; i < n; i++ {
		if left.IsNull(i) || right.IsNull(i) {
			continue
		}
		lv, rv := left.GetValue(i), right.GetValue(i)
		v, skip, err := evalArith(b.Kind, lv, rv, b.ResultType)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		out.Set(i, v)
	}
	return out, nil
}

func evalArith(kind expression.BinaryOpKind, lv, rv sql.Value, resultType sql.TypeID) (sql.Value, bool, error) {
	switch kind {
	case expression.OpConcat:
		return evalConcat(lv, rv, resultType)
	case expression.OpBitAnd, expression.OpBitOr, expression.OpBitXor, expression.OpShiftLeft, expression.OpShiftRight:
		return evalBitwise(kind, lv, rv)
	}

	if resultType == sql.TypeFloat64 || lv.Type() == sql.TypeFloat64 || rv.Type() == sql.TypeFloat64 {
		lf, _ := asFloat(lv)
		rf, _ := asFloat(rv)
		switch kind {
		case expression.OpAdd:
			return sql.NewFloat64(lf + rf), false, nil
		case expression.OpSub:
			return sql.NewFloat64(lf - rf), false, nil
		case expression.OpMul:
			return sql.NewFloat64(lf * rf), false, nil
		case expression.OpDiv:
			if rf == 0 {
				return sql.Null, false, sql.ErrDivisionByZero.New()
			}
			return sql.NewFloat64(lf / rf), false, nil
		case expression.OpSafeDiv:
			if rf == 0 {
				return sql.Null, true, nil
			}
			return sql.NewFloat64(lf / rf), false, nil
		case expression.OpMod:
			if rf == 0 {
				return sql.Null, false, sql.ErrDivisionByZero.New()
			}
			return sql.NewFloat64(mathMod(lf, rf)), false, nil
		}
	}

	if resultType == sql.TypeNumeric || resultType == sql.TypeBigNumeric ||
		lv.Type() == sql.TypeNumeric || lv.Type() == sql.TypeBigNumeric ||
		rv.Type() == sql.TypeNumeric || rv.Type() == sql.TypeBigNumeric {
		ld, _ := asDecimal(lv)
		rd, _ := asDecimal(rv)
		mk := sql.NewNumeric
		if resultType == sql.TypeBigNumeric {
			mk = sql.NewBigNumeric
		}
		switch kind {
		case expression.OpAdd:
			return mk(ld.Add(rd)), false, nil
		case expression.OpSub:
			return mk(ld.Sub(rd)), false, nil
		case expression.OpMul:
			return mk(ld.Mul(rd)), false, nil
		case expression.OpDiv:
			if rd.IsZero() {
				return sql.Null, false, sql.ErrDivisionByZero.New()
			}
			return mk(ld.Div(rd)), false, nil
		case expression.OpSafeDiv:
			if rd.IsZero() {
				return sql.Null, true, nil
			}
			return mk(ld.Div(rd)), false, nil
		case expression.OpMod:
			if rd.IsZero() {
				return sql.Null, false, sql.ErrDivisionByZero.New()
			}
			return mk(ld.Mod(rd)), false, nil
		}
	}

	// Integer arithmetic.
	li, ri := lv.Int64(), rv.Int64()
	switch kind {
	case expression.OpAdd:
		return sql.NewInt64(li + ri), false, nil
	case expression.OpSub:
		return sql.NewInt64(li - ri), false, nil
	case expression.OpMul:
		return sql.NewInt64(li * ri), false, nil
	case expression.OpDiv:
		if ri == 0 {
			return sql.Null, false, sql.ErrDivisionByZero.New()
		}
		return sql.NewFloat64(float64(li) / float64(ri)), false, nil
	case expression.OpSafeDiv:
		if ri == 0 {
			return sql.Null, true, nil
		}
		return sql.NewFloat64(float64(li) / float64(ri)), false, nil
	case expression.OpMod:
		if ri == 0 {
			return sql.Null, false, sql.ErrDivisionByZero.New()
		}
		return sql.NewInt64(li % ri), false, nil
	}
	return sql.Null, false, sql.ErrInternal.New("unhandled binary op kind in evaluator")
}

func mathMod(a, b float64) float64 {
	m := a - b*float64(int64(a/b))
	return m
}

func evalConcat(lv, rv sql.Value, resultType sql.TypeID) (sql.Value, bool, error) {
	if resultType == sql.TypeBytes {
		return sql.NewBytes(append(append([]byte{}, lv.Bytes()...), rv.Bytes()...)), false, nil
	}
	if lv.Type() == sql.TypeArray && rv.Type() == sql.TypeArray {
		return sql.NewArray(append(append([]sql.Value{}, lv.Array()...), rv.Array()...)), false, nil
	}
	return sql.NewString(lv.String() + rv.String()), false, nil
}

func evalBitwise(kind expression.BinaryOpKind, lv, rv sql.Value) (sql.Value, bool, error) {
	li, ri := lv.Int64(), rv.Int64()
	switch kind {
	case expression.OpBitAnd:
		return sql.NewInt64(li & ri), false, nil
	case expression.OpBitOr:
		return sql.NewInt64(li | ri), false, nil
	case expression.OpBitXor:
		return sql.NewInt64(li ^ ri), false, nil
	case expression.OpShiftLeft:
		return sql.NewInt64(li << uint(ri)), false, nil
	case expression.OpShiftRight:
		return sql.NewInt64(li >> uint(ri)), false, nil
	}
	return sql.Null, false, sql.ErrInternal.New("unhandled bitwise op kind in evaluator")
}

func evalUnaryOp(ctx *Context, u *expression.UnaryOp, table *sql.Table) (*sql.Column, error) {
	operand, err := Evaluate(ctx, u.Operand, table)
	if err != nil {
		return nil, err
	}
	n := table.RowCount()

	switch u.Kind {
	case expression.OpNot:
		return operand.UnaryNot(), nil
	case expression.OpIsNull:
		out := sql.NewColumn(sql.TypeBool, n)
		for i := 0; i < n; i++ {
			out.Set(i, sql.NewBool(operand.IsNull(i)))
		}
		return out, nil
	case expression.OpIsNotNull:
		out := sql.NewColumn(sql.TypeBool, n)
		for i := 0; i < n; i++ {
			out.Set(i, sql.NewBool(!operand.IsNull(i)))
		}
		return out, nil
	case expression.OpIsTrue:
		out := sql.NewColumn(sql.TypeBool, n)
		for i := 0; i < n; i++ {
			out.Set(i, sql.NewBool(!operand.IsNull(i) && operand.GetValue(i).Bool()))
		}
		return out, nil
	case expression.OpIsFalse:
		out := sql.NewColumn(sql.TypeBool, n)
		for i := 0; i < n; i++ {
			out.Set(i, sql.NewBool(!operand.IsNull(i) && !operand.GetValue(i).Bool()))
		}
		return out, nil
	case expression.OpNeg:
		out := sql.NewColumn(u.ResultType, n)
		for i := 0; i < n; i++ {
			if operand.IsNull(i) {
				continue
			}
			v := operand.GetValue(i)
			switch v.Type() {
			case sql.TypeInt64:
				out.Set(i, sql.NewInt64(-v.Int64()))
			case sql.TypeFloat64:
				out.Set(i, sql.NewFloat64(-float64(v.Float64())))
			case sql.TypeNumeric:
				out.Set(i, sql.NewNumeric(v.Numeric().Neg()))
			case sql.TypeBigNumeric:
				out.Set(i, sql.NewBigNumeric(v.Numeric().Neg()))
			}
		}
		return out, nil
	case expression.OpBitNot:
		out := sql.NewColumn(sql.TypeInt64, n)
		for i := 0; i < n; i++ {
			if operand.IsNull(i) {
				continue
			}
			out.Set(i, sql.NewInt64(^operand.GetValue(i).Int64()))
		}
		return out, nil
	}
	return nil, sql.ErrInternal.New("unhandled unary op kind in evaluator")
}

func evalCase(ctx *Context, c *expression.Case, table *sql.Table) (*sql.Column, error) {
	n := table.RowCount()

	var operand *sql.Column
	if c.Operand != nil {
		var err error
		operand, err = Evaluate(ctx, c.Operand, table)
		if err != nil {
			return nil, err
		}
	}

	whenCols := make([]*sql.Column, len(c.Whens))
	thenCols := make([]*sql.Column, len(c.Whens))
	for i, w := range c.Whens {
		wc, err := Evaluate(ctx, w.When, table)
		if err != nil {
			return nil, err
		}
		tc, err := Evaluate(ctx, w.Then, table)
		if err != nil {
			return nil, err
		}
		whenCols[i] = wc
		thenCols[i] = tc
	}
	var elseCol *sql.Column
	if c.Else != nil {
		var err error
		elseCol, err = Evaluate(ctx, c.Else, table)
		if err != nil {
			return nil, err
		}
	}

	out := sql.NewColumn(c.Typ, n)
	for row := 0; row < n; row++ {
		matched := false
		for i := range c.Whens {
			var ok bool
			if operand != nil {
				if operand.IsNull(row) || whenCols[i].IsNull(row) {
					ok = false
				} else {
					ok = valuesEqual(operand.GetValue(row), whenCols[i].GetValue(row))
				}
			} else {
				ok = !whenCols[i].IsNull(row) && whenCols[i].GetValue(row).Bool()
			}
			if ok {
				if !thenCols[i].IsNull(row) {
					out.Set(row, thenCols[i].GetValue(row))
				}
				matched = true
				break
			}
		}
		if !matched && elseCol != nil && !elseCol.IsNull(row) {
			out.Set(row, elseCol.GetValue(row))
		}
	}
	return out, nil
}

func evalCast(ctx *Context, c *expression.Cast, table *sql.Table) (*sql.Column, error) {
	child, err := Evaluate(ctx, c.Child, table)
	if err != nil {
		return nil, err
	}
	n := table.RowCount()
	out := sql.NewColumn(c.DataType, n)
	for i := 0; i < n; i++ {
		if child.IsNull(i) {
			continue
		}
		v, err := CastValue(child.GetValue(i), c.DataType)
		if err != nil {
			if c.Safe {
				continue
			}
			return nil, err
		}
		if v.IsNull() {
			continue
		}
		out.Set(i, v)
	}
	return out, nil
}
