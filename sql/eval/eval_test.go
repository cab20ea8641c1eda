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

package eval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/expression"
)

func oneRowTable() *sql.Table {
	schema := sql.Schema{
		sql.NewField("t", "a", sql.TypeInt64, true),
		sql.NewField("t", "b", sql.TypeInt64, true),
	}
	a := sql.NewColumn(sql.TypeInt64, 1)
	a.Set(0, sql.NewInt64(3))
	b := sql.NewColumn(sql.TypeInt64, 1)
	b.Set(0, sql.NewInt64(4))
	return sql.NewTable(schema, []*sql.Column{a, b})
}

func colRef(index int, typ sql.TypeID) *expression.Column {
	return expression.NewColumn("t", "", index, typ, true)
}

func TestEvaluateBinaryArithmeticAndComparison(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	sum, err := eval.Evaluate(nil, expression.NewBinaryOp(expression.OpAdd, colRef(0, sql.TypeInt64), colRef(1, sql.TypeInt64), sql.TypeInt64), table)
	require.NoError(err)
	require.Equal(int64(7), sum.GetValue(0).Int64())

	lt, err := eval.Evaluate(nil, expression.NewBinaryOp(expression.OpLt, colRef(0, sql.TypeInt64), colRef(1, sql.TypeInt64), sql.TypeBool), table)
	require.NoError(err)
	require.True(lt.GetValue(0).Bool())

	_, err = eval.Evaluate(nil, expression.NewBinaryOp(expression.OpDiv, colRef(0, sql.TypeInt64), expression.NewLiteral(sql.NewInt64(0)), sql.TypeFloat64), table)
	require.Error(err, "division by zero errors")

	safeDiv, err := eval.Evaluate(nil, expression.NewBinaryOp(expression.OpSafeDiv, colRef(0, sql.TypeInt64), expression.NewLiteral(sql.NewInt64(0)), sql.TypeFloat64), table)
	require.NoError(err)
	require.True(safeDiv.IsNull(0), "SAFE_DIVIDE by zero produces NULL instead of erroring")
}

func TestEvaluateLiteralBroadcastAndAlias(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	lit, err := eval.Evaluate(nil, expression.NewLiteral(sql.NewString("x")), table)
	require.NoError(err)
	require.Equal(1, lit.Len())
	require.Equal("x", lit.GetValue(0).String())

	alias, err := eval.Evaluate(nil, expression.NewAlias("y", expression.NewLiteral(sql.NewInt64(9))), table)
	require.NoError(err)
	require.Equal(int64(9), alias.GetValue(0).Int64())
}

func TestEvaluateUnaryOps(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	neg, err := eval.Evaluate(nil, expression.NewUnaryOp(expression.OpNeg, colRef(0, sql.TypeInt64), sql.TypeInt64), table)
	require.NoError(err)
	require.Equal(int64(-3), neg.GetValue(0).Int64())

	isNull, err := eval.Evaluate(nil, expression.NewUnaryOp(expression.OpIsNull, colRef(0, sql.TypeInt64), sql.TypeBool), table)
	require.NoError(err)
	require.False(isNull.GetValue(0).Bool())
}

func TestEvaluateCase(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	c := expression.NewCase(nil, []expression.CaseWhen{
		{When: expression.NewBinaryOp(expression.OpGt, colRef(0, sql.TypeInt64), expression.NewLiteral(sql.NewInt64(10)), sql.TypeBool), Then: expression.NewLiteral(sql.NewString("big"))},
		{When: expression.NewBinaryOp(expression.OpGt, colRef(0, sql.TypeInt64), expression.NewLiteral(sql.NewInt64(1)), sql.TypeBool), Then: expression.NewLiteral(sql.NewString("small"))},
	}, expression.NewLiteral(sql.NewString("none")), sql.TypeString)

	out, err := eval.Evaluate(nil, c, table)
	require.NoError(err)
	require.Equal("small", out.GetValue(0).String())
}

func TestEvaluateCast(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	cast := expression.NewCast(colRef(0, sql.TypeInt64), sql.TypeString, false)
	out, err := eval.Evaluate(nil, cast, table)
	require.NoError(err)
	require.Equal("3", out.GetValue(0).String())
}

func TestEvaluateBetween(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	b := expression.NewBetween(colRef(0, sql.TypeInt64), expression.NewLiteral(sql.NewInt64(1)), expression.NewLiteral(sql.NewInt64(5)), false)
	out, err := eval.Evaluate(nil, b, table)
	require.NoError(err)
	require.True(out.GetValue(0).Bool())
}

func TestEvaluateLike(t *testing.T) {
	require := require.New(t)
	schema := sql.Schema{sql.NewField("t", "s", sql.TypeString, true)}
	col := sql.NewColumn(sql.TypeString, 1)
	col.Set(0, sql.NewString("hello world"))
	table := sql.NewTable(schema, []*sql.Column{col})

	like := expression.NewLike(colRef(0, sql.TypeString), expression.NewLiteral(sql.NewString("hello%")), nil, false)
	out, err := eval.Evaluate(nil, like, table)
	require.NoError(err)
	require.True(out.GetValue(0).Bool())
}

func TestEvaluateInList(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	in := expression.NewInList(colRef(0, sql.TypeInt64), []expression.Expr{
		expression.NewLiteral(sql.NewInt64(1)),
		expression.NewLiteral(sql.NewInt64(3)),
	}, false)
	out, err := eval.Evaluate(nil, in, table)
	require.NoError(err)
	require.True(out.GetValue(0).Bool())
}

func TestEvaluateScalarFunctions(t *testing.T) {
	require := require.New(t)
	schema := sql.Schema{sql.NewField("t", "s", sql.TypeString, true)}
	col := sql.NewColumn(sql.TypeString, 1)
	col.Set(0, sql.NewString("abc"))
	table := sql.NewTable(schema, []*sql.Column{col})

	upper := expression.NewScalarFunction("UPPER", sql.TypeString, colRef(0, sql.TypeString))
	out, err := eval.Evaluate(nil, upper, table)
	require.NoError(err)
	require.Equal("ABC", out.GetValue(0).String())

	length := expression.NewScalarFunction("LENGTH", sql.TypeInt64, colRef(0, sql.TypeString))
	out, err = eval.Evaluate(nil, length, table)
	require.NoError(err)
	require.Equal(int64(3), out.GetValue(0).Int64())
}

func TestEvaluateOuterRefAndAggregateAreRejected(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	_, err := eval.Evaluate(nil, expression.NewOuterRef(colRef(0, sql.TypeInt64)), table)
	require.Error(err)

	_, err = eval.Evaluate(nil, expression.NewAggregate(expression.AggSum, sql.TypeInt64, colRef(0, sql.TypeInt64)), table)
	require.Error(err)
}

func TestEvaluateUnboundVariableErrors(t *testing.T) {
	require := require.New(t)
	table := oneRowTable()

	_, err := eval.Evaluate(nil, expression.NewVariable("missing", sql.TypeInt64), table)
	require.Error(err)

	ctx := &eval.Context{Variables: map[string]sql.Value{"v": sql.NewInt64(42)}}
	out, err := eval.Evaluate(ctx, expression.NewVariable("v", sql.TypeInt64), table)
	require.NoError(err)
	require.Equal(int64(42), out.GetValue(0).Int64())
}
