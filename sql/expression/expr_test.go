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

package expression_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

func TestColumnIsLeafAndRejectsChildren(t *testing.T) {
	require := require.New(t)
	col := expression.NewColumn("t", "a", 2, sql.TypeInt64, false)

	require.Nil(col.Children())
	require.Equal(sql.TypeInt64, col.Type())
	require.False(col.Nullable())
	require.Equal("t.a", col.String())

	_, err := col.WithChildren(expression.NewLiteral(sql.NewInt64(1)))
	require.Error(err)
}

func TestColumnStringOmitsEmptyTableQualifier(t *testing.T) {
	col := expression.NewColumn("", "a", 0, sql.TypeInt64, false)
	require.Equal(t, "a", col.String())
}

func TestLiteralNullability(t *testing.T) {
	require := require.New(t)
	require.True(expression.NewLiteral(sql.Null).Nullable())
	require.False(expression.NewLiteral(sql.NewInt64(1)).Nullable())
	require.Equal("NULL", expression.NewLiteral(sql.Null).String())
}

func TestBinaryOpWithChildrenReplacesOperandsNotKind(t *testing.T) {
	require := require.New(t)
	left := expression.NewColumn("t", "a", 0, sql.TypeInt64, false)
	right := expression.NewLiteral(sql.NewInt64(1))
	op := expression.NewBinaryOp(expression.OpEq, left, right, sql.TypeBool)

	newLeft := expression.NewColumn("t", "b", 1, sql.TypeInt64, false)
	newRight := expression.NewLiteral(sql.NewInt64(2))
	rebuilt, err := op.WithChildren(newLeft, newRight)
	require.NoError(err)

	rebuiltOp := rebuilt.(*expression.BinaryOp)
	require.Equal(expression.OpEq, rebuiltOp.Kind)
	require.Same(newLeft, rebuiltOp.Left)
	require.Same(newRight, rebuiltOp.Right)

	// The original node must be untouched -- WithChildren never mutates in
	// place.
	require.Same(left, op.Left)
}

func TestBinaryOpWithChildrenRejectsWrongArity(t *testing.T) {
	op := expression.NewBinaryOp(expression.OpAdd, expression.NewLiteral(sql.NewInt64(1)), expression.NewLiteral(sql.NewInt64(2)), sql.TypeInt64)
	_, err := op.WithChildren(expression.NewLiteral(sql.NewInt64(3)))
	require.Error(t, err)
}

func TestUnaryOpNullabilityByKind(t *testing.T) {
	require := require.New(t)
	operand := expression.NewColumn("t", "a", 0, sql.TypeInt64, true)

	require.False(expression.NewUnaryOp(expression.OpIsNull, operand, sql.TypeBool).Nullable())
	require.False(expression.NewUnaryOp(expression.OpIsNotNull, operand, sql.TypeBool).Nullable())
	require.True(expression.NewUnaryOp(expression.OpNot, operand, sql.TypeBool).Nullable())
	require.True(expression.NewUnaryOp(expression.OpNeg, operand, sql.TypeInt64).Nullable())
}

func TestAliasDelegatesTypeAndNullability(t *testing.T) {
	require := require.New(t)
	child := expression.NewColumn("t", "a", 0, sql.TypeString, true)
	alias := expression.NewAlias("renamed", child)

	require.Equal(sql.TypeString, alias.Type())
	require.True(alias.Nullable())
	require.Equal("t.a AS renamed", alias.String())
}

func TestIsFromColumnSeesThroughAlias(t *testing.T) {
	require := require.New(t)
	col := expression.NewColumn("t", "a", 0, sql.TypeInt64, false)

	got, ok := expression.IsFromColumn(col)
	require.True(ok)
	require.Same(col, got)

	got, ok = expression.IsFromColumn(expression.NewAlias("a2", col))
	require.True(ok)
	require.Same(col, got)

	_, ok = expression.IsFromColumn(expression.NewLiteral(sql.NewInt64(1)))
	require.False(ok)
}

func TestCaseChildrenOrderAndWithChildrenRoundTrip(t *testing.T) {
	require := require.New(t)
	operand := expression.NewColumn("t", "a", 0, sql.TypeInt64, false)
	when1 := expression.NewLiteral(sql.NewInt64(1))
	then1 := expression.NewLiteral(sql.NewString("one"))
	els := expression.NewLiteral(sql.NewString("other"))
	c := expression.NewCase(operand, []expression.CaseWhen{{When: when1, Then: then1}}, els, sql.TypeString)

	require.Equal([]expression.Expr{operand, when1, then1, els}, c.Children())

	newOperand := expression.NewColumn("t", "b", 1, sql.TypeInt64, false)
	newWhen := expression.NewLiteral(sql.NewInt64(2))
	newThen := expression.NewLiteral(sql.NewString("two"))
	newElse := expression.NewLiteral(sql.NewString("else2"))
	rebuilt, err := c.WithChildren(newOperand, newWhen, newThen, newElse)
	require.NoError(err)

	rc := rebuilt.(*expression.Case)
	require.Same(newOperand, rc.Operand)
	require.Same(newWhen, rc.Whens[0].When)
	require.Same(newThen, rc.Whens[0].Then)
	require.Same(newElse, rc.Else)
}

func TestCaseWithoutOperandOrElseHasNoExtraChildren(t *testing.T) {
	when1 := expression.NewLiteral(sql.NewBool(true))
	then1 := expression.NewLiteral(sql.NewInt64(1))
	c := expression.NewCase(nil, []expression.CaseWhen{{When: when1, Then: then1}}, nil, sql.TypeInt64)
	require.Equal(t, []expression.Expr{when1, then1}, c.Children())
}

func TestCastStringNamesSafeVariant(t *testing.T) {
	child := expression.NewColumn("t", "a", 0, sql.TypeString, false)
	require.Equal(t, "CAST(t.a AS INT64)", expression.NewCast(child, sql.TypeInt64, false).String())
	require.Equal(t, "SAFE_CAST(t.a AS INT64)", expression.NewCast(child, sql.TypeInt64, true).String())
}

func TestVariableStringHasLeadingAt(t *testing.T) {
	v := expression.NewVariable("x", sql.TypeInt64)
	require.Equal(t, "@x", v.String())
	require.Nil(t, v.Children())
}

func TestWalkVisitsEveryDescendant(t *testing.T) {
	left := expression.NewColumn("t", "a", 0, sql.TypeInt64, false)
	right := expression.NewColumn("t", "b", 1, sql.TypeInt64, false)
	op := expression.NewBinaryOp(expression.OpEq, left, right, sql.TypeBool)

	var seen []string
	expression.Walk(func(e expression.Expr) bool {
		seen = append(seen, e.String())
		return true
	}, op)

	require.Equal(t, []string{op.String(), "t.a", "t.b"}, seen)
}

func TestWalkStopsDescendingWhenFFalse(t *testing.T) {
	left := expression.NewColumn("t", "a", 0, sql.TypeInt64, false)
	right := expression.NewColumn("t", "b", 1, sql.TypeInt64, false)
	op := expression.NewBinaryOp(expression.OpEq, left, right, sql.TypeBool)

	var seen int
	expression.Walk(func(e expression.Expr) bool {
		seen++
		return false
	}, op)
	require.Equal(t, 1, seen)
}

func TestTransformRewritesLeavesBottomUp(t *testing.T) {
	require := require.New(t)
	left := expression.NewColumn("t", "a", 0, sql.TypeInt64, false)
	right := expression.NewColumn("t", "b", 1, sql.TypeInt64, false)
	op := expression.NewBinaryOp(expression.OpEq, left, right, sql.TypeBool)

	rewritten, err := expression.Transform(op, func(e expression.Expr) (expression.Expr, error) {
		col, ok := e.(*expression.Column)
		if !ok {
			return e, nil
		}
		shifted := *col
		shifted.Index += 10
		return &shifted, nil
	})
	require.NoError(err)

	rewrittenOp := rewritten.(*expression.BinaryOp)
	require.Equal(10, rewrittenOp.Left.(*expression.Column).Index)
	require.Equal(11, rewrittenOp.Right.(*expression.Column).Index)
	// The original tree is untouched.
	require.Equal(0, left.Index)
}

func TestTransformReturnsSameNodeWhenNothingChanges(t *testing.T) {
	col := expression.NewColumn("t", "a", 0, sql.TypeInt64, false)
	rewritten, err := expression.Transform(col, func(e expression.Expr) (expression.Expr, error) { return e, nil })
	require.NoError(t, err)
	require.Same(t, col, rewritten)
}
