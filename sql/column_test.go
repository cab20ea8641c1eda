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

package sql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
)

func TestColumnNewColumnStartsAllNull(t *testing.T) {
	require := require.New(t)
	c := sql.NewColumn(sql.TypeInt64, 3)
	require.Equal(3, c.Len())
	for i := 0; i < 3; i++ {
		require.True(c.IsNull(i))
		require.True(c.GetValue(i).IsNull())
	}
}

func TestColumnSetAndGetValueRoundTrip(t *testing.T) {
	require := require.New(t)
	c := sql.NewColumn(sql.TypeString, 2)
	c.Set(0, sql.NewString("a"))
	require.False(c.IsNull(0))
	require.Equal(sql.NewString("a"), c.GetValue(0))
	require.True(c.IsNull(1))
}

func TestColumnSetNullClearsValidity(t *testing.T) {
	require := require.New(t)
	c := sql.NewColumn(sql.TypeInt64, 1)
	c.Set(0, sql.NewInt64(5))
	require.False(c.IsNull(0))
	c.SetNull(0)
	require.True(c.IsNull(0))
	require.True(c.GetValue(0).IsNull())
}

func TestColumnCountValid(t *testing.T) {
	require := require.New(t)
	c := sql.NewColumn(sql.TypeInt64, 4)
	c.Set(0, sql.NewInt64(1))
	c.Set(2, sql.NewInt64(2))
	require.EqualValues(2, c.CountValid())
}

func TestFromValuesPromotesMixedIntFloatToFloat64(t *testing.T) {
	require := require.New(t)
	c := sql.FromValues([]sql.Value{sql.NewInt64(1), sql.NewFloat64(2.5), sql.Null})
	require.Equal(sql.TypeFloat64, c.Typ)
	require.Equal(sql.NewFloat64(1), c.GetValue(0))
	require.Equal(sql.NewFloat64(2.5), c.GetValue(1))
	require.True(c.IsNull(2))
}

func TestFromValuesAllNullStaysTypeNull(t *testing.T) {
	c := sql.FromValues([]sql.Value{sql.Null, sql.Null})
	require.Equal(t, sql.TypeNull, c.Typ)
}

func TestBroadcastRepeatsValueAcrossRows(t *testing.T) {
	require := require.New(t)
	c := sql.Broadcast(sql.NewInt64(7), 3)
	for i := 0; i < 3; i++ {
		require.Equal(sql.NewInt64(7), c.GetValue(i))
	}
}

func TestBroadcastNullProducesAllNullColumn(t *testing.T) {
	c := sql.Broadcast(sql.Null, 2)
	require.True(t, c.IsNull(0))
	require.True(t, c.IsNull(1))
}

func TestColumnBinaryCompareIsThreeValued(t *testing.T) {
	require := require.New(t)
	a := sql.NewColumn(sql.TypeInt64, 3)
	a.Set(0, sql.NewInt64(1))
	a.Set(1, sql.NewInt64(5))
	a.SetNull(2)
	b := sql.NewColumn(sql.TypeInt64, 3)
	b.Set(0, sql.NewInt64(2))
	b.Set(1, sql.NewInt64(5))
	b.Set(2, sql.NewInt64(9))

	lt := a.BinaryCompare(b, sql.CompareValues, "<")
	require.False(lt.IsNull(0))
	require.True(lt.GetValue(0).Bool())
	require.False(lt.IsNull(1))
	require.False(lt.GetValue(1).Bool())
	require.True(lt.IsNull(2), "null operand propagates to a null result row")
}

func TestColumnBinaryAndThreeValuedTruthTable(t *testing.T) {
	require := require.New(t)
	trueCol := sql.Broadcast(sql.NewBool(true), 1)
	falseCol := sql.Broadcast(sql.NewBool(false), 1)
	nullCol := sql.Broadcast(sql.Null, 1)

	require.True(trueCol.BinaryAnd(trueCol).GetValue(0).Bool())
	require.False(falseCol.BinaryAnd(nullCol).GetValue(0).Bool(), "FALSE AND NULL = FALSE")
	require.True(trueCol.BinaryAnd(nullCol).IsNull(0), "TRUE AND NULL = NULL")
	require.True(nullCol.BinaryAnd(nullCol).IsNull(0))
}

func TestColumnBinaryOrThreeValuedTruthTable(t *testing.T) {
	require := require.New(t)
	trueCol := sql.Broadcast(sql.NewBool(true), 1)
	falseCol := sql.Broadcast(sql.NewBool(false), 1)
	nullCol := sql.Broadcast(sql.Null, 1)

	require.True(trueCol.BinaryOr(nullCol).GetValue(0).Bool(), "TRUE OR NULL = TRUE")
	require.True(falseCol.BinaryOr(nullCol).IsNull(0), "FALSE OR NULL = NULL")
}

func TestColumnUnaryNotPropagatesNull(t *testing.T) {
	require := require.New(t)
	c := sql.NewColumn(sql.TypeBool, 2)
	c.Set(0, sql.NewBool(true))
	c.SetNull(1)
	not := c.UnaryNot()
	require.False(not.GetValue(0).Bool())
	require.True(not.IsNull(1))
}

func TestColumnSumIgnoresNulls(t *testing.T) {
	require := require.New(t)
	c := sql.NewColumn(sql.TypeInt64, 3)
	c.Set(0, sql.NewInt64(1))
	c.SetNull(1)
	c.Set(2, sql.NewInt64(4))
	require.Equal(sql.NewInt64(5), c.Sum())
}

func TestColumnMinMaxIgnoreNulls(t *testing.T) {
	require := require.New(t)
	c := sql.NewColumn(sql.TypeInt64, 3)
	c.Set(0, sql.NewInt64(5))
	c.SetNull(1)
	c.Set(2, sql.NewInt64(2))
	require.Equal(sql.NewInt64(2), c.Min())
	require.Equal(sql.NewInt64(5), c.Max())
}

func TestColumnMinMaxAllNullIsNull(t *testing.T) {
	c := sql.NewColumn(sql.TypeInt64, 2)
	require.True(t, c.Min().IsNull())
	require.True(t, c.Max().IsNull())
}

func TestColumnGatherPreservesOrderAndNulls(t *testing.T) {
	require := require.New(t)
	c := sql.NewColumn(sql.TypeString, 3)
	c.Set(0, sql.NewString("a"))
	c.SetNull(1)
	c.Set(2, sql.NewString("c"))

	gathered := c.Gather([]int{2, 0, 1})
	require.Equal(sql.NewString("c"), gathered.GetValue(0))
	require.Equal(sql.NewString("a"), gathered.GetValue(1))
	require.True(gathered.IsNull(2))
}

func TestCompareValuesStrings(t *testing.T) {
	require := require.New(t)
	require.Equal(-1, sql.CompareValues(sql.NewString("a"), sql.NewString("b")))
	require.Equal(0, sql.CompareValues(sql.NewString("a"), sql.NewString("a")))
	require.Equal(1, sql.CompareValues(sql.NewString("b"), sql.NewString("a")))
}
