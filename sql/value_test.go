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
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
)

func TestValueZeroValueIsNull(t *testing.T) {
	var v sql.Value
	require.True(t, v.IsNull())
	require.Equal(t, sql.TypeNull, v.Type())
}

func TestFloat64EqualTreatsSignedZeroAsEqual(t *testing.T) {
	require := require.New(t)
	pos := sql.Float64(0)
	neg := sql.Float64(math.Copysign(0, -1))
	require.True(pos.Equal(neg))
}

func TestFloat64EqualTreatsDistinctNaNPayloadsAsUnequal(t *testing.T) {
	require := require.New(t)
	nan1 := sql.Float64(math.Float64frombits(0x7ff8000000000001))
	nan2 := sql.Float64(math.Float64frombits(0x7ff8000000000002))
	require.False(nan1.Equal(nan2))
	require.True(nan1.Equal(nan1))
}

func TestValueEqualNullEqualsNull(t *testing.T) {
	require.True(t, sql.Null.Equal(sql.Null))
}

func TestValueEqualAcrossDifferentTypesIsFalse(t *testing.T) {
	require.False(t, sql.NewInt64(1).Equal(sql.NewFloat64(1)))
}

func TestValueEqualScalars(t *testing.T) {
	require := require.New(t)
	require.True(sql.NewInt64(5).Equal(sql.NewInt64(5)))
	require.False(sql.NewInt64(5).Equal(sql.NewInt64(6)))
	require.True(sql.NewString("a").Equal(sql.NewString("a")))
	require.True(sql.NewBool(true).Equal(sql.NewBool(true)))
}

func TestValueEqualArraysAndStructs(t *testing.T) {
	require := require.New(t)
	a1 := sql.NewArray([]sql.Value{sql.NewInt64(1), sql.NewInt64(2)})
	a2 := sql.NewArray([]sql.Value{sql.NewInt64(1), sql.NewInt64(2)})
	a3 := sql.NewArray([]sql.Value{sql.NewInt64(1), sql.NewInt64(3)})
	require.True(a1.Equal(a2))
	require.False(a1.Equal(a3))

	s1 := sql.NewStruct([]sql.StructField{{Name: "X", Value: sql.NewInt64(1)}})
	s2 := sql.NewStruct([]sql.StructField{{Name: "x", Value: sql.NewInt64(1)}})
	require.True(s1.Equal(s2), "struct field names compare case-insensitively")
}

func TestValueStructFieldByNameIsCaseInsensitive(t *testing.T) {
	require := require.New(t)
	v := sql.NewStruct([]sql.StructField{{Name: "Name", Value: sql.NewString("a")}})

	got, ok := v.StructFieldByName("name")
	require.True(ok)
	require.Equal(sql.NewString("a"), got)

	_, ok = v.StructFieldByName("missing")
	require.False(ok)
}

func TestRowKeyAgreesWithEqual(t *testing.T) {
	require := require.New(t)
	row1 := []sql.Value{sql.NewInt64(1), sql.NewString("a")}
	row2 := []sql.Value{sql.NewInt64(1), sql.NewString("a")}
	row3 := []sql.Value{sql.NewInt64(1), sql.NewString("b")}

	require.Equal(sql.RowKey(row1), sql.RowKey(row2))
	require.NotEqual(sql.RowKey(row1), sql.RowKey(row3))
}

func TestRowKeyNormalizesSignedZero(t *testing.T) {
	require := require.New(t)
	row1 := []sql.Value{sql.NewFloat64(0)}
	row2 := []sql.Value{sql.NewFloat64(math.Copysign(0, -1))}
	require.Equal(sql.RowKey(row1), sql.RowKey(row2))
}

func TestNewTimestampNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	local := time.Date(2024, 1, 1, 12, 0, 0, 0, loc)
	v := sql.NewTimestamp(local)
	require.Equal(t, time.UTC, v.Time().Location())
	require.True(t, v.Time().Equal(local))
}
