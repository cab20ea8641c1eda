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

func joinedSchema() sql.Schema {
	return sql.Schema{
		sql.NewField("a", "x", sql.TypeInt64, false),
		sql.NewField("a", "y", sql.TypeInt64, false),
		sql.NewField("b", "x", sql.TypeString, true),
	}
}

func TestSchemaIndexOfUnqualified(t *testing.T) {
	require := require.New(t)
	s := joinedSchema()
	require.Equal(-2, s.IndexOf("X", ""), "case-insensitive: X matches both a.x and b.x")
	require.Equal(-2, s.IndexOf("x", ""), "ambiguous: a.x and b.x both match")
	require.Equal(-1, s.IndexOf("z", ""))
}

func TestSchemaIndexOfQualifiedDisambiguates(t *testing.T) {
	require := require.New(t)
	s := joinedSchema()
	require.Equal(0, s.IndexOf("x", "a"))
	require.Equal(2, s.IndexOf("x", "B"))
	require.Equal(-1, s.IndexOf("x", "c"))
}

func TestSchemaFieldsForTable(t *testing.T) {
	require := require.New(t)
	s := joinedSchema()
	fields := s.FieldsForTable("a")
	require.Len(fields, 2)
	require.Equal("x", fields[0].Name)
	require.Equal("y", fields[1].Name)
}

func TestSchemaConcatPreservesOrder(t *testing.T) {
	require := require.New(t)
	left := sql.Schema{sql.NewField("a", "x", sql.TypeInt64, false)}
	right := sql.Schema{sql.NewField("b", "y", sql.TypeInt64, false)}
	combined := left.Concat(right)
	require.Len(combined, 2)
	require.Equal("x", combined[0].Name)
	require.Equal("y", combined[1].Name)
}

func TestSchemaNames(t *testing.T) {
	require.Equal(t, []string{"x", "y", "x"}, joinedSchema().Names())
}

func TestSchemaProjectSelectsInGivenOrder(t *testing.T) {
	require := require.New(t)
	s := joinedSchema()
	projected := s.Project([]int{2, 0})
	require.Len(projected, 2)
	require.Equal("b", projected[0].TableName)
	require.Equal("a", projected[1].TableName)
}
