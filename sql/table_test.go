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

func twoColTableSchema() sql.Schema {
	return sql.Schema{
		sql.NewField("t", "id", sql.TypeInt64, false),
		sql.NewField("t", "name", sql.TypeString, true),
	}
}

func TestNewTablePanicsOnSchemaColumnMismatch(t *testing.T) {
	require.Panics(t, func() {
		sql.NewTable(twoColTableSchema(), []*sql.Column{sql.NewColumn(sql.TypeInt64, 0)})
	})
}

func TestNewTablePanicsOnColumnLengthMismatch(t *testing.T) {
	require.Panics(t, func() {
		sql.NewTable(twoColTableSchema(), []*sql.Column{
			sql.NewColumn(sql.TypeInt64, 2),
			sql.NewColumn(sql.TypeString, 3),
		})
	})
}

func TestEmptyTableHasZeroRows(t *testing.T) {
	tbl := sql.EmptyTable(twoColTableSchema())
	require.Equal(t, 0, tbl.RowCount())
}

func TestTableRowMaterializesInSchemaOrder(t *testing.T) {
	require := require.New(t)
	idCol := sql.NewColumn(sql.TypeInt64, 1)
	idCol.Set(0, sql.NewInt64(1))
	nameCol := sql.NewColumn(sql.TypeString, 1)
	nameCol.Set(0, sql.NewString("alice"))
	tbl := sql.NewTable(twoColTableSchema(), []*sql.Column{idCol, nameCol})

	row := tbl.Row(0)
	require.Equal([]sql.Value{sql.NewInt64(1), sql.NewString("alice")}, row)
}

func TestConcatTablesStacksRowsVertically(t *testing.T) {
	require := require.New(t)
	schema := sql.Schema{sql.NewField("t", "id", sql.TypeInt64, false)}
	col1 := sql.NewColumn(sql.TypeInt64, 1)
	col1.Set(0, sql.NewInt64(1))
	t1 := sql.NewTable(schema, []*sql.Column{col1})

	col2 := sql.NewColumn(sql.TypeInt64, 2)
	col2.Set(0, sql.NewInt64(2))
	col2.Set(1, sql.NewInt64(3))
	t2 := sql.NewTable(schema, []*sql.Column{col2})

	merged := sql.ConcatTables(t1, t2)
	require.Equal(3, merged.RowCount())
	require.Equal(sql.NewInt64(1), merged.Row(0)[0])
	require.Equal(sql.NewInt64(2), merged.Row(1)[0])
	require.Equal(sql.NewInt64(3), merged.Row(2)[0])
}

func TestConcatTablesEmptyArgsReturnsNil(t *testing.T) {
	require.Nil(t, sql.ConcatTables())
}

func TestTableGatherRowsReordersAndRepeats(t *testing.T) {
	require := require.New(t)
	schema := sql.Schema{sql.NewField("t", "id", sql.TypeInt64, false)}
	col := sql.NewColumn(sql.TypeInt64, 3)
	col.Set(0, sql.NewInt64(10))
	col.Set(1, sql.NewInt64(20))
	col.Set(2, sql.NewInt64(30))
	tbl := sql.NewTable(schema, []*sql.Column{col})

	gathered := tbl.GatherRows([]int{2, 0, 0})
	require.Equal(3, gathered.RowCount())
	require.Equal(sql.NewInt64(30), gathered.Row(0)[0])
	require.Equal(sql.NewInt64(10), gathered.Row(1)[0])
	require.Equal(sql.NewInt64(10), gathered.Row(2)[0])
}

func TestTableFilterByMaskExcludesNullAndFalse(t *testing.T) {
	require := require.New(t)
	schema := sql.Schema{sql.NewField("t", "id", sql.TypeInt64, false)}
	col := sql.NewColumn(sql.TypeInt64, 3)
	col.Set(0, sql.NewInt64(1))
	col.Set(1, sql.NewInt64(2))
	col.Set(2, sql.NewInt64(3))
	tbl := sql.NewTable(schema, []*sql.Column{col})

	mask := sql.NewColumn(sql.TypeBool, 3)
	mask.Set(0, sql.NewBool(true))
	mask.Set(1, sql.NewBool(false))
	mask.SetNull(2)

	filtered := tbl.FilterByMask(mask)
	require.Equal(1, filtered.RowCount())
	require.Equal(sql.NewInt64(1), filtered.Row(0)[0])
}

func TestTableProjectSelectsSubsetInOrder(t *testing.T) {
	require := require.New(t)
	idCol := sql.NewColumn(sql.TypeInt64, 1)
	idCol.Set(0, sql.NewInt64(1))
	nameCol := sql.NewColumn(sql.TypeString, 1)
	nameCol.Set(0, sql.NewString("alice"))
	tbl := sql.NewTable(twoColTableSchema(), []*sql.Column{idCol, nameCol})

	projected := tbl.Project([]int{1, 0})
	require.Equal("name", projected.Schema[0].Name)
	require.Equal("id", projected.Schema[1].Name)
	require.Equal(sql.NewString("alice"), projected.Row(0)[0])
	require.Equal(sql.NewInt64(1), projected.Row(0)[1])
}
