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

package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

func ddlTestSchema() sql.Schema {
	return sql.Schema{sql.NewField("", "id", sql.TypeInt64, false)}
}

func TestDMLNodesReturnAffectedRowsSchema(t *testing.T) {
	require := require.New(t)

	src := plan.NewValues(ddlTestSchema(), nil)
	nodes := []plan.LogicalPlan{
		plan.NewInsert("", "t", ddlTestSchema(), nil, src),
		&plan.Update{TableSchema: ddlTestSchema()},
		&plan.Delete{TableSchema: ddlTestSchema()},
		&plan.Truncate{Table: "t"},
		&plan.Merge{TableSchema: ddlTestSchema()},
		&plan.ExportData{},
	}
	for _, n := range nodes {
		schema := n.Schema()
		require.Len(schema, 1)
		require.Equal("num_affected_rows", schema[0].Name)
		require.Equal(sql.TypeInt64, schema[0].Type)
	}
}

func TestInsertWithChildrenReplacesSource(t *testing.T) {
	require := require.New(t)
	src1 := plan.NewValues(ddlTestSchema(), nil)
	src2 := plan.NewValues(ddlTestSchema(), nil)
	ins := plan.NewInsert("", "t", ddlTestSchema(), nil, src1)

	replaced, err := ins.WithChildren(src2)
	require.NoError(err)
	require.Same(src2, replaced.Children()[0])

	_, err = ins.WithChildren(src1, src2)
	require.Error(err)
}

func TestDDLNodesNoChildren(t *testing.T) {
	require := require.New(t)
	nodes := []plan.LogicalPlan{
		&plan.CreateTable{Table: "t", TableSchema: ddlTestSchema()},
		&plan.DropTable{Table: "t"},
		&plan.AlterTable{Table: "t", Kind: plan.AlterRenameTable, NewTableName: "t2"},
		&plan.CreateView{Name: "v", QueryText: "SELECT 1"},
		&plan.DropView{Name: "v"},
		&plan.CreateSchema{Name: "s"},
		&plan.DropSchema{Name: "s"},
		&plan.CreateFunction{Def: &sql.FunctionDefinition{Name: "f"}},
		&plan.DropFunction{Name: "f"},
	}
	for _, n := range nodes {
		require.Empty(n.Children())
		require.Equal(sql.Schema{}, n.Schema())
		_, err := n.WithChildren(plan.NewValues(ddlTestSchema(), nil))
		require.Error(err)
	}
}

func TestCreateTableAsSelectTakesOneChild(t *testing.T) {
	require := require.New(t)
	src := plan.NewValues(ddlTestSchema(), nil)
	ct := &plan.CreateTable{Table: "t", TableSchema: ddlTestSchema(), AsSelect: src}
	require.Len(ct.Children(), 1)

	other := plan.NewValues(ddlTestSchema(), nil)
	replaced, err := ct.WithChildren(other)
	require.NoError(err)
	require.Same(other, replaced.(*plan.CreateTable).AsSelect)
}

func TestMergeStringIncludesOnCondition(t *testing.T) {
	require := require.New(t)
	src := plan.NewValues(ddlTestSchema(), nil)
	m := &plan.Merge{
		Table:       "t",
		TableSchema: ddlTestSchema(),
		On:          expression.NewLiteral(sql.NewBool(true)),
	}
	m.Child = src
	require.Contains(m.String(), "Merge(")
}
