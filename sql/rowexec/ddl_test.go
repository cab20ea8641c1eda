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

package rowexec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/plan"
	"github.com/bqlite/bqlite/sql/rowexec"
)

func twoColSchema() sql.Schema {
	return sql.Schema{
		sql.NewField("", "id", sql.TypeInt64, false),
		sql.NewField("", "name", sql.TypeString, true),
	}
}

func newTestBuilder() (*rowexec.Builder, *sql.Context) {
	ctx := sql.NewEmptyContext()
	return rowexec.NewBuilder(ctx.Session.Catalog), ctx
}

func TestExecCreateAndDropTable(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	_, err := b.Exec(ctx, &plan.CreateTable{Table: "t", TableSchema: twoColSchema()})
	require.NoError(err)

	db, _ := ctx.Session.Catalog.Database("default")
	_, ok := db.Table("t")
	require.True(ok)

	_, err = b.Exec(ctx, &plan.CreateTable{Table: "t", TableSchema: twoColSchema()})
	require.Error(err)

	_, err = b.Exec(ctx, &plan.CreateTable{Table: "t", TableSchema: twoColSchema(), IfNotExists: true})
	require.NoError(err)

	_, err = b.Exec(ctx, &plan.DropTable{Table: "t"})
	require.NoError(err)
	_, ok = db.Table("t")
	require.False(ok)

	_, err = b.Exec(ctx, &plan.DropTable{Table: "t"})
	require.Error(err)
	_, err = b.Exec(ctx, &plan.DropTable{Table: "t", IfExists: true})
	require.NoError(err)
}

func TestExecAlterTableAddAndDropColumn(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	_, err := b.Exec(ctx, &plan.CreateTable{Table: "t", TableSchema: twoColSchema()})
	require.NoError(err)

	_, err = b.Exec(ctx, &plan.AlterTable{
		Table:     "t",
		Kind:      plan.AlterAddColumn,
		NewColumn: sql.NewField("", "extra", sql.TypeBool, true),
	})
	require.NoError(err)

	db, _ := ctx.Session.Catalog.Database("default")
	st, ok := db.Table("t")
	require.True(ok)
	require.Equal(3, len(st.Schema()))

	_, err = b.Exec(ctx, &plan.AlterTable{
		Table:          "t",
		Kind:           plan.AlterDropColumn,
		DropColumnName: "name",
	})
	require.NoError(err)
	st, _ = db.Table("t")
	require.Equal(2, len(st.Schema()))
}

func TestExecAlterTableRename(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	_, err := b.Exec(ctx, &plan.CreateTable{Table: "t", TableSchema: twoColSchema()})
	require.NoError(err)
	_, err = b.Exec(ctx, &plan.AlterTable{Table: "t", Kind: plan.AlterRenameTable, NewTableName: "t2"})
	require.NoError(err)

	db, _ := ctx.Session.Catalog.Database("default")
	_, ok := db.Table("t")
	require.False(ok)
	_, ok = db.Table("t2")
	require.True(ok)
}

func TestExecCreateDropView(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	_, err := b.Exec(ctx, &plan.CreateView{Name: "v", QueryText: "SELECT 1"})
	require.NoError(err)

	db, _ := ctx.Session.Catalog.Database("default")
	_, ok := db.View("v")
	require.True(ok)

	_, err = b.Exec(ctx, &plan.CreateView{Name: "v", QueryText: "SELECT 2"})
	require.Error(err)
	_, err = b.Exec(ctx, &plan.CreateView{Name: "v", QueryText: "SELECT 2", OrReplace: true})
	require.NoError(err)

	_, err = b.Exec(ctx, &plan.DropView{Name: "v"})
	require.NoError(err)
	_, err = b.Exec(ctx, &plan.DropView{Name: "v"})
	require.Error(err)
	_, err = b.Exec(ctx, &plan.DropView{Name: "v", IfExists: true})
	require.NoError(err)
}

func TestExecCreateDropSchema(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	_, err := b.Exec(ctx, &plan.CreateSchema{Name: "extra"})
	require.NoError(err)
	_, ok := ctx.Session.Catalog.Database("extra")
	require.True(ok)

	_, err = b.Exec(ctx, &plan.CreateSchema{Name: "extra"})
	require.Error(err)
	_, err = b.Exec(ctx, &plan.CreateSchema{Name: "extra", IfNotExists: true})
	require.NoError(err)

	_, err = b.Exec(ctx, &plan.DropSchema{Name: "extra"})
	require.NoError(err)
	_, ok = ctx.Session.Catalog.Database("extra")
	require.False(ok)
}

func TestExecCreateDropFunction(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	def := &sql.FunctionDefinition{Name: "double_it", ReturnType: sql.TypeInt64, Kind: sql.FunctionExpression}
	_, err := b.Exec(ctx, &plan.CreateFunction{Def: def})
	require.NoError(err)

	db, _ := ctx.Session.Catalog.Database("default")
	_, ok := db.Function("double_it")
	require.True(ok)

	_, err = b.Exec(ctx, &plan.DropFunction{Name: "double_it"})
	require.NoError(err)
	_, err = b.Exec(ctx, &plan.DropFunction{Name: "double_it"})
	require.Error(err)
	_, err = b.Exec(ctx, &plan.DropFunction{Name: "double_it", IfExists: true})
	require.NoError(err)
}
