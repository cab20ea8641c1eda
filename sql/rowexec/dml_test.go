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

	"github.com/bqlite/bqlite/memory"
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
	"github.com/bqlite/bqlite/sql/rowexec"
)

func seedTable(t *testing.T, ctx *sql.Context, name string, constraints sql.TableConstraints, ids []int64, names []string) {
	t.Helper()
	db, _ := ctx.Session.Catalog.Database("default")
	idCol := sql.NewColumn(sql.TypeInt64, len(ids))
	nameCol := sql.NewColumn(sql.TypeString, len(ids))
	for i, id := range ids {
		idCol.Set(i, sql.NewInt64(id))
		if names[i] != "" {
			nameCol.Set(i, sql.NewString(names[i]))
		}
	}
	data := &sql.Table{Schema: twoColSchema(), Cols: []*sql.Column{idCol, nameCol}}
	require.NoError(t, db.AddTable(memory.NewConstrainedTableWithData(name, data, constraints)))
}

func valuesOf(schema sql.Schema, rows [][]sql.Value) *plan.Values {
	exprRows := make([][]expression.Expr, len(rows))
	for i, row := range rows {
		exprRow := make([]expression.Expr, len(row))
		for j, v := range row {
			exprRow[j] = expression.NewLiteral(v)
		}
		exprRows[i] = exprRow
	}
	return plan.NewValues(schema, exprRows)
}

func TestExecInsert(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()
	seedTable(t, ctx, "t", sql.TableConstraints{}, []int64{1}, []string{"a"})

	src := valuesOf(twoColSchema(), [][]sql.Value{
		{sql.NewInt64(2), sql.NewString("b")},
		{sql.NewInt64(3), sql.NewString("c")},
	})
	ins := plan.NewInsert("", "t", twoColSchema(), nil, src)

	res, err := b.Exec(ctx, ins)
	require.NoError(err)
	require.Equal(int64(2), res.Cols[0].GetValue(0).Int64())

	db, _ := ctx.Session.Catalog.Database("default")
	st, _ := db.Table("t")
	require.Equal(3, st.Snapshot().RowCount())
}

func TestExecInsertConstraintViolation(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()
	seedTable(t, ctx, "t", sql.TableConstraints{PrimaryKey: []string{"id"}}, []int64{1}, []string{"a"})

	src := valuesOf(twoColSchema(), [][]sql.Value{{sql.NewInt64(1), sql.NewString("dup")}})
	ins := plan.NewInsert("", "t", twoColSchema(), nil, src)

	_, err := b.Exec(ctx, ins)
	require.Error(err)
}

func TestExecUpdate(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()
	seedTable(t, ctx, "t", sql.TableConstraints{}, []int64{1, 2}, []string{"a", "b"})

	scan := plan.NewScan("", "t", "", twoColSchema())
	upd := &plan.Update{
		Database:    "",
		Table:       "t",
		TableSchema: twoColSchema(),
		Assignments: []plan.UpdateAssignment{{Index: 1, Expr: expression.NewLiteral(sql.NewString("z"))}},
		Filter: expression.NewBinaryOp(expression.OpEq,
			expression.NewColumn("", "id", 0, sql.TypeInt64, false),
			expression.NewLiteral(sql.NewInt64(1)), sql.TypeBool),
	}
	upd.Child = scan

	res, err := b.Exec(ctx, upd)
	require.NoError(err)
	require.Equal(int64(1), res.Cols[0].GetValue(0).Int64())

	db, _ := ctx.Session.Catalog.Database("default")
	st, _ := db.Table("t")
	snap := st.Snapshot()
	require.Equal("z", snap.Cols[1].GetValue(0).String())
	require.Equal("b", snap.Cols[1].GetValue(1).String())
}

func TestExecDelete(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()
	seedTable(t, ctx, "t", sql.TableConstraints{}, []int64{1, 2, 3}, []string{"a", "b", "c"})

	scan := plan.NewScan("", "t", "", twoColSchema())
	del := &plan.Delete{
		Database:    "",
		Table:       "t",
		TableSchema: twoColSchema(),
		Filter: expression.NewBinaryOp(expression.OpGe,
			expression.NewColumn("", "id", 0, sql.TypeInt64, false),
			expression.NewLiteral(sql.NewInt64(2)), sql.TypeBool),
	}
	del.Child = scan

	res, err := b.Exec(ctx, del)
	require.NoError(err)
	require.Equal(int64(2), res.Cols[0].GetValue(0).Int64())

	db, _ := ctx.Session.Catalog.Database("default")
	st, _ := db.Table("t")
	require.Equal(1, st.Snapshot().RowCount())
}

func TestExecTruncate(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()
	seedTable(t, ctx, "t", sql.TableConstraints{}, []int64{1, 2}, []string{"a", "b"})

	res, err := b.Exec(ctx, &plan.Truncate{Table: "t"})
	require.NoError(err)
	require.Equal(int64(2), res.Cols[0].GetValue(0).Int64())

	db, _ := ctx.Session.Catalog.Database("default")
	st, _ := db.Table("t")
	require.Equal(0, st.Snapshot().RowCount())
}

func TestExecExportData(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()
	seedTable(t, ctx, "t", sql.TableConstraints{}, []int64{1, 2}, []string{"a", "b"})

	exp := &plan.ExportData{Format: "CSV", URI: "gs://bucket/out"}
	exp.Child = plan.NewScan("", "t", "", twoColSchema())

	res, err := b.Exec(ctx, exp)
	require.NoError(err)
	require.Equal(int64(2), res.Cols[0].GetValue(0).Int64())
}

func TestExecMerge(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()
	seedTable(t, ctx, "t", sql.TableConstraints{PrimaryKey: []string{"id"}}, []int64{1, 2}, []string{"a", "b"})

	source := valuesOf(twoColSchema(), [][]sql.Value{
		{sql.NewInt64(2), sql.NewString("b-updated")},
		{sql.NewInt64(3), sql.NewString("c-new")},
	})

	merge := &plan.Merge{
		Database:    "",
		Table:       "t",
		TableSchema: twoColSchema(),
		On: expression.NewBinaryOp(expression.OpEq,
			expression.NewColumn("", "id", 0, sql.TypeInt64, false),
			expression.NewColumn("", "id", 2, sql.TypeInt64, false), sql.TypeBool),
		WhenMatched: []plan.MergeClause{{
			Action:      plan.MergeActionUpdate,
			Assignments: []plan.UpdateAssignment{{Index: 1, Expr: expression.NewColumn("", "name", 3, sql.TypeString, true)}},
		}},
		WhenNotMatchedByTarget: []plan.MergeClause{{
			Action: plan.MergeActionInsert,
		}},
	}
	merge.Child = source

	res, err := b.Exec(ctx, merge)
	require.NoError(err)
	require.Equal(int64(2), res.Cols[0].GetValue(0).Int64())

	db, _ := ctx.Session.Catalog.Database("default")
	st, _ := db.Table("t")
	snap := st.Snapshot()
	require.Equal(3, snap.RowCount())
}

func TestExecCreateTableAsSelect(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := valuesOf(twoColSchema(), [][]sql.Value{{sql.NewInt64(1), sql.NewString("a")}})
	ct := &plan.CreateTable{Table: "t2", TableSchema: twoColSchema(), AsSelect: src}

	_, err := b.Exec(ctx, ct)
	require.NoError(err)

	db, _ := ctx.Session.Catalog.Database("default")
	st, ok := db.Table("t2")
	require.True(ok)
	require.Equal(1, st.Snapshot().RowCount())
}
