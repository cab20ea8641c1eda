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

package planbuilder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/memory"
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/planbuilder"
	"github.com/bqlite/bqlite/sql/rowexec"
)

func twoColSchema() sql.Schema {
	return sql.Schema{
		sql.NewField("", "id", sql.TypeInt64, false),
		sql.NewField("", "name", sql.TypeString, true),
	}
}

// testEnv bundles a catalog-backed planbuilder.Builder with a rowexec.Builder
// over the same session, the shape engine.go wires the two packages in: text
// goes in through planbuilder, the resulting LogicalPlan runs through
// rowexec, matching the test pattern sql/rowexec's own _test.go files use.
type testEnv struct {
	ctx *sql.Context
	pb  *planbuilder.Builder
	rx  *rowexec.Builder
}

func newTestEnv() *testEnv {
	ctx := sql.NewEmptyContext()
	return &testEnv{
		ctx: ctx,
		pb:  planbuilder.New(ctx.Session.Catalog),
		rx:  rowexec.NewBuilder(ctx.Session.Catalog),
	}
}

func (e *testEnv) run(t *testing.T, text string) *sql.Table {
	t.Helper()
	require := require.New(t)
	p, err := e.pb.BuildText(text)
	require.NoError(err, text)
	tbl, err := e.rx.Exec(e.ctx, p)
	require.NoError(err, text)
	return tbl
}

func (e *testEnv) seedTable(t *testing.T, name string, schema sql.Schema, rows [][]sql.Value) {
	t.Helper()
	require := require.New(t)
	cols := make([]*sql.Column, len(schema))
	for i, f := range schema {
		cols[i] = sql.NewColumn(f.Type, len(rows))
	}
	for r, row := range rows {
		for c, v := range row {
			cols[c].Set(r, v)
		}
	}
	db, ok := e.ctx.Session.Catalog.Database("default")
	require.True(ok)
	require.NoError(db.AddTable(memory.NewTableWithData(name, sql.NewTable(schema, cols))))
}

func TestBuildTextCreateInsertSelect(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	env.run(t, "CREATE TABLE t (id INT64 NOT NULL, name STRING)")
	env.run(t, "INSERT INTO t (id, name) VALUES (1, 'a'), (2, 'b')")

	tbl := env.run(t, "SELECT id, name FROM t WHERE id = 2")
	require.Equal(1, tbl.RowCount())
	require.Equal(int64(2), tbl.Row(0)[0].Int64())
	require.Equal("b", tbl.Row(0)[1].String())
}

func TestBuildTextSelectAggregateGroupBy(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.seedTable(t, "orders", sql.Schema{
		sql.NewField("", "customer", sql.TypeString, false),
		sql.NewField("", "amount", sql.TypeInt64, false),
	}, [][]sql.Value{
		{sql.NewString("alice"), sql.NewInt64(10)},
		{sql.NewString("alice"), sql.NewInt64(5)},
		{sql.NewString("bob"), sql.NewInt64(7)},
	})

	tbl := env.run(t, "SELECT customer, SUM(amount) AS total FROM orders GROUP BY customer ORDER BY customer")
	require.Equal(2, tbl.RowCount())
	require.Equal("alice", tbl.Row(0)[0].String())
	require.Equal(int64(15), tbl.Row(0)[1].Int64())
	require.Equal("bob", tbl.Row(1)[0].String())
	require.Equal(int64(7), tbl.Row(1)[1].Int64())
}

func TestBuildTextSelectJoin(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.seedTable(t, "a", sql.Schema{
		sql.NewField("", "id", sql.TypeInt64, false),
		sql.NewField("", "name", sql.TypeString, false),
	}, [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("x")},
		{sql.NewInt64(2), sql.NewString("y")},
	})
	env.seedTable(t, "b", sql.Schema{
		sql.NewField("", "a_id", sql.TypeInt64, false),
		sql.NewField("", "tag", sql.TypeString, false),
	}, [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("p")},
	})

	tbl := env.run(t, "SELECT a.name, b.tag FROM a JOIN b ON a.id = b.a_id")
	require.Equal(1, tbl.RowCount())
	require.Equal("x", tbl.Row(0)[0].String())
	require.Equal("p", tbl.Row(0)[1].String())
}

func TestBuildTextUpdateDelete(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.seedTable(t, "t", twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(2), sql.NewString("b")},
	})

	env.run(t, "UPDATE t SET name = 'z' WHERE id = 1")
	db, _ := env.ctx.Session.Catalog.Database("default")
	st, _ := db.Table("t")
	tbl := st.Snapshot()
	require.Equal("z", tbl.Row(0)[1].String())

	env.run(t, "DELETE FROM t WHERE id = 2")
	st, _ = db.Table("t")
	require.Equal(1, st.Snapshot().RowCount())
}

func TestBuildTextMergeInsertUpdateDelete(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.seedTable(t, "target", twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("old")},
		{sql.NewInt64(2), sql.NewString("gone")},
	})
	env.seedTable(t, "source", twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("new")},
		{sql.NewInt64(3), sql.NewString("fresh")},
	})

	env.run(t, `
		MERGE INTO target AS t
		USING source AS s
		ON t.id = s.id
		WHEN MATCHED THEN UPDATE SET name = s.name
		WHEN NOT MATCHED BY SOURCE THEN DELETE
		WHEN NOT MATCHED BY TARGET THEN INSERT (id, name) VALUES (s.id, s.name)
	`)

	db, _ := env.ctx.Session.Catalog.Database("default")
	st, _ := db.Table("target")
	tbl := st.Snapshot()
	require.Equal(2, tbl.RowCount())

	byID := map[int64]string{}
	for i := 0; i < tbl.RowCount(); i++ {
		row := tbl.Row(i)
		byID[row[0].Int64()] = row[1].String()
	}
	require.Equal("new", byID[1])
	require.Equal("fresh", byID[3])
	_, hadTwo := byID[2]
	require.False(hadTwo)
}

func TestBuildTextTruncate(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.seedTable(t, "t", twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
	})

	env.run(t, "TRUNCATE TABLE t")
	db, _ := env.ctx.Session.Catalog.Database("default")
	st, _ := db.Table("t")
	require.Equal(0, st.Snapshot().RowCount())
}

func TestBuildTextCreateDropAlterTable(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	env.run(t, "CREATE TABLE t (id INT64 NOT NULL, name STRING)")
	env.run(t, "ALTER TABLE t ADD COLUMN extra BOOL")

	db, _ := env.ctx.Session.Catalog.Database("default")
	st, ok := db.Table("t")
	require.True(ok)
	require.Equal(3, len(st.Schema()))

	env.run(t, "ALTER TABLE t DROP COLUMN extra")
	st, _ = db.Table("t")
	require.Equal(2, len(st.Schema()))

	env.run(t, "DROP TABLE t")
	_, ok = db.Table("t")
	require.False(ok)
}

func TestBuildTextCreateViewAndSchema(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.seedTable(t, "t", twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
	})

	env.run(t, "CREATE VIEW v AS SELECT id, name FROM t")
	tbl := env.run(t, "SELECT id, name FROM v")
	require.Equal(1, tbl.RowCount())

	env.run(t, "DROP VIEW v")

	env.run(t, "CREATE SCHEMA analytics")
	_, ok := env.ctx.Session.Catalog.Database("analytics")
	require.True(ok)
}

func TestBuildTextInsertFromSelect(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.seedTable(t, "src", twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(2), sql.NewString("b")},
	})
	env.run(t, "CREATE TABLE dst (id INT64 NOT NULL, name STRING)")
	env.run(t, "INSERT INTO dst (id, name) SELECT id, name FROM src WHERE id = 1")

	db, _ := env.ctx.Session.Catalog.Database("default")
	st, _ := db.Table("dst")
	require.Equal(1, st.Snapshot().RowCount())
}

func TestBuildTextRejectsUpdateFrom(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.seedTable(t, "t", twoColSchema(), nil)

	_, err := env.pb.BuildText("UPDATE t SET name = s.name FROM s WHERE t.id = s.id")
	require.Error(err)
}
