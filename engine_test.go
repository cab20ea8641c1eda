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

package bqlite_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite"
	"github.com/bqlite/bqlite/sql"
)

func newTestEngine() (*bqlite.Engine, *sql.Context) {
	ctx := sql.NewEmptyContext()
	return bqlite.New(ctx.Session.Catalog), ctx
}

func TestEngineQueryCreateInsertSelect(t *testing.T) {
	require := require.New(t)
	e, ctx := newTestEngine()

	_, err := e.Query(ctx, "CREATE TABLE t (id INT64 NOT NULL, name STRING)")
	require.NoError(err)
	_, err = e.Query(ctx, "INSERT INTO t (id, name) VALUES (1, 'a'), (2, 'b')")
	require.NoError(err)

	out, err := e.Query(ctx, "SELECT id, name FROM t WHERE id = 2")
	require.NoError(err)
	require.Equal(1, out.RowCount())
	require.Equal("b", out.Row(0)[1].String())
}

func TestEngineQueryUsesPlanCacheAndInvalidatesOnDDL(t *testing.T) {
	require := require.New(t)
	e, ctx := newTestEngine()

	_, err := e.Query(ctx, "CREATE TABLE t (id INT64 NOT NULL, name STRING)")
	require.NoError(err)
	_, err = e.Query(ctx, "INSERT INTO t (id, name) VALUES (1, 'a')")
	require.NoError(err)

	const q = "SELECT id, name FROM t"
	_, err = e.Query(ctx, q)
	require.NoError(err)
	require.Equal(1, ctx.Session.Cache.Len())

	_, err = e.Query(ctx, "ALTER TABLE t ADD COLUMN extra BOOL")
	require.NoError(err)

	_, ok := ctx.Session.Cache.Get(q)
	require.False(ok)
}

func TestEngineExplainShapeAndTiming(t *testing.T) {
	require := require.New(t)
	e, ctx := newTestEngine()

	_, err := e.Query(ctx, "CREATE TABLE t (id INT64 NOT NULL, name STRING)")
	require.NoError(err)
	_, err = e.Query(ctx, "INSERT INTO t (id, name) VALUES (1, 'a')")
	require.NoError(err)

	out, err := e.Explain(ctx, "SELECT id FROM t")
	require.NoError(err)
	require.Equal(2, out.RowCount())
	require.Equal("logical", out.Cols[0].GetValue(0).String())
	require.Equal("physical", out.Cols[0].GetValue(1).String())

	out, err = e.ExplainAnalyze(ctx, "SELECT id FROM t")
	require.NoError(err)
	require.Equal(4, out.RowCount())
	require.Equal("rows_returned", out.Cols[0].GetValue(3).String())
	require.Equal("1", out.Cols[1].GetValue(3).String())
}

func TestEngineAnalyzeQueryReturnsLogicalPlan(t *testing.T) {
	require := require.New(t)
	e, ctx := newTestEngine()
	_, err := e.Query(ctx, "CREATE TABLE t (id INT64 NOT NULL, name STRING)")
	require.NoError(err)

	p, err := e.AnalyzeQuery(ctx, "SELECT id FROM t")
	require.NoError(err)
	require.NotNil(p)
}
