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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
)

type fakeTable struct {
	name   string
	schema sql.Schema
}

func (f *fakeTable) Name() string                           { return f.name }
func (f *fakeTable) Schema() sql.Schema                     { return f.schema }
func (f *fakeTable) Snapshot() *sql.Table                    { return sql.EmptyTable(f.schema) }
func (f *fakeTable) Replace(*sql.Context, *sql.Table) error  { return nil }
func (f *fakeTable) Constraints() sql.TableConstraints       { return sql.TableConstraints{} }
func (f *fakeTable) Lock()                                  {}
func (f *fakeTable) Unlock()                                 {}
func (f *fakeTable) RLocker() sync.Locker                    { return f }

func TestDatabaseAddTableRejectsCaseInsensitiveDuplicate(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("db")
	require.NoError(db.AddTable(&fakeTable{name: "T"}))
	require.Error(db.AddTable(&fakeTable{name: "t"}))
}

func TestDatabaseTableLookupIsCaseInsensitive(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("db")
	require.NoError(db.AddTable(&fakeTable{name: "Users"}))

	got, ok := db.Table("USERS")
	require.True(ok)
	require.Equal("Users", got.Name())
}

func TestDatabaseDropTableRemovesIt(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("db")
	require.NoError(db.AddTable(&fakeTable{name: "t"}))
	require.NoError(db.DropTable("t"))
	_, ok := db.Table("t")
	require.False(ok)
}

func TestDatabaseDropTableMissingErrors(t *testing.T) {
	db := sql.NewDatabase("db")
	require.Error(t, db.DropTable("missing"))
}

func TestDatabaseViewLifecycle(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("db")
	require.NoError(db.AddView(&sql.ViewDefinition{Name: "v", QueryText: "SELECT 1"}))
	require.Error(db.AddView(&sql.ViewDefinition{Name: "V"}), "duplicate view name")

	got, ok := db.View("V")
	require.True(ok)
	require.Equal("SELECT 1", got.QueryText)

	require.NoError(db.DropView("v"))
	require.Error(db.DropView("v"))
}

func TestDatabaseFunctionLifecycle(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("db")
	db.AddFunction(&sql.FunctionDefinition{Name: "f", ReturnType: sql.TypeInt64})

	got, ok := db.Function("F")
	require.True(ok)
	require.Equal(sql.TypeInt64, got.ReturnType)

	db.DropFunction("f")
	_, ok = db.Function("f")
	require.False(ok)
}

func TestCatalogDefaultDatabaseIsCurrent(t *testing.T) {
	require := require.New(t)
	cat := sql.NewCatalog("mydb")
	require.Equal("mydb", cat.CurrentDatabaseName())
	require.NotNil(cat.CurrentDatabase())

	db, ok := cat.Database("MYDB")
	require.True(ok)
	require.Same(cat.CurrentDatabase(), db)
}

func TestCatalogCreateDropDatabase(t *testing.T) {
	require := require.New(t)
	cat := sql.NewCatalog("mydb")
	require.NoError(cat.CreateDatabase("other"))
	require.Error(cat.CreateDatabase("OTHER"), "schema already exists")

	require.NoError(cat.DropDatabase("other"))
	require.Error(cat.DropDatabase("other"))
}

func TestCatalogSetCurrentDatabase(t *testing.T) {
	require := require.New(t)
	cat := sql.NewCatalog("mydb")
	require.NoError(cat.CreateDatabase("other"))
	cat.SetCurrentDatabase("other")
	require.Equal("other", cat.CurrentDatabaseName())
}
