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

func TestNewSessionDefaultsDatabaseName(t *testing.T) {
	require := require.New(t)
	s := sql.NewSession("", 1)
	require.Equal("default", s.Catalog.CurrentDatabaseName())
}

func TestNewSessionAutoAssignsSequentialIDs(t *testing.T) {
	require := require.New(t)
	s1 := sql.NewSession("db", 0)
	s2 := sql.NewSession("db", 0)
	require.NotEqual(s1.ID, s2.ID)
	require.Less(s1.ID, s2.ID)
}

func TestNewSessionWithCatalogSharesCatalog(t *testing.T) {
	require := require.New(t)
	cat := sql.NewCatalog("shared")
	s1 := sql.NewSessionWithCatalog(cat, 1)
	s2 := sql.NewSessionWithCatalog(cat, 2)
	require.Same(cat, s1.Catalog)
	require.Same(s1.Catalog, s2.Catalog)
}

func TestSessionInvalidateCacheBumpsGeneration(t *testing.T) {
	require := require.New(t)
	s := sql.NewSession("db", 1)
	require.EqualValues(0, s.Cache.Generation())
	s.InvalidateCache()
	require.EqualValues(1, s.Cache.Generation())
}
