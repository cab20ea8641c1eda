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

package driver_test

import (
	"time"

	"github.com/bqlite/bqlite/memory"
	"github.com/bqlite/bqlite/sql"
)

// memCatalog resolves every DSN to the same pre-seeded catalog, a fixture
// shared across the package's e2e tests.
type memCatalog struct {
	cat *sql.Catalog
}

func (m *memCatalog) Resolve(dsn string) (*sql.Catalog, error) {
	return m.cat, nil
}

func personSchema() sql.Schema {
	return sql.Schema{
		sql.NewField("person", "name", sql.TypeString, false),
		sql.NewField("person", "email", sql.TypeString, false),
		sql.NewField("person", "created_at", sql.TypeTimestamp, false),
	}
}

func personRecords() Records {
	now := time.Now().UTC().Truncate(time.Second)
	return Records{
		{"John Doe", "john@doe.com", now},
		{"John Doe", "johnalt@doe.com", now},
		{"Jane Doe", "jane@doe.com", now},
		{"Evil Bob", "evilbob@gmail.com", now},
	}
}

// personMemTable seeds a fresh catalog's "person" table with records and
// returns a Provider resolving any DSN to it, plus the seeded records for
// test assertions.
func personMemTable(dbName, tableName string) (*memCatalog, Records) {
	cat := sql.NewCatalog(dbName)
	db, _ := cat.Database(dbName)

	schema := personSchema()
	records := personRecords()
	cols := make([]*sql.Column, len(schema))
	for i, f := range schema {
		cols[i] = sql.NewColumn(f.Type, len(records))
	}
	for r, rec := range records {
		cols[0].Set(r, sql.NewString(rec[0].(string)))
		cols[1].Set(r, sql.NewString(rec[1].(string)))
		cols[2].Set(r, sql.NewTimestamp(rec[2].(time.Time)))
	}

	_ = db.AddTable(memory.NewTableWithData(tableName, sql.NewTable(schema, cols)))

	return &memCatalog{cat: cat}, records
}
