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

package main

import (
	"time"

	"github.com/bqlite/bqlite/memory"
	"github.com/bqlite/bqlite/sql"
)

type factory struct{}

func (factory) Resolve(dsn string) (*sql.Catalog, error) {
	cat := sql.NewCatalog("mydb")
	db, _ := cat.Database("mydb")
	if err := db.AddTable(createTestTable()); err != nil {
		return nil, err
	}
	return cat, nil
}

func createTestTable() *memory.Table {
	const tableName = "mytable"

	schema := sql.Schema{
		sql.NewField(tableName, "name", sql.TypeString, false),
		sql.NewField(tableName, "email", sql.TypeString, false),
		sql.NewField(tableName, "phone_numbers", sql.TypeJSON, false),
		sql.NewField(tableName, "created_at", sql.TypeTimestamp, false),
	}

	rows := [][]sql.Value{
		{sql.NewString("John Doe"), sql.NewString("john@doe.com"), sql.NewJSON([]any{"555-555-555"}), sql.NewTimestamp(time.Now())},
		{sql.NewString("John Doe"), sql.NewString("johnalt@doe.com"), sql.NewJSON([]any{}), sql.NewTimestamp(time.Now())},
		{sql.NewString("Jane Doe"), sql.NewString("jane@doe.com"), sql.NewJSON([]any{}), sql.NewTimestamp(time.Now())},
		{sql.NewString("Evil Bob"), sql.NewString("evilbob@gmail.com"), sql.NewJSON([]any{"555-666-555", "666-666-666"}), sql.NewTimestamp(time.Now())},
	}

	cols := make([]*sql.Column, len(schema))
	for i, f := range schema {
		cols[i] = sql.NewColumn(f.Type, len(rows))
	}
	for r, row := range rows {
		for c, v := range row {
			cols[c].Set(r, v)
		}
	}
	return memory.NewTableWithData(tableName, sql.NewTable(schema, cols))
}
