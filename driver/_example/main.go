// Copyright 2020-2023 Dolthub, Inc.
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
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/bqlite/bqlite/driver"
)

func main() {
	sql.Register("bqlite", driver.New(factory{}))

	db, err := sql.Open("bqlite", "")
	must(err)

	rows, err := db.Query("SELECT name, email, phone_numbers, created_at FROM mytable")
	must(err)
	dump(rows)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func dump(rows *sql.Rows) {
	var name, email, phoneNumbers string
	var createdAt time.Time

	for rows.Next() {
		must(rows.Scan(&name, &email, &phoneNumbers, &createdAt))
		fmt.Println(name, email, phoneNumbers, createdAt)
	}
}
