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

package driver

import (
	"context"
	"database/sql/driver"

	"github.com/bqlite/bqlite/sql"
)

// Conn is a connection to a database, one per goroutine per the
// database/sql.Conn contract.
type Conn struct {
	state   *catalogState
	session *sql.Session
}

// Prepare validates query against the connection's session catalog and
// returns a statement that can be run repeatedly.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	ctx := c.newContextWithQuery(context.Background(), query)
	if _, err := c.state.engine.AnalyzeQuery(ctx, query); err != nil {
		return nil, err
	}
	return &Stmt{conn: c, queryStr: query}, nil
}

// Close does nothing; the underlying catalog outlives any one connection.
func (c *Conn) Close() error {
	return nil
}

// Begin returns a no-op transaction: bqlite has no multi-statement
// transaction support.
func (c *Conn) Begin() (driver.Tx, error) {
	return fakeTransaction{}, nil
}

func (c *Conn) newContextWithQuery(ctx context.Context, query string) *sql.Context {
	return sql.NewContext(ctx, c.session, query)
}

type fakeTransaction struct{}

func (fakeTransaction) Commit() error   { return nil }
func (fakeTransaction) Rollback() error { return nil }
