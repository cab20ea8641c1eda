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
	"errors"
)

// ErrBoundParametersUnsupported is returned when a caller passes query
// arguments: bqlite has no placeholder syntax (sql/planbuilder only parses
// literal SQL text), so every statement must be fully self-contained.
var ErrBoundParametersUnsupported = errors.New("bqlite: bound query parameters are not supported")

// Stmt is a prepared statement. Preparing only validates the query text; the
// query itself is re-planned on every Exec/Query the way bqlite.Engine.Query
// always does (there is no server-side prepared-statement cache distinct
// from the engine's own plan cache).
type Stmt struct {
	conn     *Conn
	queryStr string
}

// Close does nothing.
func (s *Stmt) Close() error {
	return nil
}

// NumInput reports that Stmt accepts no placeholder parameters.
func (s *Stmt) NumInput() int {
	return 0
}

// Exec executes a query that doesn't return rows, such as an INSERT, UPDATE,
// or DDL statement.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	if len(args) != 0 {
		return nil, ErrBoundParametersUnsupported
	}
	return s.exec(context.Background())
}

// Query executes a query that may return rows, such as a SELECT.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	if len(args) != 0 {
		return nil, ErrBoundParametersUnsupported
	}
	return s.query(context.Background())
}

// ExecContext executes a query that doesn't return rows.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if len(args) != 0 {
		return nil, ErrBoundParametersUnsupported
	}
	return s.exec(ctx)
}

// QueryContext executes a query that may return rows.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) != 0 {
		return nil, ErrBoundParametersUnsupported
	}
	return s.query(ctx)
}

func (s *Stmt) exec(ctx context.Context) (driver.Result, error) {
	qctx := s.conn.newContextWithQuery(ctx, s.queryStr)
	result, err := s.conn.state.engine.Query(qctx, s.queryStr)
	if err != nil {
		return nil, err
	}
	return newResult(result)
}

func (s *Stmt) query(ctx context.Context) (driver.Rows, error) {
	qctx := s.conn.newContextWithQuery(ctx, s.queryStr)
	result, err := s.conn.state.engine.Query(qctx, s.queryStr)
	if err != nil {
		return nil, err
	}
	return &Rows{table: result, idx: 0}, nil
}
