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

// Package udf resolves CREATE FUNCTION/CREATE PROCEDURE definitions
// registered in the catalog against a call site: a pure expression.Expr
// body is evaluated directly, a scripted body is handed to a Sandbox
// under a wall-clock budget -- a worker goroutine racing a timeout,
// rather than an in-process call that could hang the caller forever.
package udf

import (
	"time"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/expression"
)

// DefaultTimeout is the wall-clock budget given to a scripted function call.
const DefaultTimeout = 5 * time.Second

// DefaultCodeSizeLimit bounds a scripted function body's source size.
const DefaultCodeSizeLimit = 1024 * 1024

// Sandbox runs a scripted function body in isolation from the calling
// goroutine. Implementations are expected to enforce their own memory and
// recursion limits; Caller only enforces the wall-clock budget.
type Sandbox interface {
	// Run executes source with params bound to args in order, returning
	// the scalar result.
	Run(source string, params []string, args []sql.Value) (sql.Value, error)
}

// Caller dispatches ScalarFunction calls not recognized by eval's builtin
// registry to db's registered user functions, implementing
// eval.UserFunctionCaller so sql/eval never imports sql/udf or sql.Catalog
// directly (see sql/eval/eval.go's UserFunctionCaller doc comment).
type Caller struct {
	DB      *sql.Database
	Sandbox Sandbox
	Timeout time.Duration
}

// NewCaller builds a Caller scoped to db. sandbox may be nil if the
// database has no scripted functions registered; calling a scripted
// function through a nil sandbox returns ErrUnsupported.
func NewCaller(db *sql.Database, sandbox Sandbox) *Caller {
	return &Caller{DB: db, Sandbox: sandbox, Timeout: DefaultTimeout}
}

var _ eval.UserFunctionCaller = (*Caller)(nil)

// Call implements eval.UserFunctionCaller.
func (c *Caller) Call(name string, args []sql.Value) (sql.Value, bool, error) {
	def, ok := c.DB.Function(name)
	if !ok {
		return sql.Null, false, nil
	}
	if len(args) != len(def.Params) {
		return sql.Null, true, sql.ErrUserFunctionError.New(name, "argument count mismatch")
	}

	var (
		v   sql.Value
		err error
	)
	switch def.Kind {
	case sql.FunctionExpression:
		v, err = c.callExpression(def, args)
	case sql.FunctionScripted:
		v, err = c.callScripted(def, args)
	default:
		err = sql.ErrInternal.New("unknown function kind for " + name)
	}
	if err != nil {
		return sql.Null, true, err
	}
	return v, true, nil
}

// callExpression binds each parameter as an eval.Context variable and
// evaluates def.Body (an expression.Expr) against a single placeholder row,
// the same one-row-table trick sql/rowexec uses for VALUES and correlated
// predicates.
func (c *Caller) callExpression(def *sql.FunctionDefinition, args []sql.Value) (sql.Value, error) {
	body, ok := def.Body.(expression.Expr)
	if !ok {
		return sql.Null, sql.ErrInternal.New("expression function body has wrong type: " + def.Name)
	}

	vars := make(map[string]sql.Value, len(def.Params))
	for i, p := range def.Params {
		vars[p.Name] = args[i]
	}

	ectx := &eval.Context{Variables: vars}
	placeholder := sql.NewColumn(sql.TypeBool, 1)
	one := &sql.Table{
		Schema: sql.Schema{sql.NewField("", "", sql.TypeBool, true)},
		Cols:   []*sql.Column{placeholder},
	}
	col, err := eval.Evaluate(ectx, body, one)
	if err != nil {
		return sql.Null, err
	}
	if col.IsNull(0) {
		return sql.Null, nil
	}
	return col.GetValue(0), nil
}

// callScripted runs a worker goroutine racing c.Timeout, so a runaway
// script cannot block the calling statement forever -- the goroutine
// itself is leaked on timeout rather than killed, a deliberate
// fire-and-forget tradeoff.
func (c *Caller) callScripted(def *sql.FunctionDefinition, args []sql.Value) (sql.Value, error) {
	if c.Sandbox == nil {
		return sql.Null, sql.ErrUnsupported.New("scripted user functions (no sandbox configured)")
	}
	if len(def.Source) > DefaultCodeSizeLimit {
		return sql.Null, sql.ErrUserFunctionError.New(def.Name, "source exceeds size limit")
	}

	params := make([]string, len(def.Params))
	for i, p := range def.Params {
		params[i] = p.Name
	}

	type result struct {
		v   sql.Value
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := c.Sandbox.Run(def.Source, params, args)
		ch <- result{v, err}
	}()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	select {
	case r := <-ch:
		if r.err != nil {
			return sql.Null, sql.ErrUserFunctionError.New(def.Name, r.err.Error())
		}
		return r.v, nil
	case <-time.After(timeout):
		return sql.Null, sql.ErrUserFunctionTimeout.New(def.Name, timeout.String())
	}
}
