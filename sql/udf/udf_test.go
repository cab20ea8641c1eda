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

package udf_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/udf"
)

func TestCallExpressionFunction(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("test")

	body := expression.NewBinaryOp(
		expression.OpAdd,
		expression.NewVariable("x", sql.TypeInt64),
		expression.NewVariable("y", sql.TypeInt64),
		sql.TypeInt64,
	)
	db.AddFunction(&sql.FunctionDefinition{
		Name:       "add_two",
		Params:     []*sql.Field{sql.NewField("", "x", sql.TypeInt64, true), sql.NewField("", "y", sql.TypeInt64, true)},
		ReturnType: sql.TypeInt64,
		Kind:       sql.FunctionExpression,
		Body:       expression.Expr(body),
	})

	caller := udf.NewCaller(db, udf.NoSandbox{})
	v, ok, err := caller.Call("add_two", []sql.Value{sql.NewInt64(2), sql.NewInt64(3)})
	require.NoError(err)
	require.True(ok)
	require.Equal(int64(5), v.Int64())
}

func TestCallUnknownFunctionNotFound(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("test")
	caller := udf.NewCaller(db, udf.NoSandbox{})
	_, ok, err := caller.Call("nope", nil)
	require.NoError(err)
	require.False(ok)
}

func TestCallScriptedWithoutSandboxIsUnsupported(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("test")
	db.AddFunction(&sql.FunctionDefinition{
		Name:       "py_fn",
		Params:     nil,
		ReturnType: sql.TypeInt64,
		Kind:       sql.FunctionScripted,
		Source:     "return 1",
	})

	caller := udf.NewCaller(db, nil)
	_, _, err := caller.Call("py_fn", nil)
	require.Error(err)
}

type slowSandbox struct{ delay time.Duration }

func (s slowSandbox) Run(source string, params []string, args []sql.Value) (sql.Value, error) {
	time.Sleep(s.delay)
	return sql.NewInt64(1), nil
}

func TestCallScriptedTimesOut(t *testing.T) {
	require := require.New(t)
	db := sql.NewDatabase("test")
	db.AddFunction(&sql.FunctionDefinition{
		Name:       "slow_fn",
		Kind:       sql.FunctionScripted,
		ReturnType: sql.TypeInt64,
		Source:     "sleep",
	})

	caller := udf.NewCaller(db, slowSandbox{delay: 50 * time.Millisecond})
	caller.Timeout = 5 * time.Millisecond
	_, _, err := caller.Call("slow_fn", nil)
	require.Error(err)
}
