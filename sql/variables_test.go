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

func TestParseOptimizerLevelRoundTrip(t *testing.T) {
	require := require.New(t)
	for _, name := range []string{"NONE", "BASIC", "STANDARD", "AGGRESSIVE", "FULL"} {
		lvl, ok := sql.ParseOptimizerLevel(name)
		require.True(ok, name)
		require.Equal(name, lvl.String())
	}
}

func TestParseOptimizerLevelUnknownFallsBackToStandard(t *testing.T) {
	require := require.New(t)
	lvl, ok := sql.ParseOptimizerLevel("BOGUS")
	require.False(ok)
	require.Equal(sql.OptimizerStandard, lvl)
}

func TestSystemVariablesDefaults(t *testing.T) {
	require := require.New(t)
	sv := sql.NewSystemVariables()
	require.False(sv.ParallelExecution())
	require.Equal(sql.OptimizerStandard, sv.OptimizerLevel())
}

func TestSystemVariablesGetSetIsCaseInsensitive(t *testing.T) {
	require := require.New(t)
	sv := sql.NewSystemVariables()
	sv.Set("Parallel_Execution", sql.NewBool(true))
	require.True(sv.Get("parallel_execution").Bool())
	require.True(sv.ParallelExecution())
}

func TestSystemVariablesUnknownNameReadsNull(t *testing.T) {
	sv := sql.NewSystemVariables()
	require.True(t, sv.Get("no_such_variable").IsNull())
}

func TestSystemVariablesOptimizerLevelFollowsSet(t *testing.T) {
	require := require.New(t)
	sv := sql.NewSystemVariables()
	sv.Set("optimizer_level", sql.NewString("FULL"))
	require.Equal(sql.OptimizerFull, sv.OptimizerLevel())
}

func TestScriptVariablesDeclareThenSetThenGet(t *testing.T) {
	require := require.New(t)
	sv := sql.NewScriptVariables()

	_, ok := sv.Get("x")
	require.False(ok)

	sv.Declare("x", sql.TypeInt64)
	v, ok := sv.Get("x")
	require.True(ok)
	require.True(v.IsNull())

	sv.Set("X", sql.NewInt64(5))
	v, ok = sv.Get("x")
	require.True(ok)
	require.Equal(sql.NewInt64(5), v)
}

func TestScriptVariablesDeclareDoesNotClobberExistingValue(t *testing.T) {
	require := require.New(t)
	sv := sql.NewScriptVariables()
	sv.Set("x", sql.NewInt64(1))
	sv.Declare("x", sql.TypeInt64)
	v, ok := sv.Get("x")
	require.True(ok)
	require.Equal(sql.NewInt64(1), v)
}
