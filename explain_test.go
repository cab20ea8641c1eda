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

package bqlite_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite"
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/plan"
)

func explainTestSchema() sql.Schema {
	return sql.Schema{sql.NewField("t", "id", sql.TypeInt64, false)}
}

func TestExplainTableShape(t *testing.T) {
	require := require.New(t)
	logical := plan.NewScan("default", "t", "", explainTestSchema())
	physical := plan.NewScan("default", "t", "", explainTestSchema())

	out := bqlite.ExplainTable(logical, physical)
	require.Equal(2, out.RowCount())
	require.Equal("plan_type", out.Schema[0].Name)
	require.Equal("plan", out.Schema[1].Name)
	require.Equal("logical", out.Cols[0].GetValue(0).String())
	require.Equal("physical", out.Cols[0].GetValue(1).String())
	require.Contains(out.Cols[1].GetValue(0).String(), "Scan")
}

func TestExplainAnalyzeTableAddsTimingRows(t *testing.T) {
	require := require.New(t)
	logical := plan.NewScan("default", "t", "", explainTestSchema())
	physical := plan.NewScan("default", "t", "", explainTestSchema())

	out := bqlite.ExplainAnalyzeTable(logical, physical, 1500*time.Microsecond, 3)
	require.Equal(4, out.RowCount())
	require.Equal("execution_time", out.Cols[0].GetValue(2).String())
	require.Equal("1500", out.Cols[1].GetValue(2).String())
	require.Equal("rows_returned", out.Cols[0].GetValue(3).String())
	require.Equal("3", out.Cols[1].GetValue(3).String())
}
