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
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/driver"
)

func sqlOpen(t *testing.T, provider driver.Provider, dsn string) *sql.DB {
	t.Helper()
	connector, err := driver.New(provider).OpenConnector(dsn)
	require.NoError(t, err)
	return sql.OpenDB(connector)
}

type Records [][]any

func (records Records) Rows(rows ...int) Records {
	result := make(Records, len(rows))
	for i := range rows {
		result[i] = records[rows[i]]
	}
	return result
}

func (records Records) Columns(cols ...int) Records {
	result := make(Records, len(records))
	for i := range records {
		result[i] = make([]any, len(cols))
		for j := range cols {
			result[i][j] = records[i][cols[j]]
		}
	}
	return result
}
