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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	mtb, records := personMemTable("db", "person")
	db := sqlOpen(t, mtb, t.Name())

	t.Run("Select All", func(t *testing.T) {
		rows, err := db.Query("SELECT name, email, created_at FROM person")
		require.NoError(t, err)
		defer rows.Close()

		var i int
		for ; rows.Next(); i++ {
			var name, email, createdAt string
			require.NoError(t, rows.Scan(&name, &email, &createdAt))
			require.Less(t, i, len(records))
			assert.Equal(t, records[i][0], name)
			assert.Equal(t, records[i][1], email)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, len(records), i)
	})

	t.Run("Select Name", func(t *testing.T) {
		rows, err := db.Query("SELECT name FROM person ORDER BY name")
		require.NoError(t, err)
		defer rows.Close()

		var names []string
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			names = append(names, name)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []string{"Evil Bob", "Jane Doe", "John Doe", "John Doe"}, names)
	})

	t.Run("Select Count", func(t *testing.T) {
		rows, err := db.Query("SELECT COUNT(1) FROM person")
		require.NoError(t, err)
		defer rows.Close()

		require.True(t, rows.Next())
		var count int64
		require.NoError(t, rows.Scan(&count))
		assert.EqualValues(t, len(records), count)
	})

	t.Run("Insert then Select", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO person (name, email, created_at) VALUES ('foo', 'bar', TIMESTAMP('2024-01-01 00:00:00 UTC'))`)
		require.NoError(t, err)

		rows, err := db.Query("SELECT name, email FROM person WHERE name = 'foo'")
		require.NoError(t, err)
		defer rows.Close()

		require.True(t, rows.Next())
		var name, email string
		require.NoError(t, rows.Scan(&name, &email))
		assert.Equal(t, "foo", name)
		assert.Equal(t, "bar", email)
	})

	t.Run("Rejects bound parameters", func(t *testing.T) {
		_, err := db.Query("SELECT name FROM person WHERE name = ?", "foo")
		require.Error(t, err)
	})
}

func TestExec(t *testing.T) {
	mtb, _ := personMemTable("db", "person")
	db := sqlOpen(t, mtb, t.Name())

	cases := []struct {
		Name, Statement string
		RowsAffected    int64
	}{
		{"Insert", `INSERT INTO person (name, email, created_at) VALUES ('asdf', 'qwer', TIMESTAMP('2024-01-01 00:00:00 UTC'))`, 1},
		{"Update", "UPDATE person SET name = 'foo' WHERE name = 'asdf'", 1},
		{"Delete", "DELETE FROM person WHERE name = 'foo'", 1},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			res, err := db.Exec(c.Statement)
			require.NoError(t, err)

			count, err := res.RowsAffected()
			require.NoError(t, err)
			assert.Equal(t, c.RowsAffected, count)
		})
	}

	t.Run("Truncate leaves zero rows", func(t *testing.T) {
		_, err := db.Exec("TRUNCATE TABLE person")
		require.NoError(t, err)

		rows, err := db.Query("SELECT COUNT(1) FROM person")
		require.NoError(t, err)
		defer rows.Close()

		require.True(t, rows.Next())
		var count int64
		require.NoError(t, rows.Scan(&count))
		assert.EqualValues(t, 0, count)
	})

	t.Run("Select via Exec is rejected", func(t *testing.T) {
		res, err := db.Exec("SELECT * FROM person")
		require.NoError(t, err)

		_, err = res.RowsAffected()
		require.Error(t, err)
	})
}
