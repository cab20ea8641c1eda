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

func TestErrorKindsFormatTheirArguments(t *testing.T) {
	require := require.New(t)
	require.Contains(sql.ErrTableNotFound.New("orders").Error(), "orders")
	require.Contains(sql.ErrColumnNotFound.New("id").Error(), "id")
	require.Contains(sql.ErrDivisionByZero.New().Error(), "division by zero")
}

func TestErrorKindsAreDistinguishableByIs(t *testing.T) {
	require := require.New(t)
	err := sql.ErrTableNotFound.New("orders")
	require.True(sql.ErrTableNotFound.Is(err))
	require.False(sql.ErrViewNotFound.Is(err))
}

func TestConstraintViolationCarriesMessage(t *testing.T) {
	err := sql.ErrConstraintViolation.New("PRIMARY KEY on orders.id")
	require.Contains(t, err.Error(), "PRIMARY KEY on orders.id")
}
