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

package sql

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

// Error kinds. These map onto the error taxonomy that statement execution
// surfaces to callers; they are never created directly, only through
// .New(...).
var (
	// ErrParse covers malformed SQL syntax and unparseable literals.
	ErrParse = errors.NewKind("parse error: %s")

	// ErrInvalidQuery covers type mismatches, unresolved names, bad
	// argument counts, out-of-range strict array access, unknown
	// timezones, and invalid regexes.
	ErrInvalidQuery = errors.NewKind("invalid query: %s")

	// ErrUnsupported covers constructs that parse but are not
	// implemented.
	ErrUnsupported = errors.NewKind("unsupported: %s")

	// ErrIntervalOverflow fires when interval construction overflows
	// i32 months, i32 days, or i64 nanos.
	ErrIntervalOverflow = errors.NewKind("interval overflow in %s")

	// ErrDivisionByZero fires only on strict (non-SAFE.) division.
	ErrDivisionByZero = errors.NewKind("division by zero")

	// ErrConstraintViolation covers NOT NULL, PRIMARY KEY, and UNIQUE
	// violations on INSERT/UPDATE.
	ErrConstraintViolation = errors.NewKind("constraint violation: %s")

	// ErrUserFunctionError covers scripted scalar function failures.
	ErrUserFunctionError = errors.NewKind("user function %s failed: %s")

	// ErrUserFunctionTimeout fires when a scripted scalar function call
	// exceeds its wall-clock budget.
	ErrUserFunctionTimeout = errors.NewKind("user function %s timed out after %s")

	// ErrInternal marks invariant violations that should not fire in
	// released code.
	ErrInternal = errors.NewKind("internal error: %s")
)

// Additional narrow kinds referenced by name from several packages.
var (
	ErrTableNotFound       = errors.NewKind("table not found: %s")
	ErrTableAlreadyExists  = errors.NewKind("table already exists: %s")
	ErrViewNotFound        = errors.NewKind("view not found: %s")
	ErrViewAlreadyExists   = errors.NewKind("view already exists: %s")
	ErrColumnNotFound      = errors.NewKind("column not found: %s")
	ErrAmbiguousColumnName = errors.NewKind("ambiguous column name: %s")
	ErrFunctionNotFound    = errors.NewKind("function not found: %s")
	ErrKeyNotFound         = errors.NewKind("key not found")
)
