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

// Package analyzer implements the semantic planning pass: name resolution
// against a LogicalPlan's schema, aggregate hoisting for
// HAVING/ORDER BY/QUALIFY, and recursive-CTE schema derivation.
// sql/planbuilder calls into it while building (AST -> resolved
// LogicalPlan); the result then goes to sql/optimizer.
package analyzer

import (
	"strings"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// ResolveIdentifier looks up a possibly-qualified identifier against
// schema. parts is the dot-separated identifier split left to right:
// a may be a table alias or a struct column. On a struct
// fallback -- parts[0] matches a column name, not a table -- the
// remaining parts become a StructAccess chain rooted at that column.
func ResolveIdentifier(schema sql.Schema, parts []string) (expression.Expr, error) {
	if len(parts) == 0 {
		return nil, sql.ErrInternal.New("empty identifier")
	}
	if len(parts) == 1 {
		return resolveBareName(schema, parts[0])
	}

	// Try table.column first (two-part), then build up a struct-access
	// chain over whatever prefix resolves to a column.
	if idx := schema.IndexOf(parts[1], parts[0]); idx >= 0 {
		f := schema[idx]
		col := expression.NewColumn(f.TableName, f.Name, idx, f.Type, f.Nullable)
		return applyStructAccess(col, parts[2:])
	}
	if idx := schema.IndexOf(parts[1], parts[0]); idx == -2 {
		return nil, sql.ErrAmbiguousColumnName.New(strings.Join(parts[:2], "."))
	}

	// Fall back: parts[0] might itself be a bare column (a STRUCT-typed
	// column), with the rest a field-access path.
	base, err := resolveBareName(schema, parts[0])
	if err != nil {
		return nil, err
	}
	return applyStructAccess(base, parts[1:])
}

func resolveBareName(schema sql.Schema, name string) (expression.Expr, error) {
	idx := schema.IndexOf(name, "")
	switch idx {
	case -1:
		return nil, sql.ErrColumnNotFound.New(name)
	case -2:
		return nil, sql.ErrAmbiguousColumnName.New(name)
	default:
		f := schema[idx]
		return expression.NewColumn(f.TableName, f.Name, idx, f.Type, f.Nullable), nil
	}
}

func applyStructAccess(base expression.Expr, fields []string) (expression.Expr, error) {
	cur := base
	for _, f := range fields {
		cur = expression.NewStructAccess(cur, f, cur.Type())
	}
	return cur, nil
}

// ResolveTableStar expands a bare table-qualifier reference (`SELECT t` or
// `SELECT t.*`) into its constituent columns: if no fields match the
// table qualifier, this returns ErrColumnNotFound naming the qualifier.
func ResolveTableStar(schema sql.Schema, table string) ([]expression.Expr, error) {
	fields := schema.FieldsForTable(table)
	if len(fields) == 0 {
		return nil, sql.ErrColumnNotFound.New(table)
	}
	out := make([]expression.Expr, len(fields))
	for i, f := range fields {
		idx := schema.IndexOf(f.Name, f.TableName)
		out[i] = expression.NewColumn(f.TableName, f.Name, idx, f.Type, f.Nullable)
	}
	return out, nil
}
