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

import "strings"

// Field describes one output column: its name, type, nullability, and the
// table qualifier it is scoped under (empty for computed/aliased columns).
type Field struct {
	Name      string
	Type      TypeID
	Nullable  bool
	TableName string
}

// NewField builds a Field.
func NewField(tableName, name string, typ TypeID, nullable bool) *Field {
	return &Field{Name: name, Type: typ, Nullable: nullable, TableName: tableName}
}

// Schema is an ordered sequence of Fields. Field position is load-bearing:
// Expr.Column.Index points into a Schema by position, not name.
type Schema []*Field

// IndexOf performs a case-insensitive name lookup, optionally scoped to a
// table qualifier. It returns -1 if no field matches, and -2 if more than
// one unqualified field matches (ambiguous).
func (s Schema) IndexOf(name, table string) int {
	found := -1
	for i, f := range s {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		if table != "" && !strings.EqualFold(f.TableName, table) {
			continue
		}
		if found != -1 {
			return -2
		}
		found = i
	}
	return found
}

// FieldsForTable returns every field whose TableName matches (used by the
// analyzer's bare-identifier struct-dereference fallback: `SELECT t` where
// t is a table qualifier expands into a STRUCT of all of t's columns).
func (s Schema) FieldsForTable(table string) Schema {
	var out Schema
	for _, f := range s {
		if strings.EqualFold(f.TableName, table) {
			out = append(out, f)
		}
	}
	return out
}

// Concat returns the schema formed by placing other after s, used by joins
// and set-operation schema propagation.
func (s Schema) Concat(other Schema) Schema {
	out := make(Schema, 0, len(s)+len(other))
	out = append(out, s...)
	out = append(out, other...)
	return out
}

// Names returns the field names in order, used by EXPLAIN rendering and by
// struct-construction-from-table-qualifier.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// Project returns the sub-schema selected by indices, in the order given.
// Used by the optimizer's projection-pushdown pass on Scan nodes.
func (s Schema) Project(indices []int) Schema {
	out := make(Schema, len(indices))
	for i, idx := range indices {
		out[i] = s[idx]
	}
	return out
}
