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

package eval

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

func evalStructExpr(ctx *Context, s *expression.StructExpr, table *sql.Table) (*sql.Column, error) {
	elemCols, err := evalChildren(ctx, table, s.Elems...)
	if err != nil {
		return nil, err
	}
	n := table.RowCount()
	out := sql.NewColumn(sql.TypeStruct, n)
	for row := 0; row < n; row++ {
		fields := make([]sql.StructField, len(s.Names))
		for i, name := range s.Names {
			v := sql.Null
			if !elemCols[i].IsNull(row) {
				v = elemCols[i].GetValue(row)
			}
			fields[i] = sql.StructField{Name: name, Value: v}
		}
		out.Set(row, sql.NewStruct(fields))
	}
	return out, nil
}

func evalArrayExpr(ctx *Context, a *expression.ArrayExpr, table *sql.Table) (*sql.Column, error) {
	elemCols, err := evalChildren(ctx, table, a.Elems...)
	if err != nil {
		return nil, err
	}
	n := table.RowCount()
	out := sql.NewColumn(sql.TypeArray, n)
	for row := 0; row < n; row++ {
		elems := make([]sql.Value, len(elemCols))
		for i, c := range elemCols {
			if c.IsNull(row) {
				elems[i] = sql.Null
				continue
			}
			elems[i] = c.GetValue(row)
		}
		out.Set(row, sql.NewArray(elems))
	}
	return out, nil
}

// evalStructAccess reads a named field off a struct-typed expression: any
// non-struct or missing-field case yields Null rather than an error.
func evalStructAccess(ctx *Context, s *expression.StructAccess, table *sql.Table) (*sql.Column, error) {
	target, err := Evaluate(ctx, s.Target, table)
	if err != nil {
		return nil, err
	}
	n := table.RowCount()
	out := sql.NewColumn(s.Typ, n)
	for i := 0; i < n; i++ {
		if target.IsNull(i) {
			continue
		}
		v := target.GetValue(i)
		if v.Type() != sql.TypeStruct {
			continue
		}
		fv, ok := v.StructFieldByName(s.Field)
		if !ok || fv.IsNull() {
			continue
		}
		out.Set(i, fv)
	}
	return out, nil
}

// evalArrayAccess reads array[index] under the four supported access
// modes. It also serves JSON array/object navigation by a single index or
// key, sharing the same combined handler.
func evalArrayAccess(ctx *Context, a *expression.ArrayAccess, table *sql.Table) (*sql.Column, error) {
	arrCol, err := Evaluate(ctx, a.Target, table)
	if err != nil {
		return nil, err
	}
	idxCol, err := Evaluate(ctx, a.Index, table)
	if err != nil {
		return nil, err
	}

	n := table.RowCount()
	out := sql.NewColumn(a.Typ, n)
	for i := 0; i < n; i++ {
		if arrCol.IsNull(i) || idxCol.IsNull(i) {
			continue
		}
		arr := arrCol.GetValue(i)
		idxVal := idxCol.GetValue(i).Int64()

		if arr.Type() == sql.TypeJSON {
			v, ok := navigateJSONIndexOrKey(arr, idxCol.GetValue(i))
			if ok && !v.IsNull() {
				out.Set(i, v)
			}
			continue
		}
		if arr.Type() != sql.TypeArray {
			continue
		}
		elements := arr.Array()

		var actualIdx int64
		var safe bool
		switch {
		case a.Mode.IsZeroIndexed():
			actualIdx = idxVal
		default:
			actualIdx = idxVal - 1
		}
		safe = a.Mode.IsSafe()

		if idxVal < 0 || actualIdx < 0 || actualIdx >= int64(len(elements)) {
			if safe {
				continue
			}
			return nil, sql.ErrInvalidQuery.New("array index out of bounds")
		}
		v := elements[actualIdx]
		if !v.IsNull() {
			out.Set(i, v)
		}
	}
	return out, nil
}

func navigateJSONIndexOrKey(jv sql.Value, idx sql.Value) (sql.Value, bool) {
	doc := jv.JSON().Doc
	switch idx.Type() {
	case sql.TypeInt64:
		arr, ok := doc.([]any)
		if !ok {
			return sql.Null, false
		}
		i := idx.Int64()
		if i < 0 || i >= int64(len(arr)) {
			return sql.Null, true
		}
		return sql.NewJSON(arr[i]), true
	case sql.TypeString:
		obj, ok := doc.(map[string]any)
		if !ok {
			return sql.Null, false
		}
		v, ok := obj[idx.String()]
		if !ok {
			return sql.Null, true
		}
		return sql.NewJSON(v), true
	default:
		return sql.Null, false
	}
}

// evalJSONAccess walks a dotted/indexed JSON path: any miss or type
// mismatch at any step yields Null, never an error.
func evalJSONAccess(ctx *Context, j *expression.JSONAccess, table *sql.Table) (*sql.Column, error) {
	target, err := Evaluate(ctx, j.Target, table)
	if err != nil {
		return nil, err
	}
	n := table.RowCount()
	out := sql.NewColumn(sql.TypeJSON, n)
	for i := 0; i < n; i++ {
		if target.IsNull(i) {
			continue
		}
		cur := target.GetValue(i)
		for _, elem := range j.Path {
			cur = navigateJSONPathElem(cur, elem)
			if cur.IsNull() {
				break
			}
		}
		if !cur.IsNull() {
			out.Set(i, cur)
		}
	}
	return out, nil
}

func navigateJSONPathElem(v sql.Value, elem expression.JSONPathElem) sql.Value {
	if v.IsNull() || v.Type() != sql.TypeJSON {
		return sql.Null
	}
	doc := v.JSON().Doc
	if elem.IsIndex {
		arr, ok := doc.([]any)
		if !ok || elem.Index < 0 || elem.Index >= int64(len(arr)) {
			return sql.Null
		}
		return sql.NewJSON(arr[elem.Index])
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return sql.Null
	}
	val, ok := obj[elem.Key]
	if !ok {
		return sql.Null
	}
	return sql.NewJSON(val)
}
