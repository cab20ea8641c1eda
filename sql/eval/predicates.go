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

// evalBetween is `target BETWEEN lo AND hi`: computed as (target >= lo)
// AND (target <= hi) via Column's own three-valued helpers, so NULL
// propagation falls out of BinaryCompare/BinaryAnd rather than being
// handled here.
func evalBetween(ctx *Context, b *expression.Between, table *sql.Table) (*sql.Column, error) {
	target, err := Evaluate(ctx, b.Target, table)
	if err != nil {
		return nil, err
	}
	lo, err := Evaluate(ctx, b.Lo, table)
	if err != nil {
		return nil, err
	}
	hi, err := Evaluate(ctx, b.Hi, table)
	if err != nil {
		return nil, err
	}
	geLo := target.BinaryCompare(lo, compareVals, ">=")
	leHi := target.BinaryCompare(hi, compareVals, "<=")
	inRange := geLo.BinaryAnd(leHi)
	if b.Negated {
		return inRange.UnaryNot(), nil
	}
	return inRange, nil
}

// evalIsDistinctFrom treats NULL as a comparable value, unlike `=`: two
// NULLs are NOT DISTINCT FROM each other, and the result is never itself
// NULL.
func evalIsDistinctFrom(ctx *Context, e *expression.IsDistinctFrom, table *sql.Table) (*sql.Column, error) {
	left, err := Evaluate(ctx, e.Left, table)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(ctx, e.Right, table)
	if err != nil {
		return nil, err
	}
	n := table.RowCount()
	out := sql.NewColumn(sql.TypeBool, n)
	for i := 0; i < n; i++ {
		lNull, rNull := left.IsNull(i), right.IsNull(i)
		var distinct bool
		switch {
		case lNull && rNull:
			distinct = false
		case lNull != rNull:
			distinct = true
		default:
			distinct = !valuesEqual(left.GetValue(i), right.GetValue(i))
		}
		if e.Negated {
			distinct = !distinct
		}
		out.Set(i, sql.NewBool(distinct))
	}
	return out, nil
}

// evalInList implements `target [NOT] IN (list...)`: TRUE if any element
// equals target, else NULL if any element was NULL, else FALSE; negation
// inverts TRUE/FALSE but leaves NULL untouched.
func evalInList(ctx *Context, in *expression.InList, table *sql.Table) (*sql.Column, error) {
	target, err := Evaluate(ctx, in.Target, table)
	if err != nil {
		return nil, err
	}
	listCols, err := evalChildren(ctx, table, in.List...)
	if err != nil {
		return nil, err
	}

	n := table.RowCount()
	out := sql.NewColumn(sql.TypeBool, n)
	for i := 0; i < n; i++ {
		if target.IsNull(i) {
			continue
		}
		v := target.GetValue(i)
		found, hasNull := false, false
		for _, lc := range listCols {
			if lc.IsNull(i) {
				hasNull = true
				continue
			}
			if valuesEqual(v, lc.GetValue(i)) {
				found = true
				break
			}
		}
		switch {
		case found:
			out.Set(i, sql.NewBool(!in.Negated))
		case hasNull:
			// stays null
		default:
			out.Set(i, sql.NewBool(in.Negated))
		}
	}
	return out, nil
}

// evalInUnnest is the array-valued analog of evalInList.
func evalInUnnest(ctx *Context, in *expression.InUnnest, table *sql.Table) (*sql.Column, error) {
	target, err := Evaluate(ctx, in.Target, table)
	if err != nil {
		return nil, err
	}
	arrCol, err := Evaluate(ctx, in.Array, table)
	if err != nil {
		return nil, err
	}

	n := table.RowCount()
	out := sql.NewColumn(sql.TypeBool, n)
	for i := 0; i < n; i++ {
		if target.IsNull(i) || arrCol.IsNull(i) {
			continue
		}
		v := target.GetValue(i)
		found, hasNull := false, false
		for _, elem := range arrCol.GetValue(i).Array() {
			if elem.IsNull() {
				hasNull = true
				continue
			}
			if valuesEqual(v, elem) {
				found = true
				break
			}
		}
		switch {
		case found:
			out.Set(i, sql.NewBool(!in.Negated))
		case hasNull:
		default:
			out.Set(i, sql.NewBool(in.Negated))
		}
	}
	return out, nil
}
