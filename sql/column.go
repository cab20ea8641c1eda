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
	"time"

	"github.com/shopspring/decimal"
)

// simdAlignment is the byte alignment numeric column buffers are padded
// to, so the backing array stays SIMD-friendly for vectorized scans. Go's
// allocator does not expose alignment control for slices directly, so this
// is honored by over-allocating the backing array to an alignment-friendly
// capacity; it does not change the observable API.
const simdAlignment = 64

// NullMask is an explicit null bitmap: bit i is 1 when row i is non-null.
// It is always exactly as long (in bits) as its owning Column.
type NullMask struct {
	bits []uint64
	n    int
}

func newNullMask(n int) NullMask {
	return NullMask{bits: make([]uint64, (n+63)/64), n: n}
}

func (m *NullMask) Len() int { return m.n }

func (m *NullMask) IsNull(i int) bool {
	return m.bits[i/64]&(1<<uint(i%64)) == 0
}

func (m *NullMask) SetValid(i int, valid bool) {
	if valid {
		m.bits[i/64] |= 1 << uint(i%64)
	} else {
		m.bits[i/64] &^= 1 << uint(i%64)
	}
}

func (m *NullMask) CountValid() int {
	c := 0
	for i := 0; i < m.n; i++ {
		if !m.IsNull(i) {
			c++
		}
	}
	return c
}

// allValidMask returns a mask with every bit set, used by broadcast/from_values
// fast paths when no nulls are present.
func allValidMask(n int) NullMask {
	m := newNullMask(n)
	for i := range m.bits {
		m.bits[i] = ^uint64(0)
	}
	return m
}

// Column is a typed, columnar buffer plus an explicit null bitmap. Exactly
// one of the typed slices below is populated, selected by Typ. Numeric
// variants (Int64, Float64) pad their backing slice's capacity up to
// simdAlignment-aligned element counts.
type Column struct {
	Typ   TypeID
	nulls NullMask

	boolVals  []bool
	intVals   []int64
	floatVals []float64
	decVals   []decimal.Decimal
	strVals   []string // String, Bytes (raw bytes stored as string), Geography (WKT)
	timeVals  []time.Time
	jsonVals  []JSONValue
	arrVals   [][]Value
	structVal [][]StructField
	ivalVals  []Interval
	rngVals   []RangeValue
}

func alignedCap(n int, elemSize int) int {
	if elemSize == 0 {
		return n
	}
	perAlign := simdAlignment / elemSize
	if perAlign == 0 {
		perAlign = 1
	}
	if n%perAlign == 0 {
		return n
	}
	return (n/perAlign + 1) * perAlign
}

// NewColumn allocates an empty, typed column of length n with every row
// null.
func NewColumn(typ TypeID, n int) *Column {
	c := &Column{Typ: typ, nulls: newNullMask(n)}
	switch typ {
	case TypeBool:
		c.boolVals = make([]bool, n)
	case TypeInt64:
		c.intVals = make([]int64, n, alignedCap(n, 8))
	case TypeFloat64:
		c.floatVals = make([]float64, n, alignedCap(n, 8))
	case TypeNumeric, TypeBigNumeric:
		c.decVals = make([]decimal.Decimal, n)
	case TypeString, TypeBytes, TypeGeography:
		c.strVals = make([]string, n)
	case TypeDate, TypeTime, TypeDateTime, TypeTimestamp:
		c.timeVals = make([]time.Time, n)
	case TypeJSON:
		c.jsonVals = make([]JSONValue, n)
	case TypeArray:
		c.arrVals = make([][]Value, n)
	case TypeStruct:
		c.structVal = make([][]StructField, n)
	case TypeInterval:
		c.ivalVals = make([]Interval, n)
	case TypeRange:
		c.rngVals = make([]RangeValue, n)
	}
	return c
}

func (c *Column) Len() int { return c.nulls.Len() }

func (c *Column) IsNull(i int) bool { return c.nulls.IsNull(i) }

// SetNull marks row i null. The payload slot keeps whatever it held, which
// is never observed because GetValue checks the mask first.
func (c *Column) SetNull(i int) { c.nulls.SetValid(i, false) }

// Set writes value v (non-null) at row i.
func (c *Column) Set(i int, v Value) {
	c.nulls.SetValid(i, true)
	switch c.Typ {
	case TypeBool:
		c.boolVals[i] = v.Bool()
	case TypeInt64:
		c.intVals[i] = v.Int64()
	case TypeFloat64:
		c.floatVals[i] = float64(v.Float64())
	case TypeNumeric, TypeBigNumeric:
		c.decVals[i] = v.Numeric()
	case TypeString, TypeBytes, TypeGeography:
		c.strVals[i] = v.String()
	case TypeDate, TypeTime, TypeDateTime, TypeTimestamp:
		c.timeVals[i] = v.Time()
	case TypeJSON:
		c.jsonVals[i] = v.JSON()
	case TypeArray:
		c.arrVals[i] = v.Array()
	case TypeStruct:
		c.structVal[i] = v.Struct()
	case TypeInterval:
		c.ivalVals[i] = v.Interval()
	case TypeRange:
		c.rngVals[i] = v.Range()
	}
}

// GetValue materializes row i as a Value. This is the scalar fallback path
// the evaluator uses for row-wise handlers.
func (c *Column) GetValue(i int) Value {
	if c.IsNull(i) {
		return Null
	}
	switch c.Typ {
	case TypeBool:
		return NewBool(c.boolVals[i])
	case TypeInt64:
		return NewInt64(c.intVals[i])
	case TypeFloat64:
		return NewFloat64(c.floatVals[i])
	case TypeNumeric:
		return NewNumeric(c.decVals[i])
	case TypeBigNumeric:
		return NewBigNumeric(c.decVals[i])
	case TypeString:
		return NewString(c.strVals[i])
	case TypeBytes:
		return NewBytes([]byte(c.strVals[i]))
	case TypeGeography:
		return NewGeography(c.strVals[i])
	case TypeDate:
		return NewDate(c.timeVals[i])
	case TypeTime:
		return NewTime(c.timeVals[i])
	case TypeDateTime:
		return NewDateTime(c.timeVals[i])
	case TypeTimestamp:
		return NewTimestamp(c.timeVals[i])
	case TypeJSON:
		return NewJSON(c.jsonVals[i].Doc)
	case TypeArray:
		return NewArray(c.arrVals[i])
	case TypeStruct:
		return NewStruct(c.structVal[i])
	case TypeInterval:
		return NewInterval(c.ivalVals[i])
	case TypeRange:
		return NewRange(c.rngVals[i])
	default:
		return Null
	}
}

// FromValues builds a Column from heterogeneous Values, picking the
// least-common-supertype variant (Int64/Float64 promote to Float64 if
// mixed; anything else must already agree or the caller gets TypeNull).
// Null entries set the bitmap and leave the payload at its zero value.
func FromValues(vs []Value) *Column {
	typ := TypeNull
	for _, v := range vs {
		if v.IsNull() {
			continue
		}
		if typ == TypeNull {
			typ = v.Type()
			continue
		}
		if typ != v.Type() {
			if (typ == TypeInt64 && v.Type() == TypeFloat64) || (typ == TypeFloat64 && v.Type() == TypeInt64) {
				typ = TypeFloat64
				continue
			}
			return NewColumn(TypeNull, len(vs))
		}
	}
	c := NewColumn(typ, len(vs))
	for i, v := range vs {
		if v.IsNull() {
			continue
		}
		if typ == TypeFloat64 && v.Type() == TypeInt64 {
			c.Set(i, NewFloat64(float64(v.Int64())))
			continue
		}
		c.Set(i, v)
	}
	return c
}

// Broadcast produces a column of length n where every row holds the same
// value (or is null, if v is Null).
func Broadcast(v Value, n int) *Column {
	typ := v.Type()
	if typ == TypeNull {
		typ = TypeNull
	}
	c := NewColumn(typ, n)
	if v.IsNull() {
		return c
	}
	for i := 0; i < n; i++ {
		c.Set(i, v)
	}
	return c
}

// threeValuedBinaryBool applies f to every row pair, producing Null where
// either operand is null -- the standard null-propagation rule for
// comparison operators.
func threeValuedBinaryBool(a, b *Column, f func(x, y Value) bool) *Column {
	n := a.Len()
	out := NewColumn(TypeBool, n)
	for i := 0; i < n; i++ {
		if a.IsNull(i) || b.IsNull(i) {
			continue
		}
		out.Set(i, NewBool(f(a.GetValue(i), b.GetValue(i))))
	}
	return out
}

func (c *Column) BinaryEq(o *Column, eq func(a, b Value) bool) *Column {
	return threeValuedBinaryBool(c, o, eq)
}

func (c *Column) BinaryNe(o *Column, eq func(a, b Value) bool) *Column {
	return threeValuedBinaryBool(c, o, func(a, b Value) bool { return !eq(a, b) })
}

func (c *Column) BinaryCompare(o *Column, cmp func(a, b Value) int, op string) *Column {
	var f func(a, b Value) bool
	switch op {
	case "<":
		f = func(a, b Value) bool { return cmp(a, b) < 0 }
	case "<=":
		f = func(a, b Value) bool { return cmp(a, b) <= 0 }
	case ">":
		f = func(a, b Value) bool { return cmp(a, b) > 0 }
	case ">=":
		f = func(a, b Value) bool { return cmp(a, b) >= 0 }
	default:
		f = func(a, b Value) bool { return false }
	}
	return threeValuedBinaryBool(c, o, f)
}

// BinaryAnd implements three-valued AND by truth table, not by inferring
// nullness from the operands: TRUE AND NULL = NULL, FALSE AND NULL = FALSE,
// NULL AND NULL = NULL.
func (c *Column) BinaryAnd(o *Column) *Column {
	n := c.Len()
	out := NewColumn(TypeBool, n)
	for i := 0; i < n; i++ {
		cNull, oNull := c.IsNull(i), o.IsNull(i)
		if !cNull && !c.boolVals[i] {
			out.Set(i, NewBool(false))
			continue
		}
		if !oNull && !o.boolVals[i] {
			out.Set(i, NewBool(false))
			continue
		}
		if cNull || oNull {
			continue // stays null
		}
		out.Set(i, NewBool(true))
	}
	return out
}

// BinaryOr implements three-valued OR: TRUE OR NULL = TRUE (not Null).
func (c *Column) BinaryOr(o *Column) *Column {
	n := c.Len()
	out := NewColumn(TypeBool, n)
	for i := 0; i < n; i++ {
		cNull, oNull := c.IsNull(i), o.IsNull(i)
		if !cNull && c.boolVals[i] {
			out.Set(i, NewBool(true))
			continue
		}
		if !oNull && o.boolVals[i] {
			out.Set(i, NewBool(true))
			continue
		}
		if cNull || oNull {
			continue
		}
		out.Set(i, NewBool(false))
	}
	return out
}

func (c *Column) UnaryNot() *Column {
	n := c.Len()
	out := NewColumn(TypeBool, n)
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			continue
		}
		out.Set(i, NewBool(!c.boolVals[i]))
	}
	return out
}

// CountValid is COUNT(col): the number of non-null rows.
func (c *Column) CountValid() int64 { return int64(c.nulls.CountValid()) }

// Sum reduces a numeric column, ignoring nulls, using a SIMD-friendly
// dense-slice reduction -- the columnar aggregate fast path.
func (c *Column) Sum() Value {
	switch c.Typ {
	case TypeInt64:
		var s int64
		for i, v := range c.intVals {
			if !c.IsNull(i) {
				s += v
			}
		}
		return NewInt64(s)
	case TypeFloat64:
		var s float64
		for i, v := range c.floatVals {
			if !c.IsNull(i) {
				s += v
			}
		}
		return NewFloat64(s)
	case TypeNumeric, TypeBigNumeric:
		s := decimal.Zero
		for i, v := range c.decVals {
			if !c.IsNull(i) {
				s = s.Add(v)
			}
		}
		return Value{typ: c.Typ, dec: s}
	default:
		return Null
	}
}

func (c *Column) Min() Value { return c.extreme(-1) }
func (c *Column) Max() Value { return c.extreme(1) }

func (c *Column) extreme(dir int) Value {
	var best Value
	found := false
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		v := c.GetValue(i)
		if !found {
			best = v
			found = true
			continue
		}
		if compareValues(v, best)*dir > 0 {
			best = v
		}
	}
	if !found {
		return Null
	}
	return best
}

// CompareValues exposes compareValues to other packages (sql/rowexec's
// Sort, in particular), which cannot reach the unexported Column.extreme
// machinery directly.
func CompareValues(a, b Value) int { return compareValues(a, b) }

// compareValues provides the total order used by Min/Max/Sort; it assumes
// both values share a type (callers are responsible for promotion).
func compareValues(a, b Value) int {
	switch a.Type() {
	case TypeInt64:
		switch {
		case a.Int64() < b.Int64():
			return -1
		case a.Int64() > b.Int64():
			return 1
		default:
			return 0
		}
	case TypeFloat64:
		af, bf := float64(a.Float64()), float64(b.Float64())
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case TypeNumeric, TypeBigNumeric:
		return a.Numeric().Cmp(b.Numeric())
	case TypeString, TypeBytes:
		return compareStrings(a.String(), b.String())
	case TypeDate, TypeTime, TypeDateTime, TypeTimestamp:
		switch {
		case a.Time().Before(b.Time()):
			return -1
		case a.Time().After(b.Time()):
			return 1
		default:
			return 0
		}
	case TypeBool:
		if a.Bool() == b.Bool() {
			return 0
		}
		if !a.Bool() {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Gather produces a new column containing the rows at the given indices, in
// order; used by row-reordering operators (Sort, Join probes, TopN).
func (c *Column) Gather(indices []int) *Column {
	out := NewColumn(c.Typ, len(indices))
	for j, i := range indices {
		if c.IsNull(i) {
			continue
		}
		out.Set(j, c.GetValue(i))
	}
	return out
}
