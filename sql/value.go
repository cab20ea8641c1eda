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

// Package sql defines the value, schema, column, and table types shared by
// every other bqlite package, along with the session, catalog, and error
// taxonomy that the engine is built on.
package sql

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// TypeID tags the dynamic type of a Value. It is also used as the variant
// tag of a Column.
type TypeID uint8

const (
	TypeNull TypeID = iota
	TypeBool
	TypeInt64
	TypeFloat64
	TypeNumeric
	TypeBigNumeric
	TypeString
	TypeBytes
	TypeDate
	TypeTime
	TypeDateTime
	TypeTimestamp
	TypeJSON
	TypeArray
	TypeStruct
	TypeGeography
	TypeInterval
	TypeRange
	TypeDefault
)

func (t TypeID) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeBool:
		return "BOOL"
	case TypeInt64:
		return "INT64"
	case TypeFloat64:
		return "FLOAT64"
	case TypeNumeric:
		return "NUMERIC"
	case TypeBigNumeric:
		return "BIGNUMERIC"
	case TypeString:
		return "STRING"
	case TypeBytes:
		return "BYTES"
	case TypeDate:
		return "DATE"
	case TypeTime:
		return "TIME"
	case TypeDateTime:
		return "DATETIME"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeJSON:
		return "JSON"
	case TypeArray:
		return "ARRAY"
	case TypeStruct:
		return "STRUCT"
	case TypeGeography:
		return "GEOGRAPHY"
	case TypeInterval:
		return "INTERVAL"
	case TypeRange:
		return "RANGE"
	case TypeDefault:
		return "DEFAULT"
	default:
		return "UNKNOWN"
	}
}

// Float64 is a total-ordered wrapper around float64: for equality and
// hashing (not for arithmetic comparison via the evaluator's three-valued
// <, <=, >, >=), +0.0 == -0.0 and NaN != NaN does NOT hold -- instead every
// bit pattern is distinct except +0.0/-0.0 which normalize together, a
// resolution recorded in DESIGN.md.
type Float64 float64

// Bits returns the IEEE-754 bit pattern used as a row-key, normalizing
// -0.0 to +0.0 so the two compare equal under set-operation row equality
// and under ORDER BY, while distinct NaN payloads remain distinguishable.
func (f Float64) Bits() uint64 {
	v := float64(f)
	if v == 0 {
		v = 0 // normalizes -0.0 to +0.0
	}
	return math.Float64bits(v)
}

// Equal implements the dialect's float equality by Bits: +0.0 == -0.0, and
// two NaNs are equal only when their bit patterns match, so that they behave
// consistently inside GROUP BY / DISTINCT / set-operation row keys. Scalar
// `=` comparison in the evaluator additionally treats NaN as never equal to
// anything, including itself; that rule lives in sql/eval, not here.
func (f Float64) Equal(o Float64) bool {
	return f.Bits() == o.Bits()
}

// StructField is a single named member of a Struct value.
type StructField struct {
	Name  string
	Value Value
}

// Interval is the BigQuery-style three-part interval value.
type Interval struct {
	Months int32
	Days   int32
	Nanos  int64
}

// RangeValue is a [Lower, Upper) pair; either bound may be nil (unbounded).
type RangeValue struct {
	Lower *Value
	Upper *Value
}

// JSONValue is an opaque JSON document represented as a Go tree built from
// nil, bool, float64/int64/string, []any, and map[string]any, mirroring
// encoding/json's decode shape so JSON_EXTRACT-style path navigation can
// walk it directly.
type JSONValue struct {
	Doc any
}

// Value is the tagged scalar carried by every Row and by Column.get_value.
// The zero Value is Null.
type Value struct {
	typ   TypeID
	b     bool
	i     int64
	f     Float64
	dec   decimal.Decimal
	s     string // String, Bytes (raw), Geography (WKT)
	t     time.Time
	arr   []Value
	strct []StructField
	js    JSONValue
	ival  Interval
	rng   RangeValue
}

// Null is the canonical null value.
var Null = Value{typ: TypeNull}

// Default is the sentinel DEFAULT value used by INSERT ... DEFAULT.
var Default = Value{typ: TypeDefault}

func NewBool(b bool) Value                 { return Value{typ: TypeBool, b: b} }
func NewInt64(i int64) Value               { return Value{typ: TypeInt64, i: i} }
func NewFloat64(f float64) Value           { return Value{typ: TypeFloat64, f: Float64(f)} }
func NewNumeric(d decimal.Decimal) Value   { return Value{typ: TypeNumeric, dec: d} }
func NewBigNumeric(d decimal.Decimal) Value { return Value{typ: TypeBigNumeric, dec: d} }
func NewString(s string) Value             { return Value{typ: TypeString, s: s} }
func NewBytes(b []byte) Value              { return Value{typ: TypeBytes, s: string(b)} }
func NewDate(t time.Time) Value            { return Value{typ: TypeDate, t: t} }
func NewTime(t time.Time) Value            { return Value{typ: TypeTime, t: t} }
func NewDateTime(t time.Time) Value        { return Value{typ: TypeDateTime, t: t} }
func NewTimestamp(t time.Time) Value       { return Value{typ: TypeTimestamp, t: t.UTC()} }
func NewJSON(doc any) Value                { return Value{typ: TypeJSON, js: JSONValue{Doc: doc}} }
func NewArray(vs []Value) Value            { return Value{typ: TypeArray, arr: vs} }
func NewStruct(fs []StructField) Value     { return Value{typ: TypeStruct, strct: fs} }
func NewGeography(wkt string) Value        { return Value{typ: TypeGeography, s: wkt} }
func NewInterval(iv Interval) Value        { return Value{typ: TypeInterval, ival: iv} }
func NewRange(r RangeValue) Value          { return Value{typ: TypeRange, rng: r} }

func (v Value) Type() TypeID    { return v.typ }
func (v Value) IsNull() bool    { return v.typ == TypeNull }
func (v Value) IsDefault() bool { return v.typ == TypeDefault }
func (v Value) Bool() bool      { return v.b }
func (v Value) Int64() int64    { return v.i }
func (v Value) Float64() Float64 { return v.f }
func (v Value) Numeric() decimal.Decimal { return v.dec }
func (v Value) String() string  { return v.s }
func (v Value) Bytes() []byte   { return []byte(v.s) }
func (v Value) Time() time.Time { return v.t }
func (v Value) JSON() JSONValue { return v.js }
func (v Value) Array() []Value  { return v.arr }
func (v Value) Struct() []StructField { return v.strct }
func (v Value) Interval() Interval    { return v.ival }
func (v Value) Range() RangeValue     { return v.rng }

// StructFieldByName does a case-insensitive lookup used by struct-access
// expressions and the analyzer's struct-dereference fallback.
func (v Value) StructFieldByName(name string) (Value, bool) {
	for _, f := range v.strct {
		if equalFold(f.Name, name) {
			return f.Value, true
		}
	}
	return Null, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Equal implements the value-level equality used by set-operation row keys
// and GROUP BY bucketing (not the evaluator's three-valued `=`, which lives
// in sql/eval and has its own NULL handling). Null equals Null here, the
// documented exception for set-operation row equality.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		// Int64/Float64/Numeric cross-type equality is not attempted
		// here; the evaluator promotes before comparing.
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeBool:
		return v.b == o.b
	case TypeInt64:
		return v.i == o.i
	case TypeFloat64:
		return v.f.Equal(o.f)
	case TypeNumeric, TypeBigNumeric:
		return v.dec.Equal(o.dec)
	case TypeString, TypeBytes, TypeGeography:
		return v.s == o.s
	case TypeDate, TypeTime, TypeDateTime, TypeTimestamp:
		return v.t.Equal(o.t)
	case TypeArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case TypeStruct:
		if len(v.strct) != len(o.strct) {
			return false
		}
		for i := range v.strct {
			if !equalFold(v.strct[i].Name, o.strct[i].Name) || !v.strct[i].Value.Equal(o.strct[i].Value) {
				return false
			}
		}
		return true
	case TypeInterval:
		return v.ival == o.ival
	case TypeDefault:
		return true
	default:
		return false
	}
}

// RowKey builds a comparable key for set-operation dedup (UNION/INTERSECT/
// EXCEPT DISTINCT) and GROUP BY bucketing out of a tuple of values. It must
// agree with Equal: equal tuples produce equal keys.
func RowKey(vs []Value) string {
	var buf []byte
	for _, v := range vs {
		buf = appendKey(buf, v)
		buf = append(buf, 0x1f)
	}
	return string(buf)
}

func appendKey(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.typ))
	switch v.typ {
	case TypeNull, TypeDefault:
	case TypeBool:
		if v.b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case TypeInt64:
		buf = appendUint64(buf, uint64(v.i))
	case TypeFloat64:
		buf = appendUint64(buf, v.f.Bits())
	case TypeNumeric, TypeBigNumeric:
		buf = append(buf, v.dec.String()...)
	case TypeString, TypeBytes, TypeGeography:
		buf = append(buf, v.s...)
	case TypeDate, TypeTime, TypeDateTime, TypeTimestamp:
		buf = appendUint64(buf, uint64(v.t.UnixNano()))
	case TypeArray:
		for _, e := range v.arr {
			buf = appendKey(buf, e)
		}
	case TypeStruct:
		for _, f := range v.strct {
			buf = append(buf, lower(f.Name)...)
			buf = appendKey(buf, f.Value)
		}
	case TypeInterval:
		buf = appendUint64(buf, uint64(v.ival.Months))
		buf = appendUint64(buf, uint64(v.ival.Days))
		buf = appendUint64(buf, uint64(v.ival.Nanos))
	}
	return buf
}

func appendUint64(buf []byte, u uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(u>>(8*i)))
	}
	return buf
}
