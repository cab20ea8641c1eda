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
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bqlite/bqlite/sql"
)

// CastValue converts v to the requested type, the scalar primitive both
// Cast and SAFE_CAST share (Cast turns a conversion error back into Null
// itself when Safe is set).
func CastValue(v sql.Value, to sql.TypeID) (sql.Value, error) {
	if v.IsNull() {
		return sql.Null, nil
	}
	if v.Type() == to {
		return v, nil
	}
	switch to {
	case sql.TypeString:
		return sql.NewString(stringify(v)), nil
	case sql.TypeInt64:
		return castToInt64(v)
	case sql.TypeFloat64:
		f, ok := asFloat(v)
		if ok {
			return sql.NewFloat64(f), nil
		}
		if v.Type() == sql.TypeString {
			f, err := strconv.ParseFloat(v.String(), 64)
			if err != nil {
				return sql.Null, sql.ErrInvalidQuery.New("cannot cast string to FLOAT64: " + v.String())
			}
			return sql.NewFloat64(f), nil
		}
		return sql.Null, sql.ErrInvalidQuery.New("cannot cast to FLOAT64")
	case sql.TypeNumeric, sql.TypeBigNumeric:
		d, ok := asDecimal(v)
		if ok {
			if to == sql.TypeBigNumeric {
				return sql.NewBigNumeric(d), nil
			}
			return sql.NewNumeric(d), nil
		}
		if v.Type() == sql.TypeString {
			d, err := decimal.NewFromString(v.String())
			if err != nil {
				return sql.Null, sql.ErrInvalidQuery.New("cannot cast string to NUMERIC: " + v.String())
			}
			if to == sql.TypeBigNumeric {
				return sql.NewBigNumeric(d), nil
			}
			return sql.NewNumeric(d), nil
		}
		return sql.Null, sql.ErrInvalidQuery.New("cannot cast to NUMERIC")
	case sql.TypeBool:
		if v.Type() == sql.TypeString {
			switch v.String() {
			case "true", "TRUE", "True":
				return sql.NewBool(true), nil
			case "false", "FALSE", "False":
				return sql.NewBool(false), nil
			}
			return sql.Null, sql.ErrInvalidQuery.New("cannot cast string to BOOL: " + v.String())
		}
		return sql.Null, sql.ErrInvalidQuery.New("cannot cast to BOOL")
	case sql.TypeBytes:
		return sql.NewBytes([]byte(v.String())), nil
	case sql.TypeDate, sql.TypeTime, sql.TypeDateTime, sql.TypeTimestamp:
		return castToTemporal(v, to)
	default:
		return sql.Null, sql.ErrUnsupported.New("cast to " + to.String())
	}
}

func castToInt64(v sql.Value) (sql.Value, error) {
	switch v.Type() {
	case sql.TypeFloat64:
		return sql.NewInt64(int64(float64(v.Float64()))), nil
	case sql.TypeNumeric, sql.TypeBigNumeric:
		return sql.NewInt64(v.Numeric().IntPart()), nil
	case sql.TypeBool:
		if v.Bool() {
			return sql.NewInt64(1), nil
		}
		return sql.NewInt64(0), nil
	case sql.TypeString:
		i, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return sql.Null, sql.ErrInvalidQuery.New("cannot cast string to INT64: " + v.String())
		}
		return sql.NewInt64(i), nil
	default:
		return sql.Null, sql.ErrInvalidQuery.New("cannot cast to INT64")
	}
}

func stringify(v sql.Value) string {
	switch v.Type() {
	case sql.TypeString:
		return v.String()
	case sql.TypeBytes:
		return string(v.Bytes())
	case sql.TypeBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case sql.TypeInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case sql.TypeFloat64:
		return strconv.FormatFloat(float64(v.Float64()), 'g', -1, 64)
	case sql.TypeNumeric, sql.TypeBigNumeric:
		return v.Numeric().String()
	case sql.TypeDate:
		return v.Time().Format("2006-01-02")
	case sql.TypeTime:
		return v.Time().Format("15:04:05.999999")
	case sql.TypeDateTime:
		return v.Time().Format("2006-01-02T15:04:05.999999")
	case sql.TypeTimestamp:
		return v.Time().UTC().Format("2006-01-02T15:04:05.999999Z")
	default:
		return ""
	}
}

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05.999999"
	dateTimeLayout = "2006-01-02T15:04:05.999999"
	dateTimeLayout2 = "2006-01-02 15:04:05.999999"
	tsLayout       = time.RFC3339Nano
)

func castToTemporal(v sql.Value, to sql.TypeID) (sql.Value, error) {
	var t time.Time
	var err error
	switch v.Type() {
	case sql.TypeString:
		s := v.String()
		switch to {
		case sql.TypeDate:
			t, err = time.Parse(dateLayout, s)
		case sql.TypeTime:
			t, err = time.Parse(timeLayout, s)
		case sql.TypeTimestamp:
			t, err = time.Parse(tsLayout, s)
			if err != nil {
				t, err = time.Parse(dateTimeLayout2, s)
			}
		default:
			t, err = time.Parse(dateTimeLayout, s)
			if err != nil {
				t, err = time.Parse(dateTimeLayout2, s)
			}
		}
		if err != nil {
			return sql.Null, sql.ErrInvalidQuery.New("cannot cast string to " + to.String() + ": " + s)
		}
	case sql.TypeDate, sql.TypeTime, sql.TypeDateTime, sql.TypeTimestamp:
		t = v.Time()
	default:
		return sql.Null, sql.ErrInvalidQuery.New("cannot cast to " + to.String())
	}

	switch to {
	case sql.TypeDate:
		return sql.NewDate(t), nil
	case sql.TypeTime:
		return sql.NewTime(t), nil
	case sql.TypeDateTime:
		return sql.NewDateTime(t), nil
	case sql.TypeTimestamp:
		return sql.NewTimestamp(t), nil
	}
	return sql.Null, sql.ErrInternal.New("unreachable temporal cast target")
}
