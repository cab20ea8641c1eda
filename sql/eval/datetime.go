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
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// zoneCache memoizes time.LoadLocation: zone names resolve against the
// Go stdlib's IANA tzdata lookup, cached so a hot AT TIME ZONE expression
// isn't re-parsing tzdata on every row batch.
var zoneCache = mustNewZoneCache()

func mustNewZoneCache() *lru.Cache[string, *time.Location] {
	c, err := lru.New[string, *time.Location](64)
	if err != nil {
		panic(err)
	}
	return c
}

func loadZone(name string) (*time.Location, error) {
	if loc, ok := zoneCache.Get(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, sql.ErrInvalidQuery.New("unknown time zone: " + name)
	}
	zoneCache.Add(name, loc)
	return loc, nil
}

// evalAtTimeZone implements `expr AT TIME ZONE zone`: TIMESTAMP is
// reinterpreted through the named zone and converted back to UTC;
// DATETIME's naive wall-clock value is reinterpreted as UTC, shifted into
// the zone, and kept naive (its UTC tag dropped) in the zone's local form.
func evalAtTimeZone(ctx *Context, a *expression.AtTimeZone, table *sql.Table) (*sql.Column, error) {
	target, err := Evaluate(ctx, a.Target, table)
	if err != nil {
		return nil, err
	}
	zoneCol, err := Evaluate(ctx, a.TzName, table)
	if err != nil {
		return nil, err
	}

	n := table.RowCount()
	out := sql.NewColumn(a.Typ, n)
	for i := 0; i < n; i++ {
		if target.IsNull(i) || zoneCol.IsNull(i) {
			continue
		}
		loc, err := loadZone(zoneCol.GetValue(i).String())
		if err != nil {
			return nil, err
		}
		v := target.GetValue(i)
		var result time.Time
		switch v.Type() {
		case sql.TypeTimestamp:
			result = v.Time().In(loc).UTC()
		case sql.TypeDateTime:
			naive := v.Time()
			asUTC := time.Date(naive.Year(), naive.Month(), naive.Day(),
				naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), time.UTC)
			inZone := asUTC.In(loc)
			result = time.Date(inZone.Year(), inZone.Month(), inZone.Day(),
				inZone.Hour(), inZone.Minute(), inZone.Second(), inZone.Nanosecond(), time.UTC)
		default:
			return nil, sql.ErrInvalidQuery.New("AT TIME ZONE requires TIMESTAMP or DATETIME")
		}
		if a.Typ == sql.TypeDateTime {
			out.Set(i, sql.NewDateTime(result))
		} else {
			out.Set(i, sql.NewTimestamp(result))
		}
	}
	return out, nil
}

// Nanosecond-per-unit constants for evalIntervalExpr's exact per-field
// INTERVAL construction.
const (
	nanosPerSecond = int64(1_000_000_000)
	nanosPerMinute = 60 * nanosPerSecond
	nanosPerHour   = 60 * nanosPerMinute
	nanosPerDay    = 24 * nanosPerHour
)

func evalIntervalExpr(ctx *Context, e *expression.IntervalExpr, table *sql.Table) (*sql.Column, error) {
	valCol, err := Evaluate(ctx, e.Value, table)
	if err != nil {
		return nil, err
	}
	n := table.RowCount()
	out := sql.NewColumn(sql.TypeInterval, n)
	for i := 0; i < n; i++ {
		if valCol.IsNull(i) {
			continue
		}
		v := valCol.GetValue(i)
		var months, days, nanos int64
		switch e.Field {
		case expression.IntervalYear:
			months = v.Int64() * 12
		case expression.IntervalMonth:
			months = v.Int64()
		case expression.IntervalDay:
			days = v.Int64()
		case expression.IntervalHour:
			nanos = v.Int64() * nanosPerHour
		case expression.IntervalMinute:
			nanos = v.Int64() * nanosPerMinute
		case expression.IntervalSecond:
			nanos = v.Int64() * nanosPerSecond
		default:
			return nil, sql.ErrUnsupported.New("interval field")
		}
		out.Set(i, sql.NewInterval(sql.Interval{Months: int32(months), Days: int32(days), Nanos: nanos}))
	}
	return out, nil
}
