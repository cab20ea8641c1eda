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
	"strings"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// evalTrim implements TRIM: the char set defaults to a single space when
// CHARS is omitted.
func evalTrim(ctx *Context, t *expression.Trim, table *sql.Table) (*sql.Column, error) {
	strCol, err := Evaluate(ctx, t.Target, table)
	if err != nil {
		return nil, err
	}
	var charsCol *sql.Column
	if t.Chars != nil {
		charsCol, err = Evaluate(ctx, t.Chars, table)
		if err != nil {
			return nil, err
		}
	}

	n := table.RowCount()
	out := sql.NewColumn(sql.TypeString, n)
	for i := 0; i < n; i++ {
		if strCol.IsNull(i) {
			continue
		}
		s := strCol.GetValue(i).String()
		cutset := " "
		if charsCol != nil {
			if charsCol.IsNull(i) {
				continue
			}
			cutset = charsCol.GetValue(i).String()
		}
		var trimmed string
		switch t.Mode {
		case expression.TrimLeading:
			trimmed = strings.TrimLeft(s, cutset)
		case expression.TrimTrailing:
			trimmed = strings.TrimRight(s, cutset)
		default:
			trimmed = strings.Trim(s, cutset)
		}
		out.Set(i, sql.NewString(trimmed))
	}
	return out, nil
}

// evalSubstring implements SUBSTR(target, start[, length]): start is
// 1-based and may be negative (counted from the end); a negative length
// clamps to 0 rather than erroring.
func evalSubstring(ctx *Context, s *expression.Substring, table *sql.Table) (*sql.Column, error) {
	strCol, err := Evaluate(ctx, s.Target, table)
	if err != nil {
		return nil, err
	}
	startCol, err := Evaluate(ctx, s.Start, table)
	if err != nil {
		return nil, err
	}
	var lenCol *sql.Column
	if s.Length != nil {
		lenCol, err = Evaluate(ctx, s.Length, table)
		if err != nil {
			return nil, err
		}
	}

	n := table.RowCount()
	out := sql.NewColumn(sql.TypeString, n)
	for i := 0; i < n; i++ {
		if strCol.IsNull(i) || startCol.IsNull(i) {
			continue
		}
		runes := []rune(strCol.GetValue(i).String())
		charLen := len(runes)
		startRaw := startCol.GetValue(i).Int64()

		var startIdx int
		switch {
		case startRaw < 0:
			startIdx = maxInt(charLen-int(-startRaw), 0)
		case startRaw == 0:
			startIdx = 0
		default:
			startIdx = minInt(int(startRaw)-1, charLen)
		}

		length := charLen - startIdx
		if lenCol != nil {
			if lenCol.IsNull(i) {
				continue
			}
			l := lenCol.GetValue(i).Int64()
			if l < 0 {
				l = 0
			}
			length = int(l)
		}
		end := minInt(startIdx+length, charLen)
		if end < startIdx {
			end = startIdx
		}
		out.Set(i, sql.NewString(string(runes[startIdx:end])))
	}
	return out, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// evalOverlay implements OVERLAY(target PLACING replacement FROM start [FOR
// length]): length defaults to the replacement's own rune count.
func evalOverlay(ctx *Context, o *expression.Overlay, table *sql.Table) (*sql.Column, error) {
	strCol, err := Evaluate(ctx, o.Target, table)
	if err != nil {
		return nil, err
	}
	replCol, err := Evaluate(ctx, o.Replacement, table)
	if err != nil {
		return nil, err
	}
	startCol, err := Evaluate(ctx, o.Start, table)
	if err != nil {
		return nil, err
	}
	var lenCol *sql.Column
	if o.Length != nil {
		lenCol, err = Evaluate(ctx, o.Length, table)
		if err != nil {
			return nil, err
		}
	}

	n := table.RowCount()
	out := sql.NewColumn(sql.TypeString, n)
	for i := 0; i < n; i++ {
		if strCol.IsNull(i) || replCol.IsNull(i) || startCol.IsNull(i) {
			continue
		}
		runes := []rune(strCol.GetValue(i).String())
		repl := replCol.GetValue(i).String()
		start := int(startCol.GetValue(i).Int64())
		startIdx := maxInt(start-1, 0)

		length := len([]rune(repl))
		if lenCol != nil {
			if lenCol.IsNull(i) {
				continue
			}
			length = int(lenCol.GetValue(i).Int64())
		}

		var sb strings.Builder
		if startIdx <= len(runes) {
			sb.WriteString(string(runes[:startIdx]))
		} else {
			sb.WriteString(string(runes))
		}
		sb.WriteString(repl)
		tailStart := startIdx + length
		if tailStart < len(runes) {
			sb.WriteString(string(runes[tailStart:]))
		}
		out.Set(i, sql.NewString(sb.String()))
	}
	return out, nil
}

// evalPosition implements POSITION(needle IN haystack): 1-based index,
// or 0 when not found.
func evalPosition(ctx *Context, p *expression.Position, table *sql.Table) (*sql.Column, error) {
	needleCol, err := Evaluate(ctx, p.Needle, table)
	if err != nil {
		return nil, err
	}
	haystackCol, err := Evaluate(ctx, p.Haystack, table)
	if err != nil {
		return nil, err
	}

	n := table.RowCount()
	out := sql.NewColumn(sql.TypeInt64, n)
	for i := 0; i < n; i++ {
		if needleCol.IsNull(i) || haystackCol.IsNull(i) {
			continue
		}
		needle := needleCol.GetValue(i).String()
		haystack := haystackCol.GetValue(i).String()
		idx := strings.Index(haystack, needle)
		out.Set(i, sql.NewInt64(int64(idx+1)))
	}
	return out, nil
}
