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
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// builtinFunc is a row-wise scalar function: it receives the already
// evaluated argument values for a single row and returns a single result
// value. The vectorized caller (evalScalarFunction) loops rows, letting
// each handler stay a simple, non-columnar implementation.
type builtinFunc func(args []sql.Value) (sql.Value, error)

// builtins is the registry of built-in scalar functions, keyed by their
// canonical upper-cased SQL name. Names not found here fall through to the
// caller-supplied UserFunctionCaller, and finally to ErrFunctionNotFound.
var builtins = map[string]builtinFunc{
	"COALESCE":   fnCoalesce,
	"IFNULL":     fnIfNull,
	"NULLIF":     fnNullIf,
	"IF":         fnIf,
	"ZEROIFNULL": fnZeroIfNull,
	"NVL":        fnIfNull,
	"NVL2":       fnNvl2,

	"UPPER":   fnUpper,
	"LOWER":   fnLower,
	"INITCAP": fnInitcap,

	"LENGTH":      fnLength,
	"BYTE_LENGTH": fnByteLength,
	"CHAR_LENGTH": fnLength,

	"LPAD": fnLpad,
	"RPAD": fnRpad,

	"STRPOS":      fnStrpos,
	"CONTAINS":    fnContains,
	"STARTS_WITH": fnStartsWith,
	"ENDS_WITH":   fnEndsWith,

	"REGEXP_CONTAINS":    fnRegexpContains,
	"REGEXP_EXTRACT":     fnRegexpExtract,
	"REGEXP_EXTRACT_ALL": fnRegexpExtractAll,
	"REGEXP_REPLACE":     fnRegexpReplace,

	"CONCAT": fnConcat,
	"ABS":    fnAbs,
	"ROUND":  fnRound,
	"FLOOR":  fnFloor,
	"CEIL":   fnCeil,
	"CEILING": fnCeil,
	"SQRT":   fnSqrt,
	"SIGN":   fnSign,
	"GREATEST": fnGreatest,
	"LEAST":    fnLeast,
}

// evalScalarFunction dispatches a ScalarFunction call row by row against the
// builtin registry, falling through to ctx.Functions for user-registered
// functions (catalog UDFs are never imported here directly -- see eval.go's
// UserFunctionCaller doc comment).
func evalScalarFunction(ctx *Context, f *expression.ScalarFunction, table *sql.Table) (*sql.Column, error) {
	argCols, err := evalChildren(ctx, table, f.Args...)
	if err != nil {
		return nil, err
	}
	name := strings.ToUpper(f.Name)
	fn, ok := builtins[name]

	n := table.RowCount()
	out := sql.NewColumn(f.Typ, n)
	row := make([]sql.Value, len(argCols))
	for i := 0; i < n; i++ {
		for j, c := range argCols {
			if c.IsNull(i) {
				row[j] = sql.Null
			} else {
				row[j] = c.GetValue(i)
			}
		}

		var result sql.Value
		var callErr error
		if ok {
			result, callErr = fn(row)
		} else if ctx != nil && ctx.Functions != nil {
			var found bool
			result, found, callErr = ctx.Functions.Call(name, row)
			if callErr == nil && !found {
				return nil, sql.ErrFunctionNotFound.New(f.Name)
			}
		} else {
			return nil, sql.ErrFunctionNotFound.New(f.Name)
		}

		if callErr != nil {
			if f.SafeMode {
				continue
			}
			return nil, callErr
		}
		if !result.IsNull() {
			out.Set(i, result)
		}
	}
	return out, nil
}

func fnCoalesce(args []sql.Value) (sql.Value, error) {
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return sql.Null, nil
}

func fnIfNull(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("IFNULL requires 2 arguments")
	}
	if args[0].IsNull() {
		return args[1], nil
	}
	return args[0], nil
}

func fnNullIf(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("NULLIF requires 2 arguments")
	}
	if !args[0].IsNull() && !args[1].IsNull() && valuesEqual(args[0], args[1]) {
		return sql.Null, nil
	}
	return args[0], nil
}

func fnIf(args []sql.Value) (sql.Value, error) {
	if len(args) < 3 {
		return sql.Null, sql.ErrInvalidQuery.New("IF requires 3 arguments")
	}
	if !args[0].IsNull() && args[0].Bool() {
		return args[1], nil
	}
	return args[2], nil
}

func fnZeroIfNull(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.NewInt64(0), nil
	}
	return args[0], nil
}

func fnNvl2(args []sql.Value) (sql.Value, error) {
	if len(args) < 3 {
		return sql.Null, sql.ErrInvalidQuery.New("NVL2 requires 3 arguments")
	}
	if args[0].IsNull() {
		return args[2], nil
	}
	return args[1], nil
}

func fnUpper(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	return sql.NewString(strings.ToUpper(args[0].String())), nil
}

func fnLower(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	return sql.NewString(strings.ToLower(args[0].String())), nil
}

const defaultInitcapDelims = " \t\n\r-_!@#$%^&*()+=[]{}|;:',.<>?/~`"

// fnInitcap title-cases s, treating each rune in the delimiter set (default
// defaultInitcapDelims, overridable via a second argument) as a word
// boundary.
func fnInitcap(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	delims := defaultInitcapDelims
	if len(args) > 1 && !args[1].IsNull() {
		delims = args[1].String()
	}
	isDelim := func(r rune) bool { return strings.ContainsRune(delims, r) }

	var sb strings.Builder
	capitalizeNext := true
	for _, r := range args[0].String() {
		switch {
		case isDelim(r):
			sb.WriteRune(r)
			capitalizeNext = true
		case capitalizeNext:
			sb.WriteRune(unicode.ToUpper(r))
			capitalizeNext = false
		default:
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sql.NewString(sb.String()), nil
}

func fnLength(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	switch args[0].Type() {
	case sql.TypeString:
		return sql.NewInt64(int64(len([]rune(args[0].String())))), nil
	case sql.TypeBytes:
		return sql.NewInt64(int64(len(args[0].Bytes()))), nil
	case sql.TypeArray:
		return sql.NewInt64(int64(len(args[0].Array()))), nil
	default:
		return sql.Null, sql.ErrInvalidQuery.New("LENGTH requires string, bytes, or array argument")
	}
}

func fnByteLength(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	switch args[0].Type() {
	case sql.TypeString:
		return sql.NewInt64(int64(len(args[0].String()))), nil
	case sql.TypeBytes:
		return sql.NewInt64(int64(len(args[0].Bytes()))), nil
	default:
		return sql.Null, sql.ErrInvalidQuery.New("BYTE_LENGTH requires string or bytes argument")
	}
}

// fnLpad and fnRpad implement LPAD/RPAD: a negative target length yields
// the empty string, and the pad string (default a single space) repeats
// to fill.
func fnLpad(args []sql.Value) (sql.Value, error) {
	return padImpl(args, true)
}

func fnRpad(args []sql.Value) (sql.Value, error) {
	return padImpl(args, false)
}

func padImpl(args []sql.Value, leading bool) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("LPAD/RPAD requires at least 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	n := int(args[1].Int64())
	if n < 0 {
		return sql.NewString(""), nil
	}
	padStr := " "
	if len(args) > 2 && !args[2].IsNull() {
		padStr = args[2].String()
	}
	runes := []rune(args[0].String())
	if len(runes) >= n {
		return sql.NewString(string(runes[:n])), nil
	}
	padChars := []rune(padStr)
	if len(padChars) == 0 {
		return sql.NewString(string(runes)), nil
	}
	padLen := n - len(runes)
	pad := make([]rune, padLen)
	for i := 0; i < padLen; i++ {
		pad[i] = padChars[i%len(padChars)]
	}
	if leading {
		return sql.NewString(string(pad) + string(runes)), nil
	}
	return sql.NewString(string(runes) + string(pad)), nil
}

func fnStrpos(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("STRPOS requires 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	idx := strings.Index(args[0].String(), args[1].String())
	return sql.NewInt64(int64(idx + 1)), nil
}

func fnContains(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("CONTAINS requires 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	return sql.NewBool(strings.Contains(args[0].String(), args[1].String())), nil
}

func fnStartsWith(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("STARTS_WITH requires 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	return sql.NewBool(strings.HasPrefix(args[0].String(), args[1].String())), nil
}

func fnEndsWith(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("ENDS_WITH requires 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	return sql.NewBool(strings.HasSuffix(args[0].String(), args[1].String())), nil
}

// regexFuncCache mirrors like.go's cache (same 256-entry LRU sizing,
// shared process-wide rather than per-thread for the reason like.go notes).
var regexFuncCache = mustNewRegexFuncCache()

func mustNewRegexFuncCache() *lru.Cache[string, *regexp.Regexp] {
	c, err := lru.New[string, *regexp.Regexp](256)
	if err != nil {
		panic(err)
	}
	return c
}

func buildRegex(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > maxLikePatternLength {
		return nil, sql.ErrInvalidQuery.New("regex pattern exceeds maximum length")
	}
	if re, ok := regexFuncCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, sql.ErrInvalidQuery.New("invalid regex: " + err.Error())
	}
	regexFuncCache.Add(pattern, re)
	return re, nil
}

func fnRegexpContains(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("REGEXP_CONTAINS requires 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	re, err := buildRegex(args[1].String())
	if err != nil {
		return sql.Null, err
	}
	return sql.NewBool(re.MatchString(args[0].String())), nil
}

func fnRegexpExtract(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("REGEXP_EXTRACT requires 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	groupNum := 1
	if len(args) > 2 && !args[2].IsNull() {
		groupNum = int(args[2].Int64())
	}
	re, err := buildRegex(args[1].String())
	if err != nil {
		return sql.Null, err
	}
	m := re.FindStringSubmatch(args[0].String())
	if m == nil {
		return sql.Null, nil
	}
	if groupNum >= 0 && groupNum < len(m) {
		return sql.NewString(m[groupNum]), nil
	}
	return sql.NewString(m[0]), nil
}

func fnRegexpExtractAll(args []sql.Value) (sql.Value, error) {
	if len(args) < 2 {
		return sql.Null, sql.ErrInvalidQuery.New("REGEXP_EXTRACT_ALL requires 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	re, err := buildRegex(args[1].String())
	if err != nil {
		return sql.Null, err
	}
	matches := re.FindAllStringSubmatch(args[0].String(), -1)
	result := make([]sql.Value, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			result = append(result, sql.NewString(m[1]))
		} else {
			result = append(result, sql.NewString(m[0]))
		}
	}
	return sql.NewArray(result), nil
}

func fnRegexpReplace(args []sql.Value) (sql.Value, error) {
	if len(args) < 3 {
		return sql.Null, sql.ErrInvalidQuery.New("REGEXP_REPLACE requires 3 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() || args[2].IsNull() {
		return sql.Null, nil
	}
	re, err := buildRegex(args[1].String())
	if err != nil {
		return sql.Null, err
	}
	replacement := args[2].String()
	for g := 1; g <= 9; g++ {
		replacement = strings.ReplaceAll(replacement, "\\"+strconv.Itoa(g), "$"+strconv.Itoa(g))
	}
	return sql.NewString(re.ReplaceAllString(args[0].String(), replacement)), nil
}

func fnConcat(args []sql.Value) (sql.Value, error) {
	var sb strings.Builder
	for _, a := range args {
		if a.IsNull() {
			return sql.Null, nil
		}
		sb.WriteString(stringify(a))
	}
	return sql.NewString(sb.String()), nil
}

func fnAbs(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	switch args[0].Type() {
	case sql.TypeInt64:
		v := args[0].Int64()
		if v < 0 {
			v = -v
		}
		return sql.NewInt64(v), nil
	case sql.TypeFloat64:
		return sql.NewFloat64(math.Abs(float64(args[0].Float64()))), nil
	case sql.TypeNumeric:
		return sql.NewNumeric(args[0].Numeric().Abs()), nil
	case sql.TypeBigNumeric:
		return sql.NewBigNumeric(args[0].Numeric().Abs()), nil
	default:
		return sql.Null, sql.ErrInvalidQuery.New("ABS requires a numeric argument")
	}
}

func fnRound(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	places := int32(0)
	if len(args) > 1 && !args[1].IsNull() {
		places = int32(args[1].Int64())
	}
	switch args[0].Type() {
	case sql.TypeNumeric:
		return sql.NewNumeric(args[0].Numeric().Round(places)), nil
	case sql.TypeBigNumeric:
		return sql.NewBigNumeric(args[0].Numeric().Round(places)), nil
	default:
		f, ok := asFloat(args[0])
		if !ok {
			return sql.Null, sql.ErrInvalidQuery.New("ROUND requires a numeric argument")
		}
		mult := math.Pow(10, float64(places))
		return sql.NewFloat64(math.Round(f*mult) / mult), nil
	}
}

func fnFloor(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return sql.Null, sql.ErrInvalidQuery.New("FLOOR requires a numeric argument")
	}
	return sql.NewFloat64(math.Floor(f)), nil
}

func fnCeil(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return sql.Null, sql.ErrInvalidQuery.New("CEIL requires a numeric argument")
	}
	return sql.NewFloat64(math.Ceil(f)), nil
}

func fnSqrt(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return sql.Null, sql.ErrInvalidQuery.New("SQRT requires a numeric argument")
	}
	if f < 0 {
		return sql.Null, sql.ErrInvalidQuery.New("SQRT of a negative number")
	}
	return sql.NewFloat64(math.Sqrt(f)), nil
}

func fnSign(args []sql.Value) (sql.Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return sql.Null, nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return sql.Null, sql.ErrInvalidQuery.New("SIGN requires a numeric argument")
	}
	switch {
	case f > 0:
		return sql.NewInt64(1), nil
	case f < 0:
		return sql.NewInt64(-1), nil
	default:
		return sql.NewInt64(0), nil
	}
}

func fnGreatest(args []sql.Value) (sql.Value, error) {
	return extremeOf(args, true)
}

func fnLeast(args []sql.Value) (sql.Value, error) {
	return extremeOf(args, false)
}

func extremeOf(args []sql.Value, greatest bool) (sql.Value, error) {
	var best sql.Value
	found := false
	for _, a := range args {
		if a.IsNull() {
			return sql.Null, nil
		}
		if !found {
			best = a
			found = true
			continue
		}
		cmp := compareVals(best, a)
		if (greatest && cmp < 0) || (!greatest && cmp > 0) {
			best = a
		}
	}
	if !found {
		return sql.Null, nil
	}
	return best, nil
}
