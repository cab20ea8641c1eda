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
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// maxLikePatternLength bounds the LIKE pattern this evaluator will compile.
const maxLikePatternLength = 10_000

type likeCacheKey struct {
	pattern         string
	caseInsensitive bool
}

// likeRegexCache is the LIKE-pattern-to-compiled-regex cache, sized
// identically to the Rust original's per-thread LruCache::new(256). Go has
// no natural thread-local equivalent that fits the evaluator's call shape,
// so one process-wide cache is shared across goroutines instead --
// hashicorp/golang-lru's Cache is safe for concurrent use.
var likeRegexCache = mustNewLikeCache()

func mustNewLikeCache() *lru.Cache[likeCacheKey, *regexp.Regexp] {
	c, err := lru.New[likeCacheKey, *regexp.Regexp](256)
	if err != nil {
		panic(err)
	}
	return c
}

func getOrCompileLikeRegex(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	if len(pattern) > maxLikePatternLength {
		return nil, sql.ErrInvalidQuery.New("LIKE pattern exceeds maximum length")
	}
	key := likeCacheKey{pattern: pattern, caseInsensitive: caseInsensitive}
	if re, ok := likeRegexCache.Get(key); ok {
		return re, nil
	}
	re, err := regexp.Compile(likeToRegex(pattern, caseInsensitive))
	if err != nil {
		return nil, sql.ErrInvalidQuery.New("invalid LIKE pattern: " + err.Error())
	}
	likeRegexCache.Add(key, re)
	return re, nil
}

// likeToRegex translates a SQL LIKE pattern (% any run, _ any one char, \
// escapes the next character literally) into an anchored RE2 pattern.
func likeToRegex(pattern string, caseInsensitive bool) string {
	var sb strings.Builder
	if caseInsensitive {
		sb.WriteString("(?i)")
	}
	sb.WriteByte('^')
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteByte('.')
		case '\\':
			if i+1 < len(runes) {
				i++
				sb.WriteString(regexp.QuoteMeta(string(runes[i])))
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteByte('$')
	return sb.String()
}

func evalLike(ctx *Context, l *expression.Like, table *sql.Table) (*sql.Column, error) {
	strCol, err := Evaluate(ctx, l.Target, table)
	if err != nil {
		return nil, err
	}
	patCol, err := Evaluate(ctx, l.Pattern, table)
	if err != nil {
		return nil, err
	}

	n := table.RowCount()
	out := sql.NewColumn(sql.TypeBool, n)
	for i := 0; i < n; i++ {
		if strCol.IsNull(i) || patCol.IsNull(i) {
			continue
		}
		s := strCol.GetValue(i).String()
		p := patCol.GetValue(i).String()
		re, err := getOrCompileLikeRegex(p, l.CaseInsensitive)
		if err != nil {
			return nil, err
		}
		matched := re.MatchString(s)
		if l.Negated {
			matched = !matched
		}
		out.Set(i, sql.NewBool(matched))
	}
	return out, nil
}
