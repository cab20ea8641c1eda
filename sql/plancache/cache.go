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

// Package plancache implements the session-scoped LRU of optimized
// physical plans: capacity 10,000 by default, keyed by raw SQL text,
// invalidated wholesale by DDL. It is deliberately plan-type-agnostic (the
// cached value is `any`) so it has no import-cycle dependency on sql/plan.
package plancache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the session plan cache's fixed LRU capacity.
const DefaultCapacity = 10000

// Entry is a cached physical plan plus the catalog generation it was built
// against, so Get can refuse to serve a plan whose snapshot predates a DDL.
type Entry struct {
	Plan       any
	Generation uint64
}

// Cache is a concurrent LRU of Entry, keyed by SQL text. The underlying
// golang-lru cache is internally locked, and Cache additionally tracks a
// catalog generation counter bumped by Invalidate so that entries built
// against a stale catalog are never served even if they have not yet been
// evicted.
type Cache struct {
	mu         sync.RWMutex
	generation uint64
	lru        *lru.Cache[string, Entry]
}

// New builds a Cache with the given capacity (DefaultCapacity unless a
// session overrides it).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[string, Entry](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0, already guarded above.
		panic(err)
	}
	return &Cache{lru: c}
}

// Generation returns the current catalog generation; callers stamp it onto
// new entries at insertion time.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Put inserts a plan for sql, stamped with the cache's current generation.
// Under contention, a concurrent insert of the same key may be dropped
// (last writer wins).
func (c *Cache) Put(sqlText string, plan any) {
	c.lru.Add(sqlText, Entry{Plan: plan, Generation: c.Generation()})
}

// Get returns a cached plan for sqlText, but only if it was built at or
// after the most recent Invalidate call: no subsequent query on a
// just-altered table returns a cached plan whose snapshot predates the DDL.
func (c *Cache) Get(sqlText string) (any, bool) {
	e, ok := c.lru.Get(sqlText)
	if !ok {
		return nil, false
	}
	if e.Generation < c.Generation() {
		c.lru.Remove(sqlText)
		return nil, false
	}
	return e.Plan, true
}

// Invalidate bumps the generation counter, making every previously cached
// entry unservable. DDL and catalog-mutating statements call this; it does
// not physically evict entries (eviction happens lazily on the next Get,
// keeping invalidation O(1) regardless of cache size).
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
}

// Len reports the number of entries physically resident (including ones
// that would be refused by Get due to staleness).
func (c *Cache) Len() int { return c.lru.Len() }
