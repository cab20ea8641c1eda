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

package plancache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql/plancache"
)

func TestCacheNonPositiveCapacityFallsBackToDefault(t *testing.T) {
	require := require.New(t)
	c := plancache.New(0)
	for i := 0; i < 10; i++ {
		c.Put("q", i)
	}
	require.Equal(1, c.Len())
}

func TestCachePutGetRoundTrip(t *testing.T) {
	require := require.New(t)
	c := plancache.New(4)

	_, ok := c.Get("SELECT 1")
	require.False(ok)

	c.Put("SELECT 1", "plan-for-select-1")
	got, ok := c.Get("SELECT 1")
	require.True(ok)
	require.Equal("plan-for-select-1", got)
}

func TestCacheInvalidateEvictsEveryEntryOnNextGet(t *testing.T) {
	require := require.New(t)
	c := plancache.New(4)

	c.Put("SELECT 1", "plan-a")
	c.Put("SELECT 2", "plan-b")
	c.Invalidate()

	_, ok := c.Get("SELECT 1")
	require.False(ok)
	_, ok = c.Get("SELECT 2")
	require.False(ok)

	// Invalidation is lazy: the entry is still physically resident until
	// the next Get touches it.
	require.Equal(0, c.Len())
}

func TestCachePutAfterInvalidateIsServable(t *testing.T) {
	require := require.New(t)
	c := plancache.New(4)

	c.Put("SELECT 1", "stale-plan")
	c.Invalidate()
	c.Put("SELECT 1", "fresh-plan")

	got, ok := c.Get("SELECT 1")
	require.True(ok)
	require.Equal("fresh-plan", got)
}

func TestCacheGenerationIncrementsOnInvalidate(t *testing.T) {
	require := require.New(t)
	c := plancache.New(4)
	require.EqualValues(0, c.Generation())
	c.Invalidate()
	require.EqualValues(1, c.Generation())
	c.Invalidate()
	require.EqualValues(2, c.Generation())
}

func TestCacheEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	require := require.New(t)
	c := plancache.New(2)

	c.Put("q1", 1)
	c.Put("q2", 2)
	c.Put("q3", 3) // evicts q1, the LRU entry

	_, ok := c.Get("q1")
	require.False(ok)
	_, ok = c.Get("q2")
	require.True(ok)
	_, ok = c.Get("q3")
	require.True(ok)
}
