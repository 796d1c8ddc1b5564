package engine

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const cacheShardCount = 16

type cacheKey struct {
	habit uuid.UUID
	day   int
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[cacheKey]bool
}

// ActivityCache memoizes IsActive results per (habit, day index). It is
// sharded so concurrent readers on different habits don't contend on one
// lock; within a shard reads share an RWMutex and the last write wins.
type ActivityCache struct {
	shards [cacheShardCount]cacheShard
}

func NewActivityCache() *ActivityCache {
	c := &ActivityCache{}
	for i := range c.shards {
		c.shards[i].entries = make(map[cacheKey]bool)
	}
	return c
}

func (c *ActivityCache) shard(key cacheKey) *cacheShard {
	h := fnv.New32a()
	h.Write(key.habit[:])
	h.Write([]byte{byte(key.day), byte(key.day >> 8), byte(key.day >> 16), byte(key.day >> 24)})
	return &c.shards[h.Sum32()%cacheShardCount]
}

func (c *ActivityCache) Get(habit uuid.UUID, day int) (active, ok bool) {
	key := cacheKey{habit: habit, day: day}
	sh := c.shard(key)
	sh.mu.RLock()
	active, ok = sh.entries[key]
	sh.mu.RUnlock()
	return active, ok
}

func (c *ActivityCache) Set(habit uuid.UUID, day int, active bool) {
	key := cacheKey{habit: habit, day: day}
	sh := c.shard(key)
	sh.mu.Lock()
	sh.entries[key] = active
	sh.mu.Unlock()
}

func (c *ActivityCache) Invalidate(habit uuid.UUID, day int) {
	key := cacheKey{habit: habit, day: day}
	sh := c.shard(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

// InvalidateWindow drops the day and the n days after it. Completion toggles
// on follow-up habits use this to drop projected due days that the toggle may
// have shifted.
func (c *ActivityCache) InvalidateWindow(habit uuid.UUID, day, n int) {
	for i := 0; i <= n; i++ {
		c.Invalidate(habit, day+i)
	}
}

// InvalidateHabit drops every cached day of one habit. Rule edits must call
// this: a new rule version can change any day's activity.
func (c *ActivityCache) InvalidateHabit(habit uuid.UUID) {
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.Lock()
		for key := range sh.entries {
			if key.habit == habit {
				delete(sh.entries, key)
			}
		}
		sh.mu.Unlock()
	}
}

func (c *ActivityCache) InvalidateAll() {
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.Lock()
		sh.entries = make(map[cacheKey]bool)
		sh.mu.Unlock()
	}
}

// Len reports the number of cached entries, mainly for tests.
func (c *ActivityCache) Len() int {
	total := 0
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}
