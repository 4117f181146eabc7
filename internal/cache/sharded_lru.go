package cache

import (
	"hash/fnv"
	"time"
)

const defaultShardCount = 16

// Cache is implemented by LRU and ShardedLRU.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)
	Delete(key K)
	Len() int
	Stats() (hits, misses int64)
}

var (
	_ Cache[string, int] = (*LRU[string, int])(nil)
	_ Cache[string, int] = (*ShardedLRU[string, int])(nil)
)

// ShardedLRU spreads keys over independent LRU shards so that operations on
// different keys rarely contend. Operations on a single key are atomic.
type ShardedLRU[K comparable, V any] struct {
	shards   []*LRU[K, V]
	keyToStr func(K) string
}

// NewShardedLRU splits totalCapacity evenly over defaultShardCount shards.
func NewShardedLRU[K comparable, V any](totalCapacity int, ttl time.Duration, keyFn func(K) string) *ShardedLRU[K, V] {
	return NewShardedLRUWithCount[K, V](totalCapacity, ttl, keyFn, defaultShardCount)
}

func NewShardedLRUWithCount[K comparable, V any](totalCapacity int, ttl time.Duration, keyFn func(K) string, shardCount int) *ShardedLRU[K, V] {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	// Small caches get fewer shards so the configured capacity stays meaningful.
	if totalCapacity > 0 && totalCapacity < shardCount {
		shardCount = totalCapacity
	}
	perShard := totalCapacity / shardCount
	if perShard < 1 {
		perShard = 1
	}

	shards := make([]*LRU[K, V], shardCount)
	for i := range shards {
		shards[i] = NewLRU[K, V](perShard, ttl)
	}
	return &ShardedLRU[K, V]{shards: shards, keyToStr: keyFn}
}

func (s *ShardedLRU[K, V]) shard(key K) *LRU[K, V] {
	h := fnv.New32a()
	h.Write([]byte(s.keyToStr(key)))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *ShardedLRU[K, V]) Get(key K) (V, bool) {
	return s.shard(key).Get(key)
}

func (s *ShardedLRU[K, V]) Put(key K, value V) {
	s.shard(key).Put(key, value)
}

func (s *ShardedLRU[K, V]) Delete(key K) {
	s.shard(key).Delete(key)
}

func (s *ShardedLRU[K, V]) Len() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.Len()
	}
	return total
}

func (s *ShardedLRU[K, V]) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return
}

// setClock replaces the clock of every shard. Tests only.
func (s *ShardedLRU[K, V]) setClock(now func() time.Time) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.nowFn = now
		sh.mu.Unlock()
	}
}
