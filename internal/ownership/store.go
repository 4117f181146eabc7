package ownership

import (
	"context"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/cache"
	"github.com/emperorhan/ownership-indexer/internal/domain/model"
)

// VerdictStore persists per-address verdict maps for one category. Save
// replaces the whole map of an address.
type VerdictStore interface {
	Load(ctx context.Context, address model.Address) (map[model.ItemID]bool, bool, error)
	Save(ctx context.Context, address model.Address, verdicts map[model.ItemID]bool) error
}

// MemoryStore is a process-local VerdictStore on a sharded TTL LRU.
type MemoryStore struct {
	lru *cache.ShardedLRU[model.Address, map[model.ItemID]bool]
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: cache.NewShardedLRU[model.Address, map[model.ItemID]bool](capacity, ttl, func(a model.Address) string { return a }),
	}
}

func (s *MemoryStore) Load(_ context.Context, address model.Address) (map[model.ItemID]bool, bool, error) {
	v, ok := s.lru.Get(address)
	if !ok {
		return nil, false, nil
	}
	return copyVerdicts(v), true, nil
}

func (s *MemoryStore) Save(_ context.Context, address model.Address, verdicts map[model.ItemID]bool) error {
	s.lru.Put(address, copyVerdicts(verdicts))
	return nil
}

func (s *MemoryStore) Len() int {
	return s.lru.Len()
}

func copyVerdicts(in map[model.ItemID]bool) map[model.ItemID]bool {
	out := make(map[model.ItemID]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
