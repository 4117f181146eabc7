package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "verdicts"

// VerdictStore keeps one JSON object per address under
// verdicts:<category>:<address>, expiring after ttl.
type VerdictStore struct {
	client   redis.UniversalClient
	category model.Category
	ttl      time.Duration
}

func NewVerdictStore(client redis.UniversalClient, category model.Category, ttl time.Duration) *VerdictStore {
	return &VerdictStore{client: client, category: category, ttl: ttl}
}

func (s *VerdictStore) key(address model.Address) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, s.category, model.NormalizeAddress(address))
}

func (s *VerdictStore) Load(ctx context.Context, address model.Address) (map[model.ItemID]bool, bool, error) {
	raw, err := s.client.Get(ctx, s.key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", s.key(address), err)
	}
	verdicts, err := decodeVerdicts(raw)
	if err != nil {
		return nil, false, err
	}
	return verdicts, true, nil
}

func (s *VerdictStore) Save(ctx context.Context, address model.Address, verdicts map[model.ItemID]bool) error {
	raw, err := json.Marshal(verdicts)
	if err != nil {
		return fmt.Errorf("marshal verdicts: %w", err)
	}
	if err := s.client.Set(ctx, s.key(address), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key(address), err)
	}
	return nil
}

func decodeVerdicts(raw []byte) (map[model.ItemID]bool, error) {
	verdicts := make(map[model.ItemID]bool)
	if err := json.Unmarshal(raw, &verdicts); err != nil {
		return nil, fmt.Errorf("unmarshal verdicts: %w", err)
	}
	return verdicts, nil
}
