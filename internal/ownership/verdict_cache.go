package ownership

import (
	"context"
	"log/slog"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
)

// VerdictCache holds address -> {item -> owned} for one category. A cached
// verdict is authoritative until the store expires it.
type VerdictCache struct {
	category model.Category
	store    VerdictStore
	logger   *slog.Logger
}

func NewVerdictCache(category model.Category, store VerdictStore, logger *slog.Logger) *VerdictCache {
	return &VerdictCache{
		category: category,
		store:    store,
		logger:   logger.With("component", "verdict_cache", "category", category.String()),
	}
}

// Get returns the cached verdicts of address. A store failure reads as a miss.
func (c *VerdictCache) Get(ctx context.Context, address string) (map[model.ItemID]bool, bool) {
	verdicts, ok, err := c.store.Load(ctx, model.NormalizeAddress(address))
	if err != nil {
		c.logger.Warn("verdict store load failed", "address", address, "error", err)
		return nil, false
	}
	return verdicts, ok
}

func (c *VerdictCache) Set(ctx context.Context, address string, verdicts map[model.ItemID]bool) {
	if err := c.store.Save(ctx, model.NormalizeAddress(address), verdicts); err != nil {
		c.logger.Warn("verdict store save failed", "address", address, "error", err)
		return
	}
	metrics.VerdictCacheWrites.WithLabelValues(c.category.String()).Inc()
}

func (c *VerdictCache) Has(ctx context.Context, address string) bool {
	_, ok := c.Get(ctx, address)
	return ok
}

// PartitionClaims splits claims into items that still need verification and
// items already known to be owned. Items cached as not owned are dropped.
// With bypass every claim is pending.
func (c *VerdictCache) PartitionClaims(ctx context.Context, claims *model.Claims, bypass bool) (pending, cachedOwned *model.Claims) {
	pending = model.NewClaims()
	cachedOwned = model.NewClaims()
	if bypass {
		for _, e := range claims.Entries() {
			pending.Add(e.Address, e.Items...)
		}
		return pending, cachedOwned
	}

	var hits, misses int
	for _, e := range claims.Entries() {
		if len(e.Items) == 0 {
			continue
		}
		cached, ok := c.Get(ctx, e.Address)
		if !ok {
			pending.Add(e.Address, e.Items...)
			misses += len(e.Items)
			continue
		}
		for _, item := range e.Items {
			owned, known := cached[item]
			switch {
			case !known:
				pending.Add(e.Address, item)
				misses++
			case owned:
				cachedOwned.Add(e.Address, item)
				hits++
			default:
				hits++
			}
		}
	}

	metrics.VerdictCacheHits.WithLabelValues(c.category.String()).Add(float64(hits))
	metrics.VerdictCacheMisses.WithLabelValues(c.category.String()).Add(float64(misses))
	return pending, cachedOwned
}

// FillFromVerification writes a verdict for every pending item, owned or not,
// merged into the address's existing map and stored as one write per address.
func (c *VerdictCache) FillFromVerification(ctx context.Context, pending, verifiedOwned *model.Claims) {
	for _, e := range pending.Entries() {
		owned := make(map[model.ItemID]struct{})
		for _, item := range verifiedOwned.Items(e.Address) {
			owned[item] = struct{}{}
		}

		verdicts, ok := c.Get(ctx, e.Address)
		if !ok {
			verdicts = make(map[model.ItemID]bool, len(e.Items))
		}
		for _, item := range e.Items {
			_, isOwned := owned[item]
			verdicts[item] = isOwned
		}
		c.Set(ctx, e.Address, verdicts)
	}
}

// MergeOwned unions two owned sets by address. Item lists are concatenated
// without de-duplication; callers de-duplicate at the edge if they need to.
func MergeOwned(cachedOwned, verified *model.Claims) *model.Claims {
	out := model.NewClaims()
	for _, e := range cachedOwned.Entries() {
		out.Add(e.Address, e.Items...)
	}
	for _, e := range verified.Entries() {
		out.Add(e.Address, e.Items...)
	}
	return out
}
