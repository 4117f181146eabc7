package thirdparty

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/onchain"
	"github.com/emperorhan/ownership-indexer/internal/ownership"
	"github.com/emperorhan/ownership-indexer/internal/urn"
	"golang.org/x/sync/errgroup"
)

const addressConcurrency = 4

// LinkedVerifier is the on-chain boundary for linked items.
type LinkedVerifier interface {
	Verify(ctx context.Context, address string, urns []string) onchain.LinkedVerdict
}

// Checker verifies the third-party category. Legacy items are looked up in
// the resolver registered for their registry id; items of a registry with no
// resolver are not owned. Linked items are checked on chain.
type Checker struct {
	resolvers map[string]AssetLister
	linked    LinkedVerifier
	logger    *slog.Logger
}

// NewChecker takes resolvers keyed by registry id
// (urn:decentraland:<net>:collections-thirdparty:<provider>).
func NewChecker(resolvers map[string]AssetLister, linked LinkedVerifier, logger *slog.Logger) *Checker {
	normalized := make(map[string]AssetLister, len(resolvers))
	for id, r := range resolvers {
		normalized[strings.ToLower(id)] = r
	}
	return &Checker{
		resolvers: normalized,
		linked:    linked,
		logger:    logger.With("component", "thirdparty_checker"),
	}
}

func (c *Checker) Category() model.Category {
	return model.CategoryThirdParty
}

// Registries lists the registry ids with a resolver, sorted.
func (c *Checker) Registries() []string {
	out := make([]string, 0, len(c.resolvers))
	for id := range c.resolvers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *Checker) ExtractClaims(profile model.ProfileClaims) []model.ItemID {
	out := make([]model.ItemID, 0)
	seen := make(map[model.ItemID]struct{})
	for _, items := range [][]model.ItemID{profile.Wearables, profile.Emotes} {
		for _, item := range items {
			if urn.Parse(item).Kind != urn.KindThirdParty {
				continue
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// QueryBatch answers every address it could verify. Addresses whose resolver
// or chain could not be reached are left out of the results and reported in
// an *ownership.UnavailableError alongside them.
func (c *Checker) QueryBatch(ctx context.Context, shard []model.ClaimEntry) ([]model.OwnedResult, error) {
	results := make([]*model.OwnedResult, len(shard))
	var (
		mu          sync.Mutex
		unavailable []model.Address
		lastErr     error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(addressConcurrency)
	for i, entry := range shard {
		i, entry := i, entry
		g.Go(func() error {
			owned, err := c.checkAddress(gctx, entry)
			if err != nil {
				mu.Lock()
				unavailable = append(unavailable, entry.Address)
				lastErr = err
				mu.Unlock()
				return nil
			}
			results[i] = &model.OwnedResult{Owner: entry.Address, OwnedItems: owned}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.OwnedResult, 0, len(shard))
	for _, res := range results {
		if res != nil {
			out = append(out, *res)
		}
	}
	if len(unavailable) > 0 {
		sort.Strings(unavailable)
		return out, &ownership.UnavailableError{
			Category:  model.CategoryThirdParty,
			Addresses: unavailable,
			Err:       lastErr,
		}
	}
	return out, nil
}

// checkAddress returns the owned subset of entry.Items in claim order.
func (c *Checker) checkAddress(ctx context.Context, entry model.ClaimEntry) ([]model.ItemID, error) {
	owned := make(map[model.ItemID]bool, len(entry.Items))
	legacy := make(map[string][]model.ItemID)
	var linked []model.ItemID

	for _, item := range entry.Items {
		ref := urn.Parse(item)
		switch {
		case ref.IsLinked():
			linked = append(linked, item)
		case ref.Kind == urn.KindThirdParty:
			legacy[ref.RegistryID()] = append(legacy[ref.RegistryID()], item)
		}
	}

	for registryID, items := range legacy {
		resolver, ok := c.resolvers[registryID]
		if !ok {
			c.logger.Debug("no resolver for registry", "registry", registryID, "items", len(items))
			continue
		}
		assets, err := resolver.OwnedAssets(ctx, registryID, entry.Address)
		if err != nil {
			return nil, err
		}
		held := make(map[string]struct{}, len(assets))
		for _, a := range assets {
			held[strings.ToLower(a.URN.Decentraland)] = struct{}{}
		}
		for _, item := range items {
			if _, ok := held[strings.ToLower(item)]; ok {
				owned[item] = true
			}
		}
	}

	if len(linked) > 0 {
		verdict := c.linked.Verify(ctx, entry.Address, linked)
		if verdict.Status == onchain.StatusUnavailable {
			return nil, verdict.Err
		}
		for _, item := range verdict.OwnedItems(linked) {
			owned[item] = true
		}
	}

	out := make([]model.ItemID, 0, len(owned))
	for _, item := range entry.Items {
		if owned[item] {
			out = append(out, item)
		}
	}
	return out, nil
}
