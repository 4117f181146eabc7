package subgraph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/urn"
	"golang.org/x/sync/errgroup"
)

const wearablesWhere = "owner: %s, urn_in: %s"

// WearablesChecker verifies on-chain wearables and emotes. Ethereum items go
// to the ethereum collections subgraph, polygon items to the matic one; the
// two are queried in parallel.
type WearablesChecker struct {
	subgraphs map[model.Chain]Querier
	logger    *slog.Logger
}

func NewWearablesChecker(ethereum, matic Querier, logger *slog.Logger) *WearablesChecker {
	subgraphs := make(map[model.Chain]Querier, 2)
	if ethereum != nil {
		subgraphs[model.ChainEthereum] = ethereum
	}
	if matic != nil {
		subgraphs[model.ChainPolygon] = matic
	}
	return &WearablesChecker{
		subgraphs: subgraphs,
		logger:    logger.With("component", "wearables_checker"),
	}
}

func (c *WearablesChecker) Category() model.Category {
	return model.CategoryWearables
}

// ExtractClaims keeps the on-chain wearables and emotes of a profile. Base
// avatars are free and never claimed.
func (c *WearablesChecker) ExtractClaims(profile model.ProfileClaims) []model.ItemID {
	out := make([]model.ItemID, 0, len(profile.Wearables)+len(profile.Emotes))
	seen := make(map[model.ItemID]struct{}, cap(out))
	for _, item := range append(append([]model.ItemID{}, profile.Wearables...), profile.Emotes...) {
		if urn.Parse(item).Kind != urn.KindOnChain {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// QueryBatch answers for every address of the shard or fails as a whole, so a
// failing chain never revokes items.
func (c *WearablesChecker) QueryBatch(ctx context.Context, shard []model.ClaimEntry) ([]model.OwnedResult, error) {
	byChain := make(map[model.Chain][]fragment)
	for _, entry := range shard {
		keys := make(map[model.Chain][]string)
		seen := make(map[string]struct{})
		for _, item := range entry.Items {
			ref := urn.Parse(item)
			if ref.Kind != urn.KindOnChain {
				continue
			}
			key := strings.ToLower(ref.ItemURN())
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			chain := ref.Network.Chain()
			keys[chain] = append(keys[chain], key)
		}
		for chain, k := range keys {
			byChain[chain] = append(byChain[chain], fragment{owner: entry.Address, keys: k})
		}
	}

	for chain := range byChain {
		if _, ok := c.subgraphs[chain]; !ok {
			return nil, fmt.Errorf("no collections subgraph configured for %s", chain)
		}
	}

	owned := make(map[model.Chain]map[string]map[string]struct{}, len(byChain))
	g, gctx := errgroup.WithContext(ctx)
	for chain, fragments := range byChain {
		fragments := fragments
		querier := c.subgraphs[chain]
		result := make(map[string]map[string]struct{})
		owned[chain] = result
		g.Go(func() error {
			return queryOwned(gctx, querier, "ownedWearables", wearablesWhere, "urn", fragments, result)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug("wearables shard answered", "addresses", len(shard), "chains", len(byChain))

	out := make([]model.OwnedResult, 0, len(shard))
	for _, entry := range shard {
		res := model.OwnedResult{Owner: entry.Address, OwnedItems: []model.ItemID{}}
		for _, item := range entry.Items {
			ref := urn.Parse(item)
			if ref.Kind != urn.KindOnChain {
				continue
			}
			if _, ok := owned[ref.Network.Chain()][entry.Address][strings.ToLower(ref.ItemURN())]; ok {
				res.OwnedItems = append(res.OwnedItems, item)
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// queryOwned runs the aliased query and fills result[owner] with the lower-cased
// values of field found for that owner.
func queryOwned(
	ctx context.Context,
	querier Querier,
	name, where, field string,
	fragments []fragment,
	result map[string]map[string]struct{},
) error {
	query, vars := buildOwnershipQuery(name, where, field, fragments)
	var data map[string][]map[string]interface{}
	if err := querier.Query(ctx, query, vars, &data); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for i, f := range fragments {
		set := make(map[string]struct{})
		for _, row := range data[alias(i)] {
			if v, ok := row[field].(string); ok {
				set[strings.ToLower(v)] = struct{}{}
			}
		}
		result[f.owner] = set
	}
	return nil
}
