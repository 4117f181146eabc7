package subgraph

import (
	"context"
	"log/slog"
	"strings"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
)

const namesWhere = "owner: %s, category: ens, name_in: %s"

// NamesChecker verifies claimed names against the marketplace subgraph.
// Names compare case-insensitively.
type NamesChecker struct {
	marketplace Querier
	logger      *slog.Logger
}

func NewNamesChecker(marketplace Querier, logger *slog.Logger) *NamesChecker {
	return &NamesChecker{
		marketplace: marketplace,
		logger:      logger.With("component", "names_checker"),
	}
}

func (c *NamesChecker) Category() model.Category {
	return model.CategoryNames
}

func (c *NamesChecker) ExtractClaims(profile model.ProfileClaims) []model.ItemID {
	out := make([]model.ItemID, 0, len(profile.Names))
	for _, name := range profile.Names {
		if strings.TrimSpace(name) != "" {
			out = append(out, name)
		}
	}
	return out
}

func (c *NamesChecker) QueryBatch(ctx context.Context, shard []model.ClaimEntry) ([]model.OwnedResult, error) {
	fragments := make([]fragment, 0, len(shard))
	for _, entry := range shard {
		keys := make([]string, 0, len(entry.Items))
		for _, name := range entry.Items {
			keys = append(keys, strings.ToLower(name))
		}
		fragments = append(fragments, fragment{owner: entry.Address, keys: keys})
	}

	owned := make(map[string]map[string]struct{}, len(fragments))
	if err := queryOwned(ctx, c.marketplace, "ownedNames", namesWhere, "name", fragments, owned); err != nil {
		return nil, err
	}
	c.logger.Debug("names shard answered", "addresses", len(shard))

	out := make([]model.OwnedResult, 0, len(shard))
	for _, entry := range shard {
		res := model.OwnedResult{Owner: entry.Address, OwnedItems: []model.ItemID{}}
		for _, name := range entry.Items {
			if _, ok := owned[entry.Address][strings.ToLower(name)]; ok {
				res.OwnedItems = append(res.OwnedItems, name)
			}
		}
		out = append(out, res)
	}
	return out, nil
}
