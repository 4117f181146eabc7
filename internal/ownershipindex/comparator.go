package ownershipindex

import (
	"context"
	"log/slog"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
)

// Source is the ownership-index call the comparator depends on.
type Source interface {
	OwnsItemsByAddress(ctx context.Context, claims *model.Claims) (*model.Claims, error)
}

// Comparator logs drift between indexer verdicts and the ownership index.
// Its findings never feed back into verdicts or caches.
type Comparator struct {
	source Source
	logger *slog.Logger
}

func NewComparator(source Source, logger *slog.Logger) *Comparator {
	return &Comparator{
		source: source,
		logger: logger.With("component", "ownership_index_comparator"),
	}
}

// Mismatch is the per-address difference between the two sources.
type Mismatch struct {
	Address        model.Address
	OnlyInSubgraph []model.ItemID
	OnlyInIndex    []model.ItemID
}

func (c *Comparator) Compare(ctx context.Context, category model.Category, claims, subgraphOwned *model.Claims) {
	label := category.String()
	indexOwned, err := c.source.OwnsItemsByAddress(ctx, claims)
	if err != nil {
		metrics.FallbackComparisons.WithLabelValues(label, "error").Inc()
		c.logger.Warn("ownership index cross-check failed", "category", label, "error", err)
		return
	}

	mismatches := Diff(claims, subgraphOwned, indexOwned)
	if len(mismatches) == 0 {
		metrics.FallbackComparisons.WithLabelValues(label, "match").Inc()
		return
	}

	metrics.FallbackComparisons.WithLabelValues(label, "mismatch").Inc()
	for _, m := range mismatches {
		metrics.FallbackMismatchedItems.WithLabelValues(label).Add(float64(len(m.OnlyInSubgraph) + len(m.OnlyInIndex)))
		c.logger.Warn("ownership sources disagree",
			"category", label,
			"address", m.Address,
			"only_in_subgraph", m.OnlyInSubgraph,
			"only_in_index", m.OnlyInIndex,
		)
	}
}

// Diff compares the owned sets of both sources for every claimed address.
// Items are compared as sets.
func Diff(claims, subgraphOwned, indexOwned *model.Claims) []Mismatch {
	var out []Mismatch
	for _, addr := range claims.Addresses() {
		a := toSet(subgraphOwned.Items(addr))
		b := toSet(indexOwned.Items(addr))
		m := Mismatch{Address: addr}
		for _, item := range claims.Items(addr) {
			_, inA := a[item]
			_, inB := b[item]
			switch {
			case inA && !inB:
				m.OnlyInSubgraph = appendOnce(m.OnlyInSubgraph, item)
			case inB && !inA:
				m.OnlyInIndex = appendOnce(m.OnlyInIndex, item)
			}
		}
		if len(m.OnlyInSubgraph) > 0 || len(m.OnlyInIndex) > 0 {
			out = append(out, m)
		}
	}
	return out
}

func toSet(items []model.ItemID) map[model.ItemID]struct{} {
	out := make(map[model.ItemID]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func appendOnce(items []model.ItemID, item model.ItemID) []model.ItemID {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}
