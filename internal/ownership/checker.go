package ownership

import (
	"context"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
)

// Checker is the category-specific part of a reconciliation: which profile
// items it owns and how to ask an indexer about a shard of them.
type Checker interface {
	Category() model.Category
	ExtractClaims(profile model.ProfileClaims) []model.ItemID
	QueryBatch(ctx context.Context, shard []model.ClaimEntry) ([]model.OwnedResult, error)
}

// Comparator cross-checks a verification result against a second source.
// It only observes; it never changes the verdict.
type Comparator interface {
	Compare(ctx context.Context, category model.Category, claims, subgraphOwned *model.Claims)
}
