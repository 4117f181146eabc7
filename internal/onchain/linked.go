package onchain

import (
	"context"
	"log/slog"

	"github.com/emperorhan/ownership-indexer/internal/metrics"
)

type Status int

const (
	StatusVerified Status = iota
	// StatusUnavailable means the chain could not be asked; it says nothing
	// about ownership.
	StatusUnavailable
)

func (s Status) String() string {
	if s == StatusUnavailable {
		return "unavailable"
	}
	return "verified"
}

// LinkedVerdict is the outcome of verifying a set of linked items. Owned is
// positional with the input and only meaningful when Status is verified.
type LinkedVerdict struct {
	Status Status
	Owned  []bool
	Err    error
}

// OwnedItems returns the input items whose verdict is true.
func (v LinkedVerdict) OwnedItems(items []string) []string {
	out := make([]string, 0, len(items))
	if v.Status != StatusVerified {
		return out
	}
	for i, item := range items {
		if i < len(v.Owned) && v.Owned[i] {
			out = append(out, item)
		}
	}
	return out
}

// ItemChecker is the positional on-chain check.
type ItemChecker interface {
	CheckItems(ctx context.Context, address string, urns []string) ([]bool, error)
}

// LinkedVerifier turns checker failures into StatusUnavailable so callers
// can tell "not owned" from "could not verify".
type LinkedVerifier struct {
	checker ItemChecker
	logger  *slog.Logger
}

func NewLinkedVerifier(checker ItemChecker, logger *slog.Logger) *LinkedVerifier {
	return &LinkedVerifier{
		checker: checker,
		logger:  logger.With("component", "linked_verifier"),
	}
}

func (v *LinkedVerifier) Verify(ctx context.Context, address string, urns []string) LinkedVerdict {
	owned, err := v.checker.CheckItems(ctx, address, urns)
	if err != nil {
		metrics.OnChainUnavailable.Inc()
		v.logger.Warn("on-chain verification unavailable",
			"address", address,
			"items", len(urns),
			"error", err,
		)
		return LinkedVerdict{Status: StatusUnavailable, Err: err}
	}
	return LinkedVerdict{Status: StatusVerified, Owned: owned}
}
