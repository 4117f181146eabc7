package ownership

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
	"github.com/emperorhan/ownership-indexer/internal/tracing"
	"go.opentelemetry.io/otel/trace"
)

// QueryFunc asks an indexer which items of a shard are owned.
type QueryFunc func(ctx context.Context, shard []model.ClaimEntry) ([]model.OwnedResult, error)

// Verification is the outcome of SubgraphVerifier.Verify.
type Verification struct {
	// Owned has an entry for every claimed address except unavailable ones.
	Owned *model.Claims
	// FailedOpen are addresses whose claims were assumed owned.
	FailedOpen []model.Address
	// Unavailable are addresses whose query reported ErrVerificationUnavailable.
	Unavailable []model.Address
	// Err is the last UnavailableError cause, if any.
	Err error
}

// SubgraphVerifier runs sharded indexer queries. Shards go out one at a time
// to bound indexer load. An address whose shard failed keeps its full claim
// list (fail-open); an address the indexer answered for is trusted as is,
// including an empty answer.
type SubgraphVerifier struct {
	category     model.Category
	fragmentSize int
	tracer       trace.Tracer
	logger       *slog.Logger
}

func NewSubgraphVerifier(category model.Category, fragmentSize int, logger *slog.Logger) *SubgraphVerifier {
	if fragmentSize <= 0 {
		fragmentSize = DefaultFragmentSize
	}
	return &SubgraphVerifier{
		category:     category,
		fragmentSize: fragmentSize,
		tracer:       tracing.Tracer("ownership"),
		logger:       logger.With("component", "subgraph_verifier", "category", category.String()),
	}
}

func (v *SubgraphVerifier) Verify(ctx context.Context, claims *model.Claims, query QueryFunc) Verification {
	label := v.category.String()
	answered := model.NewClaims()
	unavailable := make(map[model.Address]struct{})
	var lastUnavailable error

	for i, shard := range SplitShards(claims, v.fragmentSize) {
		results, err := v.queryShard(ctx, i, shard, query)
		if err != nil {
			metrics.ShardQueryFailures.WithLabelValues(label).Inc()
			var unavailableErr *UnavailableError
			if !errors.As(err, &unavailableErr) {
				// Anything returned alongside a plain failure is discarded so
				// the whole shard fails open.
				v.logger.Warn("shard query failed",
					"shard", i,
					"addresses", len(shard),
					"discarded_results", len(results),
					"error", err,
				)
				continue
			}
			for _, addr := range unavailableErr.Addresses {
				unavailable[model.NormalizeAddress(addr)] = struct{}{}
			}
			lastUnavailable = err
		}
		// Partial results of an unavailable shard are still authoritative.
		for _, res := range results {
			answered.Add(res.Owner, res.OwnedItems...)
		}
	}

	out := Verification{Owned: model.NewClaims(), Err: lastUnavailable}
	for _, e := range claims.Entries() {
		if _, skip := unavailable[e.Address]; skip {
			out.Unavailable = append(out.Unavailable, e.Address)
			continue
		}
		if answered.Has(e.Address) {
			out.Owned.Set(e.Address, answered.Items(e.Address))
			continue
		}
		out.Owned.Set(e.Address, e.Items)
		out.FailedOpen = append(out.FailedOpen, e.Address)
	}
	if len(out.FailedOpen) > 0 {
		metrics.FailOpenAddresses.WithLabelValues(label).Add(float64(len(out.FailedOpen)))
		v.logger.Info("claims assumed owned after indexer failure", "addresses", len(out.FailedOpen))
	}
	return out
}

func (v *SubgraphVerifier) queryShard(ctx context.Context, index int, shard []model.ClaimEntry, query QueryFunc) (results []model.OwnedResult, err error) {
	label := v.category.String()
	ctx, span := tracing.Start(ctx, v.tracer, "ownership.shard_query",
		"category", label, "shard", strconv.Itoa(index))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	metrics.ShardQueriesTotal.WithLabelValues(label).Inc()
	results, err = query(ctx, shard)
	metrics.ShardQueryLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return results, err
}
