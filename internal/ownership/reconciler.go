package ownership

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
	"github.com/emperorhan/ownership-indexer/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateReconciling
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateReconciling:
		return "reconciling"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

// Reconciler verifies the claims of one request for one category.
// Idle -> Accumulating (AddClaims) -> Reconciling -> Ready. GetOwned is only
// meaningful in Ready and returns nil before that; use State to tell
// "not reconciled yet" from "owns nothing".
type Reconciler struct {
	category   model.Category
	cache      *VerdictCache
	checker    Checker
	verifier   *SubgraphVerifier
	comparator Comparator
	bypass     bool
	tracer     trace.Tracer
	logger     *slog.Logger

	runMu sync.Mutex // serializes Reconcile
	wg    sync.WaitGroup

	mu          sync.Mutex
	state       State
	dirty       bool
	claims      *model.Claims
	owned       *model.Claims
	unavailable []model.Address
}

type ReconcilerOption func(*Reconciler)

// WithBypassCache forces every claim through verification.
func WithBypassCache() ReconcilerOption {
	return func(r *Reconciler) { r.bypass = true }
}

// WithComparator overrides the service's fallback comparator; nil disables it.
func WithComparator(c Comparator) ReconcilerOption {
	return func(r *Reconciler) { r.comparator = c }
}

func newReconciler(
	cache *VerdictCache,
	checker Checker,
	verifier *SubgraphVerifier,
	comparator Comparator,
	logger *slog.Logger,
	opts ...ReconcilerOption,
) *Reconciler {
	r := &Reconciler{
		category:   checker.Category(),
		cache:      cache,
		checker:    checker,
		verifier:   verifier,
		comparator: comparator,
		tracer:     tracing.Tracer("ownership"),
		logger:     logger.With("component", "reconciler", "category", checker.Category().String()),
		claims:     model.NewClaims(),
		owned:      model.NewClaims(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) Category() model.Category {
	return r.category
}

// AddClaims registers claimed items of address. Claims added while a
// reconcile is in flight are picked up by the next Reconcile.
func (r *Reconciler) AddClaims(address string, items ...model.ItemID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims.Add(address, items...)
	if r.state == StateReconciling {
		r.dirty = true
		return
	}
	r.state = StateAccumulating
}

// AddProfile registers the items of profile that belong to this category.
func (r *Reconciler) AddProfile(profile model.ProfileClaims) {
	r.AddClaims(profile.Address, r.checker.ExtractClaims(profile)...)
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reconcile verifies all claims added so far. For indexer-backed checks it
// never fails: indexer outages resolve to the claimed items. It returns an
// *UnavailableError when some addresses could not be verified at all; their
// previously cached owned items are still reported.
func (r *Reconciler) Reconcile(ctx context.Context) (err error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	r.mu.Lock()
	claims := model.ClaimsFromMap(r.claims.ToMap(), r.claims.Addresses()...)
	r.state = StateReconciling
	r.dirty = false
	r.mu.Unlock()

	roundID := uuid.NewString()
	label := r.category.String()
	log := r.logger.With("round_id", roundID)
	ctx, span := tracing.Start(ctx, r.tracer, "ownership.reconcile", "category", label, "round_id", roundID)
	defer func() { tracing.End(span, err) }()
	start := time.Now()

	pending, cachedOwned := r.cache.PartitionClaims(ctx, claims, r.bypass)

	verified := Verification{Owned: model.NewClaims()}
	if pending.Len() > 0 {
		verified = r.verifier.Verify(ctx, pending, r.checker.QueryBatch)
		r.compareAsync(ctx, pending, verified)

		fill := pending
		if len(verified.Unavailable) > 0 {
			fill = withoutAddresses(pending, verified.Unavailable)
		}
		r.cache.FillFromVerification(ctx, fill, verified.Owned)
	}

	owned := MergeOwned(cachedOwned, verified.Owned)
	r.recordItems(claims, owned)
	metrics.ReconcileLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())

	log.Debug("reconciled",
		"addresses", claims.Len(),
		"claimed", claims.ItemCount(),
		"pending", pending.ItemCount(),
		"owned", owned.ItemCount(),
		"failed_open", len(verified.FailedOpen),
		"unavailable", len(verified.Unavailable),
	)

	r.mu.Lock()
	r.owned = owned
	r.unavailable = verified.Unavailable
	if r.dirty {
		r.state = StateAccumulating
	} else {
		r.state = StateReady
	}
	r.mu.Unlock()

	if len(verified.Unavailable) > 0 {
		return &UnavailableError{Category: r.category, Addresses: verified.Unavailable, Err: verified.Err}
	}
	return nil
}

// compareAsync hands the round to the comparator without waiting for it.
// Only addresses the indexer actually answered for are compared: fail-open
// and unavailable addresses carry no indexer verdict.
func (r *Reconciler) compareAsync(ctx context.Context, pending *model.Claims, verified Verification) {
	if r.comparator == nil {
		return
	}
	claims := pending
	if skip := len(verified.Unavailable) + len(verified.FailedOpen); skip > 0 {
		drop := make([]model.Address, 0, skip)
		drop = append(drop, verified.Unavailable...)
		drop = append(drop, verified.FailedOpen...)
		claims = withoutAddresses(pending, drop)
	}
	if claims.Len() == 0 {
		return
	}
	// The comparison outlives the request; the comparator bounds itself.
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.comparator.Compare(ctx, r.category, claims, verified.Owned)
	}()
}

// Wait blocks until background comparisons started by Reconcile finish.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// GetOwned returns the verified owned items of address, or nil unless the
// reconciler is Ready.
func (r *Reconciler) GetOwned(address string) []model.ItemID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady {
		return nil
	}
	items := r.owned.Items(address)
	out := make([]model.ItemID, len(items))
	copy(out, items)
	return out
}

// OwnedAll returns a copy of every owned set, or an empty map unless Ready.
func (r *Reconciler) OwnedAll() map[model.Address][]model.ItemID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady {
		return map[model.Address][]model.ItemID{}
	}
	return r.owned.ToMap()
}

// Unavailable lists the addresses of the last round that could not be verified.
func (r *Reconciler) Unavailable() []model.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Address, len(r.unavailable))
	copy(out, r.unavailable)
	return out
}

func (r *Reconciler) recordItems(claims, owned *model.Claims) {
	label := r.category.String()
	ownedCount := owned.ItemCount()
	metrics.ReconcileItems.WithLabelValues(label, "owned").Add(float64(ownedCount))
	if rest := claims.ItemCount() - ownedCount; rest > 0 {
		metrics.ReconcileItems.WithLabelValues(label, "not_owned").Add(float64(rest))
	}
}

func withoutAddresses(claims *model.Claims, drop []model.Address) *model.Claims {
	skip := make(map[model.Address]struct{}, len(drop))
	for _, a := range drop {
		skip[a] = struct{}{}
	}
	out := model.NewClaims()
	for _, e := range claims.Entries() {
		if _, ok := skip[e.Address]; ok {
			continue
		}
		out.Set(e.Address, e.Items)
	}
	return out
}
