package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// CategorySetup wires one category: its checker, the store behind its
// verdict cache and an optional fallback comparator.
type CategorySetup struct {
	Checker    Checker
	Store      VerdictStore
	Comparator Comparator
}

type category struct {
	cache      *VerdictCache
	checker    Checker
	verifier   *SubgraphVerifier
	comparator Comparator
}

// Service owns the long-lived per-category caches and builds a Reconciler
// per request.
type Service struct {
	categories map[model.Category]*category
	logger     *slog.Logger
}

func NewService(fragmentSize int, setups []CategorySetup, logger *slog.Logger) (*Service, error) {
	s := &Service{
		categories: make(map[model.Category]*category, len(setups)),
		logger:     logger.With("component", "ownership_service"),
	}
	for _, setup := range setups {
		if setup.Checker == nil || setup.Store == nil {
			return nil, errors.New("category setup requires a checker and a store")
		}
		cat := setup.Checker.Category()
		if !cat.Valid() {
			return nil, fmt.Errorf("unknown category %q", cat)
		}
		if _, dup := s.categories[cat]; dup {
			return nil, fmt.Errorf("category %s configured twice", cat)
		}
		s.categories[cat] = &category{
			cache:      NewVerdictCache(cat, setup.Store, logger),
			checker:    setup.Checker,
			verifier:   NewSubgraphVerifier(cat, fragmentSize, logger),
			comparator: setup.Comparator,
		}
	}
	return s, nil
}

// Categories lists the configured categories in a stable order.
func (s *Service) Categories() []model.Category {
	out := make([]model.Category, 0, len(s.categories))
	for c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Cache returns the verdict cache of a category, or nil.
func (s *Service) Cache(cat model.Category) *VerdictCache {
	if c, ok := s.categories[cat]; ok {
		return c.cache
	}
	return nil
}

func (s *Service) NewReconciler(cat model.Category, opts ...ReconcilerOption) (*Reconciler, error) {
	c, ok := s.categories[cat]
	if !ok {
		return nil, fmt.Errorf("category %s is not configured", cat)
	}
	return newReconciler(c.cache, c.checker, c.verifier, c.comparator, s.logger, opts...), nil
}

// Verify reconciles claims of one category in a single call.
func (s *Service) Verify(ctx context.Context, cat model.Category, claims *model.Claims, bypass bool) (map[model.Address][]model.ItemID, error) {
	var opts []ReconcilerOption
	if bypass {
		opts = append(opts, WithBypassCache())
	}
	r, err := s.NewReconciler(cat, opts...)
	if err != nil {
		return nil, err
	}
	for _, e := range claims.Entries() {
		r.AddClaims(e.Address, e.Items...)
	}
	err = r.Reconcile(ctx)
	return r.OwnedAll(), err
}

// VerifyProfiles reconciles every configured category for the given profiles,
// categories in parallel. The returned reconcilers are Ready; the error joins
// the UnavailableErrors of categories that could not verify some addresses.
func (s *Service) VerifyProfiles(ctx context.Context, profiles []model.ProfileClaims, bypass bool) (map[model.Category]*Reconciler, error) {
	var opts []ReconcilerOption
	if bypass {
		opts = append(opts, WithBypassCache())
	}

	cats := s.Categories()
	reconcilers := make(map[model.Category]*Reconciler, len(cats))
	for _, cat := range cats {
		r, err := s.NewReconciler(cat, opts...)
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			r.AddProfile(p)
		}
		reconcilers[cat] = r
	}

	errs := make([]error, len(cats))
	var g errgroup.Group
	for i, cat := range cats {
		i := i
		r := reconcilers[cat]
		g.Go(func() error {
			errs[i] = r.Reconcile(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return reconcilers, errors.Join(errs...)
}
