package ownership

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/ownership/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestService(t *testing.T, checker Checker, comparator Comparator, fragmentSize int) *Service {
	t.Helper()
	svc, err := NewService(fragmentSize, []CategorySetup{{
		Checker:    checker,
		Store:      NewMemoryStore(100, time.Minute),
		Comparator: comparator,
	}}, slog.Default())
	require.NoError(t, err)
	return svc
}

func wearablesChecker(ctrl *gomock.Controller) *mocks.MockChecker {
	checker := mocks.NewMockChecker(ctrl)
	checker.EXPECT().Category().Return(model.CategoryWearables).AnyTimes()
	return checker
}

func TestReconcile_ColdThenWarmCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().
		QueryBatch(gomock.Any(), []model.ClaimEntry{{Address: "0xa", Items: []model.ItemID{"nft1", "nft2"}}}).
		Return([]model.OwnedResult{{Owner: "0xA", OwnedItems: []model.ItemID{"nft1"}}}, nil).
		Times(1)

	svc := newTestService(t, checker, nil, 10)

	r, err := svc.NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	r.AddClaims("0xA", "nft1", "nft2")
	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, []model.ItemID{"nft1"}, r.GetOwned("0xa"))

	// Same claims, warm cache: no indexer query.
	warm, err := svc.NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	warm.AddClaims("0xa", "nft1", "nft2")
	require.NoError(t, warm.Reconcile(context.Background()))
	assert.Equal(t, []model.ItemID{"nft1"}, warm.GetOwned("0xA"))

	pending, cachedOwned := svc.Cache(model.CategoryWearables).PartitionClaims(context.Background(),
		model.ClaimsFromMap(map[string][]model.ItemID{"0xa": {"nft1", "nft2"}}), false)
	assert.Zero(t, pending.Len())
	assert.Equal(t, map[model.Address][]model.ItemID{"0xa": {"nft1"}}, cachedOwned.ToMap())
}

func TestReconcile_TwiceIssuesNoExtraQueries(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).
		Return([]model.OwnedResult{{Owner: "0xa", OwnedItems: []model.ItemID{"nft1"}}}, nil).
		Times(1)

	r, err := newTestService(t, checker, nil, 10).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	r.AddClaims("0xa", "nft1")
	require.NoError(t, r.Reconcile(context.Background()))
	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, []model.ItemID{"nft1"}, r.GetOwned("0xa"))
}

func TestReconcile_OneShardFailsOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, shard []model.ClaimEntry) ([]model.OwnedResult, error) {
			if shard[0].Address == "0xa" {
				return nil, errors.New("indexer timeout")
			}
			return []model.OwnedResult{{Owner: "0xb", OwnedItems: []model.ItemID{}}}, nil
		}).
		Times(2)

	r, err := newTestService(t, checker, nil, 1).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	r.AddClaims("0xa", "nft1", "nft2")
	r.AddClaims("0xb", "nft3")
	require.NoError(t, r.Reconcile(context.Background()))

	assert.Equal(t, []model.ItemID{"nft1", "nft2"}, r.GetOwned("0xa"))
	assert.Empty(t, r.GetOwned("0xb"))
}

func TestReconciler_StateMachine(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).
		Return([]model.OwnedResult{{Owner: "0xa", OwnedItems: []model.ItemID{"nft1"}}}, nil)

	r, err := newTestService(t, checker, nil, 10).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, r.State())

	r.AddClaims("0xa", "nft1")
	assert.Equal(t, StateAccumulating, r.State())
	assert.Empty(t, r.GetOwned("0xa"), "not ready yet")
	assert.Empty(t, r.OwnedAll())

	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, StateReady, r.State())
	assert.Equal(t, "ready", r.State().String())

	r.AddClaims("0xb", "nft9")
	assert.Equal(t, StateAccumulating, r.State())
	assert.Empty(t, r.GetOwned("0xa"))
}

func TestReconciler_ClaimsAddedMidRoundKeepAccumulating(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)

	var r *Reconciler
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []model.ClaimEntry) ([]model.OwnedResult, error) {
			r.AddClaims("0xb", "late")
			return []model.OwnedResult{{Owner: "0xa", OwnedItems: []model.ItemID{"nft1"}}}, nil
		})

	var err error
	r, err = newTestService(t, checker, nil, 10).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	r.AddClaims("0xa", "nft1")
	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, StateAccumulating, r.State())
}

func TestReconciler_EmptyReconcileIsReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)

	r, err := newTestService(t, checker, nil, 10).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, StateReady, r.State())
	assert.Empty(t, r.OwnedAll())
}

func TestReconciler_AddProfileUsesExtractClaims(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	profile := model.ProfileClaims{Address: "0xA", Wearables: []model.ItemID{"w1"}, Names: []string{"alice"}}
	checker.EXPECT().ExtractClaims(profile).Return([]model.ItemID{"w1"})
	checker.EXPECT().QueryBatch(gomock.Any(), []model.ClaimEntry{{Address: "0xa", Items: []model.ItemID{"w1"}}}).
		Return([]model.OwnedResult{{Owner: "0xa", OwnedItems: []model.ItemID{"w1"}}}, nil)

	r, err := newTestService(t, checker, nil, 10).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	r.AddProfile(profile)
	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, []model.ItemID{"w1"}, r.GetOwned("0xa"))
}

func TestReconcile_ComparatorRunsInBackground(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).
		Return([]model.OwnedResult{{Owner: "0xa", OwnedItems: []model.ItemID{"nft1"}}}, nil)

	release := make(chan struct{})
	comparator := mocks.NewMockComparator(ctrl)
	comparator.EXPECT().
		Compare(gomock.Any(), model.CategoryWearables, gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, _ model.Category, claims, owned *model.Claims) {
			<-release
			assert.Equal(t, []model.ItemID{"nft1", "nft2"}, claims.Items("0xa"))
			assert.Equal(t, []model.ItemID{"nft1"}, owned.Items("0xa"))
		})

	r, err := newTestService(t, checker, comparator, 10).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	r.AddClaims("0xa", "nft1", "nft2")

	// Reconcile returns while the comparator is still blocked.
	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, []model.ItemID{"nft1"}, r.GetOwned("0xa"))

	close(release)
	r.Wait()
}

func TestReconcile_ComparatorSkipsFailedOpenAddresses(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, shard []model.ClaimEntry) ([]model.OwnedResult, error) {
			if shard[0].Address == "0xa" {
				return nil, errors.New("indexer 502")
			}
			return []model.OwnedResult{{Owner: "0xb", OwnedItems: []model.ItemID{"nft3"}}}, nil
		}).
		Times(2)

	comparator := mocks.NewMockComparator(ctrl)
	comparator.EXPECT().
		Compare(gomock.Any(), model.CategoryWearables, gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, _ model.Category, claims, _ *model.Claims) {
			assert.Equal(t, []model.Address{"0xb"}, claims.Addresses())
		})

	r, err := newTestService(t, checker, comparator, 1).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	r.AddClaims("0xa", "nft1", "nft2")
	r.AddClaims("0xb", "nft3")
	require.NoError(t, r.Reconcile(context.Background()))
	r.Wait()

	assert.Equal(t, []model.ItemID{"nft1", "nft2"}, r.GetOwned("0xa"))
}

func TestReconcile_ComparatorNotCalledWhenEverythingFailedOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).Return(nil, errors.New("indexer down"))
	comparator := mocks.NewMockComparator(ctrl)

	r, err := newTestService(t, checker, comparator, 10).NewReconciler(model.CategoryWearables)
	require.NoError(t, err)
	r.AddClaims("0xa", "nft1")
	require.NoError(t, r.Reconcile(context.Background()))
	r.Wait()
}

func TestReconcile_WithComparatorNilDisablesFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).Return(nil, nil)
	comparator := mocks.NewMockComparator(ctrl)

	r, err := newTestService(t, checker, comparator, 10).NewReconciler(model.CategoryWearables, WithComparator(nil))
	require.NoError(t, err)
	r.AddClaims("0xa", "nft1")
	require.NoError(t, r.Reconcile(context.Background()))
	r.Wait()
}

func TestReconcile_BypassCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := wearablesChecker(ctrl)
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).
		Return([]model.OwnedResult{{Owner: "0xa", OwnedItems: []model.ItemID{"nft1"}}}, nil).
		Times(2)

	svc := newTestService(t, checker, nil, 10)
	for i := 0; i < 2; i++ {
		r, err := svc.NewReconciler(model.CategoryWearables, WithBypassCache())
		require.NoError(t, err)
		r.AddClaims("0xa", "nft1")
		require.NoError(t, r.Reconcile(context.Background()))
	}
}

func TestReconcile_UnavailableIsReportedAndNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mocks.NewMockChecker(ctrl)
	checker.EXPECT().Category().Return(model.CategoryThirdParty).AnyTimes()
	checker.EXPECT().QueryBatch(gomock.Any(), gomock.Any()).
		Return(nil, &UnavailableError{Category: model.CategoryThirdParty, Addresses: []model.Address{"0xa"}, Err: errors.New("rpc down")}).
		Times(2)

	svc := newTestService(t, checker, nil, 10)
	ctx := context.Background()
	svc.Cache(model.CategoryThirdParty).Set(ctx, "0xa", map[model.ItemID]bool{"cached": true})

	r, err := svc.NewReconciler(model.CategoryThirdParty)
	require.NoError(t, err)
	r.AddClaims("0xa", "cached", "linked")

	err = r.Reconcile(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationUnavailable)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []model.Address{"0xa"}, unavailable.Addresses)

	assert.Equal(t, StateReady, r.State())
	assert.Equal(t, []model.ItemID{"cached"}, r.GetOwned("0xa"))
	assert.Equal(t, []model.Address{"0xa"}, r.Unavailable())

	verdicts, ok := svc.Cache(model.CategoryThirdParty).Get(ctx, "0xa")
	require.True(t, ok)
	_, learned := verdicts["linked"]
	assert.False(t, learned, "unverified items must not be cached")

	// Still pending next time.
	require.Error(t, r.Reconcile(ctx))
}
