package thirdparty_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/onchain"
	"github.com/emperorhan/ownership-indexer/internal/ownership"
	"github.com/emperorhan/ownership-indexer/internal/thirdparty"
	"github.com/emperorhan/ownership-indexer/internal/thirdparty/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	registry    = "urn:decentraland:matic:collections-thirdparty:cryptoartist"
	legacyA     = registry + ":summer:hat"
	legacyB     = registry + ":summer:shoes"
	otherLegacy = "urn:decentraland:matic:collections-thirdparty:nobody:c:i"
	linkedItem  = registry + ":linked:glasses:mainnet:0x1111111111111111111111111111111111111111:7"
)

type fakeLinked struct {
	verdict onchain.LinkedVerdict
	calls   [][]string
}

func (f *fakeLinked) Verify(_ context.Context, _ string, urns []string) onchain.LinkedVerdict {
	f.calls = append(f.calls, urns)
	return f.verdict
}

func TestChecker_ExtractClaims(t *testing.T) {
	c := thirdparty.NewChecker(nil, &fakeLinked{}, slog.Default())
	got := c.ExtractClaims(model.ProfileClaims{
		Wearables: []model.ItemID{legacyA, "urn:decentraland:off-chain:base-avatars:hair", legacyA},
		Emotes:    []model.ItemID{linkedItem},
	})
	assert.Equal(t, []model.ItemID{legacyA, linkedItem}, got)
	assert.Equal(t, model.CategoryThirdParty, c.Category())
}

func TestChecker_QueryBatchLegacyAndLinked(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mocks.NewMockAssetLister(ctrl)
	lister.EXPECT().OwnedAssets(gomock.Any(), registry, "0xa").
		Return([]thirdparty.Asset{{ID: "1", URN: thirdparty.AssetURN{Decentraland: legacyA}}}, nil)

	linked := &fakeLinked{verdict: onchain.LinkedVerdict{Status: onchain.StatusVerified, Owned: []bool{true}}}
	c := thirdparty.NewChecker(map[string]thirdparty.AssetLister{registry: lister}, linked, slog.Default())

	got, err := c.QueryBatch(context.Background(), []model.ClaimEntry{
		{Address: "0xa", Items: []model.ItemID{linkedItem, legacyB, otherLegacy, legacyA}},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.OwnedResult{
		{Owner: "0xa", OwnedItems: []model.ItemID{linkedItem, legacyA}},
	}, got)
	assert.Equal(t, [][]string{{linkedItem}}, linked.calls)
}

func TestChecker_LinkedUnavailable(t *testing.T) {
	boom := errors.New("rpc down")
	linked := &fakeLinked{verdict: onchain.LinkedVerdict{Status: onchain.StatusUnavailable, Err: boom}}
	c := thirdparty.NewChecker(nil, linked, slog.Default())

	got, err := c.QueryBatch(context.Background(), []model.ClaimEntry{
		{Address: "0xa", Items: []model.ItemID{linkedItem}},
		{Address: "0xb", Items: []model.ItemID{otherLegacy}},
	})

	var unavailable *ownership.UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.ErrorIs(t, err, ownership.ErrVerificationUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []model.Address{"0xa"}, unavailable.Addresses)
	assert.Equal(t, []model.OwnedResult{{Owner: "0xb", OwnedItems: []model.ItemID{}}}, got)
}

func TestChecker_ResolverErrorIsUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mocks.NewMockAssetLister(ctrl)
	lister.EXPECT().OwnedAssets(gomock.Any(), registry, "0xa").Return(nil, context.DeadlineExceeded)

	c := thirdparty.NewChecker(map[string]thirdparty.AssetLister{registry: lister}, &fakeLinked{}, slog.Default())
	got, err := c.QueryBatch(context.Background(), []model.ClaimEntry{
		{Address: "0xa", Items: []model.ItemID{legacyA}},
	})
	assert.ErrorIs(t, err, ownership.ErrVerificationUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, got)
}

func TestChecker_Registries(t *testing.T) {
	c := thirdparty.NewChecker(map[string]thirdparty.AssetLister{
		"URN:decentraland:matic:collections-thirdparty:b": nil,
		"urn:decentraland:matic:collections-thirdparty:a": nil,
	}, &fakeLinked{}, slog.Default())
	assert.Equal(t, []string{
		"urn:decentraland:matic:collections-thirdparty:a",
		"urn:decentraland:matic:collections-thirdparty:b",
	}, c.Registries())
}
