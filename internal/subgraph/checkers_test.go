package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubgraph answers every fragment from a fixed owner -> values table.
type fakeSubgraph struct {
	field string
	owned map[string][]string
	err   error

	mu      sync.Mutex
	queries []map[string]interface{}
}

func (f *fakeSubgraph) Query(_ context.Context, _ string, vars map[string]interface{}, out interface{}) error {
	f.mu.Lock()
	f.queries = append(f.queries, vars)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	data := make(map[string][]map[string]string)
	for i := 0; ; i++ {
		owner, ok := vars["owner"+strconv.Itoa(i)].(string)
		if !ok {
			break
		}
		keys := vars["keys"+strconv.Itoa(i)].([]string)
		rows := []map[string]string{}
		for _, v := range f.owned[owner] {
			for _, k := range keys {
				if k == v {
					rows = append(rows, map[string]string{f.field: v})
				}
			}
		}
		data[alias(i)] = rows
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

const (
	ethItem     = "urn:decentraland:ethereum:collections-v1:halloween_2019:bride_of_frankie_upper_body"
	polyItem    = "urn:decentraland:matic:collections-v2:0x1111111111111111111111111111111111111111:0"
	polyTokenID = polyItem + ":105312291668557186697918027683670432318895095400549111254310977537"
)

func TestWearablesChecker_ExtractClaims(t *testing.T) {
	c := NewWearablesChecker(nil, nil, slog.Default())
	got := c.ExtractClaims(model.ProfileClaims{
		Wearables: []model.ItemID{
			"urn:decentraland:off-chain:base-avatars:eyebrows_00",
			ethItem,
			"not-a-urn",
			ethItem,
		},
		Emotes: []model.ItemID{polyTokenID},
	})
	assert.Equal(t, []model.ItemID{ethItem, polyTokenID}, got)
}

func TestWearablesChecker_QueryBatchMapsBothChains(t *testing.T) {
	eth := &fakeSubgraph{field: "urn", owned: map[string][]string{"0xa": {ethItem}}}
	matic := &fakeSubgraph{field: "urn", owned: map[string][]string{"0xb": {polyItem}}}
	c := NewWearablesChecker(eth, matic, slog.Default())

	got, err := c.QueryBatch(context.Background(), []model.ClaimEntry{
		{Address: "0xa", Items: []model.ItemID{ethItem, polyTokenID}},
		{Address: "0xb", Items: []model.ItemID{polyTokenID}},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.OwnedResult{
		{Owner: "0xa", OwnedItems: []model.ItemID{ethItem}},
		{Owner: "0xb", OwnedItems: []model.ItemID{polyTokenID}},
	}, got)

	require.Len(t, matic.queries, 1)
	assert.Equal(t, []string{polyItem}, matic.queries[0]["keys0"], "token id is stripped before querying")
	require.Len(t, eth.queries, 1)
	assert.Equal(t, "0xa", eth.queries[0]["owner0"])
	_, hasSecond := eth.queries[0]["owner1"]
	assert.False(t, hasSecond, "addresses without ethereum items are not queried there")
}

func TestWearablesChecker_ChainFailureFailsShard(t *testing.T) {
	eth := &fakeSubgraph{field: "urn", owned: map[string][]string{"0xa": {ethItem}}}
	matic := &fakeSubgraph{field: "urn", err: errors.New("boom")}
	c := NewWearablesChecker(eth, matic, slog.Default())

	got, err := c.QueryBatch(context.Background(), []model.ClaimEntry{
		{Address: "0xa", Items: []model.ItemID{ethItem, polyItem}},
	})
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestWearablesChecker_MissingSubgraph(t *testing.T) {
	c := NewWearablesChecker(&fakeSubgraph{field: "urn"}, nil, slog.Default())
	_, err := c.QueryBatch(context.Background(), []model.ClaimEntry{
		{Address: "0xa", Items: []model.ItemID{polyItem}},
	})
	assert.ErrorContains(t, err, "polygon")
}

func TestNamesChecker_CaseInsensitive(t *testing.T) {
	marketplace := &fakeSubgraph{field: "name", owned: map[string][]string{"0xa": {"alice"}}}
	c := NewNamesChecker(marketplace, slog.Default())

	assert.Equal(t, []model.ItemID{"Alice", "bob"}, c.ExtractClaims(model.ProfileClaims{Names: []string{"Alice", " ", "bob"}}))

	got, err := c.QueryBatch(context.Background(), []model.ClaimEntry{
		{Address: "0xa", Items: []model.ItemID{"Alice", "bob"}},
		{Address: "0xb", Items: []model.ItemID{"carol"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.OwnedResult{
		{Owner: "0xa", OwnedItems: []model.ItemID{"Alice"}},
		{Owner: "0xb", OwnedItems: []model.ItemID{}},
	}, got)
	assert.Equal(t, model.CategoryNames, c.Category())
}
