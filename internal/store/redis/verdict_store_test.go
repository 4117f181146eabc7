package redis

import (
	"testing"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdictStore_Key(t *testing.T) {
	s := NewVerdictStore(nil, model.CategoryThirdParty, time.Minute)
	assert.Equal(t, "verdicts:third-party:0xabc", s.key(" 0xABC "))
}

func TestDecodeVerdicts(t *testing.T) {
	got, err := decodeVerdicts([]byte(`{"u1":true,"u2":false}`))
	require.NoError(t, err)
	assert.Equal(t, map[model.ItemID]bool{"u1": true, "u2": false}, got)

	_, err = decodeVerdicts([]byte(`[1,2]`))
	assert.Error(t, err)
}
