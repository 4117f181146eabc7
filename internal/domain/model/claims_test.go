package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaims_PreservesInsertionOrder(t *testing.T) {
	c := NewClaims()
	c.Add("0xC", "c1")
	c.Add("0xA", "a1")
	c.Add("0xB", "b1", "b2")
	c.Add("0xa", "a2")

	assert.Equal(t, []Address{"0xc", "0xa", "0xb"}, c.Addresses())
	assert.Equal(t, []ItemID{"a1", "a2"}, c.Items("0XA"))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 5, c.ItemCount())
}

func TestClaims_EntriesAndToMap(t *testing.T) {
	c := ClaimsFromMap(map[string][]ItemID{
		"0xB": {"b"},
		"0xA": {"a"},
	}, "0xB", "0xA")

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, ClaimEntry{Address: "0xb", Items: []ItemID{"b"}}, entries[0])
	assert.Equal(t, ClaimEntry{Address: "0xa", Items: []ItemID{"a"}}, entries[1])

	m := c.ToMap()
	m["0xa"][0] = "mutated"
	assert.Equal(t, []ItemID{"a"}, c.Items("0xa"), "ToMap must copy item slices")
}

func TestClaims_AddWithoutItemsRegistersAddress(t *testing.T) {
	c := NewClaims()
	c.Add("0xA")
	assert.True(t, c.Has("0xa"))
	assert.Empty(t, c.Items("0xa"))
	assert.Equal(t, 0, c.ItemCount())
}

func TestClaims_Set(t *testing.T) {
	c := NewClaims()
	c.Add("0xA", "a1")
	c.Set("0xA", []ItemID{"a2"})
	c.Set("0xB", nil)
	assert.Equal(t, []ItemID{"a2"}, c.Items("0xa"))
	assert.Equal(t, []Address{"0xa", "0xb"}, c.Addresses())
}
