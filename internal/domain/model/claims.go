package model

import "strings"

// Address is a lower-cased hex wallet address.
type Address = string

// ItemID is an opaque claimed item identifier (URN or bare name).
type ItemID = string

// NormalizeAddress lower-cases and trims a wallet or contract address.
func NormalizeAddress(addr string) Address {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ClaimEntry is one (address, items) pair of a shard.
type ClaimEntry struct {
	Address Address
	Items   []ItemID
}

// OwnedResult is what an indexer query returns for one owner.
type OwnedResult struct {
	Owner      Address
	OwnedItems []ItemID
}

// Claims maps addresses to claimed items, preserving address insertion order.
// The zero value is not usable; use NewClaims.
type Claims struct {
	order []Address
	items map[Address][]ItemID
}

func NewClaims() *Claims {
	return &Claims{items: make(map[Address][]ItemID)}
}

// ClaimsFromMap builds Claims from a plain map. Address order follows the
// order of the keys slice when given, otherwise map iteration order.
func ClaimsFromMap(m map[string][]ItemID, keys ...string) *Claims {
	c := NewClaims()
	if len(keys) == 0 {
		for addr := range m {
			keys = append(keys, addr)
		}
	}
	for _, addr := range keys {
		c.Add(addr, m[addr]...)
	}
	return c
}

// Add appends items to the address's claim list. The address is normalized.
// Adding an address with no items still registers it.
func (c *Claims) Add(addr string, items ...ItemID) {
	key := NormalizeAddress(addr)
	existing, ok := c.items[key]
	if !ok {
		c.order = append(c.order, key)
		existing = make([]ItemID, 0, len(items))
	}
	c.items[key] = append(existing, items...)
}

// Set replaces the address's claim list.
func (c *Claims) Set(addr string, items []ItemID) {
	key := NormalizeAddress(addr)
	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = items
}

func (c *Claims) Has(addr string) bool {
	_, ok := c.items[NormalizeAddress(addr)]
	return ok
}

func (c *Claims) Items(addr string) []ItemID {
	return c.items[NormalizeAddress(addr)]
}

// Addresses returns the addresses in insertion order.
func (c *Claims) Addresses() []Address {
	out := make([]Address, len(c.order))
	copy(out, c.order)
	return out
}

// Entries returns the ordered (address, items) pairs.
func (c *Claims) Entries() []ClaimEntry {
	out := make([]ClaimEntry, 0, len(c.order))
	for _, addr := range c.order {
		out = append(out, ClaimEntry{Address: addr, Items: c.items[addr]})
	}
	return out
}

// Len is the number of addresses.
func (c *Claims) Len() int {
	return len(c.order)
}

// ItemCount is the total number of claimed items over all addresses.
func (c *Claims) ItemCount() int {
	n := 0
	for _, items := range c.items {
		n += len(items)
	}
	return n
}

// ToMap returns a copy as a plain map.
func (c *Claims) ToMap() map[Address][]ItemID {
	out := make(map[Address][]ItemID, len(c.items))
	for addr, items := range c.items {
		cp := make([]ItemID, len(items))
		copy(cp, items)
		out[addr] = cp
	}
	return out
}

// ProfileClaims is the slice of profile metadata the checkers extract claims from.
type ProfileClaims struct {
	Address   Address
	Wearables []ItemID
	Emotes    []ItemID
	Names     []string
}
