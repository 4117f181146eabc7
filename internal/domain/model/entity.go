package model

import (
	"encoding/json"
	"math/big"
	"strings"
)

// Entity is the subset of a content-server entity the on-chain checker reads.
type Entity struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Pointers []string       `json:"pointers"`
	Metadata EntityMetadata `json:"metadata"`
}

type EntityMetadata struct {
	ID       string   `json:"id"`
	Mappings Mappings `json:"mappings,omitempty"`
}

type MappingType string

const (
	MappingSingle   MappingType = "single"
	MappingMultiple MappingType = "multiple"
	MappingRange    MappingType = "range"
	MappingAny      MappingType = "any"
)

// Mapping binds an item definition to a set of token ids of one contract.
type Mapping struct {
	Type MappingType `json:"type"`
	ID   string      `json:"id,omitempty"`
	IDs  []string    `json:"ids,omitempty"`
	From string      `json:"from,omitempty"`
	To   string      `json:"to,omitempty"`
}

// Mappings is network -> contract -> mappings.
type Mappings map[Network]map[string][]Mapping

// UnmarshalJSON drops malformed shapes instead of failing the whole entity;
// a malformed mapping simply never matches.
func (m *Mappings) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*m = nil
		return nil
	}
	out := make(Mappings, len(raw))
	for net, contracts := range raw {
		key, ok := ParseNetwork(net)
		if !ok {
			key = Network(strings.ToLower(net))
		}
		byContract := out[key]
		if byContract == nil {
			byContract = make(map[string][]Mapping, len(contracts))
		}
		for contract, entries := range contracts {
			for _, entry := range entries {
				var mp Mapping
				if err := json.Unmarshal(entry, &mp); err != nil {
					continue
				}
				byContract[strings.ToLower(contract)] = append(byContract[strings.ToLower(contract)], mp)
			}
		}
		out[key] = byContract
	}
	*m = out
	return nil
}

// Includes reports whether tokenID of contract on network is covered.
func (m Mappings) Includes(network Network, contract, tokenID string) bool {
	contracts, ok := m[network]
	if !ok {
		return false
	}
	entries, ok := contracts[strings.ToLower(contract)]
	if !ok {
		return false
	}
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return false
	}
	for _, mp := range entries {
		if mp.matches(id) {
			return true
		}
	}
	return false
}

func (mp Mapping) matches(id *big.Int) bool {
	switch mp.Type {
	case MappingAny:
		return true
	case MappingSingle:
		return equalsDecimal(id, mp.ID)
	case MappingMultiple:
		for _, candidate := range mp.IDs {
			if equalsDecimal(id, candidate) {
				return true
			}
		}
		return false
	case MappingRange:
		from, okFrom := new(big.Int).SetString(mp.From, 10)
		to, okTo := new(big.Int).SetString(mp.To, 10)
		if !okFrom || !okTo {
			return false
		}
		return id.Cmp(from) >= 0 && id.Cmp(to) <= 0
	default:
		return false
	}
}

func equalsDecimal(id *big.Int, raw string) bool {
	v, ok := new(big.Int).SetString(raw, 10)
	return ok && v.Cmp(id) == 0
}

// HasPointer reports whether the entity is addressed by pointer (case-insensitive).
func (e *Entity) HasPointer(pointer string) bool {
	for _, p := range e.Pointers {
		if strings.EqualFold(p, pointer) {
			return true
		}
	}
	return false
}
