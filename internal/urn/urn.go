// Package urn parses item URNs into a tagged union shared by every
// ownership component.
package urn

import (
	"regexp"
	"strings"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
)

type Kind int

const (
	KindUnparsable Kind = iota
	KindOnChain
	KindThirdParty
	KindOffChain
)

func (k Kind) String() string {
	switch k {
	case KindOnChain:
		return "on-chain"
	case KindThirdParty:
		return "third-party"
	case KindOffChain:
		return "off-chain"
	default:
		return "unparsable"
	}
}

const (
	prefixURN          = "urn"
	namespace          = "decentraland"
	protocolOffChain   = "off-chain"
	typeBaseAvatars    = "base-avatars"
	typeCollectionsV1  = "collections-v1"
	typeCollectionsV2  = "collections-v2"
	typeThirdParty     = "collections-thirdparty"
	thirdPartySegments = 7
	linkedSegments     = 10
)

var (
	hexAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	decimal    = regexp.MustCompile(`^[0-9]+$`)
)

// Ref is the parsed form of an item URN. Which fields are set depends on Kind.
type Ref struct {
	Kind Kind
	Raw  string

	Network model.Network

	// On-chain: collection name (v1) or contract address (v2).
	// Third-party: collection id.
	Collection string
	Item       string
	TokenID    string

	ThirdPartyName string

	// Set only for linked third-party items.
	Asset *model.AssetRef

	// Off-chain base avatar name.
	Name string
}

// Parse never fails; unknown shapes yield KindUnparsable.
func Parse(raw string) Ref {
	ref := Ref{Kind: KindUnparsable, Raw: raw}
	seg := strings.Split(strings.TrimSpace(raw), ":")
	if len(seg) < 4 || !strings.EqualFold(seg[0], prefixURN) || !strings.EqualFold(seg[1], namespace) {
		return ref
	}
	for _, s := range seg {
		if s == "" {
			return ref
		}
	}

	if strings.EqualFold(seg[2], protocolOffChain) {
		if len(seg) == 5 && strings.EqualFold(seg[3], typeBaseAvatars) {
			ref.Kind = KindOffChain
			ref.Name = seg[4]
		}
		return ref
	}

	network, ok := model.ParseNetwork(seg[2])
	if !ok {
		return ref
	}
	ref.Network = network

	switch strings.ToLower(seg[3]) {
	case typeCollectionsV1:
		if len(seg) != 6 && len(seg) != 7 {
			return ref
		}
		ref.Collection = strings.ToLower(seg[4])
		ref.Item = seg[5]
		if len(seg) == 7 {
			ref.TokenID = seg[6]
		}
		ref.Kind = KindOnChain
	case typeCollectionsV2:
		if (len(seg) != 6 && len(seg) != 7) || !hexAddress.MatchString(seg[4]) {
			return ref
		}
		ref.Collection = strings.ToLower(seg[4])
		ref.Item = seg[5]
		if len(seg) == 7 {
			if !decimal.MatchString(seg[6]) {
				return ref
			}
			ref.TokenID = seg[6]
		}
		ref.Kind = KindOnChain
	case typeThirdParty:
		return parseThirdParty(ref, seg)
	}
	return ref
}

func parseThirdParty(ref Ref, seg []string) Ref {
	switch len(seg) {
	case thirdPartySegments:
	case linkedSegments:
		chainNet, ok := model.ParseNetwork(seg[7])
		if !ok || !hexAddress.MatchString(seg[8]) || !decimal.MatchString(seg[9]) {
			return ref
		}
		ref.Asset = &model.AssetRef{
			Network:         chainNet,
			ContractAddress: strings.ToLower(seg[8]),
			TokenID:         seg[9],
			AssetURN:        strings.ToLower(strings.Join(seg[:thirdPartySegments], ":")),
		}
	default:
		return ref
	}
	ref.ThirdPartyName = strings.ToLower(seg[4])
	ref.Collection = strings.ToLower(seg[5])
	ref.Item = strings.ToLower(seg[6])
	ref.Kind = KindThirdParty
	return ref
}

func (r Ref) Valid() bool {
	return r.Kind != KindUnparsable
}

// IsLinked reports whether the URN references a concrete chain asset.
func (r Ref) IsLinked() bool {
	return r.Kind == KindThirdParty && r.Asset != nil
}

// ItemURN is the lower-cased URN of the item definition, without token ids
// or linked-asset suffixes. Empty for unparsable refs.
func (r Ref) ItemURN() string {
	seg := strings.Split(strings.ToLower(strings.TrimSpace(r.Raw)), ":")
	switch r.Kind {
	case KindOnChain:
		return strings.Join(seg[:6], ":")
	case KindThirdParty:
		return strings.Join(seg[:thirdPartySegments], ":")
	case KindOffChain:
		return strings.Join(seg, ":")
	default:
		return ""
	}
}

// RegistryID is the third-party registry URN the item belongs to.
func (r Ref) RegistryID() string {
	if r.Kind != KindThirdParty {
		return ""
	}
	seg := strings.Split(strings.ToLower(strings.TrimSpace(r.Raw)), ":")
	return strings.Join(seg[:5], ":")
}

// ParseAsset resolves a linked third-party URN to its chain asset.
func ParseAsset(raw string) (model.AssetRef, bool) {
	ref := Parse(raw)
	if !ref.IsLinked() {
		return model.AssetRef{}, false
	}
	return *ref.Asset, true
}
