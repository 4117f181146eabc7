package model

// ContractType is the token standard a contract implements.
type ContractType int

const (
	ContractTypeUnknown ContractType = iota
	ContractTypeERC721
	ContractTypeERC1155
)

func (t ContractType) String() string {
	switch t {
	case ContractTypeERC721:
		return "erc721"
	case ContractTypeERC1155:
		return "erc1155"
	default:
		return "unknown"
	}
}

// ParseContractType is the inverse of String. Unrecognized values map to Unknown.
func ParseContractType(s string) ContractType {
	switch s {
	case "erc721":
		return ContractTypeERC721
	case "erc1155":
		return ContractTypeERC1155
	default:
		return ContractTypeUnknown
	}
}

// AssetRef is the chain asset a linked third-party item points to.
type AssetRef struct {
	Network         Network
	ContractAddress string // lower-cased
	TokenID         string // decimal
	// AssetURN is the item URN truncated to its collection item segment; it is
	// the content-server pointer of the item definition.
	AssetURN string
}
