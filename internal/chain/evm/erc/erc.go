// Package erc packs and decodes the ERC-165, ERC-721 and ERC-1155 calls used
// for ownership checks.
package erc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const tokenABI = `[
  {"type":"function","name":"supportsInterface","stateMutability":"view",
   "inputs":[{"name":"interfaceId","type":"bytes4"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`

var (
	InterfaceERC721  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	InterfaceERC1155 = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)

var parsed = mustParse(tokenABI)

func mustParse(raw string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("erc: parse abi: %v", err))
	}
	return a
}

// SupportsInterfaceData returns hex calldata for supportsInterface(id).
func SupportsInterfaceData(id [4]byte) (string, error) {
	return pack("supportsInterface", id)
}

// OwnerOfData returns hex calldata for ownerOf(tokenID).
func OwnerOfData(tokenID *big.Int) (string, error) {
	return pack("ownerOf", tokenID)
}

// BalanceOfData returns hex calldata for the ERC-1155 balanceOf(owner, tokenID).
func BalanceOfData(owner string, tokenID *big.Int) (string, error) {
	if !common.IsHexAddress(owner) {
		return "", fmt.Errorf("balanceOf: invalid owner address %q", owner)
	}
	return pack("balanceOf", common.HexToAddress(owner), tokenID)
}

func pack(method string, args ...interface{}) (string, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("pack %s: %w", method, err)
	}
	return hexutil.Encode(data), nil
}

// DecodeBool decodes a supportsInterface result.
func DecodeBool(data []byte) (bool, error) {
	out, err := unpackOne("supportsInterface", data)
	if err != nil {
		return false, err
	}
	v, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("supportsInterface: unexpected output %T", out)
	}
	return v, nil
}

// DecodeOwner decodes an ownerOf result into a lower-cased hex address.
func DecodeOwner(data []byte) (string, error) {
	out, err := unpackOne("ownerOf", data)
	if err != nil {
		return "", err
	}
	addr, ok := out.(common.Address)
	if !ok {
		return "", fmt.Errorf("ownerOf: unexpected output %T", out)
	}
	return strings.ToLower(addr.Hex()), nil
}

// DecodeBalance decodes an ERC-1155 balanceOf result.
func DecodeBalance(data []byte) (*big.Int, error) {
	out, err := unpackOne("balanceOf", data)
	if err != nil {
		return nil, err
	}
	v, ok := out.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected output %T", out)
	}
	return v, nil
}

func unpackOne(method string, data []byte) (interface{}, error) {
	values, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: got %d outputs", method, len(values))
	}
	return values[0], nil
}

// ParseTokenID parses a decimal token id.
func ParseTokenID(raw string) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok || id.Sign() < 0 {
		return nil, false
	}
	return id, true
}
