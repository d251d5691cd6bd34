// Package record binds the record contract: an ERC-721 collection with a fixed
// supply, a mint price and a preview image.
package record

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names.
const (
	MethodMintPrice       = "mintPrice"
	MethodSupply          = "supply"
	MethodTokenCount      = "tokenCount"
	MethodPreviewImageURI = "previewImageURI"
	MethodTokenURI        = "tokenURI"
	MethodTokensOfOwner   = "tokensOfOwner"
	MethodMint            = "mint"
)

const recordABI = `[
	{"type":"function","name":"mintPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"supply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"previewImageURI","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"tokensOfOwner","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"mint","stateMutability":"payable","inputs":[{"name":"quantity","type":"uint256"}],"outputs":[]}
]`

var parsedABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(recordABI))
	if err != nil {
		panic(fmt.Sprintf("parse record abi: %v", err))
	}
	return parsed
}

// Pack encodes calldata for method.
func Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

// PackResult encodes return data for method, as a node would answer an eth_call.
func PackResult(method string, values ...interface{}) ([]byte, error) {
	m, ok := parsedABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown method %s", method)
	}
	data, err := m.Outputs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("pack %s result: %w", method, err)
	}
	return data, nil
}

// PackMint builds calldata for mint(quantity).
func PackMint(quantity *big.Int) ([]byte, error) {
	return Pack(MethodMint, quantity)
}

func unpackUint(method string, data []byte) (*big.Int, error) {
	out, err := unpackOne(method, data)
	if err != nil {
		return nil, err
	}
	v, ok := out.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, out)
	}
	return v, nil
}

func unpackString(method string, data []byte) (string, error) {
	out, err := unpackOne(method, data)
	if err != nil {
		return "", err
	}
	v, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected result type %T", method, out)
	}
	return v, nil
}

func unpackUints(method string, data []byte) ([]*big.Int, error) {
	out, err := unpackOne(method, data)
	if err != nil {
		return nil, err
	}
	v, ok := out.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, out)
	}
	return v, nil
}

func unpackOne(method string, data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", method, ErrEmptyResult)
	}
	values, err := parsedABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}
	return values[0], nil
}
