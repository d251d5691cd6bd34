package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for strings that are not valid account addresses.
var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress parses a 0x-prefixed hex address and validates its checksum.
func ParseAddress(s string) (common.Address, error) {
	if !ValidChecksum(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// ValidChecksum reports whether s is a 0x-prefixed 20-byte hex address whose
// letter case is either uniform or matches its EIP-55 checksum.
func ValidChecksum(s string) bool {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return false
	}
	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}

// Lower returns the lowercase hex form of addr, as stored by the indexer.
func Lower(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
