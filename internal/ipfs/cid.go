package ipfs

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrInvalidCID is returned when a path does not start with a content identifier.
var ErrInvalidCID = errors.New("invalid cid")

const (
	cidV0Length       = 46
	multihashSHA256   = 0x12
	sha256DigestBytes = 0x20
	cidV1Version      = 0x01
)

var base32Lower = base32.StdEncoding.WithPadding(base32.NoPadding)

// ParseCID validates the content identifier at the start of uri and returns its version.
// CIDv0 is a base58btc sha2-256 multihash ("Qm..."); CIDv1 is accepted in its
// default base32 multibase form ("b...").
func ParseCID(uri string) (int, error) {
	id, _, _ := strings.Cut(Path(uri), "/")
	if id == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidCID)
	}

	if strings.HasPrefix(id, "Qm") {
		if len(id) != cidV0Length {
			return 0, fmt.Errorf("%w: cidv0 length %d", ErrInvalidCID, len(id))
		}
		raw, err := base58.Decode(id)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidCID, err)
		}
		if len(raw) != 34 || raw[0] != multihashSHA256 || raw[1] != sha256DigestBytes {
			return 0, fmt.Errorf("%w: not a sha2-256 multihash", ErrInvalidCID)
		}
		return 0, nil
	}

	if strings.HasPrefix(id, "b") {
		raw, err := base32Lower.DecodeString(strings.ToUpper(id[1:]))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidCID, err)
		}
		if len(raw) < 2 || raw[0] != cidV1Version {
			return 0, fmt.Errorf("%w: unsupported cid version", ErrInvalidCID)
		}
		return 1, nil
	}

	return 0, fmt.Errorf("%w: unknown multibase prefix %q", ErrInvalidCID, id[:1])
}
