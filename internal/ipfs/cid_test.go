package ipfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCID_Valid(t *testing.T) {
	v, err := ParseCID("ipfs://" + testCID + "/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	v, err = ParseCID("bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestParseCID_Invalid(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"empty", "ipfs://"},
		{"short v0", "QmShort"},
		{"bad base58", "Qm0000000000000000000000000000000000000000000l"},
		{"unknown multibase", "zb2rhe5P4gXftAwvA4eXQ5HJwsER2owDyS9sKaQRRVQPn93bA"},
		{"bad base32", "b!!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCID(tt.uri)
			assert.ErrorIs(t, err, ErrInvalidCID)
		})
	}
}
