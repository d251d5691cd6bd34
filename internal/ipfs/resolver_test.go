package ipfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func TestResolve_HostSelectsGateway(t *testing.T) {
	r := NewResolver("", "")

	tests := []struct {
		name string
		host string
		want string
	}{
		{"localhost", "localhost", DefaultLocalGateway + testCID},
		{"localhost with port", "localhost:3000", DefaultLocalGateway + testCID},
		{"loopback v4", "127.0.0.1:8000", DefaultLocalGateway + testCID},
		{"loopback v6", "[::1]:8000", DefaultLocalGateway + testCID},
		{"public host", "records.example.com", DefaultPublicGateway + testCID},
		{"empty host", "", DefaultPublicGateway + testCID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve("ipfs://"+testCID, tt.host))
		})
	}
}

func TestResolve_OutputEndsWithPath(t *testing.T) {
	r := NewResolver("http://127.0.0.1:5001/ipfs", "https://gw.example.org/ipfs")

	for _, p := range []string{testCID, testCID + "/cover.png", "bafyfoo/1.json", ""} {
		for _, host := range []string{"localhost", "example.com"} {
			got := r.Resolve("ipfs://"+p, host)
			assert.True(t, strings.HasSuffix(got, p), "got %q for %q", got, p)
		}
	}
}

func TestResolve_HTTPUnchanged(t *testing.T) {
	r := NewResolver("", "")

	assert.Equal(t, "https://cdn.example.com/a.png", r.Resolve("https://cdn.example.com/a.png", "localhost"))
	assert.Equal(t, "http://cdn.example.com/a.png", r.Resolve("http://cdn.example.com/a.png", "example.com"))
}

func TestResolve_BareCID(t *testing.T) {
	r := NewResolver("", "")
	assert.Equal(t, DefaultPublicGateway+testCID, r.Resolve(testCID, "example.com"))
}

func TestNewResolver_AddsTrailingSlash(t *testing.T) {
	r := NewResolver("http://node:8080/ipfs", "https://gw.example.org/ipfs")

	assert.Equal(t, "http://node:8080/ipfs/", r.Gateway("localhost"))
	assert.Equal(t, "https://gw.example.org/ipfs/", r.Gateway("example.com"))
}

func TestPath(t *testing.T) {
	assert.Equal(t, testCID, Path("ipfs://"+testCID))
	assert.Equal(t, testCID, Path("IPFS://"+testCID))
	assert.Equal(t, testCID, Path(testCID))
}
