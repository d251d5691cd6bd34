// Package ipfs resolves content-addressed URIs to HTTP gateway URLs and
// fetches record metadata through them.
package ipfs

import (
	"net"
	"strings"
)

const (
	// Scheme is the content-addressing marker stripped from URIs.
	Scheme = "ipfs://"

	// DefaultLocalGateway serves content while developing against a local node.
	DefaultLocalGateway = "http://localhost:8080/ipfs/"

	// DefaultPublicGateway serves content everywhere else.
	DefaultPublicGateway = "https://ipfs.io/ipfs/"
)

// Resolver rewrites ipfs:// URIs into gateway URLs.
type Resolver struct {
	localGateway  string
	publicGateway string
}

// NewResolver creates a resolver. Empty gateways fall back to the defaults.
func NewResolver(localGateway, publicGateway string) *Resolver {
	if localGateway == "" {
		localGateway = DefaultLocalGateway
	}
	if publicGateway == "" {
		publicGateway = DefaultPublicGateway
	}
	return &Resolver{
		localGateway:  withTrailingSlash(localGateway),
		publicGateway: withTrailingSlash(publicGateway),
	}
}

// Resolve returns the gateway URL for uri as seen from a page served on host.
// URIs that are already http(s) URLs are returned unchanged.
func (r *Resolver) Resolve(uri, host string) string {
	if isHTTPURL(uri) {
		return uri
	}

	gateway := r.publicGateway
	if IsLocalHost(host) {
		gateway = r.localGateway
	}
	return gateway + Path(uri)
}

// Gateway returns the gateway base URL used for host.
func (r *Resolver) Gateway(host string) string {
	if IsLocalHost(host) {
		return r.localGateway
	}
	return r.publicGateway
}

// Path strips the ipfs:// marker, leaving the content identifier and any sub-path.
func Path(uri string) string {
	if len(uri) >= len(Scheme) && strings.EqualFold(uri[:len(Scheme)], Scheme) {
		return uri[len(Scheme):]
	}
	return uri
}

// IsLocalHost reports whether host (optionally with port) is a local development host.
func IsLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), "[]")

	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func isHTTPURL(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
