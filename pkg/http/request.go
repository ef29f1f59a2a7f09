package http

import (
	"net"
	"net/http"
	"strings"
)

// UnknownAddress is returned when a request carries no usable address information
const UnknownAddress = "unknown"

// IPConfig holds configuration for client address resolution
type IPConfig struct {
	// TrustForwardedFor honours X-Forwarded-For. The outer transport must only accept
	// this header from its immediate reverse proxy; that boundary is not re-validated here.
	TrustForwardedFor bool
	// TrustedProxies optionally narrows the above to peers inside these CIDR ranges
	TrustedProxies []string
}

// DefaultIPConfig trusts the forwarding header from any peer
func DefaultIPConfig() *IPConfig {
	return &IPConfig{TrustForwardedFor: true}
}

// ResolveClientAddress derives the single address used as the brute-force key.
//
// Flow:
// 1. If forwarding is trusted and X-Forwarded-For is present, use its left-most entry
// 2. Fall back to the transport peer address
// 3. Fall back to UnknownAddress
func ResolveClientAddress(r *http.Request, config *IPConfig) string {
	if config == nil {
		config = DefaultIPConfig()
	}

	peer := getRemoteAddr(r)

	if config.TrustForwardedFor && peerMayForward(peer, config.TrustedProxies) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}

	return peer
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return UnknownAddress
	}
	if ip, _, err := net.SplitHostPort(addr); err == nil && ip != "" {
		return ip
	}
	return addr
}

// peerMayForward reports whether the peer is allowed to supply a forwarding chain.
// An empty list means every peer is accepted.
func peerMayForward(peer string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return true
	}

	peerIP := net.ParseIP(peer)
	if peerIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			continue // Skip invalid CIDR ranges
		}
		if ipNet.Contains(peerIP) {
			return true
		}
	}

	return false
}
