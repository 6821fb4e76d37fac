// Package requestip resolves the client address of a request, honoring
// forwarding headers only from trusted proxies.
package requestip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/pkg/errors"
)

// Resolver maps requests to client IPs.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver parses a comma-separated list of trusted proxy CIDR ranges.
// An empty list trusts no proxy.
func NewResolver(cidrs string) (*Resolver, error) {
	r := &Resolver{}
	for _, part := range strings.Split(cidrs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid CIDR %q", part)
		}
		r.trusted = append(r.trusted, prefix)
	}
	return r, nil
}

// ClientIP returns the address the request came from. X-Forwarded-For and
// X-Real-IP are read only when the direct peer is a trusted proxy.
func (r *Resolver) ClientIP(req *http.Request) string {
	peer, ok := parseAddr(req.RemoteAddr)
	if !ok {
		return strings.TrimSpace(req.RemoteAddr)
	}
	if !r.trusts(peer) {
		return peer.String()
	}

	for _, part := range strings.Split(req.Header.Get("X-Forwarded-For"), ",") {
		if addr, ok := parseAddr(part); ok {
			return addr.String()
		}
	}
	if addr, ok := parseAddr(req.Header.Get("X-Real-IP")); ok {
		return addr.String()
	}
	return peer.String()
}

func (r *Resolver) trusts(addr netip.Addr) bool {
	if r == nil {
		return false
	}
	for _, prefix := range r.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseAddr(value string) (netip.Addr, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return netip.Addr{}, false
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	addr, err := netip.ParseAddr(strings.Trim(value, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
