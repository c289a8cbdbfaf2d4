// Package netutil normalizes the client context bound to refresh tokens.
package netutil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// MaxUserAgentLength caps the stored user agent, in runes.
const MaxUserAgentLength = 512

// NormalizeIP returns the canonical, zone-free IP of a bare address or a
// host:port pair. ok is false when no IP could be found.
func NormalizeIP(raw string) (ip string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().WithZone("").String(), true
	}
	host := raw
	if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	} else if strings.HasPrefix(raw, "[") {
		if end := strings.Index(raw, "]"); end > 0 {
			host = raw[1:end]
		}
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.WithZone("").String(), true
	}
	return raw, false
}

// ClientIP picks the caller address: the first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote address.
func ClientIP(h http.Header, remoteAddr string) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := NormalizeIP(first); ok {
			return ip
		}
	}
	if ip, ok := NormalizeIP(h.Get("X-Real-IP")); ok {
		return ip
	}
	if ip, ok := NormalizeIP(remoteAddr); ok {
		return ip
	}
	return remoteAddr
}

// TruncateUserAgent keeps at most MaxUserAgentLength runes.
func TruncateUserAgent(ua string) string {
	n := 0
	for i := range ua {
		if n == MaxUserAgentLength {
			return ua[:i]
		}
		n++
	}
	return ua
}
