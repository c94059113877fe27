package login

import (
	"net"
	"net/url"
	"strings"
)

// MatchesBaseDomain reports whether the host of hostname is base or a
// sub-domain of it. IP addresses only match exactly. Malformed input never
// matches.
func MatchesBaseDomain(hostname, base string) bool {
	base = strings.ToLower(strings.TrimSuffix(strings.Trim(base, "[]"), "."))
	if base == "" {
		return false
	}

	u, err := url.Parse(hostname)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	baseIP := net.ParseIP(base)
	hostIP := net.ParseIP(host)
	switch {
	case baseIP != nil && hostIP != nil:
		return baseIP.Equal(hostIP)
	case baseIP != nil || hostIP != nil:
		return false
	}

	return host == base || strings.HasSuffix(host, "."+base)
}
