package httpcache

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
)

// MaintenanceResolver reports requests that must not be cached because of
// maintenance mode.
type MaintenanceResolver interface {
	IsMaintenanceRequest(r *http.Request) bool
}

// ConfigMaintenanceResolver treats requests from allow-listed addresses as
// maintenance requests while maintenance mode is on. Those clients see the
// live shop, everybody else the maintenance page.
type ConfigMaintenanceResolver struct {
	enabled bool
	allowed []netip.Prefix
}

// NewConfigMaintenanceResolver creates a resolver from configuration.
// Entries may be addresses or CIDR prefixes; unparsable entries are ignored.
func NewConfigMaintenanceResolver(cfg config.Maintenance) *ConfigMaintenanceResolver {
	return &ConfigMaintenanceResolver{
		enabled: cfg.Enabled,
		allowed: parsePrefixes(cfg.AllowedIPs),
	}
}

// IsMaintenanceRequest implements MaintenanceResolver.
func (res *ConfigMaintenanceResolver) IsMaintenanceRequest(r *http.Request) bool {
	return res.enabled && fromAny(r, res.allowed)
}

// parsePrefixes turns addresses and CIDR prefixes into prefixes. Unparsable
// entries are skipped.
func parsePrefixes(entries []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}

// fromAny reports whether the request's peer address is inside prefixes.
func fromAny(r *http.Request, prefixes []netip.Prefix) bool {
	addr, ok := clientAddr(r)
	if !ok {
		return false
	}
	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddr parses RemoteAddr, which a real-IP middleware may have
// rewritten to a bare address.
func clientAddr(r *http.Request) (netip.Addr, bool) {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
