package util

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// IsNumericHost reports whether host is already a literal IPv4 or IPv6
// address, in which case no name resolution is needed.
func IsNumericHost(host string) bool {
	return net.ParseIP(host) != nil
}

// ResolveHost returns a dialable address for host.  Numeric addresses
// are returned unchanged; names are looked up only when noDNS is false.
func ResolveHost(ctx context.Context, host string, noDNS bool) (string, error) {
	if IsNumericHost(host) {
		return host, nil
	}
	if noDNS {
		return "", fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("DNS lookup for %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("DNS lookup for %q: no addresses", host)
	}
	return addrs[0], nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
