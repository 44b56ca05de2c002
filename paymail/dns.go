package paymail

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
)

// DNSResolver defines the interface for SRV lookups.
// This allows tests to mock DNS resolution.
type DNSResolver interface {
	// LookupSRV looks up SRV records for the given service, proto, and name.
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// defaultDNSResolver wraps the standard library resolver.
type defaultDNSResolver struct{}

func (d *defaultDNSResolver) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	return net.DefaultResolver.LookupSRV(ctx, service, proto, name)
}

// DefaultDNSResolver is the production DNS resolver using the net package.
var DefaultDNSResolver DNSResolver = &defaultDNSResolver{}

// SRVPaymail is the service label of paymail hosts: _bsvalias._tcp.{domain}.
const SRVPaymail = "bsvalias"

// defaultPort is used when a domain publishes no SRV record.
const defaultPort = 443

// ResolveEndpoints resolves the _bsvalias SRV records for a domain and
// returns endpoint addresses (host:port) sorted by priority then weight.
func ResolveEndpoints(ctx context.Context, domain string, resolver DNSResolver) ([]string, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrDNSLookupFailed)
	}

	_, addrs, err := resolver.LookupSRV(ctx, SRVPaymail, "tcp", domain)
	if err != nil {
		return nil, fmt.Errorf("%w: SRV lookup for _%s._tcp.%s: %w", ErrDNSLookupFailed, SRVPaymail, domain, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no SRV records for _%s._tcp.%s", ErrNoEndpoints, SRVPaymail, domain)
	}

	// Sort by priority (ascending), then by weight (descending)
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Priority != addrs[j].Priority {
			return addrs[i].Priority < addrs[j].Priority
		}
		return addrs[i].Weight > addrs[j].Weight
	})

	endpoints := make([]string, len(addrs))
	for i, srv := range addrs {
		host := strings.TrimSuffix(srv.Target, ".")
		endpoints[i] = net.JoinHostPort(host, fmt.Sprint(srv.Port))
	}
	return endpoints, nil
}

// ResolveHost returns the host:port serving paymail for domain: the best SRV
// endpoint, or domain:443 when the domain publishes none.
func ResolveHost(ctx context.Context, domain string, resolver DNSResolver) (string, error) {
	if domain == "" {
		return "", fmt.Errorf("%w: empty domain", ErrDNSLookupFailed)
	}
	endpoints, err := ResolveEndpoints(ctx, domain, resolver)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return net.JoinHostPort(domain, fmt.Sprint(defaultPort)), nil
	}
	return endpoints[0], nil
}
