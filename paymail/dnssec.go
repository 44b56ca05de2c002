package paymail

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultUpstream answers when no validating resolver is configured.
	defaultUpstream = "8.8.8.8:53"

	defaultDNSSECTimeout = 10 * time.Second

	// udpPayloadSize is advertised through EDNS0 so signed SRV answers fit
	// in one datagram.
	udpPayloadSize = 4096
)

// DNSSECResolver finds the paymail host behind a royalty handle and refuses
// any answer the upstream resolver did not authenticate. A forged SRV
// record would otherwise let a third party receive the royalty.
type DNSSECResolver struct {
	// Upstream is a validating recursive resolver, host:port.
	Upstream string
	// Timeout bounds each exchange; zero means ten seconds.
	Timeout time.Duration
}

var _ DNSResolver = (*DNSSECResolver)(nil)

// NewDNSSECResolver returns a resolver that asks upstream, or 8.8.8.8:53
// when upstream is empty.
func NewDNSSECResolver(upstream string) *DNSSECResolver {
	if upstream == "" {
		upstream = defaultUpstream
	}
	return &DNSSECResolver{Upstream: upstream}
}

// LookupSRV resolves _service._proto.name. The canonical name is never
// reported.
func (r *DNSSECResolver) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	qname := fmt.Sprintf("_%s._%s.%s", service, proto, name)
	resp, err := r.exchange(ctx, qname)
	if err != nil {
		return "", nil, err
	}
	srvs := srvRecords(resp)
	if len(srvs) == 0 {
		return "", nil, fmt.Errorf("%w: royalty host %s has no SRV record", ErrDNSLookupFailed, qname)
	}
	return "", srvs, nil
}

// exchange sends an SRV query with the DO bit set.
func (r *DNSSECResolver) exchange(ctx context.Context, qname string) (*dns.Msg, error) {
	q := new(dns.Msg)
	q.SetQuestion(dns.Fqdn(qname), dns.TypeSRV)
	q.RecursionDesired = true
	q.SetEdns0(udpPayloadSize, true)

	timeout := r.Timeout
	if timeout == 0 {
		timeout = defaultDNSSECTimeout
	}
	resp, _, err := (&dns.Client{Timeout: timeout}).ExchangeContext(ctx, q, r.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: royalty host %s via %s: %w", ErrDNSLookupFailed, qname, r.Upstream, err)
	}
	return authenticated(resp, qname)
}

// authenticated passes NOERROR and NXDOMAIN answers that carry the AD flag.
func authenticated(resp *dns.Msg, qname string) (*dns.Msg, error) {
	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
	default:
		return nil, fmt.Errorf("%w: royalty host %s: %s", ErrDNSLookupFailed, qname, dns.RcodeToString[resp.Rcode])
	}
	if !resp.AuthenticatedData {
		return nil, fmt.Errorf("%w: royalty host %s answer is unsigned", ErrDNSSECValidationFailed, qname)
	}
	return resp, nil
}

// srvRecords keeps the SRV answers of resp, targets without the root dot.
func srvRecords(resp *dns.Msg) []*net.SRV {
	var out []*net.SRV
	for _, rr := range resp.Answer {
		srv, ok := rr.(*dns.SRV)
		if !ok {
			continue
		}
		out = append(out, &net.SRV{
			Target:   strings.TrimSuffix(srv.Target, "."),
			Port:     srv.Port,
			Priority: srv.Priority,
			Weight:   srv.Weight,
		})
	}
	return out
}
