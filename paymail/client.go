package paymail

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"go.uber.org/zap"
)

// MaxPaymailResponseSize caps the bytes read from any paymail endpoint.
const MaxPaymailResponseSize = 1 << 20

// HTTPDoer is the subset of *http.Client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Capabilities holds the capability URL templates a paymail host advertises.
type Capabilities struct {
	BSVAlias              string
	PaymentDestination    string // basic address resolution
	P2PPaymentDestination string
}

type wellKnownResponse struct {
	BSVAlias     string         `json:"bsvalias"`
	Capabilities map[string]any `json:"capabilities"`
}

// Client discovers paymail capabilities and resolves payment destinations.
// The zero value uses the system resolver and a 30-second HTTP client.
type Client struct {
	HTTP       HTTPDoer
	Resolver   DNSResolver
	SenderName string
	Logger     *zap.Logger
}

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

func (c *Client) httpDoer() HTTPDoer {
	if c.HTTP != nil {
		return c.HTTP
	}
	return defaultHTTPClient
}

func (c *Client) resolver() DNSResolver {
	if c.Resolver != nil {
		return c.Resolver
	}
	return DefaultDNSResolver
}

func (c *Client) log() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// DiscoverCapabilities fetches .well-known/bsvalias from the host serving
// domain. Capability URLs pointing outside domain or the serving host are
// dropped.
func (c *Client) DiscoverCapabilities(ctx context.Context, domain string) (*Capabilities, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrPaymailDiscovery)
	}
	host, err := ResolveHost(ctx, domain, c.resolver())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymailDiscovery, err)
	}

	wellKnown := "https://" + host + "/.well-known/bsvalias"
	body, err := c.do(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymailDiscovery, err)
	}
	var wk wellKnownResponse
	if err := json.Unmarshal(body, &wk); err != nil {
		return nil, fmt.Errorf("%w: parsing JSON: %w", ErrPaymailDiscovery, err)
	}

	servingHost, _, err := net.SplitHostPort(host)
	if err != nil {
		servingHost = host
	}
	caps := &Capabilities{BSVAlias: wk.BSVAlias}
	for key, val := range wk.Capabilities {
		urlStr, ok := val.(string)
		if !ok {
			continue
		}
		u, err := url.Parse(urlStr)
		if err != nil {
			continue
		}
		if !validateCapabilityHost(u.Hostname(), domain) && !validateCapabilityHost(u.Hostname(), servingHost) {
			c.log().Warn("dropping off-domain paymail capability",
				zap.String("domain", domain), zap.String("capability", key), zap.String("url", urlStr))
			continue
		}
		switch key {
		case BRFCPaymentDestination, BRFCBasicAddressing:
			caps.PaymentDestination = urlStr
		case BRFCP2PPaymentDestination:
			caps.P2PPaymentDestination = urlStr
		}
	}

	c.log().Debug("paymail capabilities discovered",
		zap.String("domain", domain),
		zap.String("host", host),
		zap.Bool("p2p", caps.P2PPaymentDestination != ""),
		zap.Bool("basic", caps.PaymentDestination != ""))
	return caps, nil
}

// validateCapabilityHost reports whether capHost equals originalDomain or is
// one of its subdomains, ignoring case.
func validateCapabilityHost(capHost, originalDomain string) bool {
	capHost = strings.ToLower(capHost)
	originalDomain = strings.ToLower(originalDomain)
	if capHost == originalDomain {
		return true
	}
	if capHost == "" || originalDomain == "" {
		return false
	}
	return strings.HasSuffix(capHost, "."+originalDomain)
}

type p2pDestinationRequest struct {
	Satoshis uint64 `json:"satoshis"`
}

type p2pDestinationResponse struct {
	Outputs []struct {
		Script   string `json:"script"`
		Satoshis uint64 `json:"satoshis"`
	} `json:"outputs"`
	Reference string `json:"reference"`
}

type basicDestinationRequest struct {
	SenderName string `json:"senderName"`
	DT         string `json:"dt"`
	Amount     uint64 `json:"amount"`
	Purpose    string `json:"purpose"`
}

type basicDestinationResponse struct {
	Output string `json:"output"`
}

// ResolveOutputs resolves handle to outputs paying exactly satoshis. The P2P
// payment destination capability is preferred; basic address resolution is
// the fallback.
func (c *Client) ResolveOutputs(ctx context.Context, handle string, satoshis uint64) ([]*transaction.TransactionOutput, error) {
	addr, err := ParseAddress(handle)
	if err != nil {
		return nil, err
	}
	caps, err := c.DiscoverCapabilities(ctx, addr.Domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAddressResolution, err)
	}

	switch {
	case caps.P2PPaymentDestination != "":
		return c.resolveP2P(ctx, expandTemplate(caps.P2PPaymentDestination, addr), satoshis)
	case caps.PaymentDestination != "":
		return c.resolveBasic(ctx, expandTemplate(caps.PaymentDestination, addr), satoshis)
	}
	return nil, fmt.Errorf("%w: no payment destination capability found for %s", ErrAddressResolution, addr.Domain)
}

func (c *Client) resolveP2P(ctx context.Context, destURL string, satoshis uint64) ([]*transaction.TransactionOutput, error) {
	reqBody, err := json.Marshal(p2pDestinationRequest{Satoshis: satoshis})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, destURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAddressResolution, err)
	}
	var resp p2pDestinationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %w", ErrAddressResolution, err)
	}
	if len(resp.Outputs) == 0 {
		return nil, fmt.Errorf("%w: no outputs in response", ErrAddressResolution)
	}

	outs := make([]*transaction.TransactionOutput, 0, len(resp.Outputs))
	var total uint64
	for i, o := range resp.Outputs {
		s, err := script.NewFromHex(o.Script)
		if err != nil || len(*s) == 0 {
			return nil, fmt.Errorf("%w: output %d has an invalid script", ErrAddressResolution, i)
		}
		outs = append(outs, &transaction.TransactionOutput{Satoshis: o.Satoshis, LockingScript: s})
		total += o.Satoshis
	}
	if total != satoshis {
		return nil, fmt.Errorf("%w: outputs total %d sat, requested %d", ErrAddressResolution, total, satoshis)
	}
	return outs, nil
}

func (c *Client) resolveBasic(ctx context.Context, destURL string, satoshis uint64) ([]*transaction.TransactionOutput, error) {
	sender := c.SenderName
	if sender == "" {
		sender = "ordinals-go"
	}
	reqBody, err := json.Marshal(basicDestinationRequest{
		SenderName: sender,
		DT:         time.Now().UTC().Format(time.RFC3339),
		Amount:     satoshis,
		Purpose:    "royalty",
	})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, destURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAddressResolution, err)
	}
	var resp basicDestinationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %w", ErrAddressResolution, err)
	}
	raw, err := hex.DecodeString(resp.Output)
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("%w: invalid output script", ErrAddressResolution)
	}
	return []*transaction.TransactionOutput{{Satoshis: satoshis, LockingScript: script.NewFromBytes(raw)}}, nil
}

// do performs one request and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpDoer().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s returned status %d", method, rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPaymailResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

// expandTemplate fills {alias} and {domain.tld}, escaping both.
func expandTemplate(tmpl string, addr *Address) string {
	out := strings.ReplaceAll(tmpl, "{alias}", url.PathEscape(addr.Alias))
	return strings.ReplaceAll(out, "{domain.tld}", url.PathEscape(addr.Domain))
}
