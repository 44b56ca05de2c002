package paymail

import "errors"

var (
	// ErrInvalidAddress indicates a paymail handle is not alias@domain.
	ErrInvalidAddress = errors.New("paymail: invalid address")

	// ErrDNSLookupFailed indicates a DNS SRV lookup failed.
	ErrDNSLookupFailed = errors.New("paymail: DNS lookup failed")

	// ErrDNSSECValidationFailed indicates the upstream resolver did not
	// authenticate the response.
	ErrDNSSECValidationFailed = errors.New("paymail: DNSSEC validation failed")

	// ErrNoEndpoints indicates no SRV records were found for the domain.
	ErrNoEndpoints = errors.New("paymail: no endpoints found")

	// ErrPaymailDiscovery indicates .well-known/bsvalias fetch failed.
	ErrPaymailDiscovery = errors.New("paymail: capability discovery failed")

	// ErrAddressResolution indicates payment destination resolution failed.
	ErrAddressResolution = errors.New("paymail: address resolution failed")
)
