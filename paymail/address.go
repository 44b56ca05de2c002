// Package paymail resolves paymail handles (alias@domain) to payment output
// scripts. Royalty destinations of type "paymail" are resolved through it.
package paymail

import (
	"fmt"
	"strings"
)

// Address is a parsed paymail handle.
type Address struct {
	Alias  string
	Domain string
}

// ParseAddress parses "alias@domain". The domain is lower-cased; the alias
// is kept as given.
func ParseAddress(s string) (*Address, error) {
	s = strings.TrimSpace(s)
	alias, domain, ok := strings.Cut(s, "@")
	if !ok || alias == "" || domain == "" {
		return nil, fmt.Errorf("%w: %q is not alias@domain", ErrInvalidAddress, s)
	}
	if strings.ContainsAny(alias, "@/ ") || strings.ContainsAny(domain, "@/ ") {
		return nil, fmt.Errorf("%w: %q contains reserved characters", ErrInvalidAddress, s)
	}
	if !strings.Contains(domain, ".") {
		return nil, fmt.Errorf("%w: domain %q is not qualified", ErrInvalidAddress, domain)
	}
	return &Address{Alias: alias, Domain: strings.ToLower(domain)}, nil
}

func (a *Address) String() string {
	return a.Alias + "@" + a.Domain
}
