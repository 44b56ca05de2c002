// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MaxFeeRate bounds FeeRate; anything above is almost certainly a unit mistake.
const MaxFeeRate = 1_000_000

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if cfg.FeeRate == 0 || cfg.FeeRate > MaxFeeRate {
		return fmt.Errorf("%w: %d", ErrInvalidFeeRate, cfg.FeeRate)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	endpoints := []struct{ key, value string }{
		{keyRPCURL, cfg.RPCURL},
		{keySignerHost, cfg.SignerHost},
	}
	for _, ep := range endpoints {
		if ep.value == "" {
			continue
		}
		if err := validateEndpoint(ep.value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidEndpoint, ep.key, err)
		}
	}

	if cfg.DNSSECUpstream != "" {
		if err := validateAddr(cfg.DNSSECUpstream); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidUpstream, err)
		}
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}

// validateEndpoint checks that raw is an absolute http(s) URL with a host.
func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
