// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", or \"regtest\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrInvalidFeeRate indicates the fee rate is not a positive integer within bounds.
	ErrInvalidFeeRate = errors.New("config: invalid fee rate (sat/KB)")

	// ErrInvalidEndpoint indicates an RPC or signer URL is malformed.
	ErrInvalidEndpoint = errors.New("config: invalid endpoint URL")

	// ErrInvalidUpstream indicates the DNSSEC upstream is not host:port.
	ErrInvalidUpstream = errors.New("config: invalid DNSSEC upstream address")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
