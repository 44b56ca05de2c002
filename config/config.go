// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads ordtx settings from a key = value file with ORDTX_*
// environment overrides.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ORDTX_NETWORK.
const EnvPrefix = "ORDTX"

// Keys as they appear in the config file. The environment variable for a key
// is EnvPrefix + "_" + upper(key).
const (
	keyDataDir        = "datadir"
	keyNetwork        = "network"
	keyFeeRate        = "feerate"
	keyLogLevel       = "loglevel"
	keyLogFile        = "logfile"
	keyRPCURL         = "rpc_url"
	keyRPCUser        = "rpc_user"
	keyRPCPassword    = "rpc_password"
	keySignerHost     = "signer_host"
	keySignerToken    = "signer_token"
	keyDNSSECUpstream = "dnssec_upstream"
)

// Config holds ordtx settings.
type Config struct {
	DataDir        string
	Network        string // mainnet, testnet or regtest
	FeeRate        uint64 // sat/KB
	LogLevel       string
	LogFile        string // empty = stderr
	RPCURL         string
	RPCUser        string
	RPCPassword    string
	SignerHost     string // remote co-signer base URL; empty disables co-signing
	SignerToken    string
	DNSSECUpstream string // resolver for DNSSEC-validated paymail lookups; empty = system resolver
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Network:  "mainnet",
		FeeRate:  10,
		LogLevel: "info",
	}
}

// DefaultDataDir returns ~/.ordtx, or .ordtx when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ordtx"
	}
	return filepath.Join(home, ".ordtx")
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// Testnet reports whether addresses should use the testnet prefix.
func (c Config) Testnet() bool {
	return c.Network != "mainnet"
}

// entries lists the settings in file order.
func (c Config) entries() [][2]string {
	return [][2]string{
		{keyDataDir, c.DataDir},
		{keyNetwork, c.Network},
		{keyFeeRate, strconv.FormatUint(c.FeeRate, 10)},
		{keyLogLevel, c.LogLevel},
		{keyLogFile, c.LogFile},
		{keyRPCURL, c.RPCURL},
		{keyRPCUser, c.RPCUser},
		{keyRPCPassword, c.RPCPassword},
		{keySignerHost, c.SignerHost},
		{keySignerToken, c.SignerToken},
		{keyDNSSECUpstream, c.DNSSECUpstream},
	}
}

// LoadConfig reads the file at path over DefaultConfig, then applies ORDTX_*
// environment overrides. Unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return load(data)
}

// LoadOrDefault is LoadConfig, except that a missing file yields the defaults
// with environment overrides applied.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, ErrConfigNotFound) {
		return load(nil)
	}
	return cfg, err
}

func load(data []byte) (Config, error) {
	normalized, err := normalize(data)
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("properties")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, kv := range DefaultConfig().entries() {
		v.SetDefault(kv[0], kv[1])
	}
	if err := v.ReadConfig(bytes.NewReader(normalized)); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigLine, err)
	}

	feeRate, err := strconv.ParseUint(v.GetString(keyFeeRate), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidFeeRate, v.GetString(keyFeeRate))
	}
	return Config{
		DataDir:        v.GetString(keyDataDir),
		Network:        v.GetString(keyNetwork),
		FeeRate:        feeRate,
		LogLevel:       v.GetString(keyLogLevel),
		LogFile:        v.GetString(keyLogFile),
		RPCURL:         v.GetString(keyRPCURL),
		RPCUser:        v.GetString(keyRPCUser),
		RPCPassword:    v.GetString(keyRPCPassword),
		SignerHost:     v.GetString(keySignerHost),
		SignerToken:    v.GetString(keySignerToken),
		DNSSECUpstream: v.GetString(keyDNSSECUpstream),
	}, nil
}

// normalize checks every non-comment line is key = value and rewrites it as
// a properties line: keys lower-cased, whitespace trimmed, backslashes
// escaped.
func normalize(data []byte) ([]byte, error) {
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" || strings.ContainsAny(key, " \t:") {
			return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		value = strings.ReplaceAll(strings.TrimSpace(value), `\`, `\\`)
		fmt.Fprintf(&out, "%s=%s\n", key, value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: scan: %w", err)
	}
	return out.Bytes(), nil
}

// SaveConfig writes cfg to path, creating parent directories. The file is
// private to the user since it may hold credentials.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# ordtx configuration\n")
	buf.WriteString("# Environment variables " + EnvPrefix + "_<KEY> override these values.\n\n")
	for _, kv := range cfg.entries() {
		fmt.Fprintf(&buf, "%s = %s\n", kv[0], kv[1])
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
