// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds a JSON production logger at cfg.LogLevel, writing to
// cfg.LogFile when set and stderr otherwise.
func NewLogger(cfg Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.LogLevel)
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	if cfg.LogFile != "" {
		zc.OutputPaths = []string{cfg.LogFile}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("config: build logger: %w", err)
	}
	return logger.With(zap.String("network", cfg.Network)), nil
}
