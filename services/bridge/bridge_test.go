// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/config"
)

func TestApplyReloadRetunesRunningService(t *testing.T) {
	s := &Service{
		log:         logging.New(logging.Config{Level: logging.LevelInfo, Quiet: true}),
		httpLimiter: newHTTPLimiter(config.ServerConfig{RequestsPerSecond: 20, Burst: 40}),
	}
	s.adminToken.Store("boot-token")
	defer s.log.Close()

	cfg := config.Default()
	cfg.Server.AdminToken = "rotated"
	cfg.Server.RequestsPerSecond = 5
	cfg.Server.Burst = 10
	cfg.Logging.Level = "debug"
	s.applyReload(cfg)

	assert.Equal(t, "rotated", s.currentAdminToken())
	assert.Equal(t, rate.Limit(5), s.httpLimiter.Limit())
	assert.Equal(t, 10, s.httpLimiter.Burst())
	// The routes read through these handles, never through a copy.
	opts := s.routeOptions()
	assert.Equal(t, "rotated", opts.AdminToken())
	assert.Same(t, s.httpLimiter, opts.Limiter)
}

func TestApplyReloadCanLiftTheRateLimit(t *testing.T) {
	s := &Service{
		log:         logging.New(logging.Config{Quiet: true}),
		httpLimiter: newHTTPLimiter(config.ServerConfig{RequestsPerSecond: 1, Burst: 1}),
	}
	defer s.log.Close()

	cfg := config.Default()
	cfg.Server.RequestsPerSecond = 0
	s.applyReload(cfg)

	assert.Equal(t, rate.Inf, s.httpLimiter.Limit())
}

func TestNewHTTPLimiterDefaultsBurstToRate(t *testing.T) {
	limiter := newHTTPLimiter(config.ServerConfig{RequestsPerSecond: 8})
	assert.Equal(t, rate.Limit(8), limiter.Limit())
	assert.Equal(t, 8, limiter.Burst())

	fractional := newHTTPLimiter(config.ServerConfig{RequestsPerSecond: 0.5})
	assert.Equal(t, 1, fractional.Burst())
}
