// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IThioye/Concept-Connector/pkg/logging"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 32, cfg.Pipeline.CacheCapacity)
	assert.Equal(t, 10, cfg.Pipeline.ModelCallsPerWindow)
	assert.Equal(t, time.Minute, cfg.Pipeline.Window)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  requests_per_second: 5
pipeline:
  cache_capacity: 8
  model_calls_per_window: 3
  window: 30s
store:
  path: /tmp/connector-test
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Pipeline.CacheCapacity)
	assert.Equal(t, 3, cfg.Pipeline.ModelCallsPerWindow)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.Window)
	assert.Equal(t, "/tmp/connector-test", cfg.Store.Path)
	// Untouched sections keep their defaults.
	assert.Equal(t, 2, cfg.Pipeline.MaxRetries)
	// The source path is recorded for the reload watcher.
	assert.Equal(t, path, cfg.Path)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  admin_token: from-file\n"), 0o600))

	t.Setenv("CONNECTOR_ADMIN_TOKEN", "from-env")
	t.Setenv("CONNECTOR_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Server.AdminToken)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  model_calls_per_window: -1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model_calls_per_window")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":8080\"\n"), 0o600))

	reloaded := make(chan Config, 1)
	w, err := NewWatcher(path, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, logging.New(logging.Config{Quiet: true}))
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9999\"\n"), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, ":9999", cfg.Server.Addr)
	case <-time.After(5 * time.Second):
		t.Fatal("config reload was not observed")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":8080\"\n"), 0o600))

	reloaded := make(chan Config, 1)
	w, err := NewWatcher(path, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, logging.New(logging.Config{Quiet: true}))
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))

	select {
	case <-reloaded:
		t.Fatal("unrelated file change triggered a reload")
	case <-time.After(500 * time.Millisecond):
	}
}
