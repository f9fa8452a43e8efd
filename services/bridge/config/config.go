// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the bridge service configuration.
//
// Configuration comes from three layers, later layers winning:
//
//  1. Built-in defaults (Default)
//  2. An optional YAML file (Load)
//  3. Environment variables (secrets and deploy-specific addresses)
//
// The model backend itself is configured purely by environment, see
// llm.NewFromEnv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize bounds the config file read (1MB).
const MaxConfigFileSize = 1024 * 1024

// ServerConfig is the HTTP listener section.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// AdminToken guards /v1/admin. Empty disables the group. Prefer
	// setting it via CONNECTOR_ADMIN_TOKEN rather than the file.
	AdminToken string `yaml:"admin_token"`

	// RequestsPerSecond limits inbound /v1 traffic. <= 0 disables.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// PipelineConfig tunes the query orchestrator.
type PipelineConfig struct {
	CacheCapacity int `yaml:"cache_capacity"`
	HistoryLimit  int `yaml:"history_limit"`
	FeedbackLimit int `yaml:"feedback_limit"`
	MaxRetries    int `yaml:"max_retries"`

	// ModelCallsPerWindow and Window bound outbound model traffic.
	ModelCallsPerWindow int           `yaml:"model_calls_per_window"`
	Window              time.Duration `yaml:"window"`
}

// StoreConfig is the badger persistence section.
type StoreConfig struct {
	// Path is the badger directory. Empty disables persistence
	// entirely; the service still answers queries without memory.
	Path       string        `yaml:"path"`
	GCInterval time.Duration `yaml:"gc_interval"`
}

// LoggingConfig is the structured-logging section.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// InfluxConfig is the optional time-series metrics export section.
// Disabled unless URL is set.
type InfluxConfig struct {
	URL      string        `yaml:"url"`
	Token    string        `yaml:"token"`
	Org      string        `yaml:"org"`
	Bucket   string        `yaml:"bucket"`
	Interval time.Duration `yaml:"interval"`
}

// TracingConfig is the optional OTLP trace export section.
// Disabled unless Endpoint is set.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
	Influx   InfluxConfig   `yaml:"influx"`
	Tracing  TracingConfig  `yaml:"tracing"`

	// Path records where Load read the file from, so callers can watch
	// it for changes. Empty when no file path was given.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 20,
			Burst:             40,
			ShutdownGrace:     10 * time.Second,
		},
		Pipeline: PipelineConfig{
			CacheCapacity:       32,
			HistoryLimit:        3,
			FeedbackLimit:       5,
			MaxRetries:          2,
			ModelCallsPerWindow: 10,
			Window:              time.Minute,
		},
		Store: StoreConfig{
			Path:       "data/connector",
			GCInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Influx: InfluxConfig{
			Interval: time.Minute,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error: defaults plus
// environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		case len(data) > MaxConfigFileSize:
			return Config{}, fmt.Errorf("config: %s exceeds %d bytes", path, MaxConfigFileSize)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.Path = path
	return cfg, nil
}

// applyEnv overlays deploy-time environment variables. Secrets live
// here rather than in the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("CONNECTOR_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CONNECTOR_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("CONNECTOR_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CONNECTOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CONNECTOR_LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	if v := os.Getenv("INFLUXDB_URL"); v != "" {
		c.Influx.URL = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		c.Influx.Token = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	if v := os.Getenv("CONNECTOR_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.ModelCallsPerWindow = n
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	if c.Pipeline.CacheCapacity < 0 {
		return fmt.Errorf("config: pipeline.cache_capacity must not be negative")
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("config: pipeline.max_retries must not be negative")
	}
	if c.Pipeline.ModelCallsPerWindow <= 0 {
		return fmt.Errorf("config: pipeline.model_calls_per_window must be positive")
	}
	if c.Pipeline.Window <= 0 {
		return fmt.Errorf("config: pipeline.window must be positive")
	}
	return nil
}
