// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/IThioye/Concept-Connector/pkg/logging"
)

// InfluxConfig configures the optional InfluxDB metrics export.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// Interval between snapshot writes. Defaults to one minute.
	Interval time.Duration
}

// SnapshotFunc returns the current metric fields to export. Field values
// must be Influx-writable scalars.
type SnapshotFunc func() map[string]any

// InfluxExporter periodically writes metric snapshots to InfluxDB.
// Export is best effort: write failures are logged and the loop keeps
// running.
type InfluxExporter struct {
	client   influxdb2.Client
	write    api.WriteAPIBlocking
	interval time.Duration
	snapshot SnapshotFunc
	log      *logging.Logger
	done     chan struct{}
}

// NewInfluxExporter builds an exporter. The snapshot function is called
// once per interval from the exporter's own goroutine.
func NewInfluxExporter(cfg InfluxConfig, snapshot SnapshotFunc, log *logging.Logger) *InfluxExporter {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxExporter{
		client:   client,
		write:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		interval: cfg.Interval,
		snapshot: snapshot,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the export loop. It returns immediately; the loop stops
// when ctx is done or Close is called.
func (e *InfluxExporter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.done:
				return
			case <-ticker.C:
				e.export(ctx)
			}
		}
	}()
}

// Close stops the export loop and releases the client.
func (e *InfluxExporter) Close() {
	close(e.done)
	e.client.Close()
}

func (e *InfluxExporter) export(ctx context.Context) {
	fields := e.snapshot()
	if len(fields) == 0 {
		return
	}
	point := influxdb2.NewPoint("bridge_metrics",
		map[string]string{"service": "connector"},
		fields,
		time.Now().UTC(),
	)
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.write.WritePoint(writeCtx, point); err != nil {
		e.log.Warn("influx metrics export failed", "error", err)
	}
}
