// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"testing"
	"time"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLoggerWithAttributes(t *testing.T) {
	logger := New(Config{Level: LevelDebug, Quiet: true})
	defer logger.Close()

	child := logger.With("session_id", "sess-1")
	if child == logger {
		t.Fatal("With should return a new logger")
	}
	// Parent and child share destinations; both must be usable.
	logger.Info("parent message")
	child.Info("child message")
}

func TestExporterReceivesEntries(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Level: LevelInfo, Quiet: true, Service: "bridge", Exporter: exporter})
	defer logger.Close()

	logger.Info("query started", "session_id", "sess-1")
	logger.Debug("filtered out") // below configured level

	// Export is asynchronous; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(exporter.Entries()) >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 exported entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Message != "query started" {
		t.Errorf("unexpected message %q", entry.Message)
	}
	if entry.Service != "bridge" {
		t.Errorf("unexpected service %q", entry.Service)
	}
	if entry.Attrs["session_id"] != "sess-1" {
		t.Errorf("missing session_id attr: %v", entry.Attrs)
	}
}

func TestSetLevelAppliesAtRuntime(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Level: LevelWarn, Quiet: true, Exporter: exporter})
	defer logger.Close()

	logger.Info("before lowering") // filtered at Warn
	logger.SetLevel(LevelDebug)
	child := logger.With("session_id", "sess-2")
	child.Debug("after lowering")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(exporter.Entries()) >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 exported entry, got %d", len(entries))
	}
	if entries[0].Message != "after lowering" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
}

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Level: LevelInfo, Quiet: true, LogDir: dir, Service: "bridge"})

	logger.Info("persisted line")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
