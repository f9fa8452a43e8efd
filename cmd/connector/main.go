// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command connector runs the conceptual-bridge HTTP service.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/IThioye/Concept-Connector/services/bridge"
	"github.com/IThioye/Concept-Connector/services/bridge/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONNECTOR_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svc, err := bridge.New(cfg)
	if err != nil {
		log.Fatalf("failed to assemble the bridge service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
