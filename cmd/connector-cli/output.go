// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/handlers"
)

// stdoutIsTTY reports whether stdout is an interactive terminal.
// Piped output (scripts, CI) always gets JSON.
func stdoutIsTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderResult(w io.Writer, result *datatypes.Result, forceJSON bool) error {
	if forceJSON || !stdoutIsTTY() {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "Bridge: %s\n\n", strings.Join(result.Connection.Path, " -> "))
	if len(result.Connection.Disciplines) > 0 {
		fmt.Fprintf(w, "Disciplines: %s\n", strings.Join(result.Connection.Disciplines, ", "))
	}
	fmt.Fprintf(w, "Strength: %.2f\n\n", result.Connection.Strength)

	fmt.Fprintln(w, result.Narrative.Explanation)
	if len(result.Narrative.Analogies) > 0 {
		fmt.Fprintln(w, "\nAnalogies:")
		for _, a := range result.Narrative.Analogies {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}

	fmt.Fprintf(w, "\nFairness: %.2f overall\n", result.Fairness.Overall)
	for _, m := range result.Fairness.Metrics {
		fmt.Fprintf(w, "  %s: %.2f (%s)\n", m.Label, m.Value, m.Detail)
	}

	if result.Mitigation != nil && result.Mitigation.Triggered {
		if result.Mitigation.Mitigated() {
			fmt.Fprintf(w, "\nContent was revised (%s, %d attempt(s)).\n",
				result.Mitigation.StrategyUsed, result.Mitigation.Attempts)
		} else {
			fmt.Fprintf(w, "\nNote: review flags could not be fully resolved after %d attempt(s).\n",
				result.Mitigation.Attempts)
		}
	}
	return nil
}

func renderProfile(w io.Writer, profile datatypes.Profile, forceJSON bool) error {
	if forceJSON || !stdoutIsTTY() {
		return writeJSON(w, profile)
	}
	fmt.Fprintf(w, "Session:          %s\n", profile.SessionID)
	fmt.Fprintf(w, "Knowledge level:  %s\n", profile.KnowledgeLevel)
	if profile.EducationLevel != "" {
		fmt.Fprintf(w, "Education level:  %s\n", profile.EducationLevel)
	}
	if profile.EducationSystem != "" {
		fmt.Fprintf(w, "Education system: %s\n", profile.EducationSystem)
	}
	fmt.Fprintf(w, "Concept A knowledge: %d/5\n", profile.ConceptAKnowledge)
	fmt.Fprintf(w, "Concept B knowledge: %d/5\n", profile.ConceptBKnowledge)
	return nil
}

func renderMetrics(w io.Writer, metrics handlers.AdminMetricsResponse, forceJSON bool) error {
	if forceJSON || !stdoutIsTTY() {
		return writeJSON(w, metrics)
	}
	summary := metrics.Pipeline
	fmt.Fprintf(w, "Cache:      %d hits / %d misses (%.0f%% hit rate)\n",
		summary.CacheHits, summary.CacheMisses, summary.CacheHitRate*100)
	fmt.Fprintf(w, "Mitigation: %d runs, %.1f avg retries, %.0f%% resolved\n",
		summary.MitigationRuns, summary.AverageRetries, summary.MitigationSuccessRate*100)
	if len(summary.StageAverageMS) > 0 {
		fmt.Fprintln(w, "Stage latency (avg ms):")
		for stage, ms := range summary.StageAverageMS {
			fmt.Fprintf(w, "  %-12s %.1f\n", stage, ms)
		}
	}
	if len(summary.CollaboratorFailures) > 0 {
		fmt.Fprintln(w, "Collaborator failures:")
		for name, n := range summary.CollaboratorFailures {
			fmt.Fprintf(w, "  %-12s %d\n", name, n)
		}
	}
	if metrics.Store != nil {
		fmt.Fprintf(w, "Store:      %d interactions, %d sessions, %d in the last 24h\n",
			metrics.Store.TotalInteractions, metrics.Store.UniqueSessions, metrics.Store.Interactions24h)
	}
	return nil
}
