// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	serverURL  string // Bridge service base URL
	adminToken string // X-Admin-Token value for admin commands
	jsonOutput bool   // Output raw JSON instead of formatted text

	connectLevel   string // Learner knowledge level
	connectSession string // Session ID for history and profiles

	feedbackSession string
	feedbackRating  int
	feedbackComment string
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "connector-cli",
	Short: "Query a Concept-Connector bridge service from the terminal",
	Long: `connector-cli talks to a running bridge service.

Examples:
  connector-cli connect "music theory" "calculus"
  connector-cli connect photosynthesis economics --level beginner --session alice
  connector-cli feedback --session alice --rating 4 --comment "loved the analogies"
  connector-cli profile alice
  connector-cli metrics --admin-token $CONNECTOR_ADMIN_TOKEN`,
	SilenceUsage: true,
}

var connectCmd = &cobra.Command{
	Use:   "connect <concept-a> <concept-b>",
	Short: "Find and explain the bridge between two concepts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		client := newAPIClient(serverURL, adminToken)
		result, err := client.Connect(ctx, datatypes.ConnectRequest{
			ConceptA:       args[0],
			ConceptB:       args[1],
			KnowledgeLevel: connectLevel,
			SessionID:      connectSession,
		})
		if err != nil {
			return err
		}
		return renderResult(os.Stdout, result, jsonOutput)
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Rate or comment on the explanations you received",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		req := datatypes.FeedbackRequest{
			SessionID: feedbackSession,
			Comment:   feedbackComment,
		}
		if cmd.Flags().Changed("rating") {
			req.Rating = &feedbackRating
		}

		client := newAPIClient(serverURL, adminToken)
		if err := client.SendFeedback(ctx, req); err != nil {
			return err
		}
		fmt.Println("Feedback recorded.")
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <session-id>",
	Short: "Show the stored learner profile for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		client := newAPIClient(serverURL, adminToken)
		profile, err := client.GetProfile(ctx, args[0])
		if err != nil {
			return err
		}
		return renderProfile(os.Stdout, profile, jsonOutput)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show pipeline metrics (requires the admin token)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		client := newAPIClient(serverURL, adminToken)
		summary, err := client.Metrics(ctx)
		if err != nil {
			return err
		}
		return renderMetrics(os.Stdout, summary, jsonOutput)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CONNECTOR_SERVER", "http://localhost:8080"),
		"bridge service base URL")
	rootCmd.PersistentFlags().StringVar(&adminToken, "admin-token", os.Getenv("CONNECTOR_ADMIN_TOKEN"),
		"admin token for operator commands")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output raw JSON")

	connectCmd.Flags().StringVar(&connectLevel, "level", "", "knowledge level: beginner, intermediate, or advanced")
	connectCmd.Flags().StringVar(&connectSession, "session", "", "session ID for history and profile reuse")

	feedbackCmd.Flags().StringVar(&feedbackSession, "session", "", "session the feedback applies to")
	feedbackCmd.Flags().IntVar(&feedbackRating, "rating", 0, "rating from 1 to 5")
	feedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "free-form comment")

	rootCmd.AddCommand(connectCmd, feedbackCmd, profileCmd, metricsCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
