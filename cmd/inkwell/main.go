// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// inkwell is the backend for an AI-assisted note editor: a document store,
// an HTTP API and a streaming edit pipeline that applies tagged AI edits to
// the active note while the response is still arriving.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell/internal/cloud"
	"github.com/inkwell-notes/inkwell/internal/config"
	"github.com/inkwell-notes/inkwell/internal/storage"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "inkwell",
		Short: "AI-assisted note backend",
		Long: `inkwell serves a local note store with an AI editing pipeline.

Notes live in a SQLite database. The HTTP API streams assistant responses
over SSE and applies tagged edits to the open note as they arrive, with a
single-slot preview, undo history and export to markdown, HTML and JSON.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.inkwell/config.toml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newListCmd(),
		newExportCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inkwell %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}

// loadConfig loads the configuration honoring the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		return cfg, path, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	defaultPath, pathErr := config.ConfigPath()
	if pathErr != nil {
		defaultPath = ""
	}
	return cfg, defaultPath, nil
}

// openStore opens the document store at the configured path, creating the
// config directory for the default location.
func openStore(cfg *config.Config) (*storage.Store, error) {
	path := cfg.Storage.DatabasePath
	if path == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		var err error
		path, err = config.DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}

// newAIClient builds the DeepSeek client from the AI configuration.
func newAIClient(cfg *config.Config) *cloud.Client {
	client := cloud.NewClient(cfg.AI.APIKey).
		WithTimeout(time.Duration(cfg.AI.TimeoutSecs) * time.Second).
		WithMaxRetries(cfg.AI.MaxRetries)
	if cfg.AI.BaseURL != "" {
		client = client.WithBaseURL(cfg.AI.BaseURL)
	}
	client.SetModel(cfg.AI.Model)
	return client
}
