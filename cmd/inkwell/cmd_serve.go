// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell/internal/config"
	"github.com/inkwell-notes/inkwell/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inkwell HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if host, _ := cmd.Flags().GetString("host"); host != "" {
				cfg.Server.Host = host
			}
			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to open document store: %w", err)
			}
			defer store.Close()

			ai := newAIClient(cfg)
			if !ai.IsConfigured() {
				log.Printf("AI_NOT_CONFIGURED | set INKWELL_API_KEY or DEEPSEEK_API_KEY to enable chat")
			} else {
				log.Printf("AI_CONFIGURED | model=%s key=%s", ai.GetModel(), ai.KeyFingerprint())
			}

			srv := server.New(cfg, store, ai)

			// Hot reload: rate limits, model and export options pick up
			// config file edits without a restart.
			if cfgPath != "" {
				if _, statErr := os.Stat(cfgPath); statErr == nil {
					watcher, werr := config.NewWatcher(cfgPath, srv.ApplyConfig)
					if werr != nil {
						log.Printf("CONFIG_WATCH_UNAVAILABLE | error=%v", werr)
					} else if werr := watcher.Watch(); werr != nil {
						log.Printf("CONFIG_WATCH_UNAVAILABLE | error=%v", werr)
						watcher.Close()
					} else {
						defer watcher.Close()
					}
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().String("host", "", "Listen address (overrides config)")
	cmd.Flags().Int("port", 0, "Listen port (overrides config)")
	return cmd
}
