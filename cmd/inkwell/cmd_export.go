// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell/internal/export"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			docs, err := store.List()
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents.")
				return nil
			}
			for _, doc := range docs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-30s  %s\n",
					doc.ID, doc.Title, doc.LastModified.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <document-id>",
		Short: "Export a document to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := store.Get(args[0])
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			opts := &export.Options{
				OutputDir:       cfg.Export.OutputDir,
				IncludeMetadata: cfg.Export.IncludeMetadata,
				Theme:           cfg.Export.Theme,
			}
			if dir, _ := cmd.Flags().GetString("output"); dir != "" {
				opts.OutputDir = dir
			}

			path, err := export.ExportToFile(doc, format, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %q to %s\n", doc.Title, path)
			return nil
		},
	}

	cmd.Flags().String("format", "markdown", "Export format: markdown, html or json")
	cmd.Flags().String("output", "", "Output directory (overrides config)")
	return cmd
}
