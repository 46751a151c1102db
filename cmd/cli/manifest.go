package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kosarica/crawler/internal/manifest"
	"github.com/kosarica/crawler/internal/types"
	"github.com/spf13/cobra"
)

func newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <run-manifest.json>",
		Short: "Render a saved run manifest as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading manifest file: %w", err)
			}

			var run types.RunManifest
			if err := json.Unmarshal(raw, &run); err != nil {
				return fmt.Errorf("decoding manifest file: %w", err)
			}

			return manifest.WriteTable(os.Stdout, run)
		},
	}
}
