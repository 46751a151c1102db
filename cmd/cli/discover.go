package main

import (
	"fmt"
	"os"

	"github.com/kosarica/crawler/internal/govil"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

func newDiscoverRetailersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover-retailers",
		Short: "Fetch the gov.il retailer directory and print a retailers.yaml block",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := govil.Discover()
			if err != nil {
				return fmt.Errorf("discovering retailers: %w", err)
			}

			retailers := govil.ToRetailers(entries)
			out, err := yaml.Marshal(map[string]any{"retailers": retailers})
			if err != nil {
				return fmt.Errorf("rendering yaml: %w", err)
			}

			_, err = os.Stdout.Write(out)
			return err
		},
	}
}
