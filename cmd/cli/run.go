package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kosarica/crawler/config"
	"github.com/kosarica/crawler/internal/crawl"
	"github.com/kosarica/crawler/internal/database"
	"github.com/kosarica/crawler/internal/manifest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var selector string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a crawl for one retailer or a group of retailers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

			ctx := context.Background()
			if err := database.Connect(
				ctx, config.GetDatabaseURL(),
				cfg.Database.MaxConnections, cfg.Database.MinConnections,
				cfg.Database.MaxConnLifetime, cfg.Database.MaxConnIdleTime,
			); err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer database.Close()

			run, err := crawl.Run(ctx, cfg, selector)
			if err != nil {
				return err
			}

			return manifest.WriteTable(os.Stdout, run)
		},
	}

	cmd.Flags().StringVar(&selector, "retailers", "all",
		"all|public-only|credentialed-only|<slug> — which retailers to crawl")

	return cmd
}
