package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/streamscout/internal/adapters/upstream/helix"
	"github.com/okian/streamscout/internal/config"
	"github.com/okian/streamscout/internal/harvest"
	"github.com/okian/streamscout/pkg/logger"
)

const defaultPageDelay = 500 * time.Millisecond

// rootCmd fetches the top games once and saves them as the catalog.
var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Fetch the top games from Twitch and save them as the StreamScout catalog.",
	Long: `harvest pages through the Twitch top games listing and writes the result
atomically as {fetched_at, total_games, games:[{id,name}]}.

Credentials and defaults come from the same configuration as the server
(STREAMSCOUT_* environment, optional STREAMSCOUT_CONFIG file).`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runHarvest,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() { //nolint:gochecknoinits // cobra flag registration
	rootCmd.Flags().StringP("output", "o", "", "catalog file to write (default: catalog_path from config)")
	rootCmd.Flags().IntP("count", "n", harvest.DefaultTarget, "number of games to fetch")
	rootCmd.Flags().Duration("page-delay", defaultPageDelay, "pause between listing pages")
	rootCmd.Flags().StringP("loglevel", "l", "info", "log level: debug, info, warn, error")
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("loglevel")
	if err := logger.SetLevelString(level); err != nil {
		return err
	}
	log := logger.Named("harvest")

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.CatalogPath
	}
	count, _ := cmd.Flags().GetInt("count")
	pageDelay, _ := cmd.Flags().GetDuration("page-delay")

	client := helix.New(cfg.TwitchClientID, cfg.TwitchClientSecret,
		helix.WithBaseURL(cfg.HelixBaseURL),
		helix.WithAuthURL(cfg.AuthURL),
		helix.WithRequestTimeout(cfg.UpstreamTimeout),
		helix.WithHandshakeTimeout(cfg.HandshakeTimeout),
		helix.WithWarmupDelay(0),
		helix.WithPageDelay(pageDelay),
		helix.WithLogger(log.Named("helix")),
	)
	if err := client.CheckCredentials(); err != nil {
		return fmt.Errorf("%w (set TWITCH_APP_ID and TWITCH_APP_SECRET)", err)
	}

	started := time.Now()
	doc, err := harvest.New(harvest.WithTarget(count), harvest.WithLogger(log)).Run(ctx, client, output)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d games to %s in %s\n", doc.TotalGames, output, time.Since(started).Round(time.Millisecond))
	return nil
}
