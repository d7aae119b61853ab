package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iudanet/offsync/internal/config"
	"github.com/iudanet/offsync/internal/logging"
	"github.com/iudanet/offsync/internal/server"
	"github.com/iudanet/offsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "offsync-server",
		Short:         "Reference sync backend for offsync clients",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.New()
			bindings := map[string]string{
				"addr":       "server.addr",
				"db":         "server.db_path",
				"rate-limit": "server.rate_limit",
				"log-level":  "log.level",
				"log-format": "log.format",
			}
			for flag, key := range bindings {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("failed to bind --%s: %w", flag, err)
				}
			}

			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, stderr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ./.offsync.yaml)")
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("db", "", "path to the server database")
	cmd.Flags().Int("rate-limit", 0, "requests per client per window (0 disables)")
	cmd.Flags().String("log-level", "", "log level (debug|info|warn|error)")
	cmd.Flags().String("log-format", "", "log format (text|json)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "offsync-server %s\n", Version)
			fmt.Fprintf(stdout, "  Build date: %s\n", BuildDate)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(stdout, "  Go version: %s\n", runtime.Version())
		},
	})

	return cmd
}

func run(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	logger := logging.New(stderr, cfg.Log)
	logger.Info("Starting offsync server",
		"version", Version,
		"addr", cfg.Server.Addr,
		"db", cfg.Server.DBPath)

	store, err := sqlite.New(ctx, cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	return server.New(cfg.Server, logger, store, Version).Run(ctx)
}
