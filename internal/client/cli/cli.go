// Package cli implements the offsync client command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/offsync/internal/client/app"
	"github.com/iudanet/offsync/internal/client/iocli"
	"github.com/iudanet/offsync/internal/config"
	"github.com/iudanet/offsync/internal/logging"
)

// BuildInfo is the version information stamped at build time.
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath string
	DBPath     string
	ServerURL  string
	Adapter    string
	LogLevel   string
}

// Cli runs client commands against an opened App.
type Cli struct {
	io     iocli.IO
	app    *app.App
	logger *slog.Logger
	stderr io.Writer
}

// New creates a Cli writing command output to stdio. Log records go to stderr.
func New(stdio iocli.IO, stderr io.Writer) *Cli {
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Cli{io: stdio, stderr: stderr}
}

// NewRootCommand builds the command tree. Commands that touch local state
// open the App before running and persist and close it afterwards.
func NewRootCommand(c *Cli, info BuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "offsync",
		Short:         "Offline-first sync client",
		Long:          "Track local entity changes offline and synchronize them with a remote backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsApp(cmd) {
				return nil
			}
			return c.open(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./.offsync.yaml)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the local database")
	cmd.PersistentFlags().StringVar(&opts.ServerURL, "server", "", "sync server URL")
	cmd.PersistentFlags().StringVar(&opts.Adapter, "adapter", "", "remote adapter (http|memory)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(
		newPutCommand(c),
		newGetCommand(c),
		newListCommand(c),
		newDeleteCommand(c),
		newSyncCommand(c),
		newPushCommand(c),
		newPullCommand(c),
		newDrainCommand(c),
		newRetryCommand(c),
		newStatusCommand(c),
		newQueueCommand(c),
		newResolveCommand(c),
		newChangeLogCommand(c),
		newVersionCommand(c, info),
	)

	return cmd
}

// skipApp marks commands that run without local state.
const skipApp = "offsync/skip-app"

func needsApp(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if _, skip := cmd.Annotations[skipApp]; skip {
			return false
		}
		switch cmd.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func (c *Cli) open(cmd *cobra.Command, opts *RootOptions) error {
	v := config.New()
	// Флаги перекрывают файл и окружение только если заданы явно
	bindings := map[string]string{
		"db":        "client.db_path",
		"server":    "client.server_url",
		"adapter":   "client.adapter",
		"log-level": "log.level",
	}
	for flag, key := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	cfg, err := config.Load(v, opts.ConfigPath)
	if err != nil {
		return err
	}

	c.logger = logging.New(c.stderr, cfg.Log)

	a, err := app.Open(cmd.Context(), cfg, c.logger)
	if err != nil {
		return fmt.Errorf("failed to open client: %w", err)
	}
	a.Start(cmd.Context())
	c.app = a
	return nil
}

func (c *Cli) close(cmd *cobra.Command) error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close(cmd.Context())
	c.app = nil
	return err
}

// Execute runs the command tree with args and closes the App even when
// the command fails.
func Execute(ctx context.Context, cmd *cobra.Command, c *Cli, args []string) error {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if c.app != nil {
		// PersistentPostRunE не вызывается при ошибке команды
		if closeErr := c.app.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
		c.app = nil
	}
	return err
}
