package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/offsync/internal/models"
)

func newSyncCommand(c *Cli) *cobra.Command {
	var withRetry bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull remote ones",
		Long: `Push unsynced local changes, then pull and apply remote changes.
Offline, the changes are queued and sent on the next sync. With --retry
transient failures are retried with exponential backoff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context(), withRetry)
		},
	}

	cmd.Flags().BoolVar(&withRetry, "retry", false, "retry transient failures with backoff")
	return cmd
}

func (c *Cli) runSync(ctx context.Context, withRetry bool) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	var (
		result *models.SyncResult
		err    error
	)
	if withRetry {
		result, err = c.app.SyncWithRetry(ctx, func(attempt int, delay time.Duration, err error) {
			c.io.Printf("Attempt %d failed: %v. Retrying in %s...\n", attempt, err, delay.Round(time.Millisecond))
		})
	} else {
		result, err = c.app.Engine.Sync(ctx)
	}

	c.printResult(result)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}
	return nil
}

func newPushCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push local changes only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Engine.Push(cmd.Context())
			c.printResult(result)
			if err != nil {
				return fmt.Errorf("push failed: %w", err)
			}
			return nil
		},
	}
}

func newPullCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull and apply remote changes only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Engine.Pull(cmd.Context())
			c.printResult(result)
			if err != nil {
				return fmt.Errorf("pull failed: %w", err)
			}
			return nil
		},
	}
}

func newDrainCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run queued operations in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			completed, err := c.app.Engine.DrainQueue(cmd.Context())
			c.io.Printf("Completed operations: %d\n", completed)
			if err != nil {
				return fmt.Errorf("drain stopped: %w", err)
			}
			return nil
		},
	}
}

func newRetryCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <operation-id>",
		Short: "Retry a failed operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Engine.RetryOperation(cmd.Context(), args[0])
			c.printResult(result)
			if err != nil {
				return fmt.Errorf("retry failed: %w", err)
			}
			return nil
		},
	}
}

func (c *Cli) printResult(result *models.SyncResult) {
	if result == nil {
		return
	}

	if result.HasCode(models.CodeOfflineEnqueued) {
		c.io.Println("Offline: changes queued, they will be sent on the next sync.")
		return
	}

	if result.Success {
		c.io.Println("✓ Synchronization completed successfully!")
	} else {
		c.io.Println("✗ Synchronization finished with errors")
	}
	c.io.Println()
	c.io.Printf("Pushed:  %d change(s)\n", result.Pushed)
	c.io.Printf("Pulled:  %d change(s)\n", result.Pulled)
	c.io.Printf("Applied: %d change(s)\n", result.Applied)
	if len(result.Conflicts) > 0 {
		c.io.Printf("Conflicts: %d\n", len(result.Conflicts))
	}
	for _, err := range result.Errors {
		c.io.Printf("  [%s] %s\n", err.Code, err.Message)
	}
	c.io.Printf("Took %s\n", result.Duration.Round(time.Millisecond))
}
