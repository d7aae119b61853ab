package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iudanet/offsync/internal/models"
)

func newResolveCommand(c *Cli) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve pending conflicts",
		Long: `List pending conflicts and resolve them with a strategy. Without
--strategy the strategy is asked for interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd.Context(), strategy)
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "resolution strategy (last-write-wins|merge|local|remote)")
	return cmd
}

func (c *Cli) runResolve(ctx context.Context, rawStrategy string) error {
	conflicts := c.app.PendingConflicts()
	if len(conflicts) == 0 {
		c.io.Println("No pending conflicts.")
		return nil
	}

	c.io.Printf("Pending conflicts: %d\n\n", len(conflicts))
	for _, conflict := range conflicts {
		c.io.Printf("  %s/%s field %q: local=%s remote=%s\n",
			conflict.EntityType, conflict.EntityID(), conflict.Field,
			formatValue(conflict.LocalValue), formatValue(conflict.RemoteValue))
	}
	c.io.Println()

	if rawStrategy == "" {
		c.io.Println("Strategies:")
		for i, s := range models.Strategies {
			c.io.Printf("  %d. %s\n", i+1, s)
		}
		input, err := c.io.ReadInput("Strategy: ")
		if err != nil {
			return fmt.Errorf("failed to read strategy: %w", err)
		}
		rawStrategy = pickStrategy(input)
	}

	strategy, err := models.ParseStrategy(rawStrategy)
	if err != nil {
		return err
	}

	resolved, err := c.app.ResolvePending(ctx, strategy)
	if err != nil {
		return fmt.Errorf("failed to resolve conflicts: %w", err)
	}
	c.io.Printf("✓ %d conflict(s) resolved with %s\n", resolved, strategy)
	return nil
}

// pickStrategy accepts a strategy name or its number in the printed list.
func pickStrategy(input string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(models.Strategies) {
		return string(models.Strategies[n-1])
	}
	return input
}
