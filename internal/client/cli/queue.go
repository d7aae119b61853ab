package cli

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newQueueCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List queued sync operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueue()
		},
	}
}

func (c *Cli) runQueue() error {
	stats := c.app.Queue.Stats()
	c.io.Printf("Queue: %d/%d (pending %d, in progress %d, failed %d)\n",
		stats.Size, stats.MaxSize, stats.Pending, stats.InProgress, stats.Failed)

	ops := c.app.Queue.List()
	if len(ops) == 0 {
		return nil
	}

	c.io.Println()
	for _, op := range ops {
		c.io.Printf("%s  %-11s %-9s changes=%d attempts=%d  %s\n",
			op.ID, op.Type, op.Status, len(op.Changes), op.Attempts, humanize.Time(op.StartedAt))
		if len(op.Conflicts) > 0 {
			c.io.Printf("    conflicts=%d strategy=%s\n", len(op.Conflicts), op.Strategy)
		}
		if op.Error != "" {
			c.io.Printf("    error: %s\n", op.Error)
		}
	}
	return nil
}
