package cli

import (
	"github.com/spf13/cobra"
)

func newStatusCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, pending changes and conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus()
		},
	}
}

func (c *Cli) runStatus() error {
	if err := render(c.io, statusTmpl, map[string]any{
		"ClientID":  c.app.Tracker.ClientID(),
		"State":     c.app.Engine.State(),
		"Conflicts": len(c.app.PendingConflicts()),
		"Queue":     c.app.Queue.Stats(),
	}); err != nil {
		return err
	}

	c.io.Println()
	if pending := len(c.app.Tracker.GetUnsynced()); pending > 0 {
		c.io.Printf("⚠️  %d change(s) waiting to be synchronized\n", pending)
		c.io.Println("Run 'offsync sync' to synchronize with the server.")
	} else {
		c.io.Println("✓ All data synchronized")
	}
	return nil
}
