package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newChangeLogCommand(c *Cli) *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Export or list change log snapshots",
		Long: `With --export, snapshot the unsynced changes into a new change log
version, archive it locally and print it as JSON. Otherwise list the
archived versions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if export {
				return c.runExportChangeLog(cmd.Context())
			}
			return c.runListChangeLogs(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&export, "export", false, "export a new change log version")
	return cmd
}

func (c *Cli) runExportChangeLog(ctx context.Context) error {
	log, err := c.app.ExportChangeLog(ctx)
	if err != nil {
		return fmt.Errorf("failed to export change log: %w", err)
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode change log: %w", err)
	}
	_, err = c.io.Write(append(data, '\n'))
	return err
}

func (c *Cli) runListChangeLogs(ctx context.Context) error {
	logs, err := c.app.Storage.ListChangeLogs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list change logs: %w", err)
	}
	if len(logs) == 0 {
		c.io.Println("No change logs exported yet.")
		return nil
	}

	for _, log := range logs {
		c.io.Printf("v%d  %d change(s)  %s\n", log.Version, len(log.Changes), humanize.Time(log.CreatedAt))
	}
	return nil
}
