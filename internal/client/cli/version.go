package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCommand(c *Cli, info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipApp: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			c.io.Printf("offsync %s\n", info.Version)
			c.io.Printf("  Build date: %s\n", info.BuildDate)
			c.io.Printf("  Git commit: %s\n", info.GitCommit)
			c.io.Printf("  Go version: %s\n", runtime.Version())
		},
	}
}
