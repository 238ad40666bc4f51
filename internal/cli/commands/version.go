package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display leapdecide version, Go runtime, and the dialects compiled in.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leapdecide v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Policy to SQL compiler (%s, %s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dialects: %v\n", dialect.List())
		},
	}
}
