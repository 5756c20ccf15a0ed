package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute builds the command tree and runs it with ctx. The logger is
// attached to each command's context so helpers can reach it through
// loggerFromContext.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
func Execute(ctx context.Context) error {
	return newRootCommand(New(os.Stderr, LogInfo)).ExecuteContext(ctx)
}

func newRootCommand(c *CLI) *cobra.Command {
	var verbose bool

	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}
	return root
}
