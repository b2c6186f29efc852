package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is overridden by the embedded VERSION file at startup.
var Version = "dev"

// Exit codes for startup failures. Per-item errors during a run never
// change the exit code; a run that starts, exits 0.
const (
	exitUsage     = 1
	exitBadSource = 2
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:           "mediaorg",
	Short:         "Sort media files into YEAR/MONTH folders by capture date",
	SilenceErrors: true,
}

// Execute runs the CLI and maps failures to process exit codes.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		// Argument and flag validation failures (cobra already printed usage).
		return exitUsage
	}
	return 0
}

func ApplyVersion() {
	rootCmd.Version = Version
}

func init() {
	ApplyVersion()
}
