// Package cli exposes the portal commands: serving the HTTP surface and
// exporting accreditation reports from the command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	Pretty   bool
}

// NewRootCommand creates the root command for the portal binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Student Hub portal",
		Long:  "Role-based web portal in front of the Smart Student Hub API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := zerolog.ParseLevel(strings.ToLower(opts.LogLevel)); err != nil {
				return fmt.Errorf("invalid log level %q", opts.LogLevel)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.Pretty, "pretty", false, "human readable logs")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}

func (o *RootOptions) logger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if o.Pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(o.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
