// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	logLevel  string
	logFormat string
	output    string
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "epecsolve",
		Short: "Solve equilibrium problems with equilibrium constraints",
		Long: `epecsolve reads a YAML instance describing leaders and their follower
games, computes a pure equilibrium by inner approximation and reports it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.logFormat {
					return nil
				}
			}

			return fmt.Errorf("invalid log format %q: must be one of %v", opts.logFormat, validFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (text|json)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "-", "report destination, - for stdout")

	cmd.AddCommand(newSolveCommand(opts))
	cmd.AddCommand(newEnumerateCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// logger builds the slog logger writing to w.
func (o *rootOptions) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(o.logLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", o.logLevel, err)
	}
	ho := &slog.HandlerOptions{Level: level}
	if o.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, ho)), nil
	}

	return slog.New(slog.NewTextHandler(w, ho)), nil
}

// writer opens the report destination. The returned close is never nil.
func (o *rootOptions) writer(cmd *cobra.Command) (io.Writer, func() error, error) {
	if o.output == "" || o.output == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(o.output)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "epecsolve", version)
		},
	}
}
