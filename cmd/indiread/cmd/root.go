// Package cmd implements the indiread command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zereker/indisocket/internal/config"
)

// Version is set at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

type rootFlags struct {
	cfgFile string
	verbose bool
}

// NewRootCommand builds the indiread command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "indiread",
		Short: "Print the property stream of an INDI daemon",
		Long: `indiread connects to an INDI daemon, sends a getProperties discovery
request and prints every record of the reply, one per line.

Records are split on CR and LF; the XML is not parsed.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (.toml, .yaml or .yml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newReadCommand(flags))
	root.AddCommand(newSimulateCommand(flags))
	root.AddCommand(newVersionCommand())

	return root
}

// Execute runs the command line until it finishes or receives SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "indiread", Version)
		},
	}
}

// loadConfig reads the config file if one was given, otherwise defaults.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	if f.cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(f.cfgFile)
}

func (f *rootFlags) newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := cfg.Level()
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
