package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Zereker/indisocket"
	"github.com/Zereker/indisocket/internal/fakedaemon"
)

func newSimulateCommand(root *rootFlags) *cobra.Command {
	var (
		listen string
		device string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a fake daemon that answers getProperties",
		Long: `Starts a stand-in INDI daemon on loopback that answers every getProperties
request with a canned CCD simulator definition. Useful to try indiread read
without an instrument server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			logger := root.newLogger(cmd.ErrOrStderr(), cfg)

			d, err := fakedaemon.New(listen, fakedaemon.LoggerOption(logger))
			if err != nil {
				return errors.Wrap(err, "start daemon")
			}
			defer d.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", d.Addr())

			err = d.Serve(cmd.Context(), fakedaemon.Properties(fakedaemon.SampleDefinition(device), nil))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	defaultListen := net.JoinHostPort(indisocket.DefaultHost, strconv.Itoa(indisocket.DefaultPort))
	cmd.Flags().StringVar(&listen, "listen", defaultListen, "address to listen on")
	cmd.Flags().StringVar(&device, "device", "CCD Simulator", "device name in the definitions")

	return cmd
}
