package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Zereker/indisocket"
	"github.com/Zereker/indisocket/internal/config"
)

// errCountReached ends the session once --count records were printed.
var errCountReached = errors.New("record count reached")

type readFlags struct {
	host          string
	port          int
	device        string
	property      string
	version       string
	match         string
	maxRecordSize string
	pollInterval  time.Duration
	metricsAddr   string
	count         int
}

func newReadCommand(root *rootFlags) *cobra.Command {
	flags := &readFlags{}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Request properties and print the reply records",
		Long: `Connects to the daemon, sends getProperties and prints every record until
interrupted, until --count records were printed, or until the daemon closes
the connection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			logger := root.newLogger(cmd.ErrOrStderr(), cfg)
			return runRead(cmd, cfg, flags.count, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.host, "host", indisocket.DefaultHost, "daemon host")
	f.IntVar(&flags.port, "port", indisocket.DefaultPort, "daemon port")
	f.StringVar(&flags.device, "device", "", "device to query (all devices when empty)")
	f.StringVar(&flags.property, "property", "", "property to query (all properties when empty)")
	f.StringVar(&flags.version, "version", indisocket.DefaultProtocolVersion, "INDI protocol version to announce")
	f.StringVar(&flags.match, "match", "", "only print records matching this glob, e.g. '<def*'")
	f.StringVar(&flags.maxRecordSize, "max-record-size", "", "drop records larger than this, e.g. 64KB")
	f.DurationVar(&flags.pollInterval, "poll-interval", indisocket.DefaultPollInterval, "bound on each readiness wait")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.IntVar(&flags.count, "count", 0, "exit after printing this many records (0 for no limit)")

	return cmd
}

// apply overrides file settings with the flags given on the command line.
func (f *readFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("host") {
		cfg.Host = f.host
	}
	if changed("port") {
		cfg.Port = f.port
	}
	if changed("device") {
		cfg.Device = f.device
	}
	if changed("property") {
		cfg.Property = f.property
	}
	if changed("version") {
		cfg.Version = f.version
	}
	if changed("match") {
		cfg.Match = f.match
	}
	if changed("poll-interval") {
		cfg.PollInterval.Duration = f.pollInterval
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if changed("max-record-size") {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(f.maxRecordSize)); err != nil {
			return errors.Wrapf(err, "invalid --max-record-size %q", f.maxRecordSize)
		}
		cfg.MaxRecordSize = size
	}
	if f.count < 0 {
		return errors.Errorf("invalid --count %d", f.count)
	}

	return cfg.Validate()
}

func runRead(cmd *cobra.Command, cfg *config.Config, count int, logger *slog.Logger) error {
	ctx := cmd.Context()

	var matcher glob.Glob
	if cfg.Match != "" {
		g, err := glob.Compile(cfg.Match)
		if err != nil {
			return errors.Wrapf(err, "invalid match pattern %q", cfg.Match)
		}
		matcher = g
	}

	registry := prometheus.NewRegistry()
	metrics, err := indisocket.NewMetrics(registry, "indiread")
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, registry, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	opts := append(cfg.ClientOptions(),
		indisocket.LoggerOption(logger),
		indisocket.MetricsOption(metrics),
	)
	client := indisocket.NewClient(opts...)
	if err := client.Connect(ctx, cfg.Host, cfg.Port); err != nil {
		client.Disconnect()
		return err
	}

	out := cmd.OutOrStdout()
	printed := 0
	session, err := indisocket.NewSession(client,
		indisocket.SessionLoggerOption(logger),
		indisocket.OnRecordOption(func(r indisocket.Record) error {
			if matcher != nil && !matcher.Match(r.String()) {
				return nil
			}
			if _, err := fmt.Fprintln(out, r.String()); err != nil {
				return err
			}
			printed++
			if count > 0 && printed >= count {
				return errCountReached
			}
			return nil
		}),
		indisocket.OnErrorOption(func(err error) indisocket.ErrorAction {
			if errors.Is(err, indisocket.ErrRecordTooLarge) {
				return indisocket.Continue
			}
			return indisocket.Disconnect
		}),
	)
	if err != nil {
		client.Disconnect()
		return err
	}

	request := cfg.Request()
	logger.Debug("sending request", "request", request)
	if err := session.Send(request); err != nil {
		session.Close()
		return err
	}

	err = session.Run(ctx)
	switch {
	case errors.Is(err, errCountReached), errors.Is(err, context.Canceled):
		return nil
	default:
		return err
	}
}

// serveMetrics exposes registry on addr. The returned func shuts the server down.
func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen for metrics")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", listener.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
