package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/wiretap/internal/config"
	"github.com/vango-dev/wiretap/internal/errors"
	"github.com/vango-dev/wiretap/pkg/metrics"
	"github.com/vango-dev/wiretap/pkg/proxy"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		listen   string
		upstream string
		origin   string
		backend  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay and control API",
		Long: `Run the websocket relay and the JSON control API.

Point the game client at ws://<listen>/ws. Wiretap dials the
upstream server for every client and taps the frames it sends.

Examples:
  wiretap serve --upstream wss://game.example.com/websocket
  wiretap serve -c wiretap.toml --listen 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if upstream != "" {
				cfg.Upstream = upstream
			}
			if origin != "" {
				cfg.Origin = origin
			}
			if backend != "" {
				cfg.Store.Backend = backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := cfg.Logger(os.Stderr)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server, err := newServer(ctx, cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "Relaying ws://%s/ws to %s", displayAddr(cfg.Listen), cfg.Upstream)
			info(out, "Control API at http://%s/api/state", displayAddr(cfg.Listen))

			if err := server.Run(ctx); err != nil {
				return errors.New("W141").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default from config, :8420)")
	cmd.Flags().StringVarP(&upstream, "upstream", "u", "", "Upstream websocket URL")
	cmd.Flags().StringVar(&origin, "origin", "", "Origin header sent upstream")
	cmd.Flags().StringVar(&backend, "store", "", "Record store backend: memory, file or s3")

	return cmd
}

// newServer wires the record store, metrics and relay for cfg.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*proxy.Server, error) {
	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []proxy.Option{proxy.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector := metrics.New(
			metrics.WithRegistry(reg),
			metrics.WithNamespace(cfg.Metrics.Namespace),
		)
		opts = append(opts, proxy.WithMetrics(collector, reg))
	}

	return proxy.New(proxy.Config{
		Address:        cfg.Listen,
		Upstream:       cfg.Upstream,
		Origin:         cfg.Origin,
		ForwardHeaders: cfg.Relay.ForwardHeaders,
		MaxMessageSize: cfg.Relay.MaxMessageSize,
		WriteTimeout:   cfg.WriteTimeout(),
		WaitTimeout:    cfg.WaitTimeout(),
	}, catalog, opts...), nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
