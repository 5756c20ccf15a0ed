package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/engine"
	"github.com/matzehuels/forcegraph/pkg/observability/prom"
	"github.com/matzehuels/forcegraph/pkg/server"
	"github.com/matzehuels/forcegraph/pkg/sim"
)

type serveFlags struct {
	addr      string
	interval  time.Duration
	noMetrics bool
	noCache   bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve [source]",
		Short: "Host a live layout session over HTTP",
		Long: `Host a live layout session over HTTP.

The server owns one streaming simulation. Clients load graphs with
POST /api/graph, follow positions and camera changes on the
Server-Sent Events stream at /api/stream, and send pointer events to
POST /api/events. A source given on the command line (or the configured
MongoDB location) is loaded before the server starts listening.

Prometheus metrics are served at /metrics unless --no-metrics is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), sourceArg(args), flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "simulation tick interval (default from config)")
	cmd.Flags().BoolVar(&flags.noMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching of the initial source")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, src string, flags serveFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if flags.addr != "" {
		addr = flags.addr
	}
	interval := cfg.Server.Interval.Duration
	if flags.interval > 0 {
		interval = flags.interval
	}

	opts := server.Options{
		Logger:  c.Logger,
		View:    cfg.View(),
		Timeout: cfg.Server.Timeout.Duration,
	}
	if !flags.noMetrics {
		col, err := prom.New(prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		col.Install()
		opts.Metrics = col.Handler()
	}

	params, err := cfg.Params(sim.ModeStreaming)
	if err != nil {
		return err
	}
	e := engine.New(engine.Config{
		Params:   params,
		Attrs:    cfg.Attributes,
		Interact: cfg.Interact(),
		Logger:   c.Logger,
	})
	if src != "" || cfg.MongoLocation() != "" {
		if err := c.preload(ctx, e, src, flags.noCache); err != nil {
			e.Close()
			return err
		}
	}

	// from here on the loop owns e and closes it on exit
	loop := engine.NewLoop(e, interval)
	go loop.Run(ctx)

	srv := server.New(loop, opts)
	printInfo("Serving on %s", addr)
	err = srv.ListenAndServe(ctx, addr)
	loop.Stop()
	<-loop.Done()
	return err
}

// preload loads the initial graph before the loop takes ownership of e.
func (c *CLI) preload(ctx context.Context, e *engine.Engine, src string, noCache bool) error {
	cfg, _ := c.config()
	opts, err := pipelineOptions(cfg, src, sim.ModeStreaming)
	if err != nil {
		return err
	}
	opts.Logger = c.Logger
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.Source, err)
	}
	gen, err := e.Load(g)
	if err != nil {
		return err
	}
	e.SetView(cfg.View())
	printSuccess("Loaded %s", opts.Source)
	printStats(g.NodeCount(), g.EdgeCount(), false)
	loggerFromContext(ctx).Debug("preloaded graph", "generation", gen)
	return nil
}
