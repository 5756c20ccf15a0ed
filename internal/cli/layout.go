package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/render/frame"
	"github.com/matzehuels/forcegraph/pkg/sim"
)

// layoutFlags are shared by layout and render.
type layoutFlags struct {
	mode      string
	width     float64
	height    float64
	steps     int
	repulsion float64
	noCache   bool
	refresh   bool
}

func (f *layoutFlags) register(cmd *cobra.Command, mode string) {
	cmd.Flags().StringVar(&f.mode, "mode", mode, "simulation preset: batch, streaming")
	cmd.Flags().Float64Var(&f.width, "width", 0, "viewport width (default from config)")
	cmd.Flags().Float64Var(&f.height, "height", 0, "viewport height (default from config)")
	cmd.Flags().IntVar(&f.steps, "steps", 0, "maximum simulation steps (default from preset)")
	cmd.Flags().Float64Var(&f.repulsion, "repulsion", 0, "many-body strength, negative repels (default from preset)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "refetch the source even if cached")
}

// options builds pipeline options from config and flag overrides.
func (f *layoutFlags) options(c *CLI, src string) (pipeline.Options, error) {
	cfg, err := c.config()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts, err := pipelineOptions(cfg, src, f.mode)
	if err != nil {
		return pipeline.Options{}, err
	}
	if f.width > 0 {
		opts.Width = f.width
	}
	if f.height > 0 {
		opts.Height = f.height
	}
	if f.steps > 0 {
		opts.Params.Steps = f.steps
	}
	if f.repulsion != 0 {
		opts.Params.Repulsion = f.repulsion
	}
	opts.Refresh = f.refresh
	opts.Logger = c.Logger
	return opts, nil
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags  layoutFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout [source]",
		Short: "Compute a settled layout and write it as JSON",
		Long: `Compute a settled layout and write it as JSON.

The source is a records file, an http(s) URL serving records, or a
mongodb:// URI. Without a source the MongoDB location from the config file
is used. The simulation runs to rest (or its step limit) and the camera is
fitted to --width x --height.

Fetched records are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), sourceArg(args), flags, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <source>.layout.json)")
	flags.register(cmd, sim.ModeBatch)

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, src string, flags layoutFlags, output string) error {
	opts, err := flags.options(c, src)
	if err != nil {
		return err
	}
	cfg, _ := c.config()
	runner, err := c.newRunner(ctx, cfg, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Loading graph...")
	spinner.Start()
	g, hit, err := runner.LoadWithCacheInfo(ctx, opts)
	if err != nil {
		spinner.StopWithError("Load failed")
		return fmt.Errorf("load %s: %w", opts.Source, err)
	}
	spinner.Stop()

	prog := newProgress(loggerFromContext(ctx))
	spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Settling %d nodes...", g.NodeCount()))
	spinner.Start()
	l, err := runner.Layout(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	prog.done("Layout settled", "steps", l.Step, "state", l.State)

	if ctx.Err() != nil {
		return ctx.Err()
	}

	path := output
	if path == "" {
		path = outputBase(opts.Source) + ".layout.json"
	}
	if err := frame.WriteFile(l, path); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	printSuccess("Layout complete")
	printFile(path)
	printStats(g.NodeCount(), g.EdgeCount(), hit)
	printNewline()
	printNextStep("Explore", appName+" view "+opts.Source)

	return nil
}

// outputBase derives an output base name from a source location.
func outputBase(src string) string {
	if i := strings.Index(src, "://"); i >= 0 {
		src = src[i+3:]
	}
	src = strings.TrimRight(src, "/")
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "graph"
	}
	return base
}
