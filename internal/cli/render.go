package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/sim"
)

// renderCommand creates the render command. It runs the full batch
// pipeline: load, settle, fit, render.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags      layoutFlags
		output     string
		formats    string
		edgeLabels bool
		directed   bool
	)

	cmd := &cobra.Command{
		Use:   "render [source]",
		Short: "Render a graph to SVG, DOT, JSON or text",
		Long: `Render a graph to SVG, DOT, JSON or text.

The layout is computed exactly as by 'layout' and then rendered once per
requested format. With a single format, -o names the output file and
"-o -" writes to stdout. With several formats, -o is a base path and each
output gets its format's extension.

Rendered artifacts are cached by layout hash and render options.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(c, sourceArg(args))
			if err != nil {
				return err
			}
			opts.Formats = pipeline.ParseFormats(formats)
			opts.EdgeLabels = edgeLabels
			opts.Directed = directed
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			if output == "-" && len(opts.Formats) != 1 {
				return fgerrors.New(fgerrors.ErrCodeInvalidInput, "stdout output needs exactly one format")
			}
			return c.runRender(cmd.Context(), opts, flags.noCache, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format), base path (multiple) or - for stdout")
	cmd.Flags().StringVarP(&formats, "format", "f", pipeline.FormatSVG, "output format(s): "+strings.Join(formatNames(), ", ")+" (comma-separated)")
	cmd.Flags().BoolVar(&edgeLabels, "edge-labels", false, "label edges with their relationship type")
	cmd.Flags().BoolVar(&directed, "directed", false, "draw edges as arrows")
	flags.register(cmd, sim.ModeBatch)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, noCache bool, output string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if output == "-" {
		_, err := os.Stdout.Write(res.Artifacts[opts.Formats[0]])
		return err
	}

	paths := outputPaths(output, opts.Source, opts.Formats)
	for _, f := range opts.Formats {
		if err := writeArtifact(paths[f], res.Artifacts[f]); err != nil {
			return err
		}
	}

	printSuccess("Rendered %d output(s)", len(opts.Formats))
	for _, f := range opts.Formats {
		printFile(paths[f])
	}
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.LoadHit && res.CacheInfo.RenderHit)
	printDetail("%d steps · load %s · layout %s · render %s",
		res.Stats.Steps, res.Stats.LoadTime.Round(time.Millisecond), res.Stats.LayoutTime.Round(time.Millisecond), res.Stats.RenderTime.Round(time.Millisecond))
	return nil
}

// outputPaths maps each format to its output file.
func outputPaths(output, src string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, src)
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

// basePath strips a known format extension from output, or derives the
// base from the source when output is empty.
func basePath(output, src string) string {
	if output == "" {
		return outputBase(src)
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatNames() []string {
	names := make([]string, 0, len(pipeline.ValidFormats))
	for f := range pipeline.ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}
