// Package cli implements the forcegraph command-line interface.
//
// Commands:
//   - layout: run a batch simulation and write the settled frame as JSON
//   - render: run the batch pipeline and write SVG, DOT, JSON or text
//   - view: explore a graph interactively in the terminal
//   - serve: host a live layout session over HTTP
//   - cache: manage the local cache
//   - completion: generate shell completion scripts
//
// Settings come from the TOML config file (see package config); flags
// override individual values. All commands support --verbose (-v) for
// debug logging.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/buildinfo"
	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/config"
	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

const appName = "forcegraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Forcegraph lays out property graphs with a force simulation",
		Long:         `Forcegraph loads nodes and relationships from files, HTTP endpoints or MongoDB, runs a force-directed simulation over them, and renders the result as SVG, DOT, JSON or terminal graphics. It can also host an interactive layout session over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: "+config.DefaultPath()+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	ch, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

// newCache picks Redis when an address is configured, the file cache when
// caching is enabled, and the null cache otherwise.
func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache || !cfg.Cache.Enabled {
		return cache.NewNullCache(), nil
	}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// pipelineOptions fills pipeline options from the config for one source.
func pipelineOptions(cfg *config.Config, src, mode string) (pipeline.Options, error) {
	if src == "" {
		src = cfg.MongoLocation()
	}
	if src == "" {
		return pipeline.Options{}, fgerrors.New(fgerrors.ErrCodeInvalidInput, "no source given and no mongo uri configured")
	}
	if mode == "" {
		mode = cfg.Simulation.Mode
	}
	params, err := cfg.Params(mode)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Source:   src,
		Mode:     mode,
		Params:   &params,
		Attrs:    cfg.Attributes,
		Width:    cfg.Viewport.Width,
		Height:   cfg.Viewport.Height,
		Interact: cfg.Interact(),
	}, nil
}

// sourceArg returns the optional positional source.
func sourceArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
