// Package config loads forcegraph settings from a TOML file.
//
// Every section has working defaults, so a missing file is not an error
// for [LoadDefault]. Command-line flags override file values after
// loading.
//
//	[simulation]
//	mode = "streaming"
//
//	[simulation.streaming]
//	repulsion = -800.0
//
//	[interaction]
//	transition = "500ms"
//
//	[redis]
//	addr = "localhost:6379"
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/forcegraph/pkg/attrs"
	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/interact"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/source"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// FileName is the config file looked up by LoadDefault.
const FileName = "config.toml"

// Config is the full settings tree.
type Config struct {
	Simulation  Simulation   `toml:"simulation"`
	Attributes  attrs.Config `toml:"attributes"`
	Viewport    Viewport     `toml:"viewport"`
	Interaction Interaction  `toml:"interaction"`
	Server      Server       `toml:"server"`
	Redis       Redis        `toml:"redis"`
	Mongo       Mongo        `toml:"mongo"`
	Cache       Cache        `toml:"cache"`
}

// Simulation holds one parameter set per mode and the default mode.
type Simulation struct {
	Mode      string     `toml:"mode"`
	Batch     sim.Params `toml:"batch"`
	Streaming sim.Params `toml:"streaming"`
}

// Viewport is the default view for batch layouts.
type Viewport struct {
	Width        float64 `toml:"width"`
	Height       float64 `toml:"height"`
	Padding      float64 `toml:"padding"`
	DefaultScale float64 `toml:"default_scale"`
}

// Interaction bounds the camera.
type Interaction struct {
	MinScale   float64  `toml:"min_scale"`
	MaxScale   float64  `toml:"max_scale"`
	Transition Duration `toml:"transition"`
}

// Server configures `forcegraph serve`.
type Server struct {
	Addr     string   `toml:"addr"`
	Interval Duration `toml:"interval"` // simulation tick
	Timeout  Duration `toml:"timeout"`  // non-streaming request timeout
}

// Redis selects the Redis cache when Addr is set.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// Mongo names a default record source.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Cache configures the file cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Simulation: Simulation{
			Mode:      sim.ModeStreaming,
			Batch:     sim.Batch(),
			Streaming: sim.Streaming(),
		},
		Attributes: attrs.DefaultConfig(),
		Viewport: Viewport{
			Width:        800,
			Height:       600,
			Padding:      viewport.DefaultPadding,
			DefaultScale: viewport.DefaultScale,
		},
		Interaction: Interaction{
			MinScale:   interact.DefaultMinScale,
			MaxScale:   interact.DefaultMaxScale,
			Transition: Duration{viewport.DefaultDuration},
		},
		Server: Server{
			Addr:     ":8080",
			Interval: Duration{16 * time.Millisecond},
			Timeout:  Duration{30 * time.Second},
		},
		Mongo: Mongo{
			Database:   source.DefaultDatabase,
			Collection: source.DefaultCollection,
		},
		Cache: Cache{Enabled: true, Dir: DefaultCacheDir()},
	}
}

// Dir returns the forcegraph config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "forcegraph")
}

// DefaultCacheDir returns the file cache directory.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "forcegraph")
}

// Load reads path on top of the defaults and validates the result. Keys
// absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fgerrors.Wrap(fgerrors.ErrCodeNotFound, err, "config %s", path)
		}
		return nil, fgerrors.Wrap(fgerrors.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fgerrors.New(fgerrors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undec[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath is the file LoadDefault reads.
func DefaultPath() string { return filepath.Join(Dir(), FileName) }

// LoadDefault reads DefaultPath if it exists, otherwise returns the
// defaults.
func LoadDefault() (*Config, error) {
	path := DefaultPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes cfg as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if _, err := sim.Preset(c.Simulation.Mode); err != nil {
		return err
	}
	if err := c.Simulation.Batch.Validate(); err != nil {
		return fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, err, "simulation.batch")
	}
	if err := c.Simulation.Streaming.Validate(); err != nil {
		return fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, err, "simulation.streaming")
	}
	switch {
	case c.Attributes.MinSize < 0 || c.Attributes.SizeScale < 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "attributes: sizes must not be negative")
	case c.Viewport.Width <= 0 || c.Viewport.Height <= 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "viewport: width and height must be positive")
	case c.Viewport.Padding < 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "viewport: padding must not be negative")
	case c.Interaction.MinScale <= 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "interaction: min_scale must be positive")
	case c.Interaction.MinScale >= c.Interaction.MaxScale:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "interaction: min_scale must be below max_scale")
	case c.Interaction.Transition.Duration < 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "interaction: transition must not be negative")
	case c.Server.Interval.Duration <= 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "server: interval must be positive")
	case c.Redis.DB < 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "redis: db must not be negative")
	}
	return nil
}

// Params returns the simulation parameters for mode, or for the
// configured default mode when mode is empty.
func (c *Config) Params(mode string) (sim.Params, error) {
	if mode == "" {
		mode = c.Simulation.Mode
	}
	switch mode {
	case sim.ModeBatch:
		return c.Simulation.Batch, nil
	case sim.ModeStreaming:
		return c.Simulation.Streaming, nil
	}
	_, err := sim.Preset(mode)
	return sim.Params{}, err
}

// Interact returns the controller configuration.
func (c *Config) Interact() interact.Config {
	return interact.Config{
		MinScale: c.Interaction.MinScale,
		MaxScale: c.Interaction.MaxScale,
		Duration: c.Interaction.Transition.Duration,
		Fit: viewport.Options{
			Padding:      c.Viewport.Padding,
			DefaultScale: c.Viewport.DefaultScale,
		},
	}
}

// View returns the default viewport size.
func (c *Config) View() viewport.Size {
	return viewport.Size{Width: c.Viewport.Width, Height: c.Viewport.Height}
}

// MongoLocation returns the configured Mongo source as a URI that
// source.Open understands, or "" when no URI is set.
func (c *Config) MongoLocation() string {
	if c.Mongo.URI == "" {
		return ""
	}
	u, err := url.Parse(c.Mongo.URI)
	if err != nil {
		return c.Mongo.URI
	}
	if c.Mongo.Database != "" && (u.Path == "" || u.Path == "/") {
		u.Path = "/" + c.Mongo.Database
	}
	if c.Mongo.Collection != "" {
		q := u.Query()
		q.Set("collection", c.Mongo.Collection)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
