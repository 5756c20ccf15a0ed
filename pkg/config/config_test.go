package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/sim"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[simulation]
mode = "batch"

[simulation.batch]
repulsion = -200.0
steps = 120

[interaction]
transition = "500ms"
max_scale = 4.0

[redis]
addr = "localhost:6379"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p, err := cfg.Params("")
	if err != nil {
		t.Fatal(err)
	}
	if p.Repulsion != -200 || p.Steps != 120 {
		t.Errorf("batch params = %+v", p)
	}
	if p.AlphaMin != sim.DefaultAlphaMin {
		t.Errorf("unset keys should keep defaults, alpha_min = %v", p.AlphaMin)
	}
	ic := cfg.Interact()
	if ic.Duration != 500*time.Millisecond || ic.MaxScale != 4 || ic.MinScale != 0.1 {
		t.Errorf("interaction = %+v", ic)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if s, _ := cfg.Params(sim.ModeStreaming); s.Repulsion != sim.DefaultLiveRepulsion {
		t.Errorf("streaming params = %+v", s)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code fgerrors.Code
	}{
		{"syntax", "[simulation", fgerrors.ErrCodeInvalidFormat},
		{"unknown key", "[viewport]\nzoom = 2.0\n", fgerrors.ErrCodeInvalidInput},
		{"bad mode", "[simulation]\nmode = \"sideways\"\n", fgerrors.ErrCodeInvalidInput},
		{"scale order", "[interaction]\nmin_scale = 5.0\nmax_scale = 2.0\n", fgerrors.ErrCodeInvalidInput},
		{"bad params", "[simulation.streaming]\nalpha_min = 2.0\n", fgerrors.ErrCodeInvalidInput},
		{"bad duration", "[interaction]\ntransition = \"soon\"\n", fgerrors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !fgerrors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want code %s", err, tt.code)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !fgerrors.Is(err, fgerrors.ErrCodeNotFound) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = ":9999"
	cfg.Interaction.Transition = Duration{time.Second}
	path := filepath.Join(t.TempDir(), "nested", FileName)
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Server.Addr != ":9999" || got.Interaction.Transition.Duration != time.Second {
		t.Errorf("round trip = %+v", got)
	}
}

func TestLoadDefaultWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Simulation.Mode != sim.ModeStreaming {
		t.Errorf("mode = %q", cfg.Simulation.Mode)
	}
}

func TestMongoLocation(t *testing.T) {
	cfg := Default()
	if cfg.MongoLocation() != "" {
		t.Error("no URI should give an empty location")
	}
	cfg.Mongo.URI = "mongodb://localhost:27017"
	cfg.Mongo.Collection = "triples"
	if got, want := cfg.MongoLocation(), "mongodb://localhost:27017/forcegraph?collection=triples"; got != want {
		t.Errorf("MongoLocation() = %q, want %q", got, want)
	}
}
