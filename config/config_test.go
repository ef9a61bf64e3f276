package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.Grid.Backend = GridLaunchpad
			cfg.Voice.Fundamental = 55
			cfg.SynthOutput.PortName = "IAC Driver Bus 1"
			if err := cfg.SaveFile(path); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !reflect.DeepEqual(got, cfg) {
				t.Fatalf("got %+v, want %+v", got, cfg)
			}
		})
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("voice:\n  fundamental: 220\n  dimLevel: 6\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Voice.Fundamental != 220 || cfg.Voice.DimLevel != 6 {
		t.Fatalf("voice section %+v", cfg.Voice)
	}
	if cfg.Grid.Prefix != "/monome" || cfg.OSC.SynthAddress != "/addition/voice" {
		t.Fatalf("defaults lost: %+v %+v", cfg.Grid, cfg.OSC)
	}
	if d := cfg.FlashDuration(); d != 80*time.Millisecond {
		t.Fatalf("flash duration %v", d)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"backend":     func(c *Config) { c.Grid.Backend = "arc" },
		"prefix":      func(c *Config) { c.Grid.Prefix = "monome" },
		"fundamental": func(c *Config) { c.Voice.Fundamental = 0 },
		"dim":         func(c *Config) { c.Voice.DimLevel = 15 },
		"flash":       func(c *Config) { c.Voice.FlashMillis = -1 },
		"channel":     func(c *Config) { c.SynthOutput.BaseChannel = 9 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: invalid config accepted", name)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
}

func TestSaveWritesDefaultPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Voice.Fundamental = 65
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Voice.Fundamental != 65 {
		t.Fatalf("fundamental = %v, want 65", got.Voice.Fundamental)
	}
}
