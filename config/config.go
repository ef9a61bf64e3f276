package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// GridBackend identifies the device that provides the 16x8 grid
type GridBackend string

const (
	GridMonome    GridBackend = "monome"    // serialosc over OSC
	GridLaunchpad GridBackend = "launchpad" // Launchpad X over MIDI
	GridNone      GridBackend = "none"      // TUI only
)

// GridConfig selects and addresses the grid
type GridConfig struct {
	Backend    GridBackend `json:"backend" yaml:"backend"`
	Prefix     string      `json:"prefix" yaml:"prefix"`
	DeviceAddr string      `json:"deviceAddr,omitempty" yaml:"deviceAddr,omitempty"` // serialosc device port
	PortName   string      `json:"portName,omitempty" yaml:"portName,omitempty"`     // launchpad MIDI port
}

// OSCConfig defines where OSC input arrives and where sound messages go
type OSCConfig struct {
	ListenAddr         string `json:"listenAddr" yaml:"listenAddr"`
	SynthAddr          string `json:"synthAddr,omitempty" yaml:"synthAddr,omitempty"`
	SynthAddress       string `json:"synthAddress" yaml:"synthAddress"`
	FundamentalAddress string `json:"fundamentalAddress" yaml:"fundamentalAddress"`
}

// SynthOutputConfig defines the synth MIDI output
type SynthOutputConfig struct {
	PortName    string `json:"portName,omitempty" yaml:"portName,omitempty"`
	BaseChannel uint8  `json:"baseChannel,omitempty" yaml:"baseChannel,omitempty"` // voice 0 channel, 0-based
}

// KeyboardConfig defines the MIDI keyboard that sets the fundamental
type KeyboardConfig struct {
	PortName string `json:"portName,omitempty" yaml:"portName,omitempty"`
}

// VoiceConfig holds the instrument defaults
type VoiceConfig struct {
	Fundamental float64 `json:"fundamental" yaml:"fundamental"`
	DimLevel    int     `json:"dimLevel" yaml:"dimLevel"`
	FlashMillis int     `json:"flashMillis" yaml:"flashMillis"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette         string  `json:"palette,omitempty" yaml:"palette,omitempty"` // GIMP .gpl file
	FundamentalStep float64 `json:"fundamentalStep,omitempty" yaml:"fundamentalStep,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Grid        GridConfig        `json:"grid" yaml:"grid"`
	OSC         OSCConfig         `json:"osc" yaml:"osc"`
	SynthOutput SynthOutputConfig `json:"synthOutput,omitempty" yaml:"synthOutput,omitempty"`
	Keyboard    KeyboardConfig    `json:"keyboard,omitempty" yaml:"keyboard,omitempty"`
	Voice       VoiceConfig       `json:"voice" yaml:"voice"`
	UI          UIConfig          `json:"ui,omitempty" yaml:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			Backend:    GridMonome,
			Prefix:     "/monome",
			DeviceAddr: "127.0.0.1:13090",
			PortName:   "Launchpad X LPX MIDI",
		},
		OSC: OSCConfig{
			ListenAddr:         "127.0.0.1:8000",
			SynthAddr:          "127.0.0.1:57120",
			SynthAddress:       "/addition/voice",
			FundamentalAddress: "/addition/fundamental",
		},
		Voice: VoiceConfig{
			Fundamental: 100,
			DimLevel:    4,
			FlashMillis: 80,
		},
		UI: UIConfig{
			FundamentalStep: 5,
		},
	}
}

// FlashDuration returns the flash length as a duration
func (c *Config) FlashDuration() time.Duration {
	return time.Duration(c.Voice.FlashMillis) * time.Millisecond
}

// Validate checks values the instrument cannot run with
func (c *Config) Validate() error {
	switch c.Grid.Backend {
	case GridMonome, GridLaunchpad, GridNone:
	default:
		return errors.Errorf("unknown grid backend %q", c.Grid.Backend)
	}
	if !strings.HasPrefix(c.Grid.Prefix, "/") {
		return errors.Errorf("grid prefix %q must start with /", c.Grid.Prefix)
	}
	if c.Voice.Fundamental <= 0 {
		return errors.Errorf("fundamental %v must be positive", c.Voice.Fundamental)
	}
	if c.Voice.DimLevel <= 0 || c.Voice.DimLevel >= 15 {
		return errors.Errorf("dim level %d must be between 1 and 14", c.Voice.DimLevel)
	}
	if c.Voice.FlashMillis < 0 {
		return errors.Errorf("flash duration %dms is negative", c.Voice.FlashMillis)
	}
	if c.SynthOutput.BaseChannel > 8 {
		return errors.Errorf("base channel %d leaves no room for 8 voices", c.SynthOutput.BaseChannel)
	}
	return nil
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-addition"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a JSON or YAML config (by extension). Fields missing from
// the file keep their defaults; a missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
