package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/lavarand/internal/keygen"
)

const (
	DefaultWidth     = 320
	DefaultHeight    = 240
	DefaultFPS       = 60
	DefaultWarmup    = 30
	DefaultAlgorithm = "sha256"
	DefaultAlpha     = 0.1
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "LAVARAND_"

const (
	SourceSim    = "sim"
	SourceCamera = "camera"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Width     int     `yaml:"width" env:"WIDTH"`
	Height    int     `yaml:"height" env:"HEIGHT"`
	FPS       int     `yaml:"fps" env:"FPS"`
	Seed      int64   `yaml:"seed" env:"SEED"`
	Warmup    int     `yaml:"warmup" env:"WARMUP"`
	Source    string  `yaml:"source" env:"SOURCE"`
	Frames    string  `yaml:"frames,omitempty" env:"FRAMES"`
	Algorithm string  `yaml:"algorithm" env:"ALGORITHM"`
	Output    Output  `yaml:"output" envPrefix:"OUTPUT_"`
	Alpha     float64 `yaml:"activity_alpha" env:"ACTIVITY_ALPHA"`
	LogLevel  string  `yaml:"log_level" env:"LOG_LEVEL"`
	Theme     string  `yaml:"theme" env:"THEME"`
}

// Output is the default request for derivations.
type Output struct {
	Kind string `yaml:"kind" env:"KIND"`
	Min  uint32 `yaml:"min" env:"MIN"`
	Max  uint32 `yaml:"max" env:"MAX"`
}

func DefaultConfig() *Config {
	return &Config{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		FPS:       DefaultFPS,
		Warmup:    DefaultWarmup,
		Source:    SourceSim,
		Algorithm: DefaultAlgorithm,
		Output: Output{
			Kind: "hex",
			Min:  keygen.DefaultMin,
			Max:  keygen.DefaultMax,
		},
		Alpha:    DefaultAlpha,
		LogLevel: "info",
		Theme:    "lava",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides fields whose LAVARAND_* variable is set.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("size must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.Warmup < 0 {
		errs = append(errs, fmt.Errorf("warmup must not be negative, got %d", c.Warmup))
	}
	switch c.Source {
	case SourceSim:
	case SourceCamera:
		if c.Frames == "" {
			errs = append(errs, errors.New("camera source needs a frames path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	if _, err := c.Request(); err != nil {
		errs = append(errs, err)
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		errs = append(errs, fmt.Errorf("activity alpha must be in (0, 1], got %g", c.Alpha))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Request is the configured default derivation request.
func (c *Config) Request() (keygen.Request, error) {
	kind, err := keygen.ParseKind(c.Output.Kind)
	if err != nil {
		return keygen.Request{}, err
	}
	req := keygen.Request{Kind: kind, Min: c.Output.Min, Max: c.Output.Max}
	if err := req.Validate(); err != nil {
		return keygen.Request{}, err
	}
	return req, nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
