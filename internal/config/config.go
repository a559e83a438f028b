package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	WindowWidth  = 1280
	WindowHeight = 720
	WindowTitle  = "AI Reality Check Official"
	Subtitle     = "Cinematic · Futuristic · Ultra-real · 8K"

	// Capture target
	CaptureWidth    = 7680
	CaptureHeight   = 4320
	CaptureFilename = "ai-reality-check-8k.png"

	// Button dimensions
	ButtonID     = "render-8k"
	ButtonLabel  = "Render 8K Frame"
	ButtonWidth  = 150
	ButtonHeight = 40
	ButtonX      = 20
	ButtonY      = 80

	// Scene population
	StreamCount  = 800
	CircuitCount = 200
	CurveSegment = 24
	StarCount    = 2000

	// Animation rates, per time unit (seconds)
	PlanetSpin   = 0.02
	StarSpin     = 0.002
	CircuitSpin  = -0.01
	ZoomRate     = 0.02
	CameraFollow = 0.02
	EyeOpenRate  = 0.35

	// Output
	ClearColorHex   = "#03040a"
	DefaultExposure = 1.2
)

// Config holds the values a user may override through the YAML file or flags.
type Config struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Seed      int64   `yaml:"seed"`
	LogLevel  string  `yaml:"log_level"`
	TPS       int     `yaml:"tps"`
	Surface   Surface `yaml:"surface"`
	Capture   Capture `yaml:"capture"`
	Chime     Chime   `yaml:"chime"`
	ShowStats bool    `yaml:"show_stats"`
}

type Surface struct {
	ClearColor  string  `yaml:"clear_color"`
	ToneMapping string  `yaml:"tone_mapping"` // none, linear, aces
	Exposure    float64 `yaml:"exposure"`
	SRGB        bool    `yaml:"srgb"`
}

type Capture struct {
	OutputDir string `yaml:"output_dir"`
	NoDialog  bool   `yaml:"no_dialog"`
}

type Chime struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate int     `yaml:"sample_rate"`
	Frequency  float64 `yaml:"frequency"`
	DurationMS int     `yaml:"duration_ms"`
	Volume     float64 `yaml:"volume"`
}

// Default returns the configuration the program runs with when no file is given.
func Default() Config {
	return Config{
		Width:    WindowWidth,
		Height:   WindowHeight,
		LogLevel: "info",
		TPS:      60,
		Surface: Surface{
			ClearColor:  ClearColorHex,
			ToneMapping: "aces",
			Exposure:    DefaultExposure,
			SRGB:        true,
		},
		Capture: Capture{
			OutputDir: "output",
		},
		Chime: Chime{
			Enabled:    true,
			SampleRate: 44100,
			Frequency:  880,
			DurationMS: 120,
			Volume:     -1.5,
		},
	}
}

// Load reads path over Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.TPS <= 0 {
		return errors.New("tps must be positive")
	}
	switch strings.ToLower(c.Surface.ToneMapping) {
	case "", "none", "linear", "aces":
	default:
		return fmt.Errorf("unknown tone mapping %q", c.Surface.ToneMapping)
	}
	if c.Surface.Exposure <= 0 {
		return errors.New("exposure must be positive")
	}
	if c.Chime.Enabled && (c.Chime.SampleRate <= 0 || c.Chime.DurationMS <= 0) {
		return errors.New("chime needs a positive sample rate and duration")
	}
	return nil
}
