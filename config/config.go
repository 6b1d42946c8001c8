// Package config provides configuration loading and access for the demo
// host and its projectors.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"projection-engine/core"
	"projection-engine/projection"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all host and projector configuration.
type Config struct {
	Window     WindowConfig      `yaml:"window"`
	Log        LogConfig         `yaml:"log"`
	Scene      SceneConfig       `yaml:"scene"`
	Camera     CameraConfig      `yaml:"camera"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Watch      WatchConfig       `yaml:"watch"`
	Projectors []ProjectorConfig `yaml:"projectors"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SceneConfig describes the terrain the projectors paint on.
type SceneConfig struct {
	Model               string     `yaml:"model"` // .obj, .gltf or .glb
	TerrainSize         float64    `yaml:"terrain_size"`
	TerrainSubdivisions int        `yaml:"terrain_subdivisions"`
	TerrainHeight       float64    `yaml:"terrain_height"` // amplitude of the generated grid
	SkyColor            [4]float32 `yaml:"sky_color"`
}

// CameraConfig is the orbit camera the main view starts with. Angles in
// radians, fov in degrees.
type CameraConfig struct {
	Distance float64 `yaml:"distance"`
	Yaw      float64 `yaml:"yaw"`
	Pitch    float64 `yaml:"pitch"`
	Fov      float64 `yaml:"fov"`
	Near     float64 `yaml:"near"`
	Far      float64 `yaml:"far"`
}

type TelemetryConfig struct {
	Dir string `yaml:"dir"`
}

// WatchConfig controls hot reload of the config file.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// ProjectorConfig is one projection instance.
type ProjectorConfig struct {
	Name          string      `yaml:"name"`
	Position      [3]float64  `yaml:"position"`
	Direction     [3]float64  `yaml:"direction"`
	Up            [3]float64  `yaml:"up"`
	HorizontalFov float64     `yaml:"horizontal_fov"`
	VerticalFov   float64     `yaml:"vertical_fov"`
	Near          float64     `yaml:"near"`
	Far           float64     `yaml:"far"`
	CaptureSize   int         `yaml:"capture_size"`
	CacheSize     int         `yaml:"cache_size"`
	ViewCone      bool        `yaml:"view_cone"`
	Suspended     bool        `yaml:"suspended"`
	Lens          *LensConfig `yaml:"lens,omitempty"` // identity when absent
	Video         VideoConfig `yaml:"video"`
}

// LensConfig is the calibration of a projector lens.
type LensConfig struct {
	XMin float64 `yaml:"x_min"`
	XMax float64 `yaml:"x_max"`
	YMin float64 `yaml:"y_min"`
	YMax float64 `yaml:"y_max"`
	XA   float64 `yaml:"x_a"`
	XB   float64 `yaml:"x_b"`
	YA   float64 `yaml:"y_a"`
	YB   float64 `yaml:"y_b"`
}

type VideoConfig struct {
	Dir string  `yaml:"dir"`
	FPS float64 `yaml:"fps"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. A projectors list in
// the file replaces the default one.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every projector entry and the host settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	names := make(map[string]bool, len(c.Projectors))
	for i, p := range c.Projectors {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("projectors[%d]: name is required", i))
		} else if names[p.Name] {
			errs = append(errs, fmt.Errorf("projectors[%d]: duplicate name %q", i, p.Name))
		}
		names[p.Name] = true

		// The overlay set is bound by the host.
		opts := p.Options()
		opts.ViewCone = false
		if err := opts.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("projector %q: %w", p.Name, err))
		}
		if p.Video.Dir != "" && p.Video.FPS <= 0 {
			errs = append(errs, fmt.Errorf("projector %q: video fps must be positive", p.Name))
		}
	}
	return errors.Join(errs...)
}

// Projector returns the entry named name.
func (c *Config) Projector(name string) (ProjectorConfig, bool) {
	for _, p := range c.Projectors {
		if p.Name == name {
			return p, true
		}
	}
	return ProjectorConfig{}, false
}

// SlogLevel parses Level; empty means info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return lvl, fmt.Errorf("log: %w", err)
	}
	return lvl, nil
}

func (s SceneConfig) Sky() core.Color {
	return core.Color{R: s.SkyColor[0], G: s.SkyColor[1], B: s.SkyColor[2], A: s.SkyColor[3]}
}

// Options converts the entry into projection options. Source, Overlays and
// Logger are left for the host to bind.
func (p ProjectorConfig) Options() projection.Options {
	opts := projection.Options{
		Position:      mgl64.Vec3(p.Position),
		Direction:     mgl64.Vec3(p.Direction),
		Up:            mgl64.Vec3(p.Up),
		HorizontalFov: p.HorizontalFov,
		VerticalFov:   p.VerticalFov,
		Near:          p.Near,
		Far:           p.Far,
		CaptureSize:   p.CaptureSize,
		CacheSize:     p.CacheSize,
		ViewCone:      p.ViewCone,
	}
	if p.Lens != nil {
		l := p.Lens.Lens()
		opts.Lens = &l
	}
	return opts
}

// LensOrDefault returns the configured lens, or the identity lens.
func (p ProjectorConfig) LensOrDefault() projection.Lens {
	if p.Lens == nil {
		return projection.DefaultLens()
	}
	return p.Lens.Lens()
}

func (l LensConfig) Lens() projection.Lens {
	return projection.Lens{
		XMin: l.XMin, XMax: l.XMax,
		YMin: l.YMin, YMax: l.YMax,
		XA: l.XA, XB: l.XB,
		YA: l.YA, YB: l.YB,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
