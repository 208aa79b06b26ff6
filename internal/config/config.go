package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StepperConfig holds the configuration for the focus stepper motor.
type StepperConfig struct {
	StepPin       int `yaml:"step_pin"`
	DirPin        int `yaml:"dir_pin"`
	EnablePin     int `yaml:"enable_pin"` // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	StepsPerRev   int `yaml:"steps_per_rev"`
	Microstepping int `yaml:"microstepping"`
}

// LensConfig describes the mounted lens for the distance readout.
// Distance is display-only: it is never used to compute a move.
type LensConfig struct {
	Name            string  `yaml:"name"`              // e.g., "Canon EF 50mm f/1.8"
	StartDistanceMm int     `yaml:"start_distance_mm"` // focus distance at controller startup (step 0)
	MinDistanceMm   int     `yaml:"min_distance_mm"`   // minimum focus distance
	MaxDistanceMm   int     `yaml:"max_distance_mm"`   // distance shown at or beyond infinity
	DioptersPerStep float64 `yaml:"diopters_per_step"` // focus change per motor step, positive = nearer
}

// SpeedConfig is one entry of the transition speed table.
type SpeedConfig struct {
	Label        string `yaml:"label"`
	TransitionMs int    `yaml:"transition_ms"` // pause after every step of a transition
}

// SequenceConfig controls the recorded focus sequence.
type SequenceConfig struct {
	StateFile string `yaml:"state_file"` // binary sequence file, rewritten after every change
	Capacity  int    `yaml:"capacity"`   // maximum number of recorded points
}

// JogConfig holds the manual focus step sizes.
type JogConfig struct {
	FineSteps   int `yaml:"fine_steps"`
	CoarseSteps int `yaml:"coarse_steps"`
}

// DisplayConfig selects where the status line goes and how often it is drawn.
type DisplayConfig struct {
	Type             string `yaml:"type"`               // "console", "raster" or "tui"
	LineWidth        int    `yaml:"line_width"`         // status line width in characters
	X                int    `yaml:"x"`                  // status line position in pixels (raster)
	Y                int    `yaml:"y"`                  // status line position in pixels (raster)
	RenderIntervalMs int    `yaml:"render_interval_ms"` // status refresh period
	WidthPx          int    `yaml:"width_px"`           // raster screen size
	HeightPx         int    `yaml:"height_px"`
	BacklightPin     int    `yaml:"backlight_pin"` // GPIO driving the screen backlight. 0 = not used.
	SnapshotPath     string `yaml:"snapshot_path"` // optional PNG dump of the raster screen
}

// InputConfig maps physical inputs to logical command names
// (e.g. "toggle_enabled", "jog_fine_near", "record_or_advance").
type InputConfig struct {
	EvdevDevice      string         `yaml:"evdev_device"` // e.g. /dev/input/event0. Empty = not used.
	EvdevKeys        map[string]int `yaml:"evdev_keys"`   // command -> linux key code
	Buttons          map[string]int `yaml:"buttons"`      // command -> GPIO pin (active LOW)
	ButtonPollMs     int            `yaml:"button_poll_ms"`
	ButtonDebounceMs int            `yaml:"button_debounce_ms"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	MoveSpeedMs int  `yaml:"move_speed_ms"` // duration of one motor step (pulse high + low)
	DebugLevel  int  `yaml:"debug_level"`   // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO    bool `yaml:"mock_gpio"`     // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	FocusStepper StepperConfig  `yaml:"focus_stepper"`
	Lens         LensConfig     `yaml:"lens"`
	Speeds       []SpeedConfig  `yaml:"speeds"`
	Sequence     SequenceConfig `yaml:"sequence"`
	Jog          JogConfig      `yaml:"jog"`
	Display      DisplayConfig  `yaml:"display"`
	Input        InputConfig    `yaml:"input"`
	Defaults     DefaultsConfig `yaml:"defaults"`
}

// Display types.
const (
	DisplayConsole = "console"
	DisplayRaster  = "raster"
	DisplayTUI     = "tui"
)

// DefaultSpeeds is the reference speed table, fastest first.
func DefaultSpeeds() []SpeedConfig {
	return []SpeedConfig{
		{Label: "fastest", TransitionMs: 0},
		{Label: "fast", TransitionMs: 10},
		{Label: "medium", TransitionMs: 50},
		{Label: "slow", TransitionMs: 100},
		{Label: "slowest", TransitionMs: 200},
	}
}

// ValidateConfigPath rejects config paths that are not a .yaml file
// directly inside a "configs" directory, or that contain "..".
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, elem := range strings.Split(filepath.ToSlash(path), "/") {
		if elem == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// defaultStatusY places the status line 100px from the top of the screen.
const defaultStatusY = 100

// MaxConfigFileBytes bounds the size of a config file accepted by Load.
const MaxConfigFileBytes = 64 * 1024

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Keys absent from the file keep these values; y: 0 is a valid position.
	cfg := Config{Display: DisplayConfig{Y: defaultStatusY}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	// Focus stepper
	if cfg.FocusStepper.StepPin <= 0 || cfg.FocusStepper.DirPin <= 0 {
		return fmt.Errorf("focus_stepper.step_pin and focus_stepper.dir_pin are required")
	}
	if cfg.FocusStepper.StepPin == cfg.FocusStepper.DirPin {
		return fmt.Errorf("focus_stepper.step_pin and dir_pin must differ, both are %d", cfg.FocusStepper.StepPin)
	}
	if cfg.Defaults.MoveSpeedMs <= 0 {
		cfg.Defaults.MoveSpeedMs = 2 // reasonable default
	}

	// Lens
	if cfg.Lens.MinDistanceMm <= 0 {
		cfg.Lens.MinDistanceMm = 300
	}
	if cfg.Lens.MaxDistanceMm <= 0 {
		cfg.Lens.MaxDistanceMm = 99999
	}
	if cfg.Lens.StartDistanceMm <= 0 {
		cfg.Lens.StartDistanceMm = 1000
	}
	if cfg.Lens.MinDistanceMm >= cfg.Lens.MaxDistanceMm {
		return fmt.Errorf("lens.min_distance_mm (%d) must be < max_distance_mm (%d)", cfg.Lens.MinDistanceMm, cfg.Lens.MaxDistanceMm)
	}
	if cfg.Lens.StartDistanceMm < cfg.Lens.MinDistanceMm || cfg.Lens.StartDistanceMm > cfg.Lens.MaxDistanceMm {
		return fmt.Errorf("lens.start_distance_mm must be between %d and %d, got %d",
			cfg.Lens.MinDistanceMm, cfg.Lens.MaxDistanceMm, cfg.Lens.StartDistanceMm)
	}
	if cfg.Lens.DioptersPerStep < 0 {
		return fmt.Errorf("lens.diopters_per_step must be > 0, got %g", cfg.Lens.DioptersPerStep)
	}
	if cfg.Lens.DioptersPerStep == 0 {
		cfg.Lens.DioptersPerStep = 0.002
	}

	// Speed table
	if len(cfg.Speeds) == 0 {
		cfg.Speeds = DefaultSpeeds()
	}
	for i, s := range cfg.Speeds {
		if s.Label == "" {
			return fmt.Errorf("speeds[%d].label is required", i)
		}
		if s.TransitionMs < 0 {
			return fmt.Errorf("speeds[%d].transition_ms must be >= 0, got %d", i, s.TransitionMs)
		}
	}

	// Sequence
	if cfg.Sequence.StateFile == "" {
		cfg.Sequence.StateFile = filepath.Join("state", "focusrail.seq")
	}
	if cfg.Sequence.Capacity < 0 {
		return fmt.Errorf("sequence.capacity must be > 0, got %d", cfg.Sequence.Capacity)
	}
	if cfg.Sequence.Capacity == 0 {
		cfg.Sequence.Capacity = 100
	}

	// Jog
	if cfg.Jog.FineSteps <= 0 {
		cfg.Jog.FineSteps = 1
	}
	if cfg.Jog.CoarseSteps <= 0 {
		cfg.Jog.CoarseSteps = 10
	}

	// Display
	switch cfg.Display.Type {
	case "":
		cfg.Display.Type = DisplayConsole
	case DisplayConsole, DisplayRaster, DisplayTUI:
	default:
		return fmt.Errorf("unsupported display type: %s", cfg.Display.Type)
	}
	if cfg.Display.LineWidth <= 0 {
		cfg.Display.LineWidth = 41
	}
	if cfg.Display.X < 0 || cfg.Display.Y < 0 {
		return fmt.Errorf("display position must be >= 0, got (%d,%d)", cfg.Display.X, cfg.Display.Y)
	}
	if cfg.Display.RenderIntervalMs <= 0 {
		cfg.Display.RenderIntervalMs = 100
	}
	if cfg.Display.WidthPx <= 0 {
		cfg.Display.WidthPx = 720
	}
	if cfg.Display.HeightPx <= 0 {
		cfg.Display.HeightPx = 480
	}

	// Input
	if cfg.Input.ButtonPollMs <= 0 {
		cfg.Input.ButtonPollMs = 10
	}
	if cfg.Input.ButtonDebounceMs <= 0 {
		cfg.Input.ButtonDebounceMs = 30
	}

	return nil
}

// MoveSpeed returns the duration of one motor step.
func (c *Config) MoveSpeed() time.Duration {
	return time.Duration(c.Defaults.MoveSpeedMs) * time.Millisecond
}

// RenderInterval returns the status refresh period.
func (c *Config) RenderInterval() time.Duration {
	return time.Duration(c.Display.RenderIntervalMs) * time.Millisecond
}

// ButtonPoll returns the GPIO button polling period.
func (c *Config) ButtonPoll() time.Duration {
	return time.Duration(c.Input.ButtonPollMs) * time.Millisecond
}

// ButtonDebounce returns how long a button level must be stable before it counts.
func (c *Config) ButtonDebounce() time.Duration {
	return time.Duration(c.Input.ButtonDebounceMs) * time.Millisecond
}
