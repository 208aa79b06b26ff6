package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/FocusRail/internal/config"
	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/hw/display"
	"github.com/cjeanneret/FocusRail/internal/hw/gpio"
	"github.com/cjeanneret/FocusRail/internal/hw/stepper"
	"github.com/cjeanneret/FocusRail/internal/input"
	"github.com/cjeanneret/FocusRail/internal/logic/focus"
	"github.com/cjeanneret/FocusRail/internal/logic/geometry"
	"github.com/cjeanneret/FocusRail/internal/logic/motion"
	"github.com/cjeanneret/FocusRail/internal/logic/sequence"
	"github.com/cjeanneret/FocusRail/internal/logic/speed"
	"github.com/cjeanneret/FocusRail/internal/logic/status"
	"github.com/cjeanneret/FocusRail/internal/tui"
)

func main() {
	// CLI flags
	debugLevel := &levelFlag{val: -1}
	flag.Var(debugLevel, "debug", "override debug level (0-4)")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	statePath := flag.String("state", "", "override sequence state file")
	displayType := flag.String("display", "", "override display type (console, raster, tui)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	o := overrides{StateFile: *statePath, Display: *displayType, DebugLevel: debugLevel.val}
	if err := validateCLIOverrides(o); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, o)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	if cfg.Display.Type == config.DisplayTUI {
		// The terminal belongs to the TUI; logs go next to the state file.
		logFile, err := openLogFile(cfg)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer logFile.Close()
		debug.SetOutput(logFile)
	}
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("State file", cfg.Sequence.StateFile)
	debug.Value("Display", cfg.Display.Type)

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize focus motor
	debug.Step(2, "Initializing focus stepper")
	focusMotor := stepper.NewStepper(gpioDriver, stepper.Config{
		StepPin:       cfg.FocusStepper.StepPin,
		DirPin:        cfg.FocusStepper.DirPin,
		EnablePin:     cfg.FocusStepper.EnablePin,
		StepsPerRev:   cfg.FocusStepper.StepsPerRev,
		Microstepping: cfg.FocusStepper.Microstepping,
		StepDelay:     cfg.MoveSpeed() / 2,
	})
	debug.PrintStruct("Focus stepper config", cfg.FocusStepper)
	drive := motion.NewFocusDrive(focusMotor, geometry.NewLens(cfg))
	defer func() {
		if err := drive.Release(); err != nil {
			log.Printf("releasing focus motor failed: %v", err)
		}
	}()
	debug.Value("Lens", cfg.Lens.Name)

	// Sequence state
	debug.Step(3, "Loading focus sequence")
	speeds, err := speed.FromConfig(cfg.Speeds)
	if err != nil {
		log.Fatalf("speed table: %v", err)
	}
	store := sequence.NewStore(cfg.Sequence.Capacity, speeds.Count(), sequence.NewFileState(cfg.Sequence.StateFile))

	// Display
	debug.Step(4, "Initializing display")
	broadcaster := display.NewBroadcaster()
	screen, err := newDisplay(cfg, gpioDriver, broadcaster)
	if err != nil {
		log.Fatalf("init display failed: %v", err)
	}

	ctrl := focus.New(focus.Config{
		Store:       store,
		Speeds:      speeds,
		Motor:       drive,
		Lens:        drive,
		Screen:      screen,
		FineSteps:   cfg.Jog.FineSteps,
		CoarseSteps: cfg.Jog.CoarseSteps,
	})
	ctrl.Load()

	loop := &status.Loop{
		Source:    ctrl,
		Formatter: status.Formatter{Speeds: speeds, Width: cfg.Display.LineWidth},
		Display:   screen,
		Interval:  cfg.RenderInterval(),
		Position:  display.Position{X: cfg.Display.X, Y: cfg.Display.Y},
		Style:     display.DefaultStyle(),
		OnStart:   ctrl.MarkRunning,
	}

	debug.Step(5, "Starting")
	if err := run(ctx, cfg, gpioDriver, ctrl, loop, broadcaster); err != nil {
		log.Fatalf("focusrail: %v", err)
	}
	debug.Section("Stopped")
}

// run starts the render loop, the command dispatcher and the configured
// input sources, and waits for all of them. Every source is built before
// anything starts.
func run(
	ctx context.Context,
	cfg *config.Config,
	g gpio.Driver,
	ctrl *focus.Controller,
	loop *status.Loop,
	broadcaster *display.Broadcaster,
) error {
	type source interface {
		Run(ctx context.Context, out chan<- input.Command) error
	}
	var sources []source
	if cfg.Input.EvdevDevice != "" {
		src, err := input.NewEvdevSource(cfg.Input.EvdevDevice, cfg.Input.EvdevKeys)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	if len(cfg.Input.Buttons) > 0 {
		src, err := input.NewButtonSource(g, cfg.Input.Buttons, cfg.ButtonPoll(), cfg.ButtonDebounce())
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	if cfg.Display.Type == config.DisplayConsole {
		sources = append(sources, input.NewLineSource(os.Stdin))
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	group, gctx := errgroup.WithContext(ctx)

	// Unbuffered: presses made while a command runs are dropped.
	cmds := make(chan input.Command)
	router := input.NewRouter(ctrl)

	if cfg.Display.Type == config.DisplayTUI {
		frames, unsub := broadcaster.Subscribe()
		group.Go(func() error {
			defer unsub()
			defer stop() // quitting the TUI stops everything
			_, err := tea.NewProgram(tui.New(frames, cmds), tea.WithContext(gctx)).Run()
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}
	group.Go(func() error { return loop.Run(gctx) })
	group.Go(func() error { return input.Dispatch(gctx, router, cmds) })
	for _, src := range sources {
		src := src
		group.Go(func() error { return src.Run(gctx, cmds) })
	}

	return group.Wait()
}

// newDisplay builds the configured display. The raster screen also feeds
// the broadcaster so the status line can be followed from a terminal.
func newDisplay(cfg *config.Config, g gpio.Driver, broadcaster *display.Broadcaster) (display.Display, error) {
	switch cfg.Display.Type {
	case config.DisplayConsole:
		return display.NewConsole(os.Stdout), nil
	case config.DisplayTUI:
		return broadcaster, nil
	case config.DisplayRaster:
		raster, err := display.NewRaster(g, display.RasterConfig{
			Width:        cfg.Display.WidthPx,
			Height:       cfg.Display.HeightPx,
			BacklightPin: cfg.Display.BacklightPin,
			SnapshotPath: cfg.Display.SnapshotPath,
		})
		if err != nil {
			return nil, err
		}
		return display.Multi{raster, broadcaster}, nil
	default:
		return nil, fmt.Errorf("unsupported display type: %s", cfg.Display.Type)
	}
}

func openLogFile(cfg *config.Config) (*os.File, error) {
	dir := filepath.Dir(cfg.Sequence.StateFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "focusrail.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// overrides holds CLI values that replace config settings.
// Empty strings and a negative debug level mean "use config".
type overrides struct {
	StateFile  string
	Display    string
	DebugLevel int
}

// validateCLIOverrides checks the CLI overrides that are set.
func validateCLIOverrides(o overrides) error {
	switch o.Display {
	case "", config.DisplayConsole, config.DisplayRaster, config.DisplayTUI:
	default:
		return fmt.Errorf("display must be console, raster or tui, got %q", o.Display)
	}
	if o.DebugLevel > 4 {
		return fmt.Errorf("debug level must be between 0 and 4, got %d", o.DebugLevel)
	}
	if o.StateFile != "" {
		if strings.HasSuffix(filepath.ToSlash(o.StateFile), "/") {
			return fmt.Errorf("state file %q is not a file path", o.StateFile)
		}
		if info, err := os.Stat(o.StateFile); err == nil && info.IsDir() {
			return fmt.Errorf("state file %q is a directory", o.StateFile)
		}
	}
	return nil
}

// applyOverrides mutates cfg with the overrides that are set.
func applyOverrides(cfg *config.Config, o overrides) {
	if o.StateFile != "" {
		cfg.Sequence.StateFile = o.StateFile
	}
	if o.Display != "" {
		cfg.Display.Type = o.Display
	}
	if o.DebugLevel >= 0 {
		cfg.Defaults.DebugLevel = o.DebugLevel
	}
}

// levelFlag implements flag.Value for -debug: unset = -1 (use config),
// otherwise 0-4.
type levelFlag struct {
	val int
}

func (l *levelFlag) String() string {
	if l.val < 0 {
		return "config"
	}
	return strconv.Itoa(l.val)
}

func (l *levelFlag) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v < 0 || v > 4 {
		return fmt.Errorf("debug level must be 0-4, got %d", v)
	}
	l.val = v
	return nil
}
