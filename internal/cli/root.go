// Package cli implements the padalive command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stigoleg/pad-alive/internal/config"
	"github.com/stigoleg/pad-alive/internal/gamepad"
	"github.com/stigoleg/pad-alive/internal/keepalive"
	"github.com/stigoleg/pad-alive/internal/logging"
	"github.com/stigoleg/pad-alive/internal/platform"
	"github.com/stigoleg/pad-alive/internal/ui"
)

// AppName is the command name.
const AppName = "padalive"

type options struct {
	configPath string
	device     string
	backend    string
	poll       bool
	logLevel   string
	logFormat  string
	logFile    string
	monitor    bool
}

// runFunc starts padalive with a resolved configuration.
type runFunc func(ctx context.Context, cfg config.Config, monitor bool, stderr io.Writer) error

// NewRootCommand builds the padalive command.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(version, run)
}

func newRootCommand(version string, runFn runFunc) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   AppName,
		Short: "Keep the desktop awake while a game controller is in use",
		Long: `padalive watches a game controller and holds an idle inhibitor while it is
in use, so the screen does not blank or lock during a game. The inhibitor is
released after 10 seconds without input.

Settings are read from the config file, then PADALIVE_DEVICE,
PADALIVE_BACKEND and PADALIVE_LOG_LEVEL, then the flags below.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runFn(cmd.Context(), cfg, opts.monitor, cmd.ErrOrStderr())
		},
	}
	cmd.SetVersionTemplate(AppName + " {{.Version}}\n")

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/padalive/config.toml)")
	f.StringVarP(&opts.device, "device", "d", "", "controller event node, e.g. /dev/input/event5 (default: discover)")
	f.StringVarP(&opts.backend, "backend", "b", platform.BackendAuto, "idle inhibit backend: auto, wayland, portal or screensaver")
	f.BoolVar(&opts.poll, "poll", false, "tick at a fixed 10ms cadence instead of waiting for input")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: trace, debug, info, warn or error")
	f.StringVar(&opts.logFormat, "log-format", config.FormatConsole, "log format: console or json")
	f.StringVar(&opts.logFile, "log-file", "", "append logs to this file instead of stderr")
	f.BoolVarP(&opts.monitor, "monitor", "m", false, "show a live controller monitor")

	_ = cmd.RegisterFlagCompletionFunc("backend", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return platform.Backends(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(
		[]string{"trace", "debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions(
		[]string{config.FormatConsole, config.FormatJSON}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// Execute runs the command with the process arguments and returns the exit
// code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Main(ctx, version, os.Args[1:], os.Stdout, os.Stderr)
}

// Main runs the command with args. Errors are rendered to stderr and turn
// into exit code 1; a cancelled ctx is a clean shutdown.
func Main(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, NewRootCommand(version), args, stdout, stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, describe(err))
		return 1
	}
	return 0
}

func describe(err error) string {
	switch {
	case errors.Is(err, gamepad.ErrNoDevice):
		return ui.RenderError("Game controller is not connected",
			"Connect a controller, or name its event node with --device.")
	case errors.Is(err, config.ErrInvalid):
		return ui.RenderError("Invalid configuration", err.Error())
	case errors.Is(err, keepalive.ErrSetup):
		return ui.RenderError("Could not start", err.Error())
	case errors.Is(err, keepalive.ErrRuntime):
		return ui.RenderError("Stopped", err.Error())
	}
	return ui.RenderError(err.Error(), "")
}

// resolveConfig layers defaults, the config file, the environment and the
// flags the user set explicitly.
func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	path, required := opts.configPath, true
	if path == "" {
		required = false
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Device = opts.device
	}
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("poll") {
		cfg.Poll = opts.poll
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.logFile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger opens the log destination. The monitor owns the terminal, so
// its logs always go to a file.
func newLogger(cfg config.Config, monitor bool, stderr io.Writer) (zerolog.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.LogFormat
	lc.Output = stderr
	closeFn := func() {}

	switch {
	case monitor:
		path := cfg.LogFile
		if path == "" {
			path = filepath.Join(os.TempDir(), AppName+".log")
		}
		f, err := tea.LogToFile(path, AppName)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		lc.Output = f
		closeFn = func() { f.Close() }
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		lc.Output = f
		closeFn = func() { f.Close() }
	}

	return logging.New(lc), closeFn, nil
}

func run(ctx context.Context, cfg config.Config, monitor bool, stderr io.Writer) error {
	logger, closeLog, err := newLogger(cfg, monitor, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx = logging.WithContext(ctx, logger)
	log := logging.FromContext(logging.WithComponent(ctx, "cli"))

	path := cfg.Device
	if path == "" {
		if path, err = gamepad.Find(ctx, cfg.DeviceDir); err != nil {
			return err
		}
	}

	cleanup := keepalive.NewCleanupManager(0)
	defer func() {
		if cerr := cleanup.Execute(ctx); cerr != nil {
			log.Warn().Err(cerr).Msg("cleanup incomplete")
		}
	}()

	dev, err := gamepad.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", keepalive.ErrSetup, err)
	}
	cleanup.RegisterFunc("device", dev.Close)
	log.Info().Str("device", dev.Name()).Str("path", dev.Path()).Msg("watching controller")

	// The backend outlives ctx so the inhibitor can still be released
	// after a signal.
	backend, err := platform.Connect(context.WithoutCancel(ctx), cfg.Backend)
	if err != nil {
		return fmt.Errorf("%w: %w", keepalive.ErrSetup, err)
	}
	cleanup.RegisterFunc("backend", backend.Close)
	log.Info().Str("backend", backend.Name()).Msg("idle inhibit backend connected")

	var loopOpts []keepalive.LoopOption
	if cfg.Poll {
		loopOpts = append(loopOpts, keepalive.WithPolling())
	}

	if !monitor {
		machine := keepalive.NewMachine(time.Now(), backend)
		cleanup.RegisterFunc("inhibitor", func() error { return machine.Release(ctx) })
		return keepalive.NewLoop(backend, dev, machine, loopOpts...).Run(ctx)
	}

	return runMonitor(ctx, cleanup, backend, dev, loopOpts)
}

// runMonitor runs the loop behind the terminal monitor. Quitting the
// monitor stops the loop.
func runMonitor(ctx context.Context, cleanup *keepalive.CleanupManager, backend platform.Backend, dev *gamepad.Device, loopOpts []keepalive.LoopOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		ui.NewModel(backend.Name(), dev.Path(), dev.Name()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)

	machine := keepalive.NewMachine(time.Now(), backend,
		keepalive.WithNoticeFunc(func(n keepalive.Notice, at time.Time) {
			p.Send(ui.NoticeMsg{Notice: n, At: at})
		}))
	loopOpts = append(loopOpts, keepalive.WithObserver(func(s keepalive.Status) {
		p.Send(ui.StatusMsg(s))
	}))
	loop := keepalive.NewLoop(backend, dev, machine, loopOpts...)

	var (
		wg      sync.WaitGroup
		loopErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		loopErr = loop.Run(ctx)
		p.Send(ui.DoneMsg{Err: loopErr})
	}()

	_, err := p.Run()
	cancel()
	wg.Wait()

	// Registered only now so the release runs after the loop goroutine has
	// let go of the machine.
	cleanup.RegisterFunc("inhibitor", func() error { return machine.Release(ctx) })

	if loopErr != nil {
		return loopErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
