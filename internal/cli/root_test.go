package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigoleg/pad-alive/internal/config"
	"github.com/stigoleg/pad-alive/internal/gamepad"
	"github.com/stigoleg/pad-alive/internal/keepalive"
)

// isolate keeps the user's config file and PADALIVE_* variables out of the
// test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(config.EnvDevice, "")
	t.Setenv(config.EnvBackend, "")
	t.Setenv(config.EnvLogLevel, "")
	return dir
}

type captured struct {
	cfg     config.Config
	monitor bool
	calls   int
}

func capture(c *captured, err error) runFunc {
	return func(_ context.Context, cfg config.Config, monitor bool, _ io.Writer) error {
		c.cfg = cfg
		c.monitor = monitor
		c.calls++
		return err
	}
}

func TestVersionFlag(t *testing.T) {
	isolate(t)
	var stdout, stderr bytes.Buffer

	code := Main(context.Background(), "1.2.3", []string{"--version"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Equal(t, "padalive 1.2.3\n", stdout.String())
}

func TestDefaults(t *testing.T) {
	isolate(t)
	var c captured

	code := execute(context.Background(), newRootCommand("test", capture(&c, nil)), nil, io.Discard, io.Discard)

	require.Equal(t, 0, code)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, config.Default(), c.cfg)
	assert.False(t, c.monitor)
}

func TestConfigPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "padalive.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend = "portal"
log_level = "debug"
poll = true
device = "/dev/input/event1"
`), 0o600))
	t.Setenv(config.EnvBackend, "screensaver")
	t.Setenv(config.EnvDevice, "/dev/input/event2")

	var c captured
	args := []string{"--config", path, "--backend", "wayland", "--monitor"}
	code := execute(context.Background(), newRootCommand("test", capture(&c, nil)), args, io.Discard, io.Discard)

	require.Equal(t, 0, code)
	assert.Equal(t, "wayland", c.cfg.Backend, "flag beats env and file")
	assert.Equal(t, "/dev/input/event2", c.cfg.Device, "env beats file")
	assert.Equal(t, "debug", c.cfg.LogLevel, "file beats default")
	assert.True(t, c.cfg.Poll)
	assert.True(t, c.monitor)
}

func TestUnsetFlagsKeepFileValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "padalive.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_format = \"json\"\n"), 0o600))

	var c captured
	code := execute(context.Background(), newRootCommand("test", capture(&c, nil)), []string{"-c", path}, io.Discard, io.Discard)

	require.Equal(t, 0, code)
	assert.Equal(t, config.FormatJSON, c.cfg.LogFormat)
}

func TestDefaultConfigFileIsRead(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "padalive"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "padalive", "config.toml"), []byte("backend = \"portal\"\n"), 0o600))

	var c captured
	code := execute(context.Background(), newRootCommand("test", capture(&c, nil)), nil, io.Discard, io.Discard)

	require.Equal(t, 0, code)
	assert.Equal(t, "portal", c.cfg.Backend)
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		err     error
		want    string
		wantRun bool
	}{
		{
			name: "unknown backend",
			args: []string{"--backend", "x11"},
			want: "Invalid configuration",
		},
		{
			name: "unknown flag",
			args: []string{"--duration", "5m"},
			want: "unknown flag",
		},
		{
			name: "missing config file",
			args: []string{"--config", "/nonexistent/padalive.toml"},
			want: "load config",
		},
		{
			name:    "no controller",
			err:     gamepad.ErrNoDevice,
			want:    "Game controller is not connected",
			wantRun: true,
		},
		{
			name:    "setup failure",
			err:     errors.Join(keepalive.ErrSetup, errors.New("no compositor")),
			want:    "Could not start",
			wantRun: true,
		},
		{
			name:    "runtime failure",
			err:     errors.Join(keepalive.ErrRuntime, errors.New("device: controller disconnected")),
			want:    "Stopped",
			wantRun: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			var c captured
			var stderr bytes.Buffer

			code := execute(context.Background(), newRootCommand("test", capture(&c, tt.err)), tt.args, io.Discard, &stderr)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr.String(), tt.want)
			assert.Equal(t, tt.wantRun, c.calls == 1)
		})
	}
}

func TestRunMissingDevice(t *testing.T) {
	dir := isolate(t)
	var stderr bytes.Buffer

	code := Main(context.Background(), "test", []string{"--device", filepath.Join(dir, "event99")}, io.Discard, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Could not start")
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padalive.log")
	cfg := config.Default()
	cfg.LogFile = path
	cfg.LogFormat = config.FormatJSON

	logger, closeLog, err := newLogger(cfg, false, io.Discard)
	require.NoError(t, err)
	logger.Info().Msg("hello")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
}
