//go:build linux

package integration

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigoleg/pad-alive/internal/keepalive"
)

// TestReleaseOnSignal verifies the inhibitor is released and the process
// exits cleanly on SIGINT and SIGTERM.
func TestReleaseOnSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping signal test in short mode")
	}

	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGTERM} {
		t.Run(sig.String(), func(t *testing.T) {
			cmd := exec.Command(os.Args[0], "-test.run=^TestSignalHelper$")
			cmd.Env = append(os.Environ(), "PADALIVE_SIGNAL_HELPER=1")
			stdout, err := cmd.StdoutPipe()
			require.NoError(t, err)
			require.NoError(t, cmd.Start(), "helper process should start")

			lines := make(chan string, 16)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(stdout)
				for scanner.Scan() {
					lines <- scanner.Text()
				}
			}()

			waitForLine(t, lines, "inhibitor created")
			require.NoError(t, cmd.Process.Signal(sig))
			waitForLine(t, lines, "inhibitor destroyed")

			done := make(chan error, 1)
			go func() { done <- cmd.Wait() }()

			select {
			case err := <-done:
				assert.NoError(t, err, "process should exit cleanly after %s", sig)
			case <-time.After(5 * time.Second):
				cmd.Process.Kill()
				t.Fatal("process did not exit within timeout")
			}
		})
	}
}

// TestSignalHelper runs a loop with a held button until it is signalled.
func TestSignalHelper(t *testing.T) {
	if os.Getenv("PADALIVE_SIGNAL_HELPER") != "1" {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inhibitor := &printInhibitor{w: os.Stdout}
	machine := keepalive.NewMachine(time.Now(), inhibitor)
	cleanup := keepalive.NewCleanupManager(time.Second)
	cleanup.RegisterFunc("inhibitor", func() error { return machine.Release(ctx) })

	err := keepalive.NewLoop(newIdleConn(), newHeldSource(), machine).Run(ctx)
	if cerr := cleanup.Execute(ctx); cerr != nil || err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func waitForLine(t *testing.T, lines <-chan string, want string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("helper output ended before %q", want)
			}
			if strings.Contains(line, want) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}
