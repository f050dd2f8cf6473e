package prog

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifnotnil/prog/command"
	"github.com/ifnotnil/prog/internal/pidfile"
)

// detachHelperEnv makes the test binary act as a detaching program that runs
// in the directory named by the variable.
const detachHelperEnv = "PROG_TEST_DETACH_DIR"

func runDetachHelper(dir string) {
	exe := filepath.Join(dir, "helper")
	cmd, err := command.New(exe, nil, nil)
	if err != nil {
		os.Exit(ExitUnknown)
	}

	p := Init(NewInfo(exe, ""), []command.Command{cmd})
	bridge := p.SetSignals(context.Background())
	p.SetCleanup(func() { _ = bridge.Close() })

	p.Start(true, func(p *Process) error {
		p.Logger().Info("daemon started", slog.Int("pid", os.Getpid()))
		select {
		case <-p.Stopping():
		case <-time.After(30 * time.Second):
		}
		p.Logger().Info("daemon stopped", slog.String("signal", p.StopSignal().String()))
		return nil
	})
	p.Exit(ExitSuccess)
}

func TestDetachProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a daemon")
	}
	if runtime.GOOS != "linux" {
		t.Skip("re-executes the test binary, linux only")
	}

	dir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^TestDetachProcess$")
	cmd.Env = append(os.Environ(), detachHelperEnv+"="+dir)
	require.NoError(t, cmd.Run())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	pid, err := pidfile.Wait(ctx, filepath.Join(dir, "helper.pid"))
	require.NoError(t, err)
	assert.NotEqual(t, cmd.Process.Pid, pid)

	logPath := filepath.Join(dir, "helper.log")
	require.Eventually(t, func() bool {
		content, err := os.ReadFile(logPath)
		return err == nil && strings.Contains(string(content), "pid="+strconv.Itoa(pid))
	}, 10*time.Second, 10*time.Millisecond)

	daemon, err := os.FindProcess(pid)
	require.NoError(t, err)
	require.NoError(t, daemon.Signal(syscall.SIGTERM))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "helper.pid"))
		return os.IsNotExist(err)
	}, 10*time.Second, 10*time.Millisecond)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "msg=\"daemon started\"")
	assert.Contains(t, string(content), "msg=\"daemon stopped\" signal=terminated")
	assert.Contains(t, string(content), "time=")
}
