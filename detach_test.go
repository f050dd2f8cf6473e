package prog

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetachInProcess(t *testing.T) {
	tp := newTestProcess(t, newFakeSys(), exitCalls(t))

	dir := t.TempDir()
	logPath := filepath.Join(dir, "log", "app.log")

	var generation int
	tp.Start(true, func(p *Process) error {
		generation = tp.sys.Generation()
		p.Logger().Info("daemon running")
		return nil
	}, WithWorkingDirectory(dir), WithLogFile(logPath))

	assert.Equal(t, 2, generation)
	assert.Equal(t, []string{
		"fork",
		"umask",
		"setsid",
		"fork",
		"getpid",
		"chdir",
		"close", "close", "close",
	}, tp.sys.Calls())
	assert.Equal(t, DaemonUmask, tp.sys.umask)
	assert.Equal(t, dir, tp.sys.dir)
	assert.Equal(t, []int{0, 1, 2}, tp.sys.closedFDs)

	pid, err := os.ReadFile(filepath.Join(dir, "app.pid"))
	require.NoError(t, err)
	assert.Equal(t, "4242\n", string(pid))

	logs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "time=")
	assert.Contains(t, string(logs), "msg=\"daemon running\"")
	assert.Contains(t, string(logs), "step=\"PID file\"")
}

func TestDetachParentExits(t *testing.T) {
	sys := newFakeSys()
	sys.forkParent = true
	tp := newTestProcess(t, sys, exitCalls(t, ExitSuccess))

	tp.Start(true, func(*Process) error {
		t.Error("startup must not run in a parent")
		return nil
	}, WithWorkingDirectory(t.TempDir()))

	assert.Equal(t, []string{"fork"}, sys.Calls())
}

func TestDetachSessionLeaderExits(t *testing.T) {
	sys := newFakeSys()
	sys.generation = 1
	sys.forkParent = true
	tp := newTestProcess(t, sys, exitCalls(t, ExitSuccess))

	dir := t.TempDir()
	tp.Start(true, func(*Process) error {
		t.Error("startup must not run in a parent")
		return nil
	}, WithWorkingDirectory(dir))

	assert.Equal(t, []string{"umask", "setsid", "fork"}, sys.Calls())
	assert.FileExists(t, filepath.Join(dir, "app.log"))
	assert.NoFileExists(t, filepath.Join(dir, "app.pid"))
}

func TestDetachDaemonGeneration(t *testing.T) {
	sys := newFakeSys()
	sys.generation = 2
	tp := newTestProcess(t, sys, exitCalls(t))

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte("from the session leader\n"), 0o600))

	called := false
	tp.Start(true, func(p *Process) error {
		called = true
		return nil
	}, WithWorkingDirectory(dir), WithLogMode(LogTruncate))

	require.True(t, called)
	assert.Equal(t, []string{"getpid", "chdir", "close", "close", "close"}, sys.Calls())

	// the daemon reopens the log its ancestor created, whatever the mode
	logs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "from the session leader\n")
}

func TestDetachFailures(t *testing.T) {
	tests := map[string]struct {
		setup func(t *testing.T, sys *fakeSys, dir string) []StartOption
		step  string
		calls []string
	}{
		"first fork": {
			setup: func(_ *testing.T, sys *fakeSys, _ string) []StartOption {
				sys.failFork = 1
				return nil
			},
			step:  "first fork",
			calls: []string{"fork"},
		},
		"log redirection": {
			setup: func(t *testing.T, _ *fakeSys, dir string) []StartOption {
				logPath := filepath.Join(dir, "app.log")
				require.NoError(t, os.Mkdir(logPath, 0o755))
				return []StartOption{WithLogFile(logPath)}
			},
			step:  "log redirection",
			calls: []string{"fork", "umask"},
		},
		"setsid": {
			setup: func(_ *testing.T, sys *fakeSys, _ string) []StartOption {
				sys.failOn["setsid"] = true
				return nil
			},
			step:  "setsid",
			calls: []string{"fork", "umask", "setsid"},
		},
		"second fork": {
			setup: func(_ *testing.T, sys *fakeSys, _ string) []StartOption {
				sys.failFork = 2
				return nil
			},
			step:  "second fork",
			calls: []string{"fork", "umask", "setsid", "fork"},
		},
		"PID file": {
			setup: func(t *testing.T, _ *fakeSys, dir string) []StartOption {
				pidPath := filepath.Join(dir, "app.pid")
				require.NoError(t, os.Mkdir(pidPath, 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(pidPath, "keep"), nil, 0o600))
				return []StartOption{WithPIDFile(pidPath)}
			},
			step:  "PID file",
			calls: []string{"fork", "umask", "setsid", "fork", "getpid"},
		},
		"chdir": {
			setup: func(_ *testing.T, sys *fakeSys, _ string) []StartOption {
				sys.failOn["chdir"] = true
				return nil
			},
			step:  "chdir",
			calls: []string{"fork", "umask", "setsid", "fork", "getpid", "chdir"},
		},
		"close": {
			setup: func(_ *testing.T, sys *fakeSys, _ string) []StartOption {
				sys.failOn["close"] = true
				return nil
			},
			step:  "closing standard descriptors",
			calls: []string{"fork", "umask", "setsid", "fork", "getpid", "chdir", "close"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			sys := newFakeSys()
			tp := newTestProcess(t, sys, exitCalls(t, ExitFailure))

			dir := t.TempDir()
			opts := append([]StartOption{WithWorkingDirectory(dir)}, tc.setup(t, sys, dir)...)

			tp.Start(true, func(*Process) error {
				t.Error("startup must not run")
				return nil
			}, opts...)

			assert.Equal(t, tc.calls, sys.Calls())

			logs := tp.stderr.String()
			// failures after the redirection are logged to the file
			if content, err := os.ReadFile(filepath.Join(dir, "app.log")); err == nil {
				logs += string(content)
			}
			assert.Contains(t, logs, "msg=\"cannot detach\"")
			// the text handler quotes only values containing spaces
			assert.Regexp(t, `step="?`+regexp.QuoteMeta(tc.step)+`"?(\s|$)`, logs)
		})
	}
}

func TestDetachStartupError(t *testing.T) {
	tp := newTestProcess(t, newFakeSys(), exitCalls(t, ExitFailure))

	dir := t.TempDir()
	tp.Start(true, func(*Process) error { return errFake }, WithWorkingDirectory(dir))

	logs, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logs), "startup routine failed")
	assert.Contains(t, string(logs), errFake.Error())
}

func TestStepError(t *testing.T) {
	err := &StepError{Step: "setsid", Err: errFake}
	assert.Equal(t, "setsid failed: fake failure", err.Error())
	assert.ErrorIs(t, err, errFake)
}
