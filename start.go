package prog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ifnotnil/prog/config"
	"github.com/ifnotnil/prog/internal/logsink"
)

// Startup is the program body. It runs once the process is in its final
// state, and is expected to poll Running and return when it turns false.
type Startup func(p *Process) error

// LogMode is the open mode of the log file.
type LogMode = logsink.Mode

const (
	// LogTruncate empties the log file. Default in the foreground.
	LogTruncate = logsink.Truncate
	// LogAppend keeps the log file content. Default when detached.
	LogAppend = logsink.Append
)

var (
	ErrInvalidWorkingDirectory = errors.New("invalid working directory")
	ErrInvalidPIDFile          = errors.New("invalid PID file")
	ErrInvalidLogFile          = errors.New("invalid log file")
)

type startConfig struct {
	workingDirectory string
	pidFile          string
	logFile          string
	logMode          LogMode
}

// StartOption configures Start.
type StartOption func(*startConfig)

// WithWorkingDirectory sets the directory the program changes to. It defaults
// to the directory of the executable.
func WithWorkingDirectory(dir string) StartOption {
	return func(c *startConfig) {
		c.workingDirectory = dir
	}
}

// WithPIDFile sets the file the process id is written to. When detaching it
// defaults to <working directory>/<program>.pid.
func WithPIDFile(path string) StartOption {
	return func(c *startConfig) {
		c.pidFile = path
	}
}

// WithLogFile sets the file the process logger is redirected to. When
// detaching it defaults to <working directory>/<program>.log.
func WithLogFile(path string) StartOption {
	return func(c *startConfig) {
		c.logFile = path
	}
}

// WithLogMode sets the open mode of the log file.
func WithLogMode(m LogMode) StartOption {
	return func(c *startConfig) {
		c.logMode = m
	}
}

// WithConfig applies the non-empty path and mode settings of cfg.
func WithConfig(cfg config.Lifecycle) StartOption {
	return func(c *startConfig) {
		if cfg.WorkingDirectory != "" {
			c.workingDirectory = cfg.WorkingDirectory
		}
		if cfg.PIDFile != "" {
			c.pidFile = cfg.PIDFile
		}
		if cfg.LogFile != "" {
			c.logFile = cfg.LogFile
		}
		switch strings.ToLower(cfg.LogMode) {
		case config.LogModeTruncate:
			c.logMode = LogTruncate
		case config.LogModeAppend:
			c.logMode = LogAppend
		}
	}
}

// Start brings the process to its running state and calls startup.
//
// In the foreground Start changes to the working directory, writes the PID
// file and opens the log file when they are set, and runs startup. When detach
// is true the process daemonizes first: it forks, starts a new session, forks
// again, writes the PID file, changes directory and closes the standard
// descriptors. Only the final daemon runs startup.
//
// Start returns when startup returns nil. Every other outcome terminates the
// process: a setup failure or a startup error exits with ExitFailure, a panic
// in startup with ExitUnknown, and intermediate parents with ExitSuccess.
//
// Start panics if startup is nil or a stop signal was already recorded.
func (p *Process) Start(detach bool, startup Startup, opts ...StartOption) {
	if startup == nil {
		panic("prog: nil startup routine")
	}
	if !p.Running() {
		panic("prog: start after a stop signal was recorded")
	}

	var cnf startConfig
	for _, o := range opts {
		o(&cnf)
	}

	if err := p.resolvePaths(detach, &cnf); err != nil {
		p.logger.Error("cannot resolve paths", slog.Any("error", err))
		p.Exit(ExitFailure)
		return
	}

	if detach {
		p.daemonize(startup, cnf)
		return
	}
	p.foreground(startup, cnf)
}

func (p *Process) resolvePaths(detach bool, cnf *startConfig) error {
	exe := p.info.ExecutablePath()
	if cnf.workingDirectory == "" {
		cnf.workingDirectory = filepath.Dir(exe)
	}

	if detach {
		base := strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
		if cnf.pidFile == "" {
			cnf.pidFile = filepath.Join(cnf.workingDirectory, base+".pid")
		}
		if cnf.logFile == "" {
			cnf.logFile = filepath.Join(cnf.workingDirectory, base+".log")
		}
	}

	// resolved before any chdir so that relative paths keep their meaning
	var err error
	if cnf.workingDirectory, err = absPath(cnf.workingDirectory, ErrInvalidWorkingDirectory); err != nil {
		return err
	}
	if cnf.pidFile != "" {
		if cnf.pidFile, err = filePath(cnf.pidFile, ErrInvalidPIDFile); err != nil {
			return err
		}
	}
	if cnf.logFile != "" {
		if cnf.logFile, err = filePath(cnf.logFile, ErrInvalidLogFile); err != nil {
			return err
		}
	}

	if detach {
		for _, f := range []string{cnf.pidFile, cnf.logFile} {
			if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
				return fmt.Errorf("cannot create directory of %s: %w", f, err)
			}
		}
	}
	return nil
}

func absPath(path string, kind error) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", kind)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", kind, path, err)
	}
	return abs, nil
}

// filePath rejects paths that cannot name a file.
func filePath(path string, kind error) (string, error) {
	switch filepath.Base(path) {
	case ".", "..", string(filepath.Separator):
		return "", fmt.Errorf("%w: %q", kind, path)
	}
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", kind, path)
	}
	return absPath(path, kind)
}

func (p *Process) foreground(startup Startup, cnf startConfig) {
	p.sink.SetTimestamps(false)

	if err := p.config.sys.Chdir(cnf.workingDirectory); err != nil {
		p.logger.Error("cannot change the working directory", slog.String("dir", cnf.workingDirectory), slog.Any("error", err))
		p.Exit(ExitFailure)
		return
	}

	if cnf.pidFile != "" {
		if err := p.writePIDFile(cnf.pidFile); err != nil {
			p.logger.Error("cannot write the PID file", slog.Any("error", err))
			p.Exit(ExitFailure)
			return
		}
	}

	if cnf.logFile != "" {
		if err := p.sink.Redirect(cnf.logFile, cnf.logMode.Or(LogTruncate)); err != nil {
			p.logger.Error("cannot open the log file", slog.Any("error", err))
			p.Exit(ExitFailure)
			return
		}
	}

	p.run(startup)
}

// run calls startup and exits the process unless it returns nil.
func (p *Process) run(startup Startup) {
	if code := p.runStartup(startup); code != ExitSuccess {
		p.Exit(code)
	}
}

func (p *Process) runStartup(startup Startup) (code int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("startup routine panicked", slog.Any("panic", r))
			code = ExitUnknown
		}
	}()

	if err := startup(p); err != nil {
		p.logger.Error("startup routine failed", slog.Any("error", err))
		return ExitFailure
	}
	return ExitSuccess
}
