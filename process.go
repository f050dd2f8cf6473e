package prog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/ifnotnil/prog/command"
	"github.com/ifnotnil/prog/config"
	"github.com/ifnotnil/prog/internal/logsink"
	"github.com/ifnotnil/prog/internal/pidfile"
)

// Info describes the program to the process context. Applications implement
// it, or use NewInfo.
type Info interface {
	// ExecutablePath is the path of the running program. Its directory is the
	// default working directory and its base name names the default PID and
	// log files.
	ExecutablePath() string
	// Synopsis is printed after the program name by ExitUsage.
	Synopsis() string
}

type info struct {
	path     string
	synopsis string
}

func (i info) ExecutablePath() string { return i.path }
func (i info) Synopsis() string       { return i.synopsis }

// NewInfo returns an Info with fixed values.
func NewInfo(executablePath, synopsis string) Info {
	return info{path: executablePath, synopsis: synopsis}
}

// Factory builds the program Info from the parsed command line.
type Factory func(commands []command.Command) (Info, error)

type processConfig struct {
	signals        []os.Signal
	maxSignalCount int
	logger         *slog.Logger
	logConfig      logsink.Config
	stderr         io.Writer
	exitFn         func(code int)
	sys            system
}

// Process is the process-wide context: the parsed command line, the program
// Info and the stop state. Exactly one exists per process; see Init.
type Process struct {
	config processConfig

	info     Info
	commands []command.Command

	sink   *logsink.Sink
	logger *slog.Logger

	// PID file written by this process, removed by Exit
	pidFile atomic.Pointer[string]

	// last termination signal number, 0 while running
	stopSignal atomic.Int32
	stopping   chan struct{}
	stopOnce   sync.Once

	cleanupMutex sync.Mutex
	cleanups     []func()
	cleanupOnce  sync.Once
}

var instance atomic.Pointer[Process]

// Init creates the process context from a parsed command line. It panics if
// called more than once, if info is nil, or if commands is empty or starts
// with an invalid command.
func Init(info Info, commands []command.Command, opts ...Option) *Process {
	p := newProcess(info, commands, opts...)
	if !instance.CompareAndSwap(nil, p) {
		panic("prog: process context already initialized")
	}
	return p
}

// InitArgs parses args in multi-command mode, builds the Info with factory and
// calls Init. A nil factory uses the first command name as executable path and
// an empty synopsis.
func InitArgs(args []string, factory Factory, opts ...Option) (*Process, error) {
	commands, err := command.Parse(args)
	if err != nil {
		return nil, err
	}

	var inf Info
	if factory == nil {
		inf = NewInfo(commands[0].Name(), "")
	} else if inf, err = factory(slices.Clone(commands)); err != nil {
		return nil, err
	}

	return Init(inf, commands, opts...), nil
}

// Instance returns the process context. It panics before Init.
func Instance() *Process {
	p := instance.Load()
	if p == nil {
		panic("prog: process context is not initialized")
	}
	return p
}

func newProcess(inf Info, commands []command.Command, opts ...Option) *Process {
	if inf == nil {
		panic("prog: nil program info")
	}
	if len(commands) == 0 || !commands[0].IsValid() {
		panic("prog: empty or invalid command list")
	}

	cnf := processConfig{
		signals:        defaultSignals,
		maxSignalCount: defaultMaxSignalCount,
		logConfig:      logsink.DefaultConfig(),
		stderr:         os.Stderr,
	}
	for _, o := range opts {
		o(&cnf)
	}
	if cnf.sys == nil {
		cnf.sys = newStd()
	}
	if cnf.exitFn == nil {
		cnf.exitFn = cnf.sys.OSExit
	}

	p := &Process{
		config:   cnf,
		info:     inf,
		commands: slices.Clone(commands),
		sink:     logsink.New(cnf.stderr),
		stopping: make(chan struct{}),
	}
	p.logger = cnf.logger
	if p.logger == nil {
		p.logger = logsink.NewLogger(p.sink, cnf.logConfig)
	}
	return p
}

// Info returns the program description given to Init.
func (p *Process) Info() Info { return p.info }

// Logger returns the process logger. Unless replaced by WithLogger, it writes
// to the destination managed by Start.
func (p *Process) Logger() *slog.Logger { return p.logger }

// Commands returns the parsed command line. The first command is the program.
func (p *Process) Commands() []command.Command { return slices.Clone(p.commands) }

// Command returns the first command.
func (p *Process) Command() command.Command { return p.commands[0] }

// ProgramName is the base name of the executable path.
func (p *Process) ProgramName() string { return filepath.Base(p.info.ExecutablePath()) }

// Synopsis returns the usage synopsis of the program.
func (p *Process) Synopsis() string { return p.info.Synopsis() }

// StopSignal returns the last termination signal recorded, or 0.
func (p *Process) StopSignal() syscall.Signal { return syscall.Signal(p.stopSignal.Load()) }

// Running reports whether no termination signal has been recorded yet.
// Long running loops poll it.
func (p *Process) Running() bool { return p.stopSignal.Load() == 0 }

// Stopping returns a channel closed once a termination signal is recorded.
func (p *Process) Stopping() <-chan struct{} { return p.stopping }

// RequestStop records sig as if it had been delivered by the OS.
func (p *Process) RequestStop(sig os.Signal) {
	p.stopSignal.Store(signalNumber(sig))
	p.stopOnce.Do(func() { close(p.stopping) })
}

// Shutdown records SIGTERM.
func (p *Process) Shutdown() { p.RequestStop(stopSignal) }

// SetCleanup registers functions to run once, in registration order, when the
// process exits through Exit or after a panic in the startup routine.
func (p *Process) SetCleanup(fns ...func()) {
	p.cleanupMutex.Lock()
	defer p.cleanupMutex.Unlock()
	p.cleanups = append(p.cleanups, fns...)
}

// Cleanup runs the registered cleanup functions. Only the first call has an
// effect.
func (p *Process) Cleanup() {
	p.cleanupOnce.Do(func() {
		p.cleanupMutex.Lock()
		fns := slices.Clone(p.cleanups)
		p.cleanupMutex.Unlock()

		for _, f := range fns {
			p.runCleanup(f)
		}
	})
}

func (p *Process) runCleanup(f func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("cleanup function panicked", slog.Any("panic", r))
		}
	}()
	f()
}

// Exit runs the cleanup functions, removes the PID file written by Start and
// terminates the process with code.
func (p *Process) Exit(code int) {
	p.Cleanup()
	if path := p.pidFile.Swap(nil); path != nil {
		if err := pidfile.Remove(*path); err != nil {
			p.logger.Warn("cannot remove the PID file", slog.Any("error", err))
		}
	}
	_ = p.sink.Close()
	p.config.exitFn(code)
}

func (p *Process) writePIDFile(path string) error {
	if err := pidfile.Write(path, p.config.sys.Getpid()); err != nil {
		return err
	}
	p.pidFile.Store(&path)
	return nil
}

// ExitUsage prints "usage: <program> [<synopsis>]" to the diagnostic stream
// and exits with ExitFailure.
func (p *Process) ExitUsage() {
	usage := "usage: " + p.ProgramName()
	if s := p.Synopsis(); s != "" {
		usage += " " + s
	}
	_, _ = fmt.Fprintln(p.config.stderr, usage)
	p.Exit(ExitFailure)
}

// Option configures the process context.
type Option func(*processConfig)

// WithSignals sets the OS signals that record a stop request.
func WithSignals(signals ...os.Signal) Option {
	return func(c *processConfig) {
		c.signals = signals
	}
}

// WithMaxSignalCount sets the number of received signals after which the
// process terminates immediately with ExitUnknown. Zero disables the limit.
func WithMaxSignalCount(n int) Option {
	return func(c *processConfig) {
		c.maxSignalCount = n
	}
}

// WithLogger replaces the process logger. A replaced logger is not affected
// by log file redirection nor by the timestamp switch of Start.
func WithLogger(l *slog.Logger) Option {
	return func(c *processConfig) {
		c.logger = l
	}
}

// WithLogConfig overrides the default logger settings that cfg sets.
func WithLogConfig(cfg config.Log) Option {
	return func(c *processConfig) {
		if cfg.Level != "" {
			c.logConfig.Level = cfg.Level
		}
		if cfg.Format != "" {
			c.logConfig.Format = logsink.Format(cfg.Format)
		}
		if cfg.AddSource != nil {
			c.logConfig.AddSource = *cfg.AddSource
		}
	}
}

// WithLogEnv reads the default logger configuration from LOG_LEVEL,
// LOG_FORMAT and LOG_SOURCE.
func WithLogEnv() Option {
	return func(c *processConfig) {
		c.logConfig = logsink.FromEnv()
	}
}

// WithStderr sets the diagnostic stream used for usage and, until a log file
// is opened, for logging.
func WithStderr(w io.Writer) Option {
	return func(c *processConfig) {
		c.stderr = w
	}
}
