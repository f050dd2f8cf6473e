package prog

import (
	"errors"
	"fmt"
	"log/slog"
)

// StepError is a failed daemonization step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + " failed: " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

// errForkParent ends the sequence in a process that handed over to its child.
var errForkParent = errors.New("fork parent")

// step is one state of the daemonization sequence. stage is the generation of
// the process that performs it: 0 before the first fork, 1 between the forks,
// 2 in the daemon.
type step struct {
	name  string
	stage int
	// fork steps advance the generation
	fork bool
	// perProcess steps act on process state that a re-executed child does not
	// inherit, so descendants repeat them
	perProcess bool
	run        func(d *detacher, replay bool) error
}

var detachSteps = []step{
	{name: "first fork", stage: 0, fork: true},
	{name: "umask", stage: 1, run: (*detacher).umask},
	{name: "log redirection", stage: 1, perProcess: true, run: (*detacher).redirectLog},
	{name: "setsid", stage: 1, run: (*detacher).setsid},
	{name: "second fork", stage: 1, fork: true},
	{name: "PID file", stage: 2, run: (*detacher).writePID},
	{name: "chdir", stage: 2, run: (*detacher).chdir},
	{name: "closing standard descriptors", stage: 2, run: (*detacher).closeStdio},
}

type detacher struct {
	p          *Process
	cnf        startConfig
	generation int
}

func (p *Process) daemonize(startup Startup, cnf startConfig) {
	p.sink.SetTimestamps(true)

	d := &detacher{p: p, cnf: cnf, generation: p.config.sys.Generation()}
	err := d.detach()

	var stepErr *StepError
	switch {
	case err == nil:
		p.run(startup)

	case errors.Is(err, errForkParent):
		p.Exit(ExitSuccess)

	case errors.As(err, &stepErr):
		p.logger.Error("cannot detach", slog.String("step", stepErr.Step), slog.Any("error", stepErr.Err))
		p.Exit(ExitFailure)

	default:
		p.logger.Error("cannot detach", slog.Any("error", err))
		p.Exit(ExitFailure)
	}
}

// detach walks the steps. It returns nil in the daemon, errForkParent in a
// process that forked, and a *StepError on failure.
func (d *detacher) detach() error {
	for _, s := range detachSteps {
		replay := s.stage < d.generation
		if replay && !s.perProcess {
			continue
		}

		d.p.logger.Debug("detach step", slog.String("step", s.name), slog.Int("generation", d.generation))

		if s.fork {
			parent, err := d.p.config.sys.Fork()
			if err != nil {
				return &StepError{Step: s.name, Err: err}
			}
			if parent {
				return errForkParent
			}
			d.generation++
			continue
		}

		if err := s.run(d, replay); err != nil {
			return &StepError{Step: s.name, Err: err}
		}
	}
	return nil
}

func (d *detacher) umask(bool) error {
	d.p.config.sys.Umask(DaemonUmask)
	return nil
}

func (d *detacher) redirectLog(replay bool) error {
	mode := d.cnf.logMode.Or(LogAppend)
	if replay {
		mode = LogAppend
	}
	return d.p.sink.Redirect(d.cnf.logFile, mode)
}

func (d *detacher) setsid(bool) error {
	return d.p.config.sys.Setsid()
}

func (d *detacher) writePID(bool) error {
	return d.p.writePIDFile(d.cnf.pidFile)
}

func (d *detacher) chdir(bool) error {
	return d.p.config.sys.Chdir(d.cnf.workingDirectory)
}

func (d *detacher) closeStdio(bool) error {
	for fd := range 3 {
		if err := d.p.config.sys.Close(fd); err != nil {
			return fmt.Errorf("descriptor %d: %w", fd, err)
		}
	}
	return nil
}
