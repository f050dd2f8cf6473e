package prog

import (
	"os"
	"os/signal"
)

// system is the operating system surface used by the lifecycle. Tests replace
// it to run every step in-process.
type system interface {
	SignalNotify(c chan<- os.Signal, sig ...os.Signal)
	SignalStop(c chan<- os.Signal)
	OSExit(code int)

	// Fork starts a copy of the program one generation further and reports
	// whether the caller is the parent. An implementation may instead continue
	// in-process as the child, returning false.
	Fork() (parent bool, err error)
	// Generation is the number of forks that lead to this process.
	Generation() int

	Umask(mask int) (old int)
	Setsid() error
	Chdir(dir string) error
	Close(fd int) error
	Getpid() int
}

type std struct {
	generation int
}

func (*std) SignalStop(c chan<- os.Signal) {
	signal.Stop(c)
}

func (*std) SignalNotify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (*std) OSExit(code int) {
	os.Exit(code)
}

func (s *std) Generation() int { return s.generation }

func (*std) Chdir(dir string) error { return os.Chdir(dir) }

func (*std) Getpid() int { return os.Getpid() }
