//go:build unix

package prog

import (
	"os"
	"syscall"
)

var defaultSignals = []os.Signal{
	syscall.SIGABRT,
	syscall.SIGFPE,
	syscall.SIGILL,
	syscall.SIGINT,
	syscall.SIGSEGV,
	syscall.SIGTERM,
}
