package prog

import (
	"context"
	"log/slog"
	"os"
	"syscall"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
	// ExitUnknown is used for untyped failures: a panic escaping the startup
	// routine, or immediate termination after too many signals.
	ExitUnknown = 2
)

// DaemonUmask is the file creation mask of a detached process.
const DaemonUmask = 0o027

const (
	defaultMaxSignalCount = 0
	stopSignal            = syscall.SIGTERM
)

func logSignal(ctx context.Context, logger *slog.Logger, sig os.Signal) {
	signal := slog.String("signal", sig.String())
	signalCode := slog.Attr{}
	if sigInt, ok := sig.(syscall.Signal); ok {
		signalCode = slog.Int("signalCode", int(sigInt))
	}

	logger.WarnContext(ctx, "signal received", signal, signalCode)
}

func signalNumber(sig os.Signal) int32 {
	if s, ok := sig.(syscall.Signal); ok && s != 0 {
		return int32(s)
	}
	return int32(stopSignal)
}
