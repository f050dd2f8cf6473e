package prog

import (
	"context"
	"log/slog"
	"os"
	"time"

	"vawter.tech/stopper"
)

const bridgeStopGrace = 100 * time.Millisecond

// Bridge forwards OS signals to the stop state of a Process.
type Bridge struct {
	p        *Process
	signalCh chan os.Signal
	sctx     *stopper.Context
}

// SetSignals subscribes to the configured signals (see WithSignals). Every
// delivered signal is recorded as the stop signal of p and then logged. Once
// WithMaxSignalCount signals have been received the process exits through
// Exit with ExitUnknown without waiting for the program to stop.
//
// The subscription lasts until Close is called or ctx is done.
func (p *Process) SetSignals(ctx context.Context) *Bridge {
	size := p.config.maxSignalCount
	if size < 1 {
		size = 1
	}

	b := &Bridge{
		p:        p,
		signalCh: make(chan os.Signal, size),
		sctx:     stopper.WithContext(ctx),
	}

	p.config.sys.SignalNotify(b.signalCh, p.config.signals...)
	b.sctx.Defer(func() {
		p.config.sys.SignalStop(b.signalCh)
	})

	b.sctx.Go(func(sctx *stopper.Context) error {
		received := 0
		for {
			select {
			case sig := <-b.signalCh:
				p.RequestStop(sig)
				received++
				logSignal(ctx, p.logger, sig)
				if p.config.maxSignalCount > 0 && received >= p.config.maxSignalCount {
					p.logger.Error("max number of signals received, terminating immediately")
					// Exit runs the cleanups, which may Close this bridge and
					// wait for this goroutine.
					go p.Exit(ExitUnknown)
					return nil
				}

			case <-sctx.Stopping():
				return nil

			case <-ctx.Done():
				return nil
			}
		}
	})

	return b
}

// Close unsubscribes from the signals and waits for the forwarding goroutine.
func (b *Bridge) Close() error {
	b.sctx.Stop(bridgeStopGrace)
	return b.sctx.Wait()
}

// WithShutdownOnError runs f. If f fails or panics, SIGTERM is recorded on p
// and the failure is logged as "<where>: <err>. Shutting down!". The zero
// value of T is returned in that case.
func WithShutdownOnError[T any](p *Process, where string, f func() (T, error)) (result T) {
	defer func() {
		if r := recover(); r != nil {
			p.Shutdown()
			p.logger.Error(where+": unknown error. Shutting down!", slog.Any("panic", r))
			var zero T
			result = zero
		}
	}()

	v, err := f()
	if err != nil {
		p.Shutdown()
		p.logger.Error(where + ": " + err.Error() + ". Shutting down!")
		return result
	}
	return v
}

// ShutdownOnError is WithShutdownOnError for functions without a result. It
// reports whether f succeeded.
func (p *Process) ShutdownOnError(where string, f func() error) bool {
	return WithShutdownOnError(p, where, func() (bool, error) {
		if err := f(); err != nil {
			return false, err
		}
		return true, nil
	})
}
