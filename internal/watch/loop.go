package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

// DefaultSettle is how long the loop waits for a burst of writes to end
const DefaultSettle = 200 * time.Millisecond

// Loop renders once, then again after every settled burst of events, until
// ctx is done or events is closed. A render error ends the loop unless
// keepGoing is set, then it is only logged.
func Loop(ctx context.Context, events <-chan Event, settle time.Duration, keepGoing bool, render func() error, logger logging.Logger) error {
	if logger == nil {
		return fmt.Errorf("logger cannot be nil")
	}
	logger = logger.With("component", "watch_loop")

	if err := render(); err != nil {
		return err
	}

	timer := time.NewTimer(settle)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			logger.Debug("file changed", "path", ev.Path, "op", ev.Op)
			if !pending {
				pending = true
				timer.Reset(settle)
			}
		case <-timer.C:
			pending = false
			if err := render(); err != nil {
				if !keepGoing {
					return err
				}
				logger.Error("render failed", "error", err)
			}
		}
	}
}

// WithShutdownSignals returns a context cancelled on SIGINT or SIGTERM
func WithShutdownSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
