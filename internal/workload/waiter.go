package workload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultReadyInterval = 5 * time.Second
	DefaultReadyTimeout  = 300 * time.Second
)

// ErrReadinessTimeout is matched by *ReadinessTimeoutError.
var ErrReadinessTimeout = errors.New("workload readiness timeout")

type ReadinessTimeoutError struct {
	Timeout  time.Duration
	Attempts int
	LastErr  error
}

func (e *ReadinessTimeoutError) Error() string {
	msg := fmt.Sprintf("workload not ready after %s (%d attempts)", e.Timeout, e.Attempts)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *ReadinessTimeoutError) Is(target error) bool { return target == ErrReadinessTimeout }

// Waiter polls a ModelLister until it reports at least one model.
type Waiter struct {
	lister   ModelLister
	interval time.Duration
	log      zerolog.Logger
}

func NewWaiter(l ModelLister, interval time.Duration, logger *zerolog.Logger) *Waiter {
	w := &Waiter{lister: l, interval: interval, log: zerolog.Nop()}
	if w.interval <= 0 {
		w.interval = DefaultReadyInterval
	}
	if logger != nil {
		w.log = logger.With().Str("component", "waiter").Logger()
	}
	return w
}

// WaitUntilReady polls every interval until the lister reports a model or
// timeout elapses, making at most timeout/interval attempts (at least one).
// timeout bounds wall-clock time including slow listing calls. timeout <= 0
// uses DefaultReadyTimeout. Cancellation of ctx returns ctx's error.
func (w *Waiter) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	maxAttempts := int(timeout / w.interval)
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		last     error
		attempts int
	)
	for attempts < maxAttempts {
		attempts++
		models, err := w.lister.ListModels(dctx)
		switch {
		case err == nil && len(models) > 0:
			w.log.Debug().Int("attempt", attempts).Str("model", models[0].ID).Msg("workload ready")
			return nil
		case err == nil:
			last = errors.New("no models listed")
		default:
			last = err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.Trace().Int("attempt", attempts).Int("of", maxAttempts).Err(last).Msg("workload not ready")
		if err := sleepCtx(dctx, w.interval); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			break
		}
	}
	return &ReadinessTimeoutError{Timeout: timeout, Attempts: attempts, LastErr: last}
}
