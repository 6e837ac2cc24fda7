package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

// BreakerLoader stops calling a failing sink after consecutive failures and
// probes it again once the open timeout has elapsed.
type BreakerLoader struct {
	next RecordLoader
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerLoader wraps next in a circuit breaker that opens after failures
// consecutive errors and stays open for timeout.
func NewBreakerLoader(next RecordLoader, failures uint32, timeout time.Duration, logger *slog.Logger) *BreakerLoader {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    next.Name(),
		Timeout: timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("sink breaker state changed", "sink", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerLoader{next: next, cb: cb}
}

func (b *BreakerLoader) Name() string { return b.next.Name() }

// LoadBatch forwards to the wrapped sink unless the breaker is open, in which
// case it fails fast with gobreaker.ErrOpenState.
func (b *BreakerLoader) LoadBatch(ctx context.Context, eval domain.Evaluation) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.LoadBatch(ctx, eval)
	})
	return err
}

// State reports the breaker state, for tests and diagnostics.
func (b *BreakerLoader) State() gobreaker.State {
	return b.cb.State()
}
