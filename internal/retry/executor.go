package retry

import (
	"context"
	"time"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// Executor orchestrates retry attempts with backoff and error classification.
//
// WithOnRetry returns a NEW instance, so one Executor can be shared and
// specialised per caller without shared mutable state.
type Executor struct {
	classifier moviepipe.ErrorClassifier
	strategy   moviepipe.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a new retry executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier moviepipe.ErrorClassifier, strategy moviepipe.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// NewConnectionExecutor builds the executor used by warehouse connectors:
// PostgreSQL classification, exponential backoff with the package defaults,
// and retry messages sent to logger.
func NewConnectionExecutor(maxAttempts int, logger moviepipe.Logger) *Executor {
	strategy := NewExponentialBackoff(maxAttempts,
		WithInitialDelay(moviepipe.DefaultRetryInitialDelay),
		WithMaxDelay(moviepipe.DefaultRetryMaxDelay),
	)
	e := NewExecutor(NewPostgreSQLErrorClassifier(), strategy)
	if logger == nil {
		return e
	}
	return e.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Info("Connection attempt failed (%v), retry %d in %s", err, attempt+1, delay.Round(time.Millisecond))
	})
}

// WithOnRetry returns a new Executor with the specified retry callback.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs the operation, retrying transient failures until the strategy
// is exhausted. Returns the result of the last attempt.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	lastErr := operation(ctx)
	if lastErr == nil || !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	maxAttempts := e.strategy.MaxAttempts()
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		lastErr = operation(ctx)
		if lastErr == nil || !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
