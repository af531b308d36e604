// Package retry provides retry logic with exponential backoff for transient
// warehouse connection failures.
//
// The pipeline treats a failed connection as fatal by default: connectors are
// built with zero retry attempts, in which case Execute runs the operation
// exactly once. Operators opt into retries through warehouse.retry_attempts.
//
// # Example Usage
//
//	classifier := retry.NewPostgreSQLErrorClassifier()
//	strategy := retry.NewExponentialBackoff(3)
//	executor := retry.NewExecutor(classifier, strategy)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
//
// Executor instances are safe for concurrent use.
package retry
