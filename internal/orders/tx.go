package orders

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
)

const DefaultMaxRetries = 3

// runTx runs fn in a fresh transaction, re-running it when the store reports
// ErrTxConflict. fn must not keep state across attempts.
func runTx(ctx context.Context, store Store, op string, maxRetries int, fn func(ctx context.Context, tx Tx) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 10 * time.Millisecond
	eb.MaxInterval = 250 * time.Millisecond
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxRetries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := store.InTx(ctx, fn)
		if err == nil {
			return nil
		}
		if Retryable(err) && attempt <= maxRetries {
			metrics.TxRetries.WithLabelValues(op).Inc()
			logger.FromContext(ctx).Warn("transaction conflict, retrying",
				zap.String("operation", op), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

// Outcome classifies err for metrics labels and transport mapping.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDataIntegrity):
		return "data_integrity"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrReferenced):
		return "referenced"
	case errors.Is(err, ErrTxConflict):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
