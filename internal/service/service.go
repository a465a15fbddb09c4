// Package service orchestrates repositories for the HTTP handlers: it runs
// the booking guard transaction, retries reads, and after every successful
// write drops the affected cache resources and announces the change.
package service

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/availability"
	"github.com/iliyamo/evanto-api/internal/realtime"
	"github.com/iliyamo/evanto-api/internal/repository"
)

// Invalidator drops cached resources.  *cache.Invalidator satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context, resources ...string) error
}

// ChangePublisher announces row changes.  *realtime.Publisher satisfies it.
type ChangePublisher interface {
	Publish(ctx context.Context, c realtime.Change) error
}

// readAttempts bounds ReadRetry.  Writes are never retried.
const readAttempts = 2

// Retry runs fn until it succeeds, attempts are used up, ctx ends, or fn
// fails with an error another attempt cannot fix.
func Retry(ctx context.Context, attempts int, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || permanent(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
	}
	return err
}

// ReadRetry is Retry with the read-path attempt count.  It fits feed.Merger.Retry.
func ReadRetry(ctx context.Context, fn func(context.Context) error) error {
	return Retry(ctx, readAttempts, fn)
}

func permanent(err error) bool {
	var verrs validation.Errors
	return errors.As(err, &verrs) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrForbidden) ||
		errors.Is(err, repository.ErrConflict) ||
		errors.Is(err, availability.ErrCapacityExceeded) ||
		errors.Is(err, availability.ErrFullyBooked) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// notifier is embedded by services that write cached rows.
type notifier struct {
	inv    Invalidator
	pub    ChangePublisher
	logger echo.Logger
}

// changed is best effort: a failed invalidation or publish is logged and
// the write still succeeds.
func (n notifier) changed(ctx context.Context, table, op, id string, resources ...string) {
	if n.inv != nil {
		if err := n.inv.Invalidate(ctx, resources...); err != nil {
			n.logger.Warnf("cache invalidate %v: %v", resources, err)
		}
	}
	if n.pub != nil {
		_ = n.pub.Publish(ctx, realtime.Change{Table: table, Op: op, ID: id, At: time.Now().UTC()})
	}
}
