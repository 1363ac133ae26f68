// Package directory resolves the reporting structure: which employees
// report to a given supervisor. The graph lives in an external HR system;
// this package only consumes it.
package directory

import (
	"context"
	"log/slog"
	"time"
)

// Resolver answers subordinate lookups for a supervisor.
type Resolver interface {
	SubordinatesOf(ctx context.Context, supervisorID int64) ([]int64, error)
}

// FailClosed wraps a resolver so that lookup failures degrade to an empty
// subordinate set instead of failing the whole request. Approval views built
// on top may be incomplete while the upstream service is down, but they stay
// available.
type FailClosed struct {
	inner   Resolver
	timeout time.Duration
	logger  *slog.Logger
}

// NewFailClosed constructs the degrading wrapper.
func NewFailClosed(inner Resolver, timeout time.Duration, logger *slog.Logger) *FailClosed {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &FailClosed{inner: inner, timeout: timeout, logger: logger}
}

// SubordinatesOf resolves with a bounded timeout; any error yields an empty set.
func (f *FailClosed) SubordinatesOf(ctx context.Context, supervisorID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ids, err := f.inner.SubordinatesOf(ctx, supervisorID)
	if err != nil {
		if f.logger != nil {
			f.logger.Warn("subordinate lookup degraded to empty set",
				slog.Int64("supervisor_id", supervisorID), slog.Any("error", err))
		}
		return nil, nil
	}
	return ids, nil
}
