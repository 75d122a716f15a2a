package connpool

import (
	"context"
	"time"

	"github.com/go-i2p/go-connpool/internal"
	"github.com/go-i2p/go-connpool/pool"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// maxRetryDelay caps the exponential backoff between dial attempts
const maxRetryDelay = 30 * time.Second

// RetryDialer wraps a Dialer and retries failed connection establishment
// with exponential backoff: delay = backoff * 2^attempt, capped at 30s.
type RetryDialer struct {
	dialer  pool.Dialer
	retries int
	backoff time.Duration
	logger  *logger.Logger
}

// NewRetryDialer creates a RetryDialer.
// Use 0 retries for a single attempt, -1 to retry until ctx is canceled.
func NewRetryDialer(dialer pool.Dialer, retries int, backoff time.Duration) *RetryDialer {
	return &RetryDialer{
		dialer:  dialer,
		retries: retries,
		backoff: backoff,
		logger:  log,
	}
}

// Dial establishes a connection, retrying according to the configuration
func (r *RetryDialer) Dial(ctx context.Context) (pool.Connection, error) {
	if r.retries == 0 {
		return r.dialer.Dial(ctx)
	}

	return r.executeRetryLoop(ctx)
}

// executeRetryLoop performs the main retry logic with exponential backoff.
func (r *RetryDialer) executeRetryLoop(ctx context.Context) (pool.Connection, error) {
	attempt := 0

	for {
		conn, err := r.dialer.Dial(ctx)
		if err == nil {
			r.logSuccessAfterRetries(attempt)
			return conn, nil
		}

		if !r.shouldRetry(attempt) {
			return nil, r.wrapRetryError(err, attempt+1)
		}

		if err := r.waitForRetry(ctx, attempt); err != nil {
			return nil, r.wrapRetryError(err, attempt+1)
		}

		attempt++
		r.logRetryAttempt(attempt, err)
	}
}

// logSuccessAfterRetries logs a successful dial that needed retries.
func (r *RetryDialer) logSuccessAfterRetries(attempt int) {
	if attempt > 0 {
		r.logger.WithField("attempts", attempt+1).Info("Connection established after retries")
	}
}

// shouldRetry checks the attempt count against the limit (-1 means infinite)
func (r *RetryDialer) shouldRetry(attempt int) bool {
	return r.retries == -1 || attempt < r.retries
}

// waitForRetry sleeps for the backoff delay or until ctx is done.
func (r *RetryDialer) waitForRetry(ctx context.Context, attempt int) error {
	delay := internal.Backoff(r.backoff, maxRetryDelay, attempt)
	if delay <= 0 {
		return ctx.Err()
	}

	r.logger.WithFields(logrus.Fields{
		"attempt": attempt + 1,
		"delay":   delay,
	}).Debug("Waiting before dial retry")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// logRetryAttempt logs information about the retry attempt.
func (r *RetryDialer) logRetryAttempt(attempt int, lastErr error) {
	r.logger.WithFields(logrus.Fields{
		"attempt":    attempt + 1,
		"last_error": lastErr.Error(),
	}).Warn("Dial failed, retrying")
}

// wrapRetryError wraps the final error with retry context information.
func (r *RetryDialer) wrapRetryError(err error, totalAttempts int) error {
	return oops.
		Code("DIAL_RETRY_FAILED").
		In("connpool").
		With("total_attempts", totalAttempts).
		With("max_retries", r.retries).
		Wrapf(err, "dial failed after %d attempts", totalAttempts)
}
