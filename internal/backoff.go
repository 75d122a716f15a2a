package internal

import "time"

// DefaultMaxBackoff caps Backoff when no cap is given
const DefaultMaxBackoff = 30 * time.Second

// Backoff returns base * 2^attempt capped at max, or at DefaultMaxBackoff
// when max is not positive. A non-positive base disables backoff.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if max <= 0 {
		max = DefaultMaxBackoff
	}

	delay := base
	for i := 0; i < attempt && delay > 0 && delay < max; i++ {
		delay *= 2
	}
	if delay > max || delay <= 0 {
		delay = max
	}
	return delay
}
