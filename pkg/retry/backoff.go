package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func ExponentialBackoff(initialInterval, maxInterval time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = 0
	return exp
}

func ExponentialBackoffWithMaxElapsed(initialInterval, maxInterval, maxElapsed time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = maxElapsed
	return exp
}

func CalculateBackoffDuration(attempt int, initialInterval time.Duration, multiplier float64, maxInterval time.Duration) time.Duration {
	duration := float64(initialInterval) * math.Pow(multiplier, float64(attempt))
	if duration > float64(maxInterval) {
		return maxInterval
	}
	return time.Duration(duration)
}

// Schedule is an attempt-counted reconnect schedule for supervisors that own
// their own retry loop instead of wrapping a single operation. NextDelay
// reports the delay before the given attempt (1-based); Exhausted reports
// whether the attempt budget is spent.
type Schedule struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func NewSchedule(maxAttempts int, initial, max time.Duration) Schedule {
	return Schedule{
		MaxAttempts:     maxAttempts,
		InitialInterval: initial,
		MaxInterval:     max,
		Multiplier:      2.0,
	}
}

func (s Schedule) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return CalculateBackoffDuration(attempt-1, s.InitialInterval, s.Multiplier, s.MaxInterval)
}

func (s Schedule) Exhausted(attempt int) bool {
	return s.MaxAttempts > 0 && attempt >= s.MaxAttempts
}
