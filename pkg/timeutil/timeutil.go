package timeutil

import (
	"math/rand"
	"time"
)

// DurationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// EpochMillis converts a time to milliseconds since the Unix epoch.
// Lock record timestamps are persisted in this form.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromEpochMillis converts milliseconds since the Unix epoch back to a time.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// AgeHours returns the age of a timestamp relative to now, in fractional hours.
// A timestamp in the future yields a negative age; callers compare against
// thresholds and treat negative ages as "not yet expired".
func AgeHours(at time.Time, now time.Time) float64 {
	return now.Sub(at).Hours()
}

// MaxDuration returns the largest of the provided durations,
// or zero when none are provided.
func MaxDuration(durations ...time.Duration) time.Duration {
	var max time.Duration
	for _, d := range durations {
		if d > max {
			max = d
		}
	}
	return max
}

// ExponentialBackoffDelay computes the delay before the next retry attempt.
// The base delay is initialDuration * multiplier^(backoffCount-1), capped at
// maxDuration, with a uniformly distributed jitter in [0, jitter) added on
// top. Jitter is drawn from the provided rng so runs are seed-reproducible.
func ExponentialBackoffDelay(
	backoffCount int,
	jitter time.Duration,
	rng rand.Rand,
	backoffParam BackoffParam,
) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}

	delay := float64(backoffParam.InitialDuration())
	for i := 1; i < backoffCount; i++ {
		delay *= backoffParam.Multiplier()
		// Stop multiplying once past the cap to avoid float overflow
		if time.Duration(delay) >= backoffParam.MaxDuration() {
			break
		}
	}

	result := time.Duration(delay)
	if result > backoffParam.MaxDuration() {
		result = backoffParam.MaxDuration()
	}
	if result < 0 {
		result = 0
	}

	if jitter > 0 {
		result += time.Duration(rng.Int63n(int64(jitter)))
	}

	return result
}
