package ratelimit

import "time"

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int64
	// Reset is the unix time, in seconds, at which the current window ends.
	Reset int64
	// RetryAfter is set in seconds only when the request is rejected.
	RetryAfter int64
}

// Decide admits the request iff count does not exceed limit. A limit of 0 rejects everything.
func Decide(count int64, limit int, windowIndex int64, now time.Time) Decision {
	d := Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: max(0, int64(limit)-count),
		Reset:     (windowIndex + 1) * windowSeconds,
	}

	if !d.Allowed {
		d.RetryAfter = max(1, d.Reset-now.Unix())
	}

	return d
}
