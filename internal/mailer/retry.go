package mailer

import "time"

// RetryPolicy bounds delivery attempts for one ledger row. The policy
// is owned by the dispatcher, not by the queue: the queue only parks
// tasks until the backoff elapses.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy allows three attempts total, one minute apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Minute}
}

// Exhausted reports whether attempt was the final permitted attempt.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
