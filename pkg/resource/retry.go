package resource

import (
	"time"

	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// retrier re-runs transport operations that fail with a transient
// fault. A limit of 0 (the default) means exactly one attempt, no
// retry. Non-transient faults are returned immediately, whatever the
// remaining budget.
type retrier struct {
	// limit is the number of retries after the first attempt.
	limit int

	// delay is an optional pause between attempts.
	delay time.Duration
}

// result of one retried operation, for trace bookkeeping.
type attemptResult struct {
	attempts int
	err      error
}

// do runs op until it succeeds, fails non-transiently, or the budget is
// exhausted. It reports how many attempts were made and the final
// error (nil on success).
func (r retrier) do(op func() error) attemptResult {
	attempts := 0
	for {
		attempts++
		err := op()
		if err == nil {
			return attemptResult{attempts: attempts}
		}
		if !visa.IsTransient(err) {
			return attemptResult{attempts: attempts, err: err}
		}
		if attempts > r.limit {
			return attemptResult{attempts: attempts, err: err}
		}
		if r.delay > 0 {
			time.Sleep(r.delay)
		}
	}
}
