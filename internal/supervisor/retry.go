package supervisor

import (
	"context"
	"time"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/log"
	"github.com/felixgeelhaar/wavekeeper/internal/task"
)

// RetryPolicy bounds a RetryLoop.
type RetryPolicy struct {
	Attempts int           `yaml:"attempts" mapstructure:"attempts" json:"attempts"`
	Delay    time.Duration `yaml:"delay" mapstructure:"delay" json:"delay"`
}

// DefaultRetryPolicy is three attempts ten seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 10 * time.Second}
}

// Attempt is what one execution of a retried operation reports.
type Attempt struct {
	Completed int
	// Remaining is meaningful only when RemainingKnown is set.
	Remaining      int
	RemainingKnown bool
}

// RetryResult summarizes a RetryLoop.
type RetryResult struct {
	Total    int
	Attempts int
	// Exhausted is set when attempts ran out with work still remaining.
	Exhausted bool
}

// Retry runs op until it reports zero remaining work or the attempts are
// used up, summing Completed. Running out of attempts is not an error; an
// error from op ends the loop and is returned with the partial total.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) (Attempt, error)) (RetryResult, error) {
	logger := log.FromContext(ctx)
	attempts := max(1, policy.Attempts)

	var res RetryResult
	for i := 1; i <= attempts; i++ {
		a, err := op(ctx, i)
		res.Attempts = i
		if err != nil {
			return res, err
		}
		res.Total += a.Completed

		if a.RemainingKnown && a.Remaining <= 0 {
			return res, nil
		}
		if i == attempts {
			break
		}
		logger.InfoContext(ctx, "work remaining, retrying",
			"attempt", i, "completed", a.Completed, "remaining", remainingAttr(a), "delay", policy.Delay)
		if !sleep(ctx, policy.Delay) {
			return res, kerrors.New(kerrors.ErrCodeCancelled, "retry cancelled")
		}
	}

	res.Exhausted = true
	logger.WarnContext(ctx, "retry attempts exhausted", "attempts", res.Attempts, "total", res.Total)
	return res, nil
}

func remainingAttr(a Attempt) any {
	if !a.RemainingKnown {
		return "unknown"
	}
	return a.Remaining
}

// TaskAttempt adapts a supervised task into a Retry operation. The task's
// info map is read for the completed and remaining counts after each run.
func (s *Supervisor) TaskAttempt(t task.Task, timeout time.Duration, completedKey, remainingKey string) func(context.Context, int) (Attempt, error) {
	return func(ctx context.Context, _ int) (Attempt, error) {
		res, err := s.Run(ctx, t, timeout)
		if err != nil {
			return Attempt{}, err
		}
		completed, _ := res.Info.Int(completedKey)
		remaining, known := res.Info.Int(remainingKey)
		return Attempt{Completed: completed, Remaining: remaining, RemainingKnown: known}, nil
	}
}
