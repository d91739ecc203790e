package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/kweiss/reelsmith/internal/interrupt"
)

// PollUntilReady repeatedly invokes check until it reports done, the
// attempt budget is exhausted, the context is cancelled, or the
// cancellation signal is asserted. Long-running media jobs (video
// renders in particular) are polled through this so an interrupt takes
// effect between polls rather than after the job finishes. A non-nil
// cancel is invoked best-effort before an interruption error is
// returned, so the remote job is not left running.
func PollUntilReady(ctx context.Context, sig *interrupt.Signal, interval time.Duration, maxAttempts int, check func(ctx context.Context) (bool, error), cancel func(ctx context.Context)) error {
	abort := func(err error) error {
		if cancel != nil {
			cancel(ctx)
		}
		return err
	}

	for attempt := 1; ; attempt++ {
		if err := sig.Err(); err != nil {
			return abort(err)
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt >= maxAttempts {
			return fmt.Errorf("not ready after %d attempts", maxAttempts)
		}

		select {
		case <-ctx.Done():
			return abort(ctx.Err())
		case <-time.After(interval):
		}
	}
}
