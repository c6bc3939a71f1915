package hostfunc

import (
	"context"
	"time"
)

// opSleep resolves after the given number of milliseconds. Negative delays
// are treated as zero. Sleep never fails; when the host shuts down the
// pending promise is simply dropped.
func opSleep(s *State, args Args) (Job, error) {
	ms, err := args.Int(0)
	if err != nil {
		return nil, err
	}
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond

	return func(ctx context.Context) Completion {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		return nil
	}, nil
}
