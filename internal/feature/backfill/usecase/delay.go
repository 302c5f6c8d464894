package usecase

import (
	"context"
	"time"
)

// sleep は d だけ待ちます。ctx が終了したらその時点で戻ります。
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
