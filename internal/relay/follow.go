package relay

import (
	"context"
	"time"
)

// DefaultPollInterval is the delivery cadence. Polling at a fixed short
// interval keeps each reader independent of the capture rate.
const DefaultPollInterval = 5 * time.Millisecond

// SendFunc delivers one frame. A non-nil error stops the follower.
type SendFunc func(frame string) error

// Follow polls slot every interval and calls send with each frame that
// differs from the last one sent. It returns nil when ctx is done or done
// is closed, or the first send error. done may be nil.
func Follow(ctx context.Context, slot *Slot, interval time.Duration, done <-chan struct{}, send SendFunc) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		if frame, ok := slot.Load(); ok && frame != "" && frame != last {
			if err := send(frame); err != nil {
				return err
			}
			last = frame
		}

		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case <-ticker.C:
		}
	}
}
