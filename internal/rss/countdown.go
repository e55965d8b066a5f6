package rss

import (
	"context"
	"fmt"
	"time"
)

// DueSentinel is shown once the next update deadline has passed.
const DueSentinel = "Due for update"

// Countdown renders the time remaining until nextUpdate with one-second
// granularity, showing only the most significant non-zero units.
func Countdown(nextUpdate, now time.Time) string {
	remaining := nextUpdate.Sub(now)
	if remaining <= 0 {
		return DueSentinel
	}

	h := int(remaining.Hours())
	m := int(remaining.Minutes()) % 60
	s := int(remaining.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// RunCountdown emits the countdown string once per second until ctx is
// cancelled. A value received on next retargets the deadline and restarts
// the ticker; an initial value must be sent before ticks begin.
func RunCountdown(ctx context.Context, next <-chan time.Time, emit func(string)) {
	var deadline time.Time
	select {
	case <-ctx.Done():
		return
	case deadline = <-next:
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	emit(Countdown(deadline, time.Now()))
	for {
		select {
		case <-ctx.Done():
			return
		case deadline = <-next:
			// Rebuild the ticker so the first tick after a retarget is a
			// full second away.
			ticker.Stop()
			ticker = time.NewTicker(time.Second)
			emit(Countdown(deadline, time.Now()))
		case <-ticker.C:
			emit(Countdown(deadline, time.Now()))
		}
	}
}
