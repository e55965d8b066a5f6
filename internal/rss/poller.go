package rss

import (
	"context"
	"time"
)

// Poller default timings.
const (
	DefaultPollInterval = 2 * time.Second
	// DefaultSettleDelay holds the success callback back so the final
	// progress update is visible before the UI switches views.
	DefaultSettleDelay = 1500 * time.Millisecond
)

// StatusFunc fetches the current job snapshot. A nil job with a nil error
// means the response carried no usable state and the poll is ignored.
type StatusFunc func(ctx context.Context) (*Job, error)

// Poller watches a generation job until it reaches a terminal state.
//
// Cancellation is explicit: once the context is done, no callback fires and
// no state is touched, so a response arriving after teardown cannot act on
// released state.
type Poller struct {
	Status      StatusFunc
	Interval    time.Duration
	SettleDelay time.Duration

	// OnProgress fires for every non-terminal snapshot.
	OnProgress func(Job)
	// OnComplete fires exactly once, after SettleDelay.
	OnComplete func(Job)
	// OnFailure fires exactly once, immediately.
	OnFailure func(Job)
}

// Run polls immediately, then on every interval tick, until a terminal state
// is reached or ctx is cancelled. Any transport or decode error counts as
// job failure and halts polling.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	if done, err := p.poll(ctx); done || err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done, err := p.poll(ctx); done || err != nil {
				return err
			}
		}
	}
}

// poll issues one status request. Returns done=true once a terminal state
// has been handled.
func (p *Poller) poll(ctx context.Context) (bool, error) {
	job, err := p.Status(ctx)
	if ctx.Err() != nil {
		return true, ctx.Err()
	}
	if err != nil {
		if p.OnFailure != nil {
			p.OnFailure(Job{Status: StatusFailed, Message: err.Error()})
		}
		return true, err
	}
	if job == nil {
		// Malformed or empty response: still processing, keep polling.
		return false, nil
	}

	switch job.Status {
	case StatusFailed:
		if p.OnFailure != nil {
			p.OnFailure(*job)
		}
		return true, nil
	case StatusCompleted:
		delay := p.SettleDelay
		if delay <= 0 {
			delay = DefaultSettleDelay
		}
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case <-time.After(delay):
		}
		if p.OnComplete != nil {
			p.OnComplete(*job)
		}
		return true, nil
	default:
		if p.OnProgress != nil {
			p.OnProgress(*job)
		}
		return false, nil
	}
}
