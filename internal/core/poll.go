package core

import (
	"context"
	"time"

	"github.com/flowpilot/flowpilot/pkg/structs"
)

// DefaultPollInterval is how long we wait between job fetches.
const DefaultPollInterval = 1500 * time.Millisecond

// Poller drives a single job id from creation to a final status at a fixed
// interval. It applies no client-side timeout and no iteration cap: the job
// service owns timeout semantics (timeout is a final status it returns).
// Cancellation is server-confirmed; the only local escape is the context,
// which maps to the caller abandoning the operation entirely.
type Poller struct {
	svc      JobService
	interval time.Duration
}

func NewPoller(svc JobService, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{svc: svc, interval: interval}
}

// Poll fetches the job until its status is final, invoking observe with
// every fetched state in fetch order, the final state included, before
// returning that final job.
func (p *Poller) Poll(ctx context.Context, id string, observe func(*structs.Job)) (*structs.Job, error) {
	for {
		job, err := p.svc.Job(ctx, id)
		if err != nil {
			return nil, err
		}
		if observe != nil {
			observe(job)
		}
		if structs.IsFinalStatus(job.Status) {
			return job, nil
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return job, ctx.Err()
		case <-timer.C:
		}
	}
}
