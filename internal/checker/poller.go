package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	api "github.com/citecheck/citecheck/api/v1alpha1"
	"github.com/citecheck/citecheck/internal/client"
	"github.com/citecheck/citecheck/internal/store"
)

const (
	// DefaultMaxAttempts bounds the poll loop; with the default interval this
	// is about 3 minutes of wall clock.
	DefaultMaxAttempts = 90
	// DefaultPollInterval is the nominal wait between two status polls. Job
	// completion time is bounded and predictable, so a fixed interval is used
	// instead of exponential backoff.
	DefaultPollInterval = 2 * time.Second
)

// Poller drives one job's status polling until a terminal state, a classified
// error or the attempt budget runs out. Every terminal exit clears the
// persisted job id so a dead job can never block future recovery; only a
// context cancellation leaves it in place for the recovery path to resume.
type Poller struct {
	client      client.Validator
	store       *store.Store
	maxAttempts int
	interval    time.Duration
}

func NewPoller(v client.Validator, s *store.Store, maxAttempts int, interval time.Duration) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:      v,
		store:       s,
		maxAttempts: maxAttempts,
		interval:    interval,
	}
}

// Poll returns the results payload of a completed job, or a classified error.
// The budget is enforced by attempt count, not an absolute deadline, so slow
// responses extend total wall time.
func (p *Poller) Poll(ctx context.Context, jobID string, identity client.Identity) (*api.ValidationResultPayload, error) {
	logger := zap.S().Named("poller")

	ticker := jitterbug.New(p.interval, &jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0})
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		job, err := p.client.GetJob(ctx, jobID, identity)
		if err != nil {
			if ctx.Err() != nil {
				// a cancelled request is not a transport failure; keep the
				// persisted job id so recovery can resume the loop
				return nil, ctx.Err()
			}
			// transport failures and unexpected HTTP errors are terminal; a
			// flaky network must not keep the loop alive, and a 404 means the
			// server has forgotten the job for good
			p.store.ClearCurrentJobID()
			return nil, err
		}

		if job.Status.Terminal() {
			p.store.ClearCurrentJobID()
			if job.Status == api.JobStatusFailed {
				return nil, client.NewErrJobFailed(job.Error)
			}
			if job.Results == nil {
				return nil, client.NewErrMalformedResponse(fmt.Errorf("completed job %s has no results", jobID))
			}
			logger.Debugf("job %s completed after %d attempts", jobID, attempt)
			return job.Results, nil
		}

		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			// an abandoned loop keeps the persisted job id, recovery picks
			// it up on the next start
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	logger.Warnf("job %s still not terminal after %d attempts", jobID, p.maxAttempts)
	p.store.ClearCurrentJobID()
	return nil, client.NewErrTimeout()
}
