package session

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
	"github.com/c001-ZHSH/star-plan-analysis/pkg/metrics"
)

const DefaultPollInterval = time.Second

// StatusFunc fetches the status of one job.
type StatusFunc func(ctx context.Context, jobID string) (*client.JobStatus, error)

// Poller tracks a single job until it reaches a terminal status.
type Poller struct {
	status   StatusFunc
	interval time.Duration
	jitter   time.Duration
	log      *zap.Logger
}

func NewPoller(status StatusFunc, interval, jitter time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		status:   status,
		interval: interval,
		jitter:   jitter,
		log:      log.Named("poller"),
	}
}

// Run queries the status of jobID once per tick. Failed queries are logged
// and retried on the next tick without limit. onUpdate sees every successful
// response, the terminal one included. Run returns the terminal status, or
// ctx.Err() once ctx is done.
func (p *Poller) Run(ctx context.Context, jobID string, onUpdate func(*client.JobStatus)) (*client.JobStatus, error) {
	ticker := jitterbug.New(p.interval, &jitterbug.Norm{Stdev: p.jitter})
	defer ticker.Stop()

	log := p.log.With(zap.String("job_id", jobID))
	log.Debug("polling started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			log.Debug("polling cancelled")
			return nil, ctx.Err()
		case <-ticker.C:
		}

		st, err := p.status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("polling cancelled")
				return nil, ctx.Err()
			}
			metrics.IncreaseStatusPollsMetric(metrics.PollFailed)
			log.Warn("status poll failed, retrying on next tick", zap.Error(err))
			continue
		}
		metrics.IncreaseStatusPollsMetric(metrics.PollOK)

		if onUpdate != nil {
			onUpdate(st)
		}
		if st.Status.Terminal() {
			log.Debug("polling stopped", zap.String("status", string(st.Status)))
			return st, nil
		}
	}
}
