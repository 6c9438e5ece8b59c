package catalogwarm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultInterval = 5 * time.Minute

type refresher interface {
	Refresh(ctx context.Context) error
}

// Job keeps the catalog cache warm so checkout price lookups rarely hit the
// upstream sources.
type Job struct {
	catalog  refresher
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func New(catalog refresher, interval time.Duration, logger *zap.Logger) *Job {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		catalog:  catalog,
		interval: interval,
		timeout:  interval / 2,
		now:      time.Now,
		logger:   logger,
	}
}

// Run refreshes the catalog once.
func (j *Job) Run(ctx context.Context) error {
	if j.catalog == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	started := j.now()
	if err := j.catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	j.logger.Debug("catalog cache warmed", zap.Duration("took", j.now().Sub(started)))
	return nil
}

// Start runs the job immediately and then on every interval until ctx is done.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if err := j.Run(ctx); err != nil && ctx.Err() == nil {
			j.logger.Warn("catalog warm failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
