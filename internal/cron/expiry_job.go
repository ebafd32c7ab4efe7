package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maiyoury/pkasla/pkg/logger"
)

const defaultExpiryBatch = 500

type staleExpirer interface {
	ExpireStale(ctx context.Context, asOf time.Time, limit int) (int, error)
}

// ExpiryJob sweeps pending QR transactions whose expiry passed. Providers do
// not reliably deliver expired events, so the sweep is the backstop that
// keeps abandoned codes from sitting pending forever.
type ExpiryJob struct {
	settlement staleExpirer
	logg       *logger.Logger
	batch      int
}

// NewExpiryJob builds the expiry sweep job.
func NewExpiryJob(settlement staleExpirer, logg *logger.Logger, batch int) (*ExpiryJob, error) {
	if settlement == nil {
		return nil, errors.New("settlement service required")
	}
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &ExpiryJob{settlement: settlement, logg: logg, batch: batch}, nil
}

// Name identifies the job in logs and metrics.
func (j *ExpiryJob) Name() string {
	return "payments.expire_stale"
}

// Run performs one sweep.
func (j *ExpiryJob) Run(ctx context.Context) error {
	expired, err := j.settlement.ExpireStale(ctx, time.Now().UTC(), j.batch)
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	if j.logg != nil && expired > 0 {
		j.logg.Info(ctx, fmt.Sprintf("expired %d stale transactions", expired))
	}
	return nil
}
