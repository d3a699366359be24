package cron

import (
	"context"
	"fmt"

	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
)

const defaultSweepBatch = 200

// HoldExpiryJobParams configure the pending hold sweeper.
type HoldExpiryJobParams struct {
	Logger  *logger.Logger
	Sweeper holdSweeper
	Batch   int
}

type holdSweeper interface {
	SweepExpiredHolds(ctx context.Context, limit int) (int, error)
}

// NewHoldExpiryJob builds the job that expires lapsed pending holds so their
// capacity returns to the availability index.
func NewHoldExpiryJob(params HoldExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("hold sweeper required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &holdExpiryJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		batch:   batch,
	}, nil
}

type holdExpiryJob struct {
	logg    *logger.Logger
	sweeper holdSweeper
	batch   int
}

func (j *holdExpiryJob) Name() string { return "hold-expiry" }

func (j *holdExpiryJob) Run(ctx context.Context) error {
	total := 0
	for {
		expired, err := j.sweeper.SweepExpiredHolds(ctx, j.batch)
		total += expired
		if err != nil {
			return fmt.Errorf("sweep expired holds: %w", err)
		}
		if expired < j.batch {
			break
		}
	}
	if total > 0 {
		logCtx := j.logg.WithField(ctx, "holds_expired", total)
		j.logg.Info(logCtx, "expired lapsed holds")
	}
	return nil
}
