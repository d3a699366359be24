package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
)

const (
	defaultCompactionKeep  = 30 * 24 * time.Hour
	defaultCompactionBatch = 1000
)

// StockCompactionJobParams configure the ledger compaction job.
type StockCompactionJobParams struct {
	Logger    *logger.Logger
	Resources stockResourceLister
	Compactor stockCompactor
	Keep      time.Duration
	Batch     int
}

type stockResourceLister interface {
	ListLevelResourceIDs(ctx context.Context) ([]uuid.UUID, error)
}

type stockCompactor interface {
	Compact(ctx context.Context, resourceID uuid.UUID, keep time.Duration, batch int) (int64, error)
}

// NewStockCompactionJob builds the job that snapshots quantity ledgers and
// truncates entries past the retention horizon.
func NewStockCompactionJob(params StockCompactionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Resources == nil {
		return nil, fmt.Errorf("resource lister required")
	}
	if params.Compactor == nil {
		return nil, fmt.Errorf("compactor required")
	}
	keep := params.Keep
	if keep <= 0 {
		keep = defaultCompactionKeep
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultCompactionBatch
	}
	return &stockCompactionJob{
		logg:      params.Logger,
		resources: params.Resources,
		compactor: params.Compactor,
		keep:      keep,
		batch:     batch,
	}, nil
}

type stockCompactionJob struct {
	logg      *logger.Logger
	resources stockResourceLister
	compactor stockCompactor
	keep      time.Duration
	batch     int
}

func (j *stockCompactionJob) Name() string { return "stock-compaction" }

func (j *stockCompactionJob) Run(ctx context.Context) error {
	ids, err := j.resources.ListLevelResourceIDs(ctx)
	if err != nil {
		return fmt.Errorf("list stock resources: %w", err)
	}

	var errs error
	var removed int64
	for _, id := range ids {
		rows, err := j.compactor.Compact(ctx, id, j.keep, j.batch)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("compact %s: %w", id, err))
			continue
		}
		removed += rows
	}
	if removed > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"resources":    len(ids),
			"rows_removed": removed,
		})
		j.logg.Info(logCtx, "stock ledger compaction complete")
	}
	return errs
}
