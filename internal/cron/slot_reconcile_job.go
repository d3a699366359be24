package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
)

// SlotReconcileJobParams configure the projection repair job.
type SlotReconcileJobParams struct {
	Logger      *logger.Logger
	Slots       slotResourceLister
	Coordinator slotReconciler
}

type slotResourceLister interface {
	ListSlotResourceIDs(ctx context.Context) ([]uuid.UUID, error)
}

type slotReconciler interface {
	ReconcileSlots(ctx context.Context, resourceID uuid.UUID) (int, error)
}

// NewSlotReconcileJob builds the job that re-derives availability slots from
// the reservation ledger and repairs drift.
func NewSlotReconcileJob(params SlotReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Slots == nil {
		return nil, fmt.Errorf("slot lister required")
	}
	if params.Coordinator == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &slotReconcileJob{
		logg:        params.Logger,
		slots:       params.Slots,
		coordinator: params.Coordinator,
	}, nil
}

type slotReconcileJob struct {
	logg        *logger.Logger
	slots       slotResourceLister
	coordinator slotReconciler
}

func (j *slotReconcileJob) Name() string { return "slot-reconcile" }

func (j *slotReconcileJob) Run(ctx context.Context) error {
	ids, err := j.slots.ListSlotResourceIDs(ctx)
	if err != nil {
		return fmt.Errorf("list slot resources: %w", err)
	}

	var errs error
	corrected := 0
	for _, id := range ids {
		fixed, err := j.coordinator.ReconcileSlots(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", id, err))
			continue
		}
		corrected += fixed
	}
	if corrected > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"resources":         len(ids),
			"buckets_corrected": corrected,
		})
		j.logg.Warn(logCtx, "availability slots drifted from the ledger")
	}
	return errs
}
