package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
)

// Repository wires together stock level and movement persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetLevel loads the materialized stock row.
func (r *Repository) GetLevel(ctx context.Context, resourceID uuid.UUID) (*models.StockLevel, error) {
	var level models.StockLevel
	if err := r.db.WithContext(ctx).First(&level, "resource_id = ?", resourceID).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

// GetLevelForUpdate loads the stock row with a row lock where the dialect supports one.
func (r *Repository) GetLevelForUpdate(ctx context.Context, resourceID uuid.UUID) (*models.StockLevel, error) {
	var level models.StockLevel
	tx := r.db.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := tx.First(&level, "resource_id = ?", resourceID).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

// ListLevelResourceIDs returns every resource that carries a stock level row.
func (r *Repository) ListLevelResourceIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Pluck("resource_id", &ids).Error
	return ids, err
}

// SaveLevel persists the stock row.
func (r *Repository) SaveLevel(ctx context.Context, level *models.StockLevel) error {
	return r.db.WithContext(ctx).Save(level).Error
}

// AppendMovement inserts one ledger entry.
func (r *Repository) AppendMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// LatestSnapshot returns the newest snapshot movement, nil when none exists.
func (r *Repository) LatestSnapshot(ctx context.Context, resourceID uuid.UUID) (*models.StockMovement, error) {
	var snapshot models.StockMovement
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND movement_type = ?", resourceID, enums.MovementSnapshot).
		Order("created_at DESC").
		Order("id DESC").
		First(&snapshot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// ListMovementsSince returns the ledger entries after the given instant,
// oldest-first. A zero time returns the whole ledger.
func (r *Repository) ListMovementsSince(ctx context.Context, resourceID uuid.UUID, since time.Time) ([]models.StockMovement, error) {
	q := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("created_at ASC").
		Order("id ASC")
	if !since.IsZero() {
		q = q.Where("created_at > ?", since)
	}
	var rows []models.StockMovement
	err := q.Find(&rows).Error
	return rows, err
}

// DeleteMovementsBefore removes ledger entries older than the cutoff,
// sparing snapshot rows.
func (r *Repository) DeleteMovementsBefore(ctx context.Context, resourceID uuid.UUID, cutoff time.Time, limit int) (int64, error) {
	q := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Where("movement_type <> ?", enums.MovementSnapshot).
		Where("created_at < ?", cutoff)
	if limit > 0 {
		var ids []uuid.UUID
		if err := q.Model(&models.StockMovement{}).Limit(limit).Pluck("id", &ids).Error; err != nil {
			return 0, err
		}
		if len(ids) == 0 {
			return 0, nil
		}
		res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.StockMovement{})
		return res.RowsAffected, res.Error
	}
	res := q.Delete(&models.StockMovement{})
	return res.RowsAffected, res.Error
}
