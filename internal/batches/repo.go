package batches

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a batch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Batch, error) {
	var rows []models.Batch
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("manufacture_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAllocatable returns batches with remaining stock in consumption order:
// oldest manufacture date first, insertion order breaking ties.
func (r *repository) ListAllocatable(ctx context.Context, productID uuid.UUID) ([]models.Batch, error) {
	var rows []models.Batch
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND input_qty - output_qty > 0", productID).
		Order("manufacture_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListExpiring(ctx context.Context, before time.Time) ([]models.Batch, error) {
	var rows []models.Batch
	err := r.db.WithContext(ctx).
		Where("expiry_date IS NOT NULL AND expiry_date <= ? AND input_qty - output_qty > 0", before).
		Order("expiry_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IncrementOutput consumes qty units from the batch. The guard in the WHERE
// clause makes the deduction atomic: a false return means the remaining stock
// changed underneath us and the caller must re-plan.
func (r *repository) IncrementOutput(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ? AND input_qty - output_qty >= ?", id, qty).
		UpdateColumn("output_qty", gorm.Expr("output_qty + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DecrementOutput hands qty units back to the batch. The guard keeps
// output_qty from going negative when concurrent reversals race.
func (r *repository) DecrementOutput(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ? AND output_qty >= ?", id, qty).
		UpdateColumn("output_qty", gorm.Expr("output_qty - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AdjustQuantities applies a manual correction to both counters. The guard
// enforces 0 <= output_qty <= input_qty after the deltas land.
func (r *repository) AdjustQuantities(ctx context.Context, id uuid.UUID, inputDelta, outputDelta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ? AND input_qty + ? >= output_qty + ? AND output_qty + ? >= 0 AND input_qty + ? >= 0",
			id, inputDelta, outputDelta, outputDelta, inputDelta).
		UpdateColumns(map[string]any{
			"input_qty":  gorm.Expr("input_qty + ?", inputDelta),
			"output_qty": gorm.Expr("output_qty + ?", outputDelta),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
