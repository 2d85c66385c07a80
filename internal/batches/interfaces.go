package batches

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

// Repository defines persistence operations for batch rows. All quantity
// mutations go through guarded updates so the on-hand invariant holds under
// concurrent writers without row locks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, batch *models.Batch) error
	Find(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Batch, error)
	ListAllocatable(ctx context.Context, productID uuid.UUID) ([]models.Batch, error)
	ListExpiring(ctx context.Context, before time.Time) ([]models.Batch, error)
	IncrementOutput(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	DecrementOutput(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	AdjustQuantities(ctx context.Context, id uuid.UUID, inputDelta, outputDelta int) (bool, error)
}

// ReceiveInput describes a new inbound batch.
type ReceiveInput struct {
	ProductID       uuid.UUID
	BatchNumber     string
	ManufactureDate time.Time
	ExpiryDate      *time.Time
	Qty             int
	ReceiptRef      *string
	Note            *string
	Actor           types.Actor
}

// AdjustInput describes a manual stock correction on an existing batch.
type AdjustInput struct {
	BatchID     uuid.UUID
	InputDelta  int
	OutputDelta int
	Note        *string
	Actor       types.Actor
}
