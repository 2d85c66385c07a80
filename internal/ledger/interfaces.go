package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/pagination"
)

// Repository defines persistence operations for the append-only audit tables.
// There are deliberately no update or delete methods; history rows are
// immutable once written.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	CreateMovements(ctx context.Context, movements []models.StockMovement) error
	CreatePriceChange(ctx context.Context, change *models.PriceChange) error
	ListMovementsByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementList, error)
	ListMovementsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockMovement, error)
	ListPriceChangesByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*PriceChangeList, error)
}

// MovementList is one page of stock movements plus the cursor for the next.
type MovementList struct {
	Items      []models.StockMovement
	NextCursor string
}

// PriceChangeList is one page of price changes plus the cursor for the next.
type PriceChangeList struct {
	Items      []models.PriceChange
	NextCursor string
}
