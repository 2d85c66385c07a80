package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

// Repository defines persistence operations for return/exchange records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.ReturnExchange) error
	Find(ctx context.Context, id uuid.UUID) (*models.ReturnExchange, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnExchange, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// ItemInput identifies one sold batch position being handed back.
type ItemInput struct {
	ProductID uuid.UUID
	BatchID   uuid.UUID
	Qty       int
}

// CreateInput opens a return or exchange against a completed order.
type CreateInput struct {
	OrderID      uuid.UUID
	Action       enums.ReturnAction
	Items        []ItemInput
	NewProductID *uuid.UUID
	NewQty       int
	ReceiptRef   *string
	CustomerName *string
	Note         *string
	Actor        types.Actor
}
