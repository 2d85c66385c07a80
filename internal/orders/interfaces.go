package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/pagination"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateLineItem(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// ListFilters narrows order listings.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentMethod *enums.PaymentMethod
}

// OrderList is one page of orders plus the cursor for the next.
type OrderList struct {
	Items      []models.Order
	NextCursor string
}

// CreateItemInput is one requested position on a new order.
type CreateItemInput struct {
	ProductID uuid.UUID
	Qty       int
}

// CreateOrderInput describes a new sale.
type CreateOrderInput struct {
	Items         []CreateItemInput
	PaymentMethod enums.PaymentMethod
	Paid          bool
	Note          *string
	Actor         types.Actor
}

// ConfirmInput carries the payment confirmation for a draft order.
type ConfirmInput struct {
	Code          string
	TransactionID string
	Reference     *string
}
