package products

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/pagination"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

// Repository defines persistence operations for the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Find(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search     string
	CategoryID *uuid.UUID
	ActiveOnly bool
}

// ProductList is one page of products plus the cursor for the next.
type ProductList struct {
	Items      []models.Product `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CreateInput describes a new catalog entry.
type CreateInput struct {
	SKU         string
	Name        string
	Unit        string
	CategoryID  *uuid.UUID
	SupplierID  *uuid.UUID
	InputPrice  decimal.Decimal
	OutputPrice decimal.Decimal
}

// UpdateInput carries the mutable non-price fields.
type UpdateInput struct {
	Name     *string
	Unit     *string
	IsActive *bool
}

// UpdatePricesInput carries a price revision with its audit context.
type UpdatePricesInput struct {
	ProductID   uuid.UUID
	InputPrice  decimal.Decimal
	OutputPrice decimal.Decimal
	Note        *string
	Actor       types.Actor
}
