package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Identity is immutable; prices are mutable but
// every price change must be accompanied by a PriceChange row.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SKU         string          `gorm:"column:sku;not null;uniqueIndex"`
	Name        string          `gorm:"column:name;not null"`
	Unit        string          `gorm:"column:unit;not null;default:'unit'"`
	CategoryID  *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	SupplierID  *uuid.UUID      `gorm:"column:supplier_id;type:uuid"`
	InputPrice  decimal.Decimal `gorm:"column:input_price;type:numeric(12,2);not null"`
	OutputPrice decimal.Decimal `gorm:"column:output_price;type:numeric(12,2);not null"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	Batches     []Batch         `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
