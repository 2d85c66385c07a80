package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceChange is an immutable audit row capturing a product price update.
// It is written in the same transaction as the product update; a price change
// without a matching row is a defect.
type PriceChange struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	OldInputPrice  decimal.Decimal `gorm:"column:old_input_price;type:numeric(12,2);not null"`
	NewInputPrice  decimal.Decimal `gorm:"column:new_input_price;type:numeric(12,2);not null"`
	OldOutputPrice decimal.Decimal `gorm:"column:old_output_price;type:numeric(12,2);not null"`
	NewOutputPrice decimal.Decimal `gorm:"column:new_output_price;type:numeric(12,2);not null"`
	Note           *string         `gorm:"column:note"`
	ActorID        uuid.UUID       `gorm:"column:actor_id;type:uuid;not null"`
	ActorName      string          `gorm:"column:actor_name;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
