package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch is a discrete received lot of a product with its own manufacture and
// expiry dates and quantity counters.
//
// Invariant: 0 <= output_qty <= input_qty. On-hand stock is always derived as
// input_qty - output_qty and is never stored independently; writers that would
// break the invariant must be rejected before persisting.
type Batch struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index:idx_batches_product_mfg,priority:1"`
	BatchNumber     string     `gorm:"column:batch_number;not null"`
	ManufactureDate time.Time  `gorm:"column:manufacture_date;not null;index:idx_batches_product_mfg,priority:2"`
	ExpiryDate      *time.Time `gorm:"column:expiry_date"`
	InputQty        int        `gorm:"column:input_qty;not null;default:0"`
	OutputQty       int        `gorm:"column:output_qty;not null;default:0"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// OnHand returns the derived remaining quantity.
func (b Batch) OnHand() int {
	return b.InputQty - b.OutputQty
}
