package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
)

// StockMovement is an immutable, append-only ledger row recording a single
// batch mutation. Quantity is always positive; the action implies direction.
// Rows are never updated or deleted once written.
type StockMovement struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	BatchID    uuid.UUID         `gorm:"column:batch_id;type:uuid;not null"`
	Action     enums.StockAction `gorm:"column:action;type:text;not null"`
	Qty        int               `gorm:"column:qty;not null"`
	OrderID    *uuid.UUID        `gorm:"column:order_id;type:uuid"`
	ReceiptRef *string           `gorm:"column:receipt_ref"`
	Note       *string           `gorm:"column:note"`
	ActorID    uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	ActorName  string            `gorm:"column:actor_name;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
