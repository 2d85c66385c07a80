package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
)

// ReturnExchange records a customer return or exchange against a completed
// order. Status advances monotonically and never regresses.
type ReturnExchange struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Action       enums.ReturnAction   `gorm:"column:action;type:text;not null"`
	Status       enums.ReturnStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	ReceiptRef   *string              `gorm:"column:receipt_ref"`
	CustomerName *string              `gorm:"column:customer_name"`
	NewProductID *uuid.UUID           `gorm:"column:new_product_id;type:uuid"`
	NewQty       int                  `gorm:"column:new_qty;not null;default:0"`
	Note         *string              `gorm:"column:note"`
	ActorID      uuid.UUID            `gorm:"column:actor_id;type:uuid;not null"`
	ActorName    string               `gorm:"column:actor_name;not null"`
	Items        []ReturnExchangeItem `gorm:"foreignKey:ReturnExchangeID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// ReturnExchangeItem identifies one old batch position being handed back.
type ReturnExchangeItem struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ReturnExchangeID uuid.UUID `gorm:"column:return_exchange_id;type:uuid;not null;index"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	BatchID          uuid.UUID `gorm:"column:batch_id;type:uuid;not null"`
	Qty              int       `gorm:"column:qty;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
