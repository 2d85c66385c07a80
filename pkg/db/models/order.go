package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
)

// Order is a sale. Total must always equal the exact sum of line subtotals;
// it is recomputed on every mutation and never drifts. Items and totals mutate
// only through the order service.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Code          string              `gorm:"column:code;not null;uniqueIndex"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	Paid          bool                `gorm:"column:paid;not null;default:false"`
	StockDeducted bool                `gorm:"column:stock_deducted;not null;default:false"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	GatewayTxnID  *string             `gorm:"column:gateway_txn_id"`
	GatewayRef    *string             `gorm:"column:gateway_ref"`
	Note          *string             `gorm:"column:note"`
	ActorID       uuid.UUID           `gorm:"column:actor_id;type:uuid;not null"`
	ActorName     string              `gorm:"column:actor_name;not null"`
	Items         []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// SumItems returns the exact sum of line subtotals.
func (o Order) SumItems() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}
