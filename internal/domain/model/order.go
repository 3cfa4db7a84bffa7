package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// キャンセルできるのはPENDING/CONFIRMEDのみ
func (s OrderStatus) CanCancel() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// ステータス遷移のガード。DELIVERED/CANCELLEDは終端。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusConfirmed || next == OrderStatusCancelled
	case OrderStatusConfirmed:
		return next == OrderStatusProcessing || next == OrderStatusCancelled
	case OrderStatusProcessing:
		return next == OrderStatusShipped
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	default:
		return false
	}
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// 注文。金額3つ（total/shipping/tax）は作成時に確定して以後再計算しない。
type Order struct {
	ID           int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber  string      `gorm:"type:varchar(16);not null;uniqueIndex" json:"order_number"`
	UserID       int64       `gorm:"not null;index" json:"user_id"`
	AddressID    int64       `gorm:"not null" json:"address_id"`
	Status       OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount  int64       `gorm:"not null" json:"total_amount"`
	ShippingCost int64       `gorm:"not null" json:"shipping_cost"`
	TaxAmount    int64       `gorm:"not null" json:"tax_amount"`
	Notes        string      `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
