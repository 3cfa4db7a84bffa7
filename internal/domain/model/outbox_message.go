package model

import "time"

type OutboxKind string

const (
	OutboxKindOrderConfirmation OutboxKind = "ORDER_CONFIRMATION"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
	OutboxStatusFailed  OutboxStatus = "FAILED"
)

// 通知アウトボックス。注文と同じトランザクションで積んで、
// 送信ワーカーが後から拾う。
type OutboxMessage struct {
	ID        string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	Kind      OutboxKind   `gorm:"type:varchar(50);not null" json:"kind"`
	Recipient string       `gorm:"type:varchar(255);not null" json:"recipient"`
	Payload   string       `gorm:"type:text;not null" json:"payload"`
	Status    OutboxStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts  int          `gorm:"not null;default:0" json:"attempts"`
	LastError string       `gorm:"type:text" json:"last_error"`
	CreatedAt time.Time    `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
