package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"

	"github.com/google/uuid"
)

// 注文確認メールのペイロード。注文トランザクションの中でJSONにして積む。
type OrderConfirmationPayload struct {
	OrderNumber string    `json:"order_number"`
	TotalAmount int64     `json:"total_amount"`
	PlacedAt    time.Time `json:"placed_at"`
}

// NewOrderConfirmation は注文確認のアウトボックス行を作る。
func NewOrderConfirmation(recipient string, p OrderConfirmationPayload) (model.OutboxMessage, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return model.OutboxMessage{}, err
	}

	return model.OutboxMessage{
		ID:        uuid.NewString(),
		Kind:      model.OutboxKindOrderConfirmation,
		Recipient: recipient,
		Payload:   string(raw),
		Status:    model.OutboxStatusPending,
	}, nil
}

// ペイロードからメールの件名と本文を組み立てる。
func renderOrderConfirmation(payload string) (string, string, error) {
	var p OrderConfirmationPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", "", fmt.Errorf("broken payload: %w", err)
	}

	subject := fmt.Sprintf("ご注文ありがとうございます（注文番号: %s）", p.OrderNumber)
	body := fmt.Sprintf(
		"ご注文を受け付けました。\n\n注文番号: %s\nお支払い合計: %d円\n\n発送時に改めてご連絡します。",
		p.OrderNumber, p.TotalAmount,
	)
	return subject, body, nil
}
