package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
)

// 注文番号が衝突したとき。呼び出し側は番号を作り直してリトライする。
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)

	// 注文番号のユニーク制約違反は ErrDuplicateOrderNumber を返す
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
