package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/yamadatarousan/ec-sub001/internal/config"
	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
	"github.com/yamadatarousan/ec-sub001/internal/metrics"
	"github.com/yamadatarousan/ec-sub001/internal/outbox"
	repo "github.com/yamadatarousan/ec-sub001/internal/repository"
)

// 注文番号が衝突したときの作り直し回数
const orderNumberMaxAttempts = 3

type OrderUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	users     repo.UserRepository
	pricing   config.Pricing
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	cartItems repo.CartItemRepository,
	products repo.ProductRepository,
	users repo.UserRepository,
	pricing config.Pricing,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		addresses: addresses,
		cartItems: cartItems,
		products:  products,
		users:     users,
		pricing:   pricing,
	}
}

type PlaceOrderInput struct {
	AddressID int64
	Notes     string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID           int64             `json:"id"`
	OrderNumber  string            `json:"order_number"`
	UserID       int64             `json:"user_id"`
	AddressID    int64             `json:"address_id"`
	Status       string            `json:"status"`
	TotalAmount  int64             `json:"total_amount"`
	ShippingCost int64             `json:"shipping_cost"`
	TaxAmount    int64             `json:"tax_amount"`
	Notes        string            `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []OrderItemOutput `json:"items"`
}

// PlaceOrder はカートから注文を確定する。
// カート読み込み・住所チェック・金額計算はトランザクション外で、
// 注文作成・明細作成・在庫減算・カートクリア・通知の積み込みは1トランザクション。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}
	if len(in.Notes) > 1000 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "notes too long")
	}

	//カート取得。空なら住所も見ずに終了。
	cartItems, err := u.cartItems.ListByUserID(ctx, userID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(cartItems) == 0 {
		metrics.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	//住所の存在確認＋所有チェック。他人の住所は「存在しない扱い」。
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			metrics.OrdersFailedTotal.WithLabelValues("address_not_found").Inc()
			return OrderOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if addr.UserID != userID {
		metrics.OrdersFailedTotal.WithLabelValues("address_not_found").Inc()
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
	}

	//通知の宛先
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//現在価格で明細スナップショットと小計を作る
	orderItems := make([]model.OrderItem, 0, len(cartItems))
	var subtotal int64 = 0
	now := time.Now()

	for _, ci := range cartItems {
		p, err := u.products.FindByID(ctx, ci.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid")
		}
		if err != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid")
		}

		orderItems = append(orderItems, model.OrderItem{
			ProductID:           ci.ProductID,
			ProductNameSnapshot: p.Name,
			UnitPriceSnapshot:   p.Price,
			Quantity:            ci.Quantity,
			CreatedAt:           now,
		})

		subtotal += p.Price * ci.Quantity
	}

	//金額確定（ここで凍結、以後は再計算しない）
	shippingCost := u.shippingCost(subtotal)
	taxAmount := u.taxAmount(subtotal)
	totalAmount := subtotal + shippingCost + taxAmount

	var out OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o := model.Order{
			UserID:       userID,
			AddressID:    in.AddressID,
			Status:       model.OrderStatusPending,
			TotalAmount:  totalAmount,
			ShippingCost: shippingCost,
			TaxAmount:    taxAmount,
			Notes:        in.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		//注文番号はユニーク制約＋衝突時の作り直し
		var orderID int64
		for attempt := 0; attempt < orderNumberMaxAttempts; attempt++ {
			o.OrderNumber = generateOrderNumber(now)

			id, err := r.Orders().Create(ctx, o)
			if err == nil {
				orderID = id
				break
			}
			if !errors.Is(err, repo.ErrDuplicateOrderNumber) {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		if orderID == 0 {
			return NewHTTPError(http.StatusInternalServerError, "order number exhausted")
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫減算（足りないなら false → 全部ロールバック）
		for _, it := range orderItems {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, "out of stock")
			}
		}

		//カートを空にする（再注文防止）
		if err := r.CartItems().ClearByUserID(ctx, userID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文確認メールはアウトボックスに積むだけ。送信は非同期。
		msg, err := outbox.NewOrderConfirmation(user.Email, outbox.OrderConfirmationPayload{
			OrderNumber: o.OrderNumber,
			TotalAmount: totalAmount,
			PlacedAt:    now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if err := r.Outbox().Enqueue(ctx, msg); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		created := o
		created.ID = orderID
		out = toOrderOutput(created, orderItems)
		return nil
	})

	if err != nil {
		reason := "db_error"
		if he, ok := AsHTTPError(err); ok && he.Status == http.StatusConflict {
			reason = "out_of_stock"
		}
		metrics.OrdersFailedTotal.WithLabelValues(reason).Inc()
		return OrderOutput{}, err
	}

	metrics.OrdersCreatedTotal.Inc()
	return out, nil
}

// CancelOrder は本人の注文をキャンセルして在庫を戻す。
// PENDING/CONFIRMED以外はキャンセル不可。金額は履歴として残す。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if !o.Status.CanCancel() {
			return NewHTTPError(http.StatusConflict, "not cancellable")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫戻し（注文時に減らした数だけ戻す）
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		o.Status = model.OrderStatusCancelled
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	metrics.OrdersCancelledTotal.Inc()
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングはまずは固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 小計が無料ラインに届かなければ固定送料
func (u *OrderUsecase) shippingCost(subtotal int64) int64 {
	if subtotal >= u.pricing.FreeShippingThreshold {
		return 0
	}
	return u.pricing.ShippingFee
}

// 税額。1円未満は切り捨て。
func (u *OrderUsecase) taxAmount(subtotal int64) int64 {
	return subtotal * u.pricing.TaxRatePercent / 100
}

// "EC" + YYMMDD + 4桁乱数。DBのユニーク制約で衝突を検出する。
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("EC%s%04d", now.Format("060102"), rand.Intn(10000))
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		UserID:       o.UserID,
		AddressID:    o.AddressID,
		Status:       string(o.Status),
		TotalAmount:  o.TotalAmount,
		ShippingCost: o.ShippingCost,
		TaxAmount:    o.TaxAmount,
		Notes:        o.Notes,
		CreatedAt:    o.CreatedAt,
		Items:        outItems,
	}
}
