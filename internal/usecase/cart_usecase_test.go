package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
	repo "github.com/yamadatarousan/ec-sub001/internal/repository"
	"github.com/yamadatarousan/ec-sub001/internal/usecase"
)

func newCartUsecase() (*usecase.CartUsecase, *CartItemRepoMock, *ProductRepoMock) {
	cartRepo := new(CartItemRepoMock)
	productRepo := new(ProductRepoMock)
	return usecase.NewCartUsecase(cartRepo, productRepo), cartRepo, productRepo
}

func TestCartUsecase_GetCart_Empty(t *testing.T) {
	uc, cartRepo, _ := newCartUsecase()

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{}, nil)

	out, err := uc.GetCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out.Items))
	assert.Equal(t, int64(0), out.Total)
}

// 合計はスナップショット価格で計算する
func TestCartUsecase_GetCart_TotalFromSnapshot(t *testing.T) {
	uc, cartRepo, productRepo := newCartUsecase()

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, UserID: 1, ProductID: 100, Quantity: 2, UnitPriceSnapshot: 3000},
		{ID: 2, UserID: 1, ProductID: 101, Quantity: 1, UnitPriceSnapshot: 5000},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Name: "A", IsActive: true}, nil)
	productRepo.On("FindByID", mock.Anything, int64(101)).Return(model.Product{ID: 101, Name: "B", IsActive: true}, nil)

	out, err := uc.GetCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out.Items))
	assert.Equal(t, int64(11000), out.Total)
}

// 非公開になった商品は表示から外す
func TestCartUsecase_GetCart_SkipsInactive(t *testing.T) {
	uc, cartRepo, productRepo := newCartUsecase()

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, UserID: 1, ProductID: 100, Quantity: 1, UnitPriceSnapshot: 1000},
		{ID: 2, UserID: 1, ProductID: 101, Quantity: 1, UnitPriceSnapshot: 2000},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, IsActive: true}, nil)
	productRepo.On("FindByID", mock.Anything, int64(101)).Return(model.Product{ID: 101, IsActive: false}, nil)

	out, err := uc.GetCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, int64(1000), out.Total)
}

func TestCartUsecase_AddToCart_InvalidQuantity(t *testing.T) {
	uc, _, _ := newCartUsecase()

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 0})
	assertErrContains(t, err, "invalid quantity")
}

func TestCartUsecase_AddToCart_InactiveProduct(t *testing.T) {
	uc, _, productRepo := newCartUsecase()

	productRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, IsActive: false}, nil)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 1})
	assertErrContains(t, err, "invalid")
}

func TestCartUsecase_AddToCart_MissingProduct(t *testing.T) {
	uc, _, productRepo := newCartUsecase()

	productRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{}, repo.ErrNotFound)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 1})
	assertErrContains(t, err, "invalid")
}

// 既存数量＋追加分が在庫を超える → 400
func TestCartUsecase_AddToCart_StockExceeded(t *testing.T) {
	uc, cartRepo, productRepo := newCartUsecase()

	productRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Price: 1000, Stock: 3, IsActive: true}, nil)
	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, UserID: 1, ProductID: 100, Quantity: 2},
	}, nil)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 2})
	assertErrContains(t, err, "stock exceeded")

	cartRepo.AssertNotCalled(t, "UpsertByUserAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 追加時点の価格をスナップショットとして渡す
func TestCartUsecase_AddToCart_UpsertWithPriceSnapshot(t *testing.T) {
	uc, cartRepo, productRepo := newCartUsecase()

	productRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Name: "A", Price: 1500, Stock: 10, IsActive: true}, nil)

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{}, nil).Once()
	cartRepo.On("UpsertByUserAndProduct", mock.Anything, int64(1), int64(100), int64(2), int64(1500)).Return(nil)

	//Upsert後のカート再取得
	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, UserID: 1, ProductID: 100, Quantity: 2, UnitPriceSnapshot: 1500},
	}, nil)

	out, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 2})
	assert.NoError(t, err)
	assert.Equal(t, int64(3000), out.Total)

	cartRepo.AssertExpectations(t)
}

// 他人の明細は404（存在しない扱い）
func TestCartUsecase_UpdateCartItem_NotOwned(t *testing.T) {
	uc, cartRepo, _ := newCartUsecase()

	cartRepo.On("FindByID", mock.Anything, int64(5)).Return(model.CartItem{ID: 5, UserID: 999, ProductID: 100}, nil)

	_, err := uc.UpdateCartItem(context.Background(), 1, 5, usecase.UpdateCartItemInput{Quantity: 1})
	assertErrContains(t, err, "not found")
}

func TestCartUsecase_UpdateCartItem_StockExceeded(t *testing.T) {
	uc, cartRepo, productRepo := newCartUsecase()

	cartRepo.On("FindByID", mock.Anything, int64(5)).Return(model.CartItem{ID: 5, UserID: 1, ProductID: 100, Quantity: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Stock: 2, IsActive: true}, nil)

	_, err := uc.UpdateCartItem(context.Background(), 1, 5, usecase.UpdateCartItemInput{Quantity: 3})
	assertErrContains(t, err, "stock exceeded")
}

func TestCartUsecase_DeleteCartItem_Success(t *testing.T) {
	uc, cartRepo, _ := newCartUsecase()

	cartRepo.On("FindByID", mock.Anything, int64(5)).Return(model.CartItem{ID: 5, UserID: 1, ProductID: 100}, nil)
	cartRepo.On("DeleteByID", mock.Anything, int64(5)).Return(nil)
	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{}, nil)

	out, err := uc.DeleteCartItem(context.Background(), 1, 5)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out.Items))

	cartRepo.AssertExpectations(t)
}
