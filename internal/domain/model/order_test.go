package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
)

func TestOrderStatus_CanCancel(t *testing.T) {
	assert.True(t, model.OrderStatusPending.CanCancel())
	assert.True(t, model.OrderStatusConfirmed.CanCancel())

	assert.False(t, model.OrderStatusProcessing.CanCancel())
	assert.False(t, model.OrderStatusShipped.CanCancel())
	assert.False(t, model.OrderStatusDelivered.CanCancel())
	assert.False(t, model.OrderStatusCancelled.CanCancel())
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from model.OrderStatus
		to   model.OrderStatus
		want bool
	}{
		{model.OrderStatusPending, model.OrderStatusConfirmed, true},
		{model.OrderStatusPending, model.OrderStatusCancelled, true},
		{model.OrderStatusPending, model.OrderStatusShipped, false},
		{model.OrderStatusPending, model.OrderStatusDelivered, false},

		{model.OrderStatusConfirmed, model.OrderStatusProcessing, true},
		{model.OrderStatusConfirmed, model.OrderStatusCancelled, true},
		{model.OrderStatusConfirmed, model.OrderStatusShipped, false},

		{model.OrderStatusProcessing, model.OrderStatusShipped, true},
		{model.OrderStatusProcessing, model.OrderStatusCancelled, false},

		{model.OrderStatusShipped, model.OrderStatusDelivered, true},
		{model.OrderStatusShipped, model.OrderStatusCancelled, false},

		//終端からはどこへも動けない
		{model.OrderStatusDelivered, model.OrderStatusShipped, false},
		{model.OrderStatusCancelled, model.OrderStatusPending, false},
		{model.OrderStatusCancelled, model.OrderStatusConfirmed, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestOrderStatus_IsValid(t *testing.T) {
	assert.True(t, model.OrderStatusPending.IsValid())
	assert.True(t, model.OrderStatusDelivered.IsValid())
	assert.False(t, model.OrderStatus("PAID").IsValid())
	assert.False(t, model.OrderStatus("").IsValid())
}
