package service

import (
	"context"
	"testing"
	"time"

	"github.com/quochiep16/mini-e/internal/dto"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) codOrder(w *world) model.OrderRef {
	f.t.Helper()
	f.seed.Line(buyerID, w.book, nil, "100000", 1)
	resp, err := f.checkout.Checkout(context.Background(), buyerID, &dto.CheckoutRequest{PaymentMethod: model.PaymentMethodCOD}, "")
	require.NoError(f.t, err)
	return resp.Orders[0]
}

func TestListMine_PagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	w := f.world()
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	var refs []model.OrderRef
	for i := 0; i < 3; i++ {
		ref := f.codOrder(w)
		require.NoError(t, f.db.Model(&model.Order{}).Where("id = ?", ref.OrderID).
			Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
		refs = append(refs, ref)
	}

	page, err := f.orders.ListMine(ctx, buyerID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, refs[2].OrderID, page.Items[0].ID)

	page, err = f.orders.ListMine(ctx, buyerID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, refs[0].OrderID, page.Items[0].ID)

	page, err = f.orders.ListMine(ctx, buyerID, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageLimit, page.Limit)

	empty, err := f.orders.ListMine(ctx, 42, 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Zero(t, empty.Total)
}

func TestGetMine_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	w := f.world()
	ref := f.codOrder(w)

	_, err := f.orders.GetMine(context.Background(), 2, ref.OrderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = f.orders.GetMine(context.Background(), buyerID, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateShopShipping(t *testing.T) {
	f := newFixture(t)
	w := f.world()
	ctx := context.Background()
	owner := w.shopA.OwnerUserID
	ref := f.codOrder(w)

	_, err := f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot skip transit")

	_, err = f.orders.UpdateShopShipping(ctx, w.shopB.OwnerUserID, ref.OrderID, model.ShippingStatusInTransit)
	assert.ErrorIs(t, err, ErrOrderNotFound, "other shops cannot see the order")

	_, err = f.orders.UpdateShopShipping(ctx, 999, ref.OrderID, model.ShippingStatusInTransit)
	assert.ErrorIs(t, err, ErrShopNotFound)

	order, err := f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, model.ShippingStatusInTransit, order.ShippingStatus)
	assert.Equal(t, model.OrderStatusShipped, order.Status)

	order, err = f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusInTransit)
	require.NoError(t, err, "same status is a no-op")
	assert.Equal(t, model.OrderStatusShipped, order.Status)

	order, err = f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.ShippingStatusDelivered, order.ShippingStatus)

	_, err = f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusCanceled)
	assert.ErrorIs(t, err, ErrInvalidTransition, "delivered is final for the shop")
}

func TestUpdateShopShipping_CancelFinishesOrder(t *testing.T) {
	f := newFixture(t)
	w := f.world()
	ctx := context.Background()
	owner := w.shopA.OwnerUserID
	ref := f.codOrder(w)

	order, err := f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)

	_, err = f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusCanceled)
	assert.ErrorIs(t, err, ErrInvalidTransition, "finished orders reject updates")

	stored, err := f.orders.GetMine(ctx, buyerID, ref.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, stored.Status)
	assert.Equal(t, model.ShippingStatusCanceled, stored.ShippingStatus)
}

func TestConfirmReceived(t *testing.T) {
	f := newFixture(t)
	w := f.world()
	ctx := context.Background()
	owner := w.shopA.OwnerUserID
	ref := f.codOrder(w)

	_, err := f.orders.ConfirmReceived(ctx, buyerID, ref.OrderID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "not delivered yet")

	_, err = f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusInTransit)
	require.NoError(t, err)
	_, err = f.orders.UpdateShopShipping(ctx, owner, ref.OrderID, model.ShippingStatusDelivered)
	require.NoError(t, err)

	_, err = f.orders.ConfirmReceived(ctx, 2, ref.OrderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	order, err := f.orders.ConfirmReceived(ctx, buyerID, ref.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, order.Status)
	assert.Equal(t, model.PaymentStatusPaid, order.PaymentStatus, "cash was collected on delivery")

	_, err = f.orders.ConfirmReceived(ctx, buyerID, ref.OrderID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.orders.GetMine(ctx, buyerID, ref.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, stored.Status)
	assert.Equal(t, model.PaymentStatusPaid, stored.PaymentStatus)
}

func TestCanMoveShipping(t *testing.T) {
	cases := []struct {
		from, to model.ShippingStatus
		ok       bool
	}{
		{model.ShippingStatusPending, model.ShippingStatusInTransit, true},
		{model.ShippingStatusPending, model.ShippingStatusCanceled, true},
		{model.ShippingStatusPicked, model.ShippingStatusInTransit, true},
		{model.ShippingStatusInTransit, model.ShippingStatusDelivered, true},
		{model.ShippingStatusInTransit, model.ShippingStatusCanceled, true},
		{model.ShippingStatusPending, model.ShippingStatusDelivered, false},
		{model.ShippingStatusDelivered, model.ShippingStatusCanceled, false},
		{model.ShippingStatusCanceled, model.ShippingStatusInTransit, false},
		{model.ShippingStatusReturned, model.ShippingStatusPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, canMoveShipping(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}
