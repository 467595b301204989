package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ComputesPaymentFromLinesAndPostage(t *testing.T) {
	items := []Item{
		{ProductID: 1, ProductName: "Phone", UnitPrice: decimal.NewFromInt(6999), Quantity: 1},
		{ProductID: 2, ProductName: "Charger", UnitPrice: decimal.NewFromInt(99), Quantity: 3},
	}

	ord, err := New(1001, 1, 7, items, decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.Equal(t, StatusAwaitingPayment, ord.Status)
	assert.True(t, ord.Payment.Equal(decimal.NewFromInt(6999+3*99+10)),
		"payment %s", ord.Payment)
	for _, it := range ord.Items {
		assert.Equal(t, int64(1001), it.OrderNo)
	}
	assert.True(t, ord.Items[1].TotalPrice.Equal(decimal.NewFromInt(297)))
}

func TestNew_RejectsBadInput(t *testing.T) {
	oneItem := []Item{{ProductID: 1, UnitPrice: decimal.NewFromInt(5), Quantity: 1}}

	_, err := New(1, 1, 1, nil, decimal.Zero)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = New(1, 1, 1, []Item{{ProductID: 1, UnitPrice: decimal.NewFromInt(5), Quantity: 0}}, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New(1, 1, 1, []Item{{ProductID: 1, UnitPrice: decimal.NewFromInt(-5), Quantity: 1}}, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = New(1, 1, 1, oneItem, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCanTransition_Table(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusAwaitingPayment, StatusPaid},
		{StatusAwaitingPayment, StatusCanceled},
		{StatusAwaitingPayment, StatusClosed},
		{StatusPaid, StatusShipped},
		{StatusPaid, StatusClosed},
		{StatusShipped, StatusCompleted},
		{StatusShipped, StatusClosed},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct{ from, to Status }{
		{StatusAwaitingPayment, StatusShipped},
		{StatusAwaitingPayment, StatusCompleted},
		{StatusPaid, StatusCanceled},
		{StatusPaid, StatusAwaitingPayment},
		{StatusShipped, StatusCanceled},
		{StatusCompleted, StatusClosed},
		{StatusCanceled, StatusPaid},
		{StatusClosed, StatusPaid},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.True(t, StatusClosed.Terminal())
	assert.False(t, StatusAwaitingPayment.Terminal())
	assert.False(t, StatusPaid.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestOrder_TransitionRejectsIllegalMove(t *testing.T) {
	ord, err := New(1, 1, 1, []Item{{ProductID: 1, UnitPrice: decimal.NewFromInt(5), Quantity: 1}}, decimal.Zero)
	require.NoError(t, err)

	assert.ErrorIs(t, ord.Transition(StatusShipped), ErrIllegalTransition)
	assert.Equal(t, StatusAwaitingPayment, ord.Status)

	require.NoError(t, ord.Transition(StatusPaid))
	require.NoError(t, ord.Transition(StatusShipped))
	require.NoError(t, ord.Transition(StatusCompleted))
	assert.ErrorIs(t, ord.Transition(StatusClosed), ErrIllegalTransition)
}

func TestOrder_CloneIsIndependent(t *testing.T) {
	ord, err := New(1, 1, 1, []Item{{ProductID: 1, UnitPrice: decimal.NewFromInt(5), Quantity: 1}}, decimal.Zero)
	require.NoError(t, err)

	clone := ord.Clone()
	clone.Items[0].Quantity = 99
	assert.Equal(t, 1, ord.Items[0].Quantity)
}
