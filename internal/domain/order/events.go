package order

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted after an order and its items are persisted.
type OrderCreatedEvent struct {
	EventID    string
	OrderNo    int64
	UserID     int64
	Payment    decimal.Decimal
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func (e OrderCreatedEvent) AggregateID() string { return strconv.FormatInt(e.OrderNo, 10) }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		EventID:    uuid.NewString(),
		OrderNo:    o.OrderNo,
		UserID:     o.UserID,
		Payment:    o.Payment,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCanceledEvent is emitted when a cancel (user- or expiry-driven) wins
// the status transition. Stock for the order's lines has been released by
// the time it is published.
type OrderCanceledEvent struct {
	EventID    string
	OrderNo    int64
	UserID     int64
	Reason     string
	OccurredAt time.Time
}

func (OrderCanceledEvent) EventName() string { return "order.canceled" }

func (e OrderCanceledEvent) AggregateID() string { return strconv.FormatInt(e.OrderNo, 10) }

func NewOrderCanceledEvent(o *Order, reason string) OrderCanceledEvent {
	return OrderCanceledEvent{
		EventID:    uuid.NewString(),
		OrderNo:    o.OrderNo,
		UserID:     o.UserID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted when a payment notification moves the order to
// paid.
type OrderPaidEvent struct {
	EventID    string
	OrderNo    int64
	UserID     int64
	PayAmount  decimal.Decimal
	OccurredAt time.Time
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func (e OrderPaidEvent) AggregateID() string { return strconv.FormatInt(e.OrderNo, 10) }

func NewOrderPaidEvent(o *Order, payAmount decimal.Decimal) OrderPaidEvent {
	return OrderPaidEvent{
		EventID:    uuid.NewString(),
		OrderNo:    o.OrderNo,
		UserID:     o.UserID,
		PayAmount:  payAmount,
		OccurredAt: time.Now().UTC(),
	}
}
