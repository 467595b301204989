package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrEmptyOrder        = errors.New("order: at least one item is required")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount     = errors.New("order: amount must be zero or greater")
	ErrIllegalTransition = errors.New("order: illegal status transition")
	// ErrStaleStatus is returned by repositories when a conditional status
	// update lost against a concurrent transition on the same order.
	ErrStaleStatus = errors.New("order: status changed concurrently")
)

type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusShipped         Status = "shipped"
	StatusCompleted       Status = "completed"
	StatusCanceled        Status = "canceled"
	StatusClosed          Status = "closed"
)

// transitions is the full legal transition table. Closing is administrative
// and allowed from any non-terminal state; everything else is linear.
var transitions = map[Status][]Status{
	StatusAwaitingPayment: {StatusPaid, StatusCanceled, StatusClosed},
	StatusPaid:            {StatusShipped, StatusClosed},
	StatusShipped:         {StatusCompleted, StatusClosed},
	StatusCompleted:       {},
	StatusCanceled:        {},
	StatusClosed:          {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

type PaymentType int

const (
	PaymentTypeOnline PaymentType = 1
)

// Item is a single order line. Unit price and product name are captured at
// order-creation time and never recomputed from the live catalog.
type Item struct {
	OrderNo     int64
	ProductID   int64
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	TotalPrice  decimal.Decimal
}

type Order struct {
	OrderNo     int64
	UserID      int64
	ShippingID  int64
	Payment     decimal.Decimal
	PaymentType PaymentType
	Postage     decimal.Decimal
	Status      Status
	Items       []Item
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New builds an order in the initial awaiting-payment state. The payment
// amount is the sum of the captured line totals plus postage; it is computed
// here once and never derived from catalog prices again.
func New(orderNo, userID, shippingID int64, items []Item, postage decimal.Decimal) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	if postage.IsNegative() {
		return nil, ErrInvalidAmount
	}

	payment := postage
	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if items[i].UnitPrice.IsNegative() {
			return nil, ErrInvalidAmount
		}
		items[i].OrderNo = orderNo
		items[i].TotalPrice = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		payment = payment.Add(items[i].TotalPrice)
	}

	now := time.Now().UTC()
	return &Order{
		OrderNo:     orderNo,
		UserID:      userID,
		ShippingID:  shippingID,
		Payment:     payment,
		PaymentType: PaymentTypeOnline,
		Postage:     postage,
		Status:      StatusAwaitingPayment,
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Transition moves the order to the given status, rejecting anything not in
// the transition table. Repositories apply the same move conditionally; this
// method keeps the in-memory copy honest.
func (o *Order) Transition(to Status) error {
	if !CanTransition(o.Status, to) {
		return ErrIllegalTransition
	}
	o.Status = to
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
