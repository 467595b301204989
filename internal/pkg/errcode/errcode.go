// Package errcode maps domain errors onto the stable, enumerable codes the
// API surface returns. Callers discriminate on codes, never on messages.
package errcode

import (
	"errors"

	"github.com/lumimart/checkout/internal/domain/catalog"
	"github.com/lumimart/checkout/internal/domain/inventory"
	"github.com/lumimart/checkout/internal/domain/order"
	"github.com/lumimart/checkout/internal/domain/payment"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeIllegalTransition Code = "ILLEGAL_TRANSITION"
	CodeDuplicateIntent   Code = "DUPLICATE_PAYMENT_INTENT"
	CodeConsistencyFault  Code = "CONSISTENCY_FAULT"
	CodeInternal          Code = "INTERNAL"
)

// ErrValidation is the sentinel that application-layer input validation
// wraps, so malformed input is distinguishable from stored-state errors.
var ErrValidation = errors.New("validation")

// FromError resolves an error chain to its stable code.
func FromError(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidAmount),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, payment.ErrUnknownStatus),
		errors.Is(err, payment.ErrUnknownPlatform):
		return CodeValidation
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, inventory.ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, order.ErrIllegalTransition):
		return CodeIllegalTransition
	case errors.Is(err, payment.ErrDuplicateIntent):
		return CodeDuplicateIntent
	case errors.Is(err, payment.ErrOrderVanished),
		errors.Is(err, payment.ErrConsistency):
		return CodeConsistencyFault
	default:
		return CodeInternal
	}
}
