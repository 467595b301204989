package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumimart/checkout/internal/domain/inventory"
	"github.com/lumimart/checkout/internal/domain/order"
	"github.com/lumimart/checkout/internal/domain/payment"
)

func TestFromError_ResolvesWrappedChains(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, Code("")},
		{ErrValidation, CodeValidation},
		{fmt.Errorf("product 7: %w", order.ErrInvalidQuantity), CodeValidation},
		{payment.ErrUnknownStatus, CodeValidation},
		{fmt.Errorf("order 9: %w", order.ErrNotFound), CodeNotFound},
		{payment.ErrNotFound, CodeNotFound},
		{fmt.Errorf("product 7: %w", inventory.ErrInsufficientStock), CodeInsufficientStock},
		{order.ErrIllegalTransition, CodeIllegalTransition},
		{payment.ErrDuplicateIntent, CodeDuplicateIntent},
		{payment.ErrOrderVanished, CodeConsistencyFault},
		{payment.ErrConsistency, CodeConsistencyFault},
		{errors.New("boom"), CodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FromError(tc.err), "error %v", tc.err)
	}
}
