package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumimart/checkout/internal/domain/inventory"
)

func TestInventoryLedger_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	ledger.SetStock(1, 5)

	require.NoError(t, ledger.Reserve(ctx, 1, 3))
	assert.Equal(t, 2, ledger.Stock(1))

	assert.ErrorIs(t, ledger.Reserve(ctx, 1, 3), inventory.ErrInsufficientStock)
	assert.Equal(t, 2, ledger.Stock(1), "failed reservation must not change the count")

	require.NoError(t, ledger.Release(ctx, 1, 3))
	assert.Equal(t, 5, ledger.Stock(1))
}

func TestInventoryLedger_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()

	assert.ErrorIs(t, ledger.Reserve(ctx, 42, 1), inventory.ErrNotFound)
	assert.ErrorIs(t, ledger.Release(ctx, 42, 1), inventory.ErrNotFound)
}

func TestInventoryLedger_InvalidQuantity(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	ledger.SetStock(1, 5)

	assert.ErrorIs(t, ledger.Reserve(ctx, 1, 0), inventory.ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Reserve(ctx, 1, -1), inventory.ErrInvalidQuantity)
}

// Concurrent reservations over the last unit: exactly one may win.
func TestInventoryLedger_ConcurrentReserveLastUnit(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	ledger.SetStock(1, 1)

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(ctx, 1, 1)
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 0, ledger.Stock(1))
}
