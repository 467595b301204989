package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domoutbox "github.com/lumimart/checkout/internal/domain/outbox"
)

type stubEvent struct{ name string }

func (e stubEvent) EventName() string { return e.name }

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	got := make(chan domoutbox.Event, 1)
	bus.Subscribe("order.created", func(ctx context.Context, e domoutbox.Event) error {
		got <- e
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), stubEvent{name: "order.created"}))

	select {
	case e := <-got:
		assert.Equal(t, "order.created", e.EventName())
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestBus_UnsubscribedEventIsDropped(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(context.Background(), stubEvent{name: "order.unknown"}))
}

func TestBus_PanickingHandlerDoesNotStopDispatch(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	got := make(chan struct{}, 2)
	bus.Subscribe("order.paid", func(ctx context.Context, e domoutbox.Event) error {
		panic("boom")
	})
	bus.Subscribe("order.paid", func(ctx context.Context, e domoutbox.Event) error {
		got <- struct{}{}
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), stubEvent{name: "order.paid"}))
	require.NoError(t, bus.Publish(context.Background(), stubEvent{name: "order.paid"}))

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(time.Second):
			t.Fatal("dispatch stopped after panic")
		}
	}
}
