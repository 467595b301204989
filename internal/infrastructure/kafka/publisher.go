package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	domoutbox "github.com/lumimart/checkout/internal/domain/outbox"
)

// orderEventNames are the bus events forwarded onto the wire. Anything else
// stays in-process.
var orderEventNames = []string{"order.created", "order.paid", "order.canceled"}

// ParseBrokers splits a comma-separated broker list, dropping empties.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Forwarder bridges the in-process event bus onto a kafka topic so that
// downstream consumers (fulfilment, analytics) see the same order lifecycle
// the core sees. Messages are keyed by aggregate so one order's events stay
// ordered within a partition.
type Forwarder struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewForwarder(brokers []string, topic string, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		log: logger.With(zap.String("component", "kafka_forwarder")),
	}
}

// Attach subscribes the forwarder to every forwarded event name.
func (f *Forwarder) Attach(sub domoutbox.Subscriber) {
	for _, name := range orderEventNames {
		sub.Subscribe(name, f.Handle)
	}
}

type envelope struct {
	Event       string          `json:"event"`
	Key         string          `json:"key"`
	Payload     domoutbox.Event `json:"payload"`
	ForwardedAt time.Time       `json:"forwarded_at"`
}

func (f *Forwarder) Handle(ctx context.Context, e domoutbox.Event) error {
	key := e.EventName()
	if keyed, ok := e.(interface{ AggregateID() string }); ok {
		key = keyed.AggregateID()
	}

	data, err := json.Marshal(envelope{
		Event:       e.EventName(),
		Key:         key,
		Payload:     e,
		ForwardedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		f.log.Error("forward_failed",
			zap.String("event", e.EventName()),
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}
	f.log.Debug("event_forwarded", zap.String("event", e.EventName()), zap.String("key", key))
	return nil
}

func (f *Forwarder) Close() error {
	return f.writer.Close()
}
