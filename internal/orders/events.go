package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/logger"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderUpdated   = "OrderUpdated"
	EventOrderCancelled = "OrderCancelled"
	EventOrderDeleted   = "OrderDeleted"
	EventStockAdjusted  = "StockAdjusted"
)

// Reasons carried by StockAdjusted events.
const (
	ReasonOrderCreated   = "order_created"
	ReasonOrderCancelled = "order_cancelled"
	ReasonOrderDeleted   = "order_deleted"
	ReasonItemsChanged   = "items_changed"
	ReasonManual         = "manual"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "inventory-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id or product_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderEventPayload struct {
	OrderID        string      `json:"order_id"`
	SupplierID     string      `json:"supplier_id"`
	Status         Status      `json:"status"`
	PreviousStatus Status      `json:"previous_status,omitempty"`
	Items          []OrderItem `json:"items"`
	TotalCents     int64       `json:"total_cents"`
}

type StockAdjustedPayload struct {
	OrderID string        `json:"order_id,omitempty"`
	Reason  string        `json:"reason"`
	Changes []StockChange `json:"changes"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// emitter publishes events after commit. A nil Publisher drops events.
type emitter struct {
	pub      Publisher
	producer string
}

func (e emitter) emit(ctx context.Context, topic, eventType, key string, payload any) {
	if e.pub == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.FromContext(ctx).Error("encode event payload", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.producer,
		CorrelationID: key,
		Payload:       body,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	value, err := json.Marshal(env)
	if err != nil {
		logger.FromContext(ctx).Error("encode event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	e.pub.Publish(topic, PartitionKey(key), value,
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (e emitter) order(ctx context.Context, eventType string, o Order, prev Status) {
	e.emit(ctx, TopicOrderEvents, eventType, o.ID, OrderEventPayload{
		OrderID:        o.ID,
		SupplierID:     o.SupplierID,
		Status:         o.Status,
		PreviousStatus: prev,
		Items:          o.Items,
		TotalCents:     o.TotalCents,
	})
}

func (e emitter) stock(ctx context.Context, orderID, reason string, changes []StockChange) {
	if len(changes) == 0 {
		return
	}
	key := orderID
	if key == "" {
		key = changes[0].ProductID
	}
	e.emit(ctx, TopicStockAdjusted, EventStockAdjusted, key, StockAdjustedPayload{
		OrderID: orderID,
		Reason:  reason,
		Changes: changes,
	})
}
