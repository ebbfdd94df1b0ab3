package stockwatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
)

func newService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Service{Redis: rdb, Threshold: 5, ServiceName: "stockwatch"}, mr
}

func stockMessage(eventID string, changes ...orders.StockChange) kafkago.Message {
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    orders.EventStockAdjusted,
		EventVersion: 1,
		Payload: kafkax.MustMarshal(orders.StockAdjustedPayload{
			OrderID: "o-1",
			Reason:  orders.ReasonOrderCreated,
			Changes: changes,
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleStockAdjusted_TracksLowStock(t *testing.T) {
	s, mr := newService(t)
	ctx := context.Background()

	msg := stockMessage(uuid.NewString(),
		orders.StockChange{ProductID: "p-1", Delta: -8, Stock: 2, Version: 1},
		orders.StockChange{ProductID: "p-2", Delta: -1, Stock: 40, Version: 1},
	)
	require.NoError(t, s.HandleStockAdjusted(ctx, msg))

	low, err := redisx.LowStock(ctx, s.Redis)
	require.NoError(t, err)
	assert.Equal(t, []redisx.StockLevel{{ProductID: "p-1", Stock: 2}}, low)
	assert.Equal(t, "40", mr.HGet(redisx.KeyStockLevels, "p-2"))

	// restock moves p-1 back above threshold
	require.NoError(t, s.HandleStockAdjusted(ctx, stockMessage(uuid.NewString(),
		orders.StockChange{ProductID: "p-1", Delta: 8, Stock: 10, Version: 2})))
	low, err = redisx.LowStock(ctx, s.Redis)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestHandleStockAdjusted_DedupByEventID(t *testing.T) {
	s, mr := newService(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, s.HandleStockAdjusted(ctx, stockMessage(id,
		orders.StockChange{ProductID: "p-1", Delta: -1, Stock: 9, Version: 1})))
	assert.True(t, mr.Exists(fmt.Sprintf(redisx.KeyDedup, "stockwatch", id)))

	// a redelivery carrying a stale level must not overwrite the snapshot
	mr.HSet(redisx.KeyStockLevels, "p-1", "7")
	require.NoError(t, s.HandleStockAdjusted(ctx, stockMessage(id,
		orders.StockChange{ProductID: "p-1", Delta: -1, Stock: 9, Version: 1})))
	assert.Equal(t, "7", mr.HGet(redisx.KeyStockLevels, "p-1"))
}

func TestHandleStockAdjusted_IgnoresOtherEvents(t *testing.T) {
	s, mr := newService(t)
	env := orders.Envelope{EventID: uuid.NewString(), EventType: orders.EventOrderCreated}
	require.NoError(t, s.HandleStockAdjusted(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)}))
	assert.False(t, mr.Exists(redisx.KeyStockLevels))
}

func TestHandleStockAdjusted_BadEnvelope(t *testing.T) {
	s, _ := newService(t)
	err := s.HandleStockAdjusted(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestHandleStockAdjusted_OutOfOrderChangesKeepNewestLevel(t *testing.T) {
	s, mr := newService(t)
	ctx := context.Background()

	// two orders on different partitions: the later deduction (version 2,
	// stock 1) is handled before the earlier one (version 1, stock 6)
	require.NoError(t, s.HandleStockAdjusted(ctx, stockMessage(uuid.NewString(),
		orders.StockChange{ProductID: "p-1", Delta: -5, Stock: 1, Version: 2})))
	require.NoError(t, s.HandleStockAdjusted(ctx, stockMessage(uuid.NewString(),
		orders.StockChange{ProductID: "p-1", Delta: -4, Stock: 6, Version: 1})))

	assert.Equal(t, "1", mr.HGet(redisx.KeyStockLevels, "p-1"))
	low, err := redisx.LowStock(ctx, s.Redis)
	require.NoError(t, err)
	assert.Equal(t, []redisx.StockLevel{{ProductID: "p-1", Stock: 1}}, low)
}
