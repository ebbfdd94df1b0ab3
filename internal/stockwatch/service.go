package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
)

// Service keeps the Redis stock snapshot current from StockAdjusted events
// and flags products that fall to the low-stock threshold.
type Service struct {
	Redis       redis.Cmdable
	Threshold   int
	ServiceName string
}

// HandleStockAdjusted: dipasang sebagai handler consumer.
func (s *Service) HandleStockAdjusted(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != orders.EventStockAdjusted {
		return nil
	} // ignore

	// 2) dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	seen, err := redisx.Exists(ctx, s.Redis, dkey)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[orders.StockAdjustedPayload](env.Payload)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx).With(
		zap.String("event_id", env.EventID),
		zap.String("reason", p.Reason),
		zap.String("trace_id", env.TraceID),
	)
	// partisi per order, jadi event produk yang sama bisa datang tidak urut;
	// versi ledger yang menentukan
	for _, c := range p.Changes {
		low, applied, err := redisx.RecordStock(ctx, s.Redis, c.ProductID, c.Stock, c.Version, s.Threshold)
		if err != nil {
			return fmt.Errorf("record stock %s: %w", c.ProductID, err)
		}
		if !applied {
			log.Debug("stale stock change skipped",
				zap.String("product_id", c.ProductID), zap.Int64("version", c.Version))
			continue
		}
		if low {
			metrics.LowStockAlerts.Inc()
			log.Warn("low stock",
				zap.String("product_id", c.ProductID),
				zap.Int("stock", c.Stock),
				zap.Int("threshold", s.Threshold))
		}
	}

	// tandai sukses setelah snapshot tersimpan
	_, err = redisx.Claim(ctx, s.Redis, dkey, redisx.TTLDedup)
	return err
}
