package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE_DRIVER", "TX_MAX_RETRIES", "ORDER_CACHE_TTL", "KAFKA_BROKERS", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 3, cfg.TxMaxRetries)
	assert.Equal(t, 30*time.Second, cfg.OrderCacheTTL)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Empty(t, cfg.OtelEndpoint)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("TX_MAX_RETRIES", "7")
	t.Setenv("LOW_STOCK_THRESHOLD", "notanumber")
	t.Setenv("ORDER_CACHE_TTL", "2m")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 7, cfg.TxMaxRetries)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, 2*time.Minute, cfg.OrderCacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
}
