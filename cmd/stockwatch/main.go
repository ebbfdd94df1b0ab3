package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/config"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/ariefcatur/go-inventory-orders/internal/stockwatch"
	"github.com/ariefcatur/go-inventory-orders/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-stockwatch"

	log, err := logger.Init(logger.LogConfig{Level: cfg.LogLevel, Environment: cfg.AppEnv, ServiceName: name})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		ServiceName: name,
		Environment: cfg.AppEnv,
		Endpoint:    cfg.OtelEndpoint,
	})
	if err != nil {
		log.Fatal("tracing setup", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// Service
	svc := &stockwatch.Service{
		Redis:       rdb,
		Threshold:   cfg.LowStockThreshold,
		ServiceName: name,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StockwatchGroup, orders.TopicStockAdjusted, cfg.StockwatchWorkers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("stockwatch consumer started",
			zap.String("group", cfg.StockwatchGroup),
			zap.String("topic", orders.TopicStockAdjusted),
			zap.Int("workers", cfg.StockwatchWorkers),
			zap.Int("threshold", cfg.LowStockThreshold))
		if err := cons.Start(ctx, svc.HandleStockAdjusted); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	<-done

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
}
