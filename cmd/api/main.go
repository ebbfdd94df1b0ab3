package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/memstore"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/ariefcatur/go-inventory-orders/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.Init(logger.LogConfig{Level: cfg.LogLevel, Environment: cfg.AppEnv, ServiceName: cfg.ServiceName})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.AppEnv,
		Endpoint:    cfg.OtelEndpoint,
	})
	if err != nil {
		log.Fatal("tracing setup", zap.Error(err))
	}

	// Store
	var store orders.Store
	switch cfg.StoreDriver {
	case "memory":
		store = memstore.New()
		log.Warn("using in-memory store, data is lost on restart")
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		store = &postgres.Store{DB: db}
	default:
		log.Fatal("unknown STORE_DRIVER", zap.String("driver", cfg.StoreDriver))
	}

	// Redis (cache + low-stock view, boleh down)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, cache misses only", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// Kafka producer
	var pub orders.Publisher
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024)
		prod.Start(ctx)
		pub = prod
	}

	// Service & handlers
	svc := &orders.Service{Store: store, Publisher: pub, ServiceName: cfg.ServiceName, MaxRetries: cfg.TxMaxRetries}
	cat := &orders.Catalog{Store: store, Publisher: pub, ServiceName: cfg.ServiceName, MaxRetries: cfg.TxMaxRetries}

	router := httpx.NewRouter(store)
	(&httpx.OrdersHandler{Service: svc, Cache: &redisx.OrderCache{Redis: rdb, TTL: cfg.OrderCacheTTL}}).Register(router)
	(&httpx.ProductsHandler{Catalog: cat, Redis: rdb}).Register(router)
	(&httpx.SuppliersHandler{Catalog: cat}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
	cancel()
}
