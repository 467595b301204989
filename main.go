package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apporder "github.com/lumimart/checkout/internal/application/order"
	apppayment "github.com/lumimart/checkout/internal/application/payment"
	domcart "github.com/lumimart/checkout/internal/domain/cart"
	domcatalog "github.com/lumimart/checkout/internal/domain/catalog"
	dominventory "github.com/lumimart/checkout/internal/domain/inventory"
	domorder "github.com/lumimart/checkout/internal/domain/order"
	dompayment "github.com/lumimart/checkout/internal/domain/payment"
	"github.com/lumimart/checkout/internal/infrastructure/id"
	"github.com/lumimart/checkout/internal/infrastructure/kafka"
	"github.com/lumimart/checkout/internal/infrastructure/memory"
	"github.com/lumimart/checkout/internal/infrastructure/outbox"
	"github.com/lumimart/checkout/internal/infrastructure/postgres"
	"github.com/lumimart/checkout/internal/infrastructure/redis"
	httppresentation "github.com/lumimart/checkout/internal/presentation/http"
	"github.com/lumimart/checkout/internal/pkg/logging"
	"github.com/lumimart/checkout/internal/pkg/metrics"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "checkout")
	env := getenvDefault("ENV", "dev")

	logger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	m := metrics.New(prometheus.DefaultRegisterer, "checkout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		orderRepo   domorder.Repository
		payInfoRepo dompayment.Repository
		ledger      dominventory.Ledger
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			logger.Fatal("postgres_migrate_failed", zap.Error(err))
		}
		orderRepo = postgres.NewOrderRepository(logger, pool)
		payInfoRepo = postgres.NewPayInfoRepository(logger, pool)
		ledger = postgres.NewInventoryLedger(logger, pool)
		logger.Info("storage_backend", zap.String("kind", "postgres"))
	} else {
		memLedger := memory.NewInventoryLedger()
		orderRepo = memory.NewOrderRepository()
		payInfoRepo = memory.NewPayInfoRepository()
		ledger = memLedger
		logger.Info("storage_backend", zap.String("kind", "memory"))
	}

	catalogReader := memory.NewCatalogReader()

	var cartReader domcart.Reader
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: addr})
		defer func() { _ = rdb.Close() }()
		cartReader = redis.NewCartReader(rdb)
		logger.Info("cart_backend", zap.String("kind", "redis"))
	} else {
		cartReader = memory.NewCartReader()
		logger.Info("cart_backend", zap.String("kind", "memory"))
	}

	if os.Getenv("DATABASE_URL") == "" {
		seedDemoData(catalogReader, ledger, cartReader)
	}

	bus := outbox.NewBus(logger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	if brokers := kafka.ParseBrokers(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		topic := getenvDefault("KAFKA_TOPIC", "checkout.orders")
		forwarder := kafka.NewForwarder(brokers, topic, logger)
		forwarder.Attach(bus)
		defer func() { _ = forwarder.Close() }()
		logger.Info("kafka_forwarding_enabled", zap.Strings("brokers", brokers), zap.String("topic", topic))
	}

	postage, err := decimal.NewFromString(getenvDefault("POSTAGE", "0"))
	if err != nil {
		logger.Fatal("invalid_postage", zap.Error(err))
	}

	orderService := apporder.NewService(
		orderRepo, ledger, cartReader, catalogReader,
		id.NewOrderNumberSource(), bus, postage, logger, m,
	)
	paymentService := apppayment.NewService(payInfoRepo, orderRepo, bus, logger, m)

	expiryTTL := getenvDuration("ORDER_PAYMENT_TTL", 30*time.Minute)
	expiryInterval := getenvDuration("ORDER_EXPIRY_INTERVAL", time.Minute)
	expiryWorker := apporder.NewExpiryWorker(orderService, expiryInterval, expiryTTL, logger)
	expiryWorker.Start(context.Background())
	defer expiryWorker.Stop()

	handler := httppresentation.NewHandler(orderService, paymentService, logger, m)
	server := &http.Server{
		Addr:    getenvDefault("HTTP_ADDR", ":8080"),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

// seedDemoData loads a small catalog, stock and one pre-selected cart so the
// in-memory mode answers requests out of the box.
func seedDemoData(catalog *memory.CatalogReader, ledger dominventory.Ledger, cartReader domcart.Reader) {
	products := []domcatalog.Product{
		{ID: 26, Name: "Apple iPhone 7 Plus", Price: decimal.NewFromInt(6999), OnSale: true},
		{ID: 27, Name: "Xiaomi Mi 6", Price: decimal.NewFromInt(2499), OnSale: true},
		{ID: 28, Name: "Midea Fridge", Price: decimal.NewFromInt(1999), OnSale: true},
	}
	for _, p := range products {
		catalog.Put(p)
		if seeder, ok := ledger.(*memory.InventoryLedger); ok {
			seeder.SetStock(p.ID, 100)
		}
	}
	if mem, ok := cartReader.(*memory.CartReader); ok {
		mem.SetLine(1, domcart.Line{ProductID: 26, Quantity: 1}, true)
		mem.SetLine(1, domcart.Line{ProductID: 27, Quantity: 2}, true)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
