package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	billingapp "github.com/shopvn-labs/commerce-core/internal/application/billing"
	cartapp "github.com/shopvn-labs/commerce-core/internal/application/cart"
	inventoryapp "github.com/shopvn-labs/commerce-core/internal/application/inventory"
	orderapp "github.com/shopvn-labs/commerce-core/internal/application/order"
	"github.com/shopvn-labs/commerce-core/internal/config"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/gateway"
	httptransport "github.com/shopvn-labs/commerce-core/internal/infrastructure/http"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/id"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/memory"
	telemetry "github.com/shopvn-labs/commerce-core/internal/infrastructure/observability"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/observability/oteltrace"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/observability/prometrics"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/observability/zaplogger"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/outbox"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/redisx"
	"github.com/shopvn-labs/commerce-core/internal/observability"
	"github.com/shopvn-labs/commerce-core/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := logging.MustNewLogger(cfg.Service.Name, cfg.Service.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	counters, histograms := prometrics.Instruments(prometrics.New("commerce", ""))
	tel := telemetry.New(
		oteltrace.New(cfg.Service.Name),
		zaplogger.Wrap(baseLogger),
		counters,
		histograms,
	)
	log := tel.Logger()

	// Repositories.
	inventoryRepo := memory.NewInventoryRepository()
	cartRepo := memory.NewCartRepository()
	orderRepo := memory.NewOrderRepository()
	txnRepo := memory.NewTransactionRepository()

	var dedup billingapp.DedupStore = memory.NewDedupStore()
	if cfg.Redis.Addr != "" {
		dedup = redisx.NewDedupStore(redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}))
	}

	// Event bus ties the contexts together in process.
	bus := outbox.NewBus(tel)
	defer bus.Close()

	ids := id.NewUUIDGenerator()

	inventoryService := inventoryapp.NewService(inventoryRepo, bus, tel, inventoryapp.Config{
		DefaultWarehouse:  cfg.Inventory.DefaultWarehouse,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
	})
	cartService := cartapp.NewService(cartRepo, inventoryService, ids, tel, cartapp.Config{
		GuestTTL: cfg.Cart.GuestTTL,
	})
	orderService := orderapp.NewService(orderRepo, cartService, txnRepo, ids, bus, tel, orderapp.Config{
		Currency:    cfg.Checkout.Currency,
		ShippingFee: cfg.Checkout.ShippingFee,
	})
	billingService := billingapp.NewService(
		txnRepo,
		orderRepo,
		gateway.All(cfg.Gateways.VNPaySecret, cfg.Gateways.MoMoSecret, cfg.Gateways.StripeSecret),
		dedup,
		bus,
		tel,
	)

	// Workers subscribe before any request can publish.
	inventoryapp.NewWorker(inventoryService, tel).Register(bus)
	orderapp.NewWorker(orderService, tel).Register(bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepGuestCarts(ctx, cartService, cfg.Cart.SweepInterval, log)

	handler := httptransport.NewHandler(inventoryService, cartService, orderService, billingService)
	router := httptransport.NewRouter(handler, tel, promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("http_server_start", observability.F("addr", cfg.Server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

func sweepGuestCarts(ctx context.Context, carts *cartapp.Service, interval time.Duration, log observability.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := carts.ExpireGuestCarts(ctx)
			if err != nil {
				log.Error("guest_cart_sweep_failed", observability.Err(err))
				continue
			}
			if n > 0 {
				log.Info("guest_carts_expired", observability.F("count", n))
			}
		}
	}
}
