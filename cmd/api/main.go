package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rafal-store/rafal-backend/api/routes"
	"github.com/rafal-store/rafal-backend/internal/cart"
	"github.com/rafal-store/rafal-backend/internal/catalog"
	"github.com/rafal-store/rafal-backend/internal/checkout"
	"github.com/rafal-store/rafal-backend/internal/orders"
	"github.com/rafal-store/rafal-backend/internal/payments"
	"github.com/rafal-store/rafal-backend/internal/providers"
	"github.com/rafal-store/rafal-backend/internal/providers/aman"
	"github.com/rafal-store/rafal-backend/internal/providers/fawry"
	"github.com/rafal-store/rafal-backend/internal/providers/paymob"
	"github.com/rafal-store/rafal-backend/internal/users"
	"github.com/rafal-store/rafal-backend/internal/webhooks"
	"github.com/rafal-store/rafal-backend/pkg/auth/session"
	"github.com/rafal-store/rafal-backend/pkg/config"
	"github.com/rafal-store/rafal-backend/pkg/db"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	"github.com/rafal-store/rafal-backend/pkg/logger"
	"github.com/rafal-store/rafal-backend/pkg/metrics"
	"github.com/rafal-store/rafal-backend/pkg/migrate"
	"github.com/rafal-store/rafal-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(
		users.NewRepository(dbClient.DB()),
		dbClient,
		sessionManager,
		cartService,
		cfg.JWT,
		cfg.Password,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	feePolicy, err := feePolicyFromConfig(cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "invalid delivery fee config", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(
		checkout.NewRepository(dbClient.DB()),
		cart.NewRepository(dbClient.DB()),
		dbClient,
		feePolicy,
		cfg.Checkout.Currency,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	adapters, err := buildAdapters(cfg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment adapters", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		dbClient,
		adapters,
		cfg.Checkout.Currency,
		paymentMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	webhookService, err := webhooks.NewService(
		webhooks.NewRepository(dbClient.DB()),
		paymentService,
		webhooks.Secrets{
			PaymobHMAC: cfg.Paymob.HMACSecret,
			Fawry:      cfg.Fawry.SecretKey,
			Aman:       cfg.Aman.SecretKey,
		},
		logg,
		paymentMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Sessions: sessionManager,
			Users:    userService,
			Catalog:  catalogService,
			Cart:     cartService,
			Checkout: checkoutService,
			Orders:   orderService,
			Payments: paymentService,
			Webhooks: webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func feePolicyFromConfig(cfg config.CheckoutConfig) (checkout.FeePolicy, error) {
	fee, err := cfg.DeliveryFeeAmount()
	if err != nil {
		return checkout.FeePolicy{}, err
	}
	threshold, err := cfg.FreeDeliveryThresholdAmount()
	if err != nil {
		return checkout.FeePolicy{}, err
	}
	return checkout.FeePolicy{Fee: fee, FreeThreshold: threshold}, nil
}

// buildAdapters wires one gateway client per configured provider. A provider
// missing its credentials is left out; initiating against it then fails with
// a validation error instead of a broken upstream call.
func buildAdapters(cfg *config.Config) (map[enums.PaymentProvider]providers.Adapter, error) {
	adapters := map[enums.PaymentProvider]providers.Adapter{}

	if cfg.Paymob.APIKey != "" {
		client, err := paymob.NewClient(cfg.Paymob, nil)
		if err != nil {
			return nil, err
		}
		adapters[enums.PaymentProviderPaymob] = client
	}
	if cfg.Fawry.MerchantCode != "" {
		client, err := fawry.NewClient(cfg.Fawry, nil)
		if err != nil {
			return nil, err
		}
		adapters[enums.PaymentProviderFawry] = client
	}
	if cfg.Aman.MerchantID != "" {
		client, err := aman.NewClient(cfg.Aman, nil)
		if err != nil {
			return nil, err
		}
		adapters[enums.PaymentProviderAman] = client
	}
	return adapters, nil
}
