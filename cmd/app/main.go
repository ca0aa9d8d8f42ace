package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bag2go/bag2go/config"
	"github.com/bag2go/bag2go/internal/bootstrap"
	"github.com/bag2go/bag2go/internal/cache"
	"github.com/bag2go/bag2go/internal/kafka"
	"github.com/bag2go/bag2go/internal/notifier"
	"github.com/bag2go/bag2go/internal/payments"
	"github.com/bag2go/bag2go/internal/repository"
	"github.com/bag2go/bag2go/internal/service/fulfillment"
	"github.com/bag2go/bag2go/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrations.Apply(cfg.Database.URL()); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Orders.HistoryCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	orderRepo := repository.NewOrderRepository(pool)
	gateway := payments.NewStripeGateway(cfg.Payments.SecretKey, cfg.Payments.WebhookSecret)
	manifests := notifier.NewManifestNotifier(producer, cfg.Kafka.ManifestsTopic)

	fulfillmentService := fulfillment.NewFulfillmentService(
		orderRepo,
		gateway,
		manifests,
		cfg.HTTP.PublicDomain,
		cfg.Payments.BagPriceCents,
		cfg.Payments.Currency,
		time.Duration(cfg.Orders.DispatchLockTTLSeconds)*time.Second,
		time.Duration(cfg.Orders.DispatchTimeoutSeconds)*time.Second,
		fulfillment.WithCache(redisCache),
	)

	if err := bootstrap.Run(ctx, cfg, fulfillmentService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
