package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bag2go/bag2go/config"
	"github.com/bag2go/bag2go/internal/cache"
	"github.com/bag2go/bag2go/internal/email"
	"github.com/bag2go/bag2go/internal/kafka"
	"github.com/bag2go/bag2go/internal/notifier"
	"github.com/bag2go/bag2go/internal/payments"
	"github.com/bag2go/bag2go/internal/repository"
	"github.com/bag2go/bag2go/internal/service/fulfillment"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Orders.HistoryCacheTTLSeconds)*time.Second)

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
		fulfillment.WithRetryBatchSize(cfg.Worker.RetryBatchSize),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ManifestsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.ManifestEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode manifest event: %v", err)
				return nil
			}
			if event.Destination == "" {
				event.Destination = notifier.DestinationFor(event.AirlineCode)
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	retryTicker := time.NewTicker(time.Duration(cfg.Worker.RetrySweepMinutes) * time.Minute)
	defer retryTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-retryTicker.C:
			recovered, err := fulfillmentService.RetryFailedNotifications(ctx)
			if err != nil {
				log.Printf("retry failed notifications: %v", err)
				continue
			}
			if len(recovered) > 0 {
				log.Printf("recovered %d orders to NOTIFIED", len(recovered))
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
