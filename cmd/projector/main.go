package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/projection"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("[Projector] %v", err)
	}
	if !cfg.Kafka.Enabled() {
		log.Fatal("[Projector] KAFKA_BROKERS is required")
	}

	log.Println("[Projector] ========================================")
	log.Println("[Projector] Storefront - Order Read Model Projector")
	log.Println("[Projector] ========================================")
	log.Printf("[Projector] Kafka: %v", cfg.Kafka.Brokers)
	log.Printf("[Projector] Topic: %s", cfg.Kafka.Topic)
	log.Printf("[Projector] Group: %s", cfg.Kafka.ConsumerGroup)

	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Projector] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	if err := store.Migrate(ctx, db); err != nil {
		log.Fatalf("[Projector] Migration failed: %v", err)
	}
	log.Println("[Projector] Connected to PostgreSQL (Read DB)")

	projector := projection.NewProjector(store.NewPostgresReadStore(db))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ConsumerGroup)
	defer consumer.Close()

	go func() {
		log.Println("[Projector] Starting event consumer...")
		if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
			log.Printf("[Projector] Consumer error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Projector] Shutting down...")
	cancel()
}
