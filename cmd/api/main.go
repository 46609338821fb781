package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/chat"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/notification"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/projection"
	"github.com/example/storefront/internal/query"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("[API] %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[API] %v", err)
	}
	if err := cfg.ValidateSecret(); err != nil {
		log.Fatalf("[API] %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Storefront - Orders, Payments and Chat")
	log.Println("[API] ========================================")
	log.Printf("[API] Event store: %s", cfg.EventStore)
	if cfg.Kafka.Enabled() {
		log.Printf("[API] Kafka: %v (events: %s, notifications: %s)", cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.NotificationTopic)
	} else {
		log.Println("[API] Kafka: disabled (inline projection and mail)")
	}

	// PostgreSQL backs the read models whenever events are not kept in memory
	var db *sql.DB
	if cfg.EventStore != config.StoreMemory {
		db, err = store.ConnectPostgres(cfg.Database.URL)
		if err != nil {
			log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()
		if err := store.Migrate(ctx, db); err != nil {
			log.Fatalf("[API] Migration failed: %v", err)
		}
		log.Println("[API] Connected to PostgreSQL")
	}
	readStore := store.OpenReadStore(db)
	projector := projection.NewProjector(readStore)

	// Events go to Kafka for cmd/projector, or straight to the projector
	var publisher store.Publisher = projector
	var notifier payment.Notifier = notification.NewMailer(email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From))
	if cfg.Kafka.Enabled() {
		if cfg.EventStore == config.StorePostgres {
			producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			defer producer.Close()
			publisher = producer
			log.Println("[API] Note: Using ASYNC projection, read model updates may have slight delay")
		}
		notifications := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		defer notifications.Close()
		notifier = notification.NewKafkaNotifier(notifications)
	}

	eventStore, err := store.OpenEventStore(ctx, store.Backend(cfg.EventStore), db, store.DynamoOptions{
		Table:  cfg.DynamoDB.Table,
		Region: cfg.DynamoDB.Region,
	}, publisher)
	if err != nil {
		log.Fatalf("[API] %v", err)
	}

	var provider payment.Provider
	if cfg.PayPal.Verifying() {
		provider = payment.NewPayPalProvider(cfg.PayPal.BaseURL, cfg.PayPal.ClientID, cfg.PayPal.Secret, &http.Client{
			Timeout: cfg.Payment.ProviderTimeout,
		})
		log.Printf("[API] PayPal verification: %s", cfg.PayPal.BaseURL)
	} else {
		log.Println("[API] PayPal verification: disabled, receipts are trusted")
	}

	orderSvc := order.NewService(eventStore, order.WithStrictPricing(cfg.Pricing.Strict))
	reconciler := payment.NewReconciler(orderSvc, provider, notifier, cfg.Payment.ProviderTimeout)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)

	cmdHandler := command.NewHandler(orderSvc, reconciler)
	queryHandler := query.NewHandler(readStore)

	chatRouter := chat.NewRouter(chat.NewRegistry())
	socket := api.NewSocketHandler(chatRouter, jwtService, cfg.Chat.AllowedOrigins)

	handlers := api.NewHandlers(cmdHandler, queryHandler, cfg.PayPal.ClientID)
	router := api.NewRouter(handlers, jwtService, socket, cfg.HTTP.WebDir)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("[API] ========================================")
		log.Printf("[API] Server started on %s", cfg.HTTP.Addr)
		log.Println("[API] Chat socket on /socket")
		log.Println("[API] ========================================")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}
}
