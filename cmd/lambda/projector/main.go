package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/infrastructure/kinesis"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/projection"
)

var projector *projection.Projector

func init() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("[Lambda Projector] %v", err)
	}

	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Lambda Projector] Failed to connect to PostgreSQL: %v", err)
	}

	projector = projection.NewProjector(store.NewPostgresReadStore(db))

	log.Println("[Lambda Projector] Initialized successfully")
}

func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	log.Printf("[Lambda Projector] Received %d records", len(kinesisEvent.Records))
	return kinesis.Process(ctx, projector, kinesisEvent), nil
}

func main() {
	lambda.Start(handler)
}
