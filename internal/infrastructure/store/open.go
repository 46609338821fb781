package store

import (
	"context"
	"database/sql"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Backend names the event store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendDynamoDB Backend = "dynamodb"
)

// DynamoOptions locates the DynamoDB event table.
type DynamoOptions struct {
	Table  string
	Region string
}

// OpenEventStore builds the event store for backend. db is used by the
// postgres backend only. The DynamoDB backend ignores publisher: its events
// leave through the table's Kinesis stream instead.
func OpenEventStore(ctx context.Context, backend Backend, db *sql.DB, dynamo DynamoOptions, publisher Publisher) (EventStoreInterface, error) {
	switch backend {
	case BackendMemory:
		return NewEventStore(publisher), nil
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres event store needs a database connection")
		}
		return NewPostgresEventStore(db, publisher), nil
	case BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(dynamo.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return NewDynamoEventStore(dynamodb.NewFromConfig(awsCfg), dynamo.Table), nil
	default:
		return nil, fmt.Errorf("unknown event store backend %q", backend)
	}
}

// OpenReadStore returns the Postgres read store when db is set and the
// in-memory one otherwise.
func OpenReadStore(db *sql.DB) OrderReadStore {
	if db == nil {
		return NewReadStore()
	}
	return NewPostgresReadStore(db)
}
