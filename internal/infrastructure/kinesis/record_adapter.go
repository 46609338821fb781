package kinesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/storefront/internal/infrastructure/store"
)

// EventHandler consumes events decoded from the stream.
type EventHandler interface {
	Project(ctx context.Context, event store.Event) error
}

// ConvertRecord decodes a Kinesis record carrying a DynamoDB change record
// of the events table. Non-INSERT changes yield (nil, nil).
func ConvertRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	if change.EventName != "INSERT" {
		return nil, nil
	}
	return eventFromImage(change.Change.NewImage)
}

func eventFromImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	str := func(name string) string {
		if v, ok := image[name]; ok && v.DataType() == events.DataTypeString {
			return v.String()
		}
		return ""
	}

	event := &store.Event{
		ID:            str("id"),
		AggregateID:   str("aggregate_id"),
		AggregateType: str("aggregate_type"),
		EventType:     str("event_type"),
		Data:          json.RawMessage(str("data")),
	}
	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("missing required fields: id=%q, aggregate_id=%q, event_type=%q",
			event.ID, event.AggregateID, event.EventType)
	}

	if createdAt := str("created_at"); createdAt != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		event.Timestamp = t
	}

	v, ok := image["version"]
	if !ok {
		return nil, fmt.Errorf("event %s has no version", event.ID)
	}
	version, err := v.Integer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse version: %w", err)
	}
	event.Version = int(version)

	return event, nil
}

// Process hands every record of a batch to h in stream order. Processing
// stops at the first failure and that record is reported back, so Lambda
// retries the batch from there and per-order ordering is kept.
func Process(ctx context.Context, h EventHandler, batch events.KinesisEvent) events.KinesisEventResponse {
	var resp events.KinesisEventResponse

	for i, record := range batch.Records {
		event, err := ConvertRecord(record)
		if err == nil && event != nil {
			err = h.Project(ctx, *event)
		}
		if err != nil {
			log.Printf("[Kinesis] Record %s failed, %d records left for retry: %v", record.EventID, len(batch.Records)-i, err)
			resp.BatchItemFailures = []events.KinesisBatchItemFailure{
				{ItemIdentifier: record.Kinesis.SequenceNumber},
			}
			return resp
		}
	}

	log.Printf("[Kinesis] Processed %d records", len(batch.Records))
	return resp
}
