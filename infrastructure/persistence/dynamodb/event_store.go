package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"causemap/domain/events"
)

// EventStore implements the outbox pattern on DynamoDB. Events are
// written as pending; the relay worker publishes them to EventBridge
// and flips the status.
type EventStore struct {
	client    *dynamodb.Client
	tableName string
}

// PublishStatus is the outbox state of a stored event.
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
)

// maxPublishAttempts bounds relay retries before an event is parked as
// failed.
const maxPublishAttempts = 3

// EventRecord is the stored shape of an outbox event.
type EventRecord struct {
	PK          string                 `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK          string                 `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID     string                 `dynamodbav:"EventID"`
	EventType   string                 `dynamodbav:"EventType"`
	AggregateID string                 `dynamodbav:"AggregateID"`
	EventData   map[string]interface{} `dynamodbav:"EventData"`
	Timestamp   string                 `dynamodbav:"Timestamp"`
	Version     int                    `dynamodbav:"Version"`

	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"`
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`

	// Events expire after a year; the relay only cares about recent ones.
	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// NewEventStore creates a new DynamoDB event store.
func NewEventStore(client *dynamodb.Client, tableName string) *EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
	}
}

// SaveEvents persists domain events as pending outbox entries.
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writes := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := es.eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	for i := 0; i < len(writes); i += maxBatchWriteItems {
		end := i + maxBatchWriteItems
		if end > len(writes) {
			end = len(writes)
		}

		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{es.tableName: writes[i:end]},
		}
		result, err := es.client.BatchWriteItem(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}
		if pending := result.UnprocessedItems[es.tableName]; len(pending) > 0 {
			return fmt.Errorf("failed to write %d events", len(pending))
		}
	}
	return nil
}

// GetEvents retrieves all events for an aggregate, oldest first.
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "EVENTS#" + aggregateID},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var all []events.DomainEvent
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}

		for _, raw := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}
			event, err := es.recordToEvent(record)
			if err != nil {
				return nil, fmt.Errorf("failed to convert record to event: %w", err)
			}
			all = append(all, event)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return all, nil
}

// DeleteEvents removes all events for an aggregate.
func (es *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "EVENTS#" + aggregateID},
		},
		ProjectionExpression: aws.String("PK, SK"),
	}

	var writes []types.WriteRequest
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to query events for deletion: %w", err)
		}
		for _, raw := range result.Items {
			pk, pkOK := raw["PK"].(*types.AttributeValueMemberS)
			sk, skOK := raw["SK"].(*types.AttributeValueMemberS)
			if !pkOK || !skOK {
				continue
			}
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: pk.Value},
						"SK": &types.AttributeValueMemberS{Value: sk.Value},
					},
				},
			})
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	for i := 0; i < len(writes); i += maxBatchWriteItems {
		end := i + maxBatchWriteItems
		if end > len(writes) {
			end = len(writes)
		}
		batch := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{es.tableName: writes[i:end]},
		}
		if _, err := es.client.BatchWriteItem(ctx, batch); err != nil {
			return fmt.Errorf("failed to delete events batch: %w", err)
		}
	}
	return nil
}

// GetPendingEvents retrieves outbox entries awaiting publication.
func (es *EventStore) GetPendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	expr, err := expression.NewBuilder().
		WithFilter(expression.And(
			expression.Name("PublishStatus").Equal(expression.Value(string(PublishStatusPending))),
			expression.Name("PK").BeginsWith("EVENTS#"),
		)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pending events filter: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(es.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(limit),
	}

	result, err := es.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending events: %w", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, raw := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// MarkEventAsPublished flips an outbox entry to published.
func (es *EventStore) MarkEventAsPublished(ctx context.Context, eventPK, eventSK string) error {
	now := time.Now().Format(time.RFC3339)

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :published, PublishedAt = :publishedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published":   &types.AttributeValueMemberS{Value: string(PublishStatusPublished)},
			":publishedAt": &types.AttributeValueMemberS{Value: now},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := es.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	return nil
}

// MarkEventAsFailed records a publish failure. The entry stays pending
// until the attempt budget is exhausted, then parks as failed.
func (es *EventStore) MarkEventAsFailed(ctx context.Context, eventPK, eventSK, errorMsg string, attempts int) error {
	now := time.Now().Format(time.RFC3339)

	status := string(PublishStatusFailed)
	if attempts < maxPublishAttempts {
		status = string(PublishStatusPending)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :status, PublishAttempts = :attempts, LastPublishTry = :lastTry, ErrorMessage = :error"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: status},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
			":lastTry":  &types.AttributeValueMemberS{Value: now},
			":error":    &types.AttributeValueMemberS{Value: errorMsg},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := es.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}

func (es *EventStore) eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	eventData := make(map[string]interface{})
	if err := json.Unmarshal(eventBytes, &eventData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event to map: %w", err)
	}

	timestamp := event.GetTimestamp()
	eventID := uuid.New().String()

	return &EventRecord{
		PK:              "EVENTS#" + event.GetAggregateID(),
		SK:              fmt.Sprintf("EVENT#%s#%s", timestamp.Format(time.RFC3339Nano), eventID),
		EventID:         eventID,
		EventType:       event.GetEventType(),
		AggregateID:     event.GetAggregateID(),
		EventData:       eventData,
		Timestamp:       timestamp.Format(time.RFC3339),
		Version:         event.GetVersion(),
		PublishStatus:   string(PublishStatusPending),
		PublishAttempts: 0,
		TTL:             timestamp.Add(365 * 24 * time.Hour).Unix(),
	}, nil
}

// recordToEvent rebuilds the concrete event type from the stored data
// map. Unknown event types come back as a bare base event.
func (es *EventStore) recordToEvent(record EventRecord) (events.DomainEvent, error) {
	timestamp, err := time.Parse(time.RFC3339, record.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	base := events.BaseEvent{
		AggregateID: record.AggregateID,
		EventType:   record.EventType,
		Timestamp:   timestamp,
		Version:     record.Version,
	}

	data, err := json.Marshal(record.EventData)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode event data: %w", err)
	}

	var target events.DomainEvent
	switch record.EventType {
	case "graph.created":
		target = &events.GraphCreated{}
	case "graph.node_added":
		target = &events.NodeAdded{}
	case "graph.node_updated":
		target = &events.NodeUpdated{}
	case "graph.node_removed":
		target = &events.NodeRemoved{}
	case "graph.edge_connected":
		target = &events.EdgeConnected{}
	case "graph.edge_updated":
		target = &events.EdgeUpdated{}
	case "graph.edge_removed":
		target = &events.EdgeRemoved{}
	case "scenario.captured":
		target = &events.ScenarioCaptured{}
	case "scenario.deleted":
		target = &events.ScenarioDeleted{}
	default:
		return base, nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", record.EventType, err)
	}
	setBaseEvent(target, base)
	return target, nil
}

func setBaseEvent(event events.DomainEvent, base events.BaseEvent) {
	switch e := event.(type) {
	case *events.GraphCreated:
		e.BaseEvent = base
	case *events.NodeAdded:
		e.BaseEvent = base
	case *events.NodeUpdated:
		e.BaseEvent = base
	case *events.NodeRemoved:
		e.BaseEvent = base
	case *events.EdgeConnected:
		e.BaseEvent = base
	case *events.EdgeUpdated:
		e.BaseEvent = base
	case *events.EdgeRemoved:
		e.BaseEvent = base
	case *events.ScenarioCaptured:
		e.BaseEvent = base
	case *events.ScenarioDeleted:
		e.BaseEvent = base
	}
}
