package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"causemap/application/ports"
	pkgerrors "causemap/pkg/errors"
)

// DistributedLock implements ports.DistributedLock with DynamoDB
// conditional writes. Each process instance owns its locks; a lock left
// behind by a crashed instance expires via its stored deadline and the
// table's TTL attribute.
type DistributedLock struct {
	client    *dynamodb.Client
	tableName string
	ownerID   string
	logger    *zap.Logger
}

// NewDistributedLock creates a new distributed lock instance.
func NewDistributedLock(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		ownerID:   uuid.New().String(),
		logger:    logger,
	}
}

// Acquire takes the lock for a resource, or fails if another owner
// holds an unexpired lock on it.
func (dl *DistributedLock) Acquire(ctx context.Context, resource string, ttlSeconds int) error {
	if ttlSeconds <= 0 {
		return fmt.Errorf("lock TTL must be positive")
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(ttlSeconds) * time.Second)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: "LOCK#" + resource},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"Owner":      &types.AttributeValueMemberS{Value: dl.ownerID},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(dl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := dl.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			dl.logger.Debug("Lock held elsewhere", zap.String("resource", resource))
			return pkgerrors.ErrConcurrentModification
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	dl.logger.Debug("Lock acquired",
		zap.String("resource", resource),
		zap.Int("ttlSeconds", ttlSeconds),
	)
	return nil
}

// Release frees the lock if this instance owns it. A lock already taken
// over by another owner is left alone.
func (dl *DistributedLock) Release(ctx context.Context, resource string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(dl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "LOCK#" + resource},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: dl.ownerID},
		},
	}

	if _, err := dl.client.DeleteItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			dl.logger.Warn("Lock already released or reowned",
				zap.String("resource", resource),
			)
			return nil
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}

	dl.logger.Debug("Lock released", zap.String("resource", resource))
	return nil
}
