// Package websocket pushes change notifications to canvas clients
// connected through the API Gateway WebSocket API. Connection records
// live in DynamoDB, written by the connect/disconnect Lambdas.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"causemap/application/ports"
)

// message is the envelope sent to connected clients.
type message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Notifier implements ports.ClientNotifier over the API Gateway
// Management API.
type Notifier struct {
	dynamoClient     *dynamodb.Client
	apiClient        *apigatewaymanagementapi.Client
	connectionsTable string
	logger           *zap.Logger
}

// NewNotifier creates a notifier that posts to the given WebSocket
// endpoint and resolves connections from the connections table.
func NewNotifier(
	awsCfg aws.Config,
	dynamoClient *dynamodb.Client,
	connectionsTable string,
	endpoint string,
	logger *zap.Logger,
) ports.ClientNotifier {
	apiClient := apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &Notifier{
		dynamoClient:     dynamoClient,
		apiClient:        apiClient,
		connectionsTable: connectionsTable,
		logger:           logger,
	}
}

// NotifyGraphChanged sends the structural delta of a graph change to
// every open connection the user has. Stale connections are pruned as
// they are discovered; a user with no connections is not an error.
func (n *Notifier) NotifyGraphChanged(ctx context.Context, userID string, payload interface{}) error {
	connectionIDs, err := n.connectionsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve connections: %w", err)
	}
	if len(connectionIDs) == 0 {
		return nil
	}

	body, err := json.Marshal(message{
		Type:      "graph.changed",
		Timestamp: time.Now().Unix(),
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	sent := 0
	for _, connID := range connectionIDs {
		if err := n.post(ctx, connID, body); err != nil {
			n.logger.Warn("Failed to notify connection",
				zap.String("connectionID", connID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	n.logger.Debug("Graph change notified",
		zap.String("userID", userID),
		zap.Int("connections", len(connectionIDs)),
		zap.Int("sent", sent),
	)
	return nil
}

func (n *Notifier) connectionsForUser(ctx context.Context, userID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(n.connectionsTable),
		IndexName:              aws.String("connection-id-index"),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "USER#" + userID},
		},
	}

	var connectionIDs []string
	for {
		result, err := n.dynamoClient.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, item := range result.Items {
			if connID, ok := item["ConnectionID"].(*types.AttributeValueMemberS); ok {
				connectionIDs = append(connectionIDs, connID.Value)
			}
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return connectionIDs, nil
}

func (n *Notifier) post(ctx context.Context, connectionID string, body []byte) error {
	_, err := n.apiClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         body,
	})
	if err != nil {
		var gone *apigwtypes.GoneException
		if errors.As(err, &gone) {
			n.removeStaleConnection(ctx, connectionID)
			return nil
		}
		return err
	}
	return nil
}

func (n *Notifier) removeStaleConnection(ctx context.Context, connectionID string) {
	_, err := n.dynamoClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(n.connectionsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "CONNECTION#" + connectionID},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		n.logger.Warn("Failed to remove stale connection",
			zap.String("connectionID", connectionID),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("Removed stale connection", zap.String("connectionID", connectionID))
}
