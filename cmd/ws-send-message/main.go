// Package main implements the WebSocket fan-out Lambda. Domain events
// routed from the bus are pushed to the owning user's open canvases.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	dynamoClient *dynamodb.Client
	apiClient    *apigatewaymanagementapi.Client
)

// wsMessage is the envelope pushed to canvas clients.
type wsMessage struct {
	Type      string                 `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func init() {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	dynamoClient = dynamodb.NewFromConfig(cfg)

	endpoint := os.Getenv("WEBSOCKET_ENDPOINT")
	if endpoint == "" {
		log.Fatal("WEBSOCKET_ENDPOINT is required")
	}
	apiClient = apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	log.Println("WebSocket send-message handler initialized")
}

func connectionsTable() string {
	if table := os.Getenv("CONNECTIONS_TABLE"); table != "" {
		return table
	}
	return "causemap-connections"
}

// connectionsForUser resolves the user's open connections via the user
// GSI.
func connectionsForUser(ctx context.Context, userID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(connectionsTable()),
		IndexName:              aws.String("connection-id-index"),
		KeyConditionExpression: aws.String("GSI1PK = :userpk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userpk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
		},
	}

	var connectionIDs []string
	paginator := dynamodb.NewQueryPaginator(dynamoClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query connections: %w", err)
		}
		for _, item := range page.Items {
			if connID, ok := item["ConnectionID"].(*types.AttributeValueMemberS); ok {
				connectionIDs = append(connectionIDs, connID.Value)
			}
		}
	}
	return connectionIDs, nil
}

// post sends one payload to one connection, pruning it if the client
// is gone.
func post(ctx context.Context, connectionID string, payload []byte) error {
	_, err := apiClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err != nil {
		var gone *apigwtypes.GoneException
		if errors.As(err, &gone) {
			removeStaleConnection(ctx, connectionID)
			return nil
		}
		return fmt.Errorf("failed to post to connection: %w", err)
	}
	return nil
}

func removeStaleConnection(ctx context.Context, connectionID string) {
	_, err := dynamoClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(connectionsTable()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", connectionID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		log.Printf("Failed to remove stale connection %s: %v", connectionID, err)
		return
	}
	log.Printf("Removed stale connection %s", connectionID)
}

// fanOut pushes a domain event to every connection of the target user.
func fanOut(ctx context.Context, eventType, userID string, detail map[string]interface{}) error {
	connectionIDs, err := connectionsForUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(connectionIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(wsMessage{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      detail,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sent := 0
	for _, connID := range connectionIDs {
		if err := post(ctx, connID, payload); err != nil {
			log.Printf("Failed to send to connection %s: %v", connID, err)
			continue
		}
		sent++
	}

	log.Printf("Fanned out %s to %d/%d connections for user %s", eventType, sent, len(connectionIDs), userID)
	return nil
}

// handler receives domain events from the bus rule and routes them to
// the event's user. Events without a user id are dropped; there is no
// cross-user broadcast in this system.
func handler(ctx context.Context, busEvent events.CloudWatchEvent) error {
	var detail map[string]interface{}
	if err := json.Unmarshal(busEvent.Detail, &detail); err != nil {
		return fmt.Errorf("failed to parse event detail: %w", err)
	}

	userID, _ := detail["user_id"].(string)
	if userID == "" {
		log.Printf("Dropping %s event without user id", busEvent.DetailType)
		return nil
	}

	return fanOut(ctx, busEvent.DetailType, userID, detail)
}

func main() {
	lambda.Start(handler)
}
