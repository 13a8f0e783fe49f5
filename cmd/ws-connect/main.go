// Package main implements the WebSocket connect Lambda. It
// authenticates the canvas client and registers the connection so
// graph change deltas can be pushed to it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"causemap/pkg/auth"
)

var (
	dynamoClient *dynamodb.Client
	validator    *auth.JWTValidator
)

// Connection is the stored shape of a live canvas connection.
type Connection struct {
	ConnectionID string
	UserID       string
	ConnectedAt  time.Time
	Endpoint     string
	TTL          int64
}

func init() {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	dynamoClient = dynamodb.NewFromConfig(cfg)

	validator, err = auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: os.Getenv("JWT_SECRET"),
		Issuer:    os.Getenv("JWT_ISSUER"),
	})
	if err != nil {
		log.Fatalf("Failed to create token validator: %v", err)
	}

	log.Println("WebSocket connect handler initialized")
}

func connectionsTable() string {
	if table := os.Getenv("CONNECTIONS_TABLE"); table != "" {
		return table
	}
	return "causemap-connections"
}

// storeConnection saves the connection record, keyed for both direct
// lookup and the per-user GSI the notifier queries.
func storeConnection(ctx context.Context, conn Connection) error {
	conn.TTL = time.Now().Add(24 * time.Hour).Unix()

	item := map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", conn.ConnectionID)},
		"SK":           &types.AttributeValueMemberS{Value: "METADATA"},
		"ConnectionID": &types.AttributeValueMemberS{Value: conn.ConnectionID},
		"UserID":       &types.AttributeValueMemberS{Value: conn.UserID},
		"GSI1PK":       &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", conn.UserID)},
		"GSI1SK":       &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", conn.ConnectionID)},
		"ConnectedAt":  &types.AttributeValueMemberS{Value: conn.ConnectedAt.Format(time.RFC3339)},
		"Endpoint":     &types.AttributeValueMemberS{Value: conn.Endpoint},
		"TTL":          &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", conn.TTL)},
	}

	_, err := dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(connectionsTable()),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store connection: %w", err)
	}

	log.Printf("Stored connection %s for user %s", conn.ConnectionID, conn.UserID)
	return nil
}

// handler authenticates and registers a WebSocket connection. The
// token arrives as a query parameter because browsers cannot set
// headers on WebSocket upgrades.
func handler(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	token := request.QueryStringParameters["token"]
	if token == "" {
		token = request.Headers["Authorization"]
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		log.Printf("Authentication failed for connection %s: %v", request.RequestContext.ConnectionID, err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusUnauthorized,
			Body:       `{"error": "unauthorized"}`,
		}, nil
	}

	connection := Connection{
		ConnectionID: request.RequestContext.ConnectionID,
		UserID:       claims.UserID,
		ConnectedAt:  time.Now(),
		Endpoint:     fmt.Sprintf("%s/%s", request.RequestContext.DomainName, request.RequestContext.Stage),
	}

	if err := storeConnection(ctx, connection); err != nil {
		log.Printf("Failed to store connection: %v", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error": "internal server error"}`,
		}, nil
	}

	welcome, _ := json.Marshal(map[string]interface{}{
		"type":         "connection_established",
		"connectionId": connection.ConnectionID,
		"userId":       claims.UserID,
		"timestamp":    time.Now().Unix(),
	})

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(welcome),
	}, nil
}

func main() {
	lambda.Start(handler)
}
