package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"causemap/application/ports"
	"causemap/domain/core/valueobjects"
	"causemap/domain/scenario"
	"causemap/infrastructure/persistence/schema"
	pkgerrors "causemap/pkg/errors"
)

// ScenarioRepository implements ports.ScenarioRepository on DynamoDB.
// Each scenario is one item:
//
//	PK=SCENARIO#<scenarioID>  SK=METADATA
//
// GSI2 maps GRAPH#<graphID> to its scenarios with the capture time in
// the sort key, so listings come back newest first without a sort.
// The frozen node and edge records are stored as JSON blobs; they are
// only ever read back whole.
type ScenarioRepository struct {
	client    *dynamodb.Client
	tableName string
	evolution *schema.Evolution
	logger    *zap.Logger
}

// NewScenarioRepository creates a new ScenarioRepository.
func NewScenarioRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.ScenarioRepository {
	return &ScenarioRepository{
		client:    client,
		tableName: tableName,
		evolution: schema.NewEvolution(scenario.CurrentSchemaVersion),
		logger:    logger,
	}
}

type scenarioItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	GSI2PK        string `dynamodbav:"GSI2PK"`
	GSI2SK        string `dynamodbav:"GSI2SK"`
	EntityType    string `dynamodbav:"EntityType"`
	ScenarioID    string `dynamodbav:"ScenarioID"`
	GraphID       string `dynamodbav:"GraphID"`
	Name          string `dynamodbav:"Name"`
	Description   string `dynamodbav:"Description,omitempty"`
	Nodes         string `dynamodbav:"Nodes"`
	Edges         string `dynamodbav:"Edges"`
	SchemaVersion int    `dynamodbav:"SchemaVersion"`
	Checksum      string `dynamodbav:"Checksum"`
	CreatedAt     string `dynamodbav:"CreatedAt"`
	CreatedBy     string `dynamodbav:"CreatedBy"`
}

// Save persists a scenario. Scenarios are immutable, so the write is
// conditional on the item not existing.
func (r *ScenarioRepository) Save(ctx context.Context, s *scenario.Scenario) error {
	nodesJSON, err := json.Marshal(s.Nodes())
	if err != nil {
		return fmt.Errorf("failed to marshal scenario nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(s.Edges())
	if err != nil {
		return fmt.Errorf("failed to marshal scenario edges: %w", err)
	}

	item := scenarioItem{
		PK:            "SCENARIO#" + s.ID().String(),
		SK:            "METADATA",
		GSI2PK:        "GRAPH#" + s.GraphID().String(),
		GSI2SK:        fmt.Sprintf("SCENARIO#%s#%s", s.CreatedAt().UTC().Format(time.RFC3339Nano), s.ID().String()),
		EntityType:    "SCENARIO",
		ScenarioID:    s.ID().String(),
		GraphID:       s.GraphID().String(),
		Name:          s.Name(),
		Description:   s.Description(),
		Nodes:         string(nodesJSON),
		Edges:         string(edgesJSON),
		SchemaVersion: s.SchemaVersion(),
		Checksum:      s.Checksum(),
		CreatedAt:     s.CreatedAt().UTC().Format(time.RFC3339Nano),
		CreatedBy:     s.CreatedBy(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to save scenario: %w", err)
	}

	r.logger.Debug("Scenario saved",
		zap.String("scenarioID", s.ID().String()),
		zap.String("graphID", s.GraphID().String()),
		zap.String("checksum", s.Checksum()),
	)
	return nil
}

// GetByID retrieves a scenario with its frozen snapshot.
func (r *ScenarioRepository) GetByID(ctx context.Context, id valueobjects.ScenarioID) (*scenario.Scenario, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "SCENARIO#" + id.String()},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.ErrScenarioNotFound
	}

	var item scenarioItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	return r.thaw(item)
}

// ListByGraphID retrieves a graph's scenarios, newest first.
func (r *ScenarioRepository) ListByGraphID(ctx context.Context, graphID valueobjects.GraphID) ([]*scenario.Scenario, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("GSI2"),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND begins_with(GSI2SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "GRAPH#" + graphID.String()},
			":sk": &types.AttributeValueMemberS{Value: "SCENARIO#"},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var scenarios []*scenario.Scenario
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query scenarios: %w", err)
		}

		for _, raw := range result.Items {
			var item scenarioItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal scenario item", zap.Error(err))
				continue
			}
			s, err := r.thaw(item)
			if err != nil {
				r.logger.Warn("Skipping unreadable scenario",
					zap.String("scenarioID", item.ScenarioID),
					zap.Error(err),
				)
				continue
			}
			scenarios = append(scenarios, s)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return scenarios, nil
}

// CountByGraphID returns how many scenarios a graph has.
func (r *ScenarioRepository) CountByGraphID(ctx context.Context, graphID valueobjects.GraphID) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("GSI2"),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND begins_with(GSI2SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "GRAPH#" + graphID.String()},
			":sk": &types.AttributeValueMemberS{Value: "SCENARIO#"},
		},
		Select: types.SelectCount,
	}

	total := 0
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("failed to count scenarios: %w", err)
		}
		total += int(result.Count)
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return total, nil
}

// Delete removes a scenario.
func (r *ScenarioRepository) Delete(ctx context.Context, id valueobjects.ScenarioID) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "SCENARIO#" + id.String()},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	}
	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}

	r.logger.Debug("Scenario deleted", zap.String("scenarioID", id.String()))
	return nil
}

func (r *ScenarioRepository) thaw(item scenarioItem) (*scenario.Scenario, error) {
	id, err := valueobjects.NewScenarioIDFromString(item.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("stored scenario has invalid id %q: %w", item.ScenarioID, err)
	}
	graphID, err := valueobjects.NewGraphIDFromString(item.GraphID)
	if err != nil {
		return nil, fmt.Errorf("stored scenario has invalid graph id %q: %w", item.GraphID, err)
	}

	snap, err := r.evolution.Upgrade(schema.Snapshot{
		Version: item.SchemaVersion,
		Nodes:   []byte(item.Nodes),
		Edges:   []byte(item.Edges),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade scenario snapshot: %w", err)
	}

	var nodes []scenario.NodeRecord
	if err := json.Unmarshal(snap.Nodes, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode scenario nodes: %w", err)
	}
	var edges []scenario.EdgeRecord
	if err := json.Unmarshal(snap.Edges, &edges); err != nil {
		return nil, fmt.Errorf("failed to decode scenario edges: %w", err)
	}

	return scenario.Reconstruct(
		id, graphID,
		item.Name, item.Description,
		nodes, edges,
		snap.Version, item.Checksum,
		parseStoredTime(item.CreatedAt), item.CreatedBy,
	), nil
}
