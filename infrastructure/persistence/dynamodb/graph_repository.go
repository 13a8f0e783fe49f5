package dynamodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"causemap/application/ports"
	"causemap/domain/core/aggregates"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	pkgerrors "causemap/pkg/errors"
)

const maxBatchWriteItems = 25

// GraphRepository implements ports.GraphRepository on a single DynamoDB
// table. Layout:
//
//	graph metadata:  PK=USER#<userID>    SK=GRAPH#<graphID>
//	node item:       PK=GRAPH#<graphID>  SK=NODE#<nodeID>
//	edge item:       PK=GRAPH#<graphID>  SK=EDGE#<edgeID>
//
// GSI1 maps GRAPHID#<graphID> back to the metadata item so lookups by
// graph id don't need the owner.
type GraphRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewGraphRepository creates a new GraphRepository.
func NewGraphRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.GraphRepository {
	return &GraphRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type graphItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	GraphID    string `dynamodbav:"GraphID"`
	UserID     string `dynamodbav:"UserID"`
	Name       string `dynamodbav:"Name"`
	NodeCount  int    `dynamodbav:"NodeCount"`
	EdgeCount  int    `dynamodbav:"EdgeCount"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	Version    int    `dynamodbav:"Version"`
}

type nodeItem struct {
	PK         string                  `dynamodbav:"PK"`
	SK         string                  `dynamodbav:"SK"`
	EntityType string                  `dynamodbav:"EntityType"`
	GraphID    string                  `dynamodbav:"GraphID"`
	NodeID     string                  `dynamodbav:"NodeID"`
	NodeType   string                  `dynamodbav:"NodeType"`
	Title      string                  `dynamodbav:"Title"`
	KRImpacts  []valueobjects.KRImpact `dynamodbav:"KRImpacts,omitempty"`
	View       *valueobjects.ViewRect  `dynamodbav:"View,omitempty"`
	CreatedAt  string                  `dynamodbav:"CreatedAt"`
	UpdatedAt  string                  `dynamodbav:"UpdatedAt"`
	Version    int                     `dynamodbav:"Version"`
}

type edgeItem struct {
	PK         string   `dynamodbav:"PK"`
	SK         string   `dynamodbav:"SK"`
	EntityType string   `dynamodbav:"EntityType"`
	GraphID    string   `dynamodbav:"GraphID"`
	EdgeID     string   `dynamodbav:"EdgeID"`
	FromID     string   `dynamodbav:"FromID"`
	ToID       string   `dynamodbav:"ToID"`
	Kind       string   `dynamodbav:"Kind"`
	Weight     *float64 `dynamodbav:"Weight,omitempty"`
	CreatedAt  string   `dynamodbav:"CreatedAt"`
	UpdatedAt  string   `dynamodbav:"UpdatedAt"`
	Version    int      `dynamodbav:"Version"`
}

// Save persists the aggregate: metadata, every node and edge item, and
// removal of items the aggregate no longer contains.
func (r *GraphRepository) Save(ctx context.Context, graph *aggregates.Graph) error {
	graphID := graph.ID().String()
	nodes := graph.Nodes()
	edges := graph.Edges()

	existing, err := r.listItemSKs(ctx, graphID)
	if err != nil {
		return fmt.Errorf("failed to list graph items: %w", err)
	}

	writes := make([]types.WriteRequest, 0, len(nodes)+len(edges)+1)

	metaAV, err := attributevalue.MarshalMap(r.metadataItem(graph))
	if err != nil {
		return fmt.Errorf("failed to marshal graph metadata: %w", err)
	}
	writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: metaAV}})

	current := make(map[string]struct{}, len(nodes)+len(edges))
	for id, node := range nodes {
		sk := "NODE#" + id
		current[sk] = struct{}{}
		av, err := attributevalue.MarshalMap(r.nodeItem(graphID, node))
		if err != nil {
			return fmt.Errorf("failed to marshal node %s: %w", id, err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	for id, edge := range edges {
		sk := "EDGE#" + id
		current[sk] = struct{}{}
		av, err := attributevalue.MarshalMap(r.edgeItem(graphID, edge))
		if err != nil {
			return fmt.Errorf("failed to marshal edge %s: %w", id, err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	// Remove items for nodes and edges dropped from the aggregate.
	for _, sk := range existing {
		if _, keep := current[sk]; keep {
			continue
		}
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: "GRAPH#" + graphID},
					"SK": &types.AttributeValueMemberS{Value: sk},
				},
			},
		})
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return err
	}

	r.logger.Debug("Graph saved",
		zap.String("graphID", graphID),
		zap.Int("nodeCount", len(nodes)),
		zap.Int("edgeCount", len(edges)),
	)
	return nil
}

// GetByID retrieves a graph with all of its nodes and edges. Metadata
// and items are fetched in parallel.
func (r *GraphRepository) GetByID(ctx context.Context, id valueobjects.GraphID) (*aggregates.Graph, error) {
	var (
		meta    *graphItem
		nodes   map[string]*entities.Node
		edges   map[string]*entities.Edge
		metaErr error
		itemErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		meta, metaErr = r.getMetadata(ctx, id.String())
	}()
	go func() {
		defer wg.Done()
		nodes, edges, itemErr = r.loadItems(ctx, id.String())
	}()
	wg.Wait()

	if metaErr != nil {
		return nil, metaErr
	}
	if itemErr != nil {
		return nil, itemErr
	}

	return r.reconstruct(meta, nodes, edges)
}

// GetByUserID retrieves all graphs owned by a user, fully loaded.
func (r *GraphRepository) GetByUserID(ctx context.Context, userID string) ([]*aggregates.Graph, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "USER#" + userID},
			":sk": &types.AttributeValueMemberS{Value: "GRAPH#"},
		},
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query graphs: %w", err)
	}

	graphs := make([]*aggregates.Graph, 0, len(result.Items))
	for _, raw := range result.Items {
		var item graphItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal graph item", zap.Error(err))
			continue
		}

		nodes, edges, err := r.loadItems(ctx, item.GraphID)
		if err != nil {
			r.logger.Warn("Failed to load graph items",
				zap.String("graphID", item.GraphID),
				zap.Error(err),
			)
			continue
		}

		graph, err := r.reconstruct(&item, nodes, edges)
		if err != nil {
			r.logger.Warn("Failed to reconstruct graph",
				zap.String("graphID", item.GraphID),
				zap.Error(err),
			)
			continue
		}
		graphs = append(graphs, graph)
	}
	return graphs, nil
}

// Delete removes a graph's metadata and every node and edge item.
func (r *GraphRepository) Delete(ctx context.Context, id valueobjects.GraphID) error {
	meta, err := r.getMetadata(ctx, id.String())
	if err != nil {
		return err
	}

	skList, err := r.listItemSKs(ctx, id.String())
	if err != nil {
		return fmt.Errorf("failed to list graph items: %w", err)
	}

	writes := make([]types.WriteRequest, 0, len(skList)+1)
	writes = append(writes, types.WriteRequest{
		DeleteRequest: &types.DeleteRequest{
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: "USER#" + meta.UserID},
				"SK": &types.AttributeValueMemberS{Value: "GRAPH#" + id.String()},
			},
		},
	})
	for _, sk := range skList {
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: "GRAPH#" + id.String()},
					"SK": &types.AttributeValueMemberS{Value: sk},
				},
			},
		})
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return err
	}

	r.logger.Debug("Graph deleted",
		zap.String("graphID", id.String()),
		zap.Int("itemsDeleted", len(writes)),
	)
	return nil
}

func (r *GraphRepository) metadataItem(graph *aggregates.Graph) graphItem {
	graphID := graph.ID().String()
	return graphItem{
		PK:         "USER#" + graph.UserID(),
		SK:         "GRAPH#" + graphID,
		GSI1PK:     "GRAPHID#" + graphID,
		GSI1SK:     "METADATA",
		EntityType: "GRAPH",
		GraphID:    graphID,
		UserID:     graph.UserID(),
		Name:       graph.Name(),
		NodeCount:  graph.NodeCount(),
		EdgeCount:  graph.EdgeCount(),
		CreatedAt:  graph.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:  graph.UpdatedAt().Format(time.RFC3339Nano),
		Version:    graph.Version(),
	}
}

func (r *GraphRepository) nodeItem(graphID string, node *entities.Node) nodeItem {
	return nodeItem{
		PK:         "GRAPH#" + graphID,
		SK:         "NODE#" + node.ID().String(),
		EntityType: "NODE",
		GraphID:    graphID,
		NodeID:     node.ID().String(),
		NodeType:   node.Type().String(),
		Title:      node.Title().String(),
		KRImpacts:  node.KRImpacts(),
		View:       node.ViewRect(),
		CreatedAt:  node.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:  node.UpdatedAt().Format(time.RFC3339Nano),
		Version:    node.Version(),
	}
}

func (r *GraphRepository) edgeItem(graphID string, edge *entities.Edge) edgeItem {
	return edgeItem{
		PK:         "GRAPH#" + graphID,
		SK:         "EDGE#" + edge.ID().String(),
		EntityType: "EDGE",
		GraphID:    graphID,
		EdgeID:     edge.ID().String(),
		FromID:     edge.From().String(),
		ToID:       edge.To().String(),
		Kind:       edge.Kind().String(),
		Weight:     edge.Weight(),
		CreatedAt:  edge.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:  edge.UpdatedAt().Format(time.RFC3339Nano),
		Version:    edge.Version(),
	}
}

func (r *GraphRepository) getMetadata(ctx context.Context, graphID string) (*graphItem, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "GRAPHID#" + graphID},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query graph: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.ErrGraphNotFound
	}

	var item graphItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &item, nil
}

// loadItems reads every node and edge item for a graph, following
// pagination.
func (r *GraphRepository) loadItems(ctx context.Context, graphID string) (map[string]*entities.Node, map[string]*entities.Edge, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "GRAPH#" + graphID},
		},
	}

	nodes := make(map[string]*entities.Node)
	edges := make(map[string]*entities.Edge)

	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to query graph items: %w", err)
		}

		for _, raw := range result.Items {
			entityType := itemEntityType(raw)
			switch entityType {
			case "NODE":
				var item nodeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					r.logger.Warn("Failed to unmarshal node item", zap.Error(err))
					continue
				}
				node, err := r.thawNode(item)
				if err != nil {
					r.logger.Warn("Skipping unreadable node",
						zap.String("nodeID", item.NodeID),
						zap.Error(err),
					)
					continue
				}
				nodes[item.NodeID] = node
			case "EDGE":
				var item edgeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					r.logger.Warn("Failed to unmarshal edge item", zap.Error(err))
					continue
				}
				edge, err := r.thawEdge(item)
				if err != nil {
					r.logger.Warn("Skipping unreadable edge",
						zap.String("edgeID", item.EdgeID),
						zap.Error(err),
					)
					continue
				}
				edges[item.EdgeID] = edge
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return nodes, edges, nil
}

func (r *GraphRepository) reconstruct(meta *graphItem, nodes map[string]*entities.Node, edges map[string]*entities.Edge) (*aggregates.Graph, error) {
	id, err := valueobjects.NewGraphIDFromString(meta.GraphID)
	if err != nil {
		return nil, fmt.Errorf("stored graph has invalid id %q: %w", meta.GraphID, err)
	}
	createdAt := parseStoredTime(meta.CreatedAt)
	updatedAt := parseStoredTime(meta.UpdatedAt)

	graph := aggregates.ReconstructGraph(id, meta.UserID, meta.Name, nodes, edges, createdAt, updatedAt, meta.Version)
	if err := graph.Validate(); err != nil {
		r.logger.Warn("Stored graph failed validation",
			zap.String("graphID", meta.GraphID),
			zap.Error(err),
		)
	}
	return graph, nil
}

func (r *GraphRepository) thawNode(item nodeItem) (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(item.NodeID)
	if err != nil {
		return nil, err
	}
	nodeType, err := entities.ParseNodeType(item.NodeType)
	if err != nil {
		return nil, err
	}
	title, err := valueobjects.NewTitle(item.Title)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructNode(
		id, nodeType, title, item.KRImpacts, item.View,
		parseStoredTime(item.CreatedAt), parseStoredTime(item.UpdatedAt), item.Version,
	), nil
}

func (r *GraphRepository) thawEdge(item edgeItem) (*entities.Edge, error) {
	id, err := valueobjects.NewEdgeIDFromString(item.EdgeID)
	if err != nil {
		return nil, err
	}
	from, err := valueobjects.NewNodeIDFromString(item.FromID)
	if err != nil {
		return nil, err
	}
	to, err := valueobjects.NewNodeIDFromString(item.ToID)
	if err != nil {
		return nil, err
	}
	kind, err := entities.ParseEdgeKind(item.Kind)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructEdge(
		id, from, to, kind, item.Weight,
		parseStoredTime(item.CreatedAt), parseStoredTime(item.UpdatedAt), item.Version,
	), nil
}

// listItemSKs returns the sort keys of every node and edge item stored
// for a graph.
func (r *GraphRepository) listItemSKs(ctx context.Context, graphID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "GRAPH#" + graphID},
		},
		ProjectionExpression: aws.String("SK"),
	}

	var skList []string
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, raw := range result.Items {
			if sk, ok := raw["SK"].(*types.AttributeValueMemberS); ok {
				skList = append(skList, sk.Value)
			}
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return skList, nil
}

func (r *GraphRepository) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	for i := 0; i < len(writes); i += maxBatchWriteItems {
		end := i + maxBatchWriteItems
		if end > len(writes) {
			end = len(writes)
		}

		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: writes[i:end]},
		}
		result, err := r.client.BatchWriteItem(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to batch write graph items: %w", err)
		}

		// Retry unprocessed items once before giving up.
		if pending := result.UnprocessedItems[r.tableName]; len(pending) > 0 {
			retry := &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.tableName: pending},
			}
			retryResult, err := r.client.BatchWriteItem(ctx, retry)
			if err != nil {
				return fmt.Errorf("failed to retry graph item batch: %w", err)
			}
			if remaining := retryResult.UnprocessedItems[r.tableName]; len(remaining) > 0 {
				return fmt.Errorf("failed to write %d graph items", len(remaining))
			}
		}
	}
	return nil
}

func itemEntityType(raw map[string]types.AttributeValue) string {
	if v, ok := raw["EntityType"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func parseStoredTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, value)
	return t
}
