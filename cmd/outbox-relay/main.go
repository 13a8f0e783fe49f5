// Package main implements the outbox relay worker. A scheduled rule
// invokes it to drain pending outbox events onto the bus, and capture
// events routed back to it trigger scenario retention pruning for the
// affected graph.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"causemap/domain/core/valueobjects"
	"causemap/infrastructure/config"
	"causemap/infrastructure/di"
)

// maxRelayPasses bounds one invocation so a deep backlog cannot run
// into the Lambda timeout.
const maxRelayPasses = 20

var container *di.Container

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	container.Logger.Info("Outbox relay initialized")
}

// relayOutbox drains pending outbox batches until the table is empty
// or the pass limit is hit.
func relayOutbox(ctx context.Context) (int, error) {
	total := 0
	for pass := 0; pass < maxRelayPasses; pass++ {
		published, err := container.OutboxProcessor.ProcessBatch(ctx)
		if err != nil {
			return total, err
		}
		if published == 0 {
			break
		}
		total += published
	}

	container.Metrics.RecordCount(ctx, "OutboxEventsRelayed", float64(total), nil)
	container.Logger.Info("Outbox relay pass complete", zap.Int("published", total))
	return total, nil
}

// pruneGraphScenarios applies the retention policy to one graph after
// a capture landed on the bus.
func pruneGraphScenarios(ctx context.Context, rawGraphID string) error {
	graphID, err := valueobjects.NewGraphIDFromString(rawGraphID)
	if err != nil {
		return fmt.Errorf("invalid graph id in capture event: %w", err)
	}

	pruned, err := container.Maintenance.PruneGraph(ctx, graphID)
	if err != nil {
		return err
	}

	if pruned > 0 {
		container.Metrics.RecordCount(ctx, "ScenariosPruned", float64(pruned), map[string]string{
			"GraphID": graphID.String(),
		})
		container.Logger.Info("Pruned scenarios past retention",
			zap.String("graphID", graphID.String()),
			zap.Int("pruned", pruned),
		)
	}
	return nil
}

// handler dispatches on the invocation shape: EventBridge capture
// events prune, everything else (the schedule included) relays.
func handler(ctx context.Context, event json.RawMessage) error {
	var busEvent awsevents.CloudWatchEvent
	if err := json.Unmarshal(event, &busEvent); err == nil && busEvent.DetailType == "scenario.captured" {
		var detail struct {
			GraphID string `json:"graph_id"`
		}
		if err := json.Unmarshal(busEvent.Detail, &detail); err != nil {
			return fmt.Errorf("failed to parse capture event detail: %w", err)
		}
		return pruneGraphScenarios(ctx, detail.GraphID)
	}

	_, err := relayOutbox(ctx)
	return err
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		log.Println("Starting outbox relay Lambda")
		lambda.Start(handler)
		return
	}

	// Local mode runs one relay pass.
	log.Println("Running one local relay pass")
	published, err := relayOutbox(context.Background())
	if err != nil {
		log.Fatalf("Relay pass failed: %v", err)
	}
	log.Printf("Relay pass published %d events", published)
}
