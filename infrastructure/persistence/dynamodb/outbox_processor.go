package dynamodb

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"causemap/application/ports"
)

// OutboxProcessor relays pending outbox events to the event publisher.
// It runs as a background loop in the API server and as a single pass
// in the relay worker.
type OutboxProcessor struct {
	eventStore     *EventStore
	eventPublisher ports.EventPublisher
	logger         *zap.Logger

	batchSize          int32
	processingInterval time.Duration

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(
	eventStore *EventStore,
	eventPublisher ports.EventPublisher,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		eventStore:         eventStore,
		eventPublisher:     eventPublisher,
		logger:             logger,
		batchSize:          50,
		processingInterval: 5 * time.Second,
		stopChan:           make(chan struct{}),
		stoppedChan:        make(chan struct{}),
	}
}

// Start begins background processing.
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("Starting outbox processor",
		zap.Int32("batchSize", op.batchSize),
		zap.Duration("interval", op.processingInterval),
	)
	go op.processLoop(ctx)
}

// Stop gracefully stops the processor.
func (op *OutboxProcessor) Stop() {
	op.logger.Info("Stopping outbox processor")
	close(op.stopChan)
	<-op.stoppedChan
	op.logger.Info("Outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if _, err := op.ProcessBatch(ctx); err != nil {
				op.logger.Error("Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch of pending events and reports how
// many succeeded. The relay worker calls this directly.
func (op *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	pending, err := op.eventStore.GetPendingEvents(ctx, op.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	published := 0
	for _, record := range pending {
		if err := op.processEvent(ctx, record); err != nil {
			op.logger.Error("Failed to relay event",
				zap.String("eventID", record.EventID),
				zap.String("eventType", record.EventType),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	op.logger.Debug("Outbox batch processed",
		zap.Int("pending", len(pending)),
		zap.Int("published", published),
	)
	return published, nil
}

func (op *OutboxProcessor) processEvent(ctx context.Context, record *EventRecord) error {
	domainEvent, err := op.eventStore.recordToEvent(*record)
	if err != nil {
		return op.markEventFailed(ctx, record, fmt.Sprintf("failed to decode event: %v", err))
	}

	if err := op.eventPublisher.Publish(ctx, domainEvent); err != nil {
		return op.markEventFailed(ctx, record, fmt.Sprintf("publish failed: %v", err))
	}

	return op.eventStore.MarkEventAsPublished(ctx, record.PK, record.SK)
}

func (op *OutboxProcessor) markEventFailed(ctx context.Context, record *EventRecord, errorMsg string) error {
	attempts := record.PublishAttempts + 1

	if err := op.eventStore.MarkEventAsFailed(ctx, record.PK, record.SK, errorMsg, attempts); err != nil {
		op.logger.Error("Failed to record event failure",
			zap.String("eventID", record.EventID),
			zap.Error(err),
		)
		return err
	}

	if attempts >= maxPublishAttempts {
		op.logger.Warn("Event parked after max publish attempts",
			zap.String("eventID", record.EventID),
			zap.String("eventType", record.EventType),
			zap.Int("attempts", attempts),
			zap.String("error", errorMsg),
		)
	}
	return fmt.Errorf("event relay failed: %s", errorMsg)
}
