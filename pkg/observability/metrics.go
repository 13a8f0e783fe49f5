package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics publishes application metrics to CloudWatch. It satisfies
// the metrics recorder interfaces of both buses. A nil client disables
// publishing, which local runs use.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewMetrics creates a new metrics instance.
func NewMetrics(namespace string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// RecordCommandExecution records the latency and outcome of a command.
func (m *Metrics) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	dimensions := []types.Dimension{
		{Name: aws.String("CommandName"), Value: aws.String(commandName)},
		{Name: aws.String("Status"), Value: aws.String(status)},
	}

	m.put(ctx,
		types.MetricDatum{
			MetricName: aws.String("CommandExecution"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(time.Now()),
		},
		types.MetricDatum{
			MetricName: aws.String("CommandCount"),
			Dimensions: dimensions,
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	)
}

// RecordLatency records the latency of any named operation.
func (m *Metrics) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	m.put(ctx, types.MetricDatum{
		MetricName: aws.String("OperationLatency"),
		Dimensions: []types.Dimension{
			{Name: aws.String("Operation"), Value: aws.String(operation)},
		},
		Value:     aws.Float64(float64(latency.Milliseconds())),
		Unit:      types.StandardUnitMilliseconds,
		Timestamp: aws.Time(time.Now()),
	})
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError(ctx context.Context, errorType, errorCode string) {
	m.put(ctx, types.MetricDatum{
		MetricName: aws.String("Errors"),
		Dimensions: []types.Dimension{
			{Name: aws.String("ErrorType"), Value: aws.String(errorType)},
			{Name: aws.String("ErrorCode"), Value: aws.String(errorCode)},
		},
		Value:     aws.Float64(1),
		Unit:      types.StandardUnitCount,
		Timestamp: aws.Time(time.Now()),
	})
}

// RecordCount records a counter metric, such as events relayed per
// outbox batch.
func (m *Metrics) RecordCount(ctx context.Context, metricName string, value float64, dimensions map[string]string) {
	var cwDimensions []types.Dimension
	for name, val := range dimensions {
		cwDimensions = append(cwDimensions, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(val),
		})
	}

	m.put(ctx, types.MetricDatum{
		MetricName: aws.String(metricName),
		Dimensions: cwDimensions,
		Value:      aws.Float64(value),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
	})
}

func (m *Metrics) put(ctx context.Context, data ...types.MetricDatum) {
	if m.client == nil {
		return
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		// Metrics failures never fail the operation being measured.
		m.logger.Debug("Failed to publish metrics", zap.Error(err))
	}
}
