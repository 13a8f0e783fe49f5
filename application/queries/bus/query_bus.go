package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Query represents a read-only request.
type Query interface {
	Validate() error
}

// QueryHandler handles a specific query type.
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryBus dispatches queries to their registered handlers by concrete
// type.
type QueryBus struct {
	handlers map[reflect.Type]QueryHandler
	mu       sync.RWMutex
}

// NewQueryBus creates a new query bus.
func NewQueryBus() *QueryBus {
	return &QueryBus{
		handlers: make(map[reflect.Type]QueryHandler),
	}
}

// Register registers a handler for a query type.
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}

	b.handlers[t] = handler
	return nil
}

// Ask validates a query, dispatches it, and returns the result.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no handler registered for query type %T", query)
	}

	result, err := handler.Handle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query handler failed: %w", err)
	}
	return result, nil
}

// QueryHandlerFunc adapts a function to QueryHandler.
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// CacheKeyer lets a query provide its own cache key. Comparison queries
// implement this with scenario id pairs, which are stable keys because
// scenarios never change after capture.
type CacheKeyer interface {
	CacheKey() string
}

// CachingMiddleware memoizes query results.
type CachingMiddleware struct {
	cache Cache
	ttl   int
}

// NewCachingMiddleware creates a caching middleware with TTL in seconds.
func NewCachingMiddleware(cache Cache, ttl int) *CachingMiddleware {
	return &CachingMiddleware{cache: cache, ttl: ttl}
}

// Wrap wraps a query handler with caching.
func (m *CachingMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		cacheKey := m.cacheKey(query)

		if cached, found := m.cache.Get(ctx, cacheKey); found {
			return cached, nil
		}

		result, err := next.Handle(ctx, query)
		if err != nil {
			return nil, err
		}

		m.cache.Set(ctx, cacheKey, result, m.ttl)
		return result, nil
	})
}

func (m *CachingMiddleware) cacheKey(query Query) string {
	if keyer, ok := query.(CacheKeyer); ok {
		return keyer.CacheKey()
	}
	return fmt.Sprintf("%T:%+v", query, query)
}

// Cache is the caching contract the middleware needs.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
}

// LoggingMiddleware logs query execution with timing.
type LoggingMiddleware struct {
	logger *zap.Logger
}

// NewLoggingMiddleware creates a logging middleware.
func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Wrap wraps a query handler with logging.
func (m *LoggingMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		queryType := reflect.TypeOf(query).Name()
		start := time.Now()

		result, err := next.Handle(ctx, query)
		if err != nil {
			m.logger.Error("Query failed",
				zap.String("type", queryType),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return nil, err
		}

		m.logger.Debug("Query succeeded",
			zap.String("type", queryType),
			zap.Duration("duration", time.Since(start)),
		)
		return result, nil
	})
}

// MetricsMiddleware reports query latency.
type MetricsMiddleware struct {
	recorder MetricsRecorder
}

// NewMetricsMiddleware creates a metrics middleware.
func NewMetricsMiddleware(recorder MetricsRecorder) *MetricsMiddleware {
	return &MetricsMiddleware{recorder: recorder}
}

// Wrap wraps a query handler with metrics.
func (m *MetricsMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		queryType := reflect.TypeOf(query).Name()
		start := time.Now()

		result, err := next.Handle(ctx, query)
		m.recorder.RecordLatency(ctx, "query."+queryType, time.Since(start))
		return result, err
	})
}

// MetricsRecorder receives query latency measurements.
type MetricsRecorder interface {
	RecordLatency(ctx context.Context, operation string, latency time.Duration)
}
