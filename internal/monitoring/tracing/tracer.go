package tracing

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sshtunnel/internal/log"
)

const Id = "tracing.traceId"

type SpanCloseFunction func()

// Tracer correlates log lines of a single operation (a check sweep, a
// tunnel start) under one trace ID.
type Tracer interface {
	StartSpanFromContext(ctx context.Context, operationName string) (context.Context, SpanCloseFunction)
	io.Closer
}

type tracer struct {
	serviceName string
	logger      log.Logger
}

func NewTracer(serviceName string, logger log.Logger) Tracer {
	return &tracer{
		serviceName: serviceName,
		logger:      logger,
	}
}

func (t *tracer) Close() error {
	return nil
}

// StartSpanFromContext opens a span named `operationName` and returns a
// context carrying its trace ID. The close function logs the span
// duration.
func (t *tracer) StartSpanFromContext(ctx context.Context, operationName string) (context.Context, SpanCloseFunction) {
	traceId := ExtractTraceId(ctx)
	if traceId == "" {
		traceId = uuid.New().String()
	}
	newContext := context.WithValue(ctx, Id, traceId)
	started := time.Now()

	t.logger.Debugf("Starting span: %s with trace ID: %s", operationName, traceId)

	return newContext, func() {
		t.logger.Debugf("Finished span: %s with trace ID: %s in %v", operationName, traceId, time.Since(started))
	}
}

func ExtractTraceId(ctx context.Context) string {
	str, isString := ctx.Value(Id).(string)
	if isString {
		return str
	}
	return ""
}
