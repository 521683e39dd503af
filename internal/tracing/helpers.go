package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names used across the service.
const (
	TracerName   = "speciesid"
	DBTracerName = "speciesid/db"
)

// DBOperation is the kind of database work recorded on a span.
type DBOperation string

const (
	// DBOperationQuery is a plain SELECT against a table or view.
	DBOperationQuery DBOperation = "query"
	// DBOperationCall is a SELECT from a set-returning SQL function.
	DBOperationCall DBOperation = "call"
)

// StartDBSpan starts a client span for a database operation against target,
// which is a table, view or function name. The returned func ends the span
// and records err when non-nil.
//
//	ctx, endSpan := tracing.StartDBSpan(ctx, "wildlife.species_embeddings", tracing.DBOperationQuery)
//	defer func() { endSpan(err) }()
func StartDBSpan(ctx context.Context, target string, operation DBOperation) (context.Context, func(error)) {
	spanName := string(operation)
	if target != "" {
		spanName = spanName + " " + target
	}

	ctx, span := otel.Tracer(DBTracerName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", string(operation)),
		),
	)
	if target != "" {
		span.SetAttributes(attribute.String("db.sql.table", target))
	}

	return ctx, endFunc(span)
}

// StartSpan starts an internal span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, endFunc(span)
}

func endFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// AddEvent adds an event to the span in ctx.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the span in ctx.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
