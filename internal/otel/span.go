// Package otel provides span helpers shared by the sync and withdrawal paths.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Attribute keys recorded on sync pass and withdrawal step spans
const (
	AttrSyncVariant  = attribute.Key("sync.variant")
	AttrSyncMode     = attribute.Key("sync.mode")
	AttrBatchSize    = attribute.Key("sync.batch_size")
	AttrScanned      = attribute.Key("sync.scanned")
	AttrRepaired     = attribute.Key("sync.repaired")
	AttrFailed       = attribute.Key("sync.failed")
	AttrSubjectID    = attribute.Key("withdrawal.subject_id")
	AttrProcess      = attribute.Key("withdrawal.process")
	AttrKafkaOffset  = attribute.Key("messaging.kafka.offset")
	AttrKafkaTopic   = attribute.Key("messaging.destination.name")
)

// StartSpan starts a span on tracer, or a no-op span leaving ctx unchanged
// when tracer is nil
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks it failed. The status keeps a
// generic description and the error itself goes to the exception event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
