package search

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the search client tracer
	TracerName = "github.com/notebox/notebox-indexer/search"
)

// Attribute keys recorded on search client spans
const (
	AttrIndexUID   = attribute.Key("search.index")
	AttrHTTPMethod = attribute.Key("http.request.method")
	AttrHTTPStatus = attribute.Key("http.response.status_code")
	AttrTaskUID    = attribute.Key("search.task_uid")
)

// startSpan starts a span for an engine call. The client defaults to a no-op tracer.
func (c *defaultClient) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, opts...)
}

// recordError records err on span and marks the span as failed.
func recordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search engine call failed")
	}
}
