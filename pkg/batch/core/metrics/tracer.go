package metrics

import (
	"context"
)

// Tracer starts spans around sweep operations.
type Tracer interface {
	// StartSpan starts a span named name and returns the derived context and a function that ends it.
	StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())

	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
