// Package tracing models the W3C trace context carried by every response:
// trace and span identifiers, the parent span, trace flags, and the vendor
// specific tracestate list. Formatting and parsing go through the
// OpenTelemetry TraceContext propagator so the header grammar stays in line
// with the rest of the ecosystem.
package tracing

import (
	"context"
	"crypto/rand"
	"fmt"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceparentHeader is the W3C header carrying version, ids and flags.
	TraceparentHeader = "traceparent"
	// TracestateHeader is the W3C header carrying vendor specific state.
	TracestateHeader = "tracestate"

	// DefaultVendor is the tracestate key used when a response has to
	// synthesise its own trace context.
	DefaultVendor = "replyweaver"
)

var propagator = propagation.TraceContext{}

// TraceContext is an immutable trace identity plus an appendable vendor state.
type TraceContext struct {
	traceID  trace.TraceID
	spanID   trace.SpanID
	parentID trace.SpanID
	flags    trace.TraceFlags
	state    trace.TraceState
}

// New returns a sampled trace context with random trace and span ids.
func New() TraceContext {
	return TraceContext{
		traceID: newTraceID(),
		spanID:  newSpanID(),
		flags:   trace.FlagsSampled,
	}
}

// Child returns a context that continues the same trace with a fresh span id.
// The current span becomes the parent and the vendor state is carried over.
func (tc TraceContext) Child() TraceContext {
	return TraceContext{
		traceID:  tc.traceID,
		spanID:   newSpanID(),
		parentID: tc.spanID,
		flags:    tc.flags,
		state:    tc.state,
	}
}

// Parse reads a traceparent/tracestate header pair. The returned context
// describes the remote span; call Child to continue the trace locally.
func Parse(traceparent, tracestate string) (TraceContext, error) {
	carrier := propagation.MapCarrier{TraceparentHeader: traceparent}
	if tracestate != "" {
		carrier[TracestateHeader] = tracestate
	}
	sc := trace.SpanContextFromContext(propagator.Extract(context.Background(), carrier))
	if !sc.IsValid() {
		return TraceContext{}, fmt.Errorf("invalid traceparent %q", traceparent)
	}
	return TraceContext{
		traceID: sc.TraceID(),
		spanID:  sc.SpanID(),
		flags:   sc.TraceFlags(),
		state:   sc.TraceState(),
	}, nil
}

// TraceID returns the 128-bit trace identifier.
func (tc TraceContext) TraceID() trace.TraceID { return tc.traceID }

// SpanID returns the 64-bit span identifier.
func (tc TraceContext) SpanID() trace.SpanID { return tc.spanID }

// ParentID returns the parent span identifier and whether one is set.
func (tc TraceContext) ParentID() (trace.SpanID, bool) {
	return tc.parentID, tc.parentID.IsValid()
}

// Flags returns the trace flags.
func (tc TraceContext) Flags() trace.TraceFlags { return tc.flags }

// State returns the vendor state list.
func (tc TraceContext) State() trace.TraceState { return tc.state }

// IsValid reports whether both identifiers are non-zero.
func (tc TraceContext) IsValid() bool {
	return tc.traceID.IsValid() && tc.spanID.IsValid()
}

// PushState adds a vendor entry. An existing entry for the same key is
// replaced and the new entry moves to the front of the list.
func (tc *TraceContext) PushState(key, value string) error {
	state, err := tc.state.Insert(key, value)
	if err != nil {
		return fmt.Errorf("tracestate entry %q: %w", key, err)
	}
	tc.state = state
	return nil
}

// ValidateVendor reports whether key can be used as a tracestate entry key.
func ValidateVendor(key string) error {
	if _, err := (trace.TraceState{}).Insert(key, "0"); err != nil {
		return fmt.Errorf("tracestate key %q: %w", key, err)
	}
	return nil
}

// Headers formats the context as a (traceparent, tracestate) pair.
func (tc TraceContext) Headers() (traceparent, tracestate string) {
	carrier := propagation.MapCarrier{}
	propagator.Inject(trace.ContextWithSpanContext(context.Background(), tc.spanContext()), carrier)
	return carrier.Get(TraceparentHeader), carrier.Get(TracestateHeader)
}

// Traceparent renders the version-traceid-spanid-flags header value.
func (tc TraceContext) Traceparent() string {
	traceparent, _ := tc.Headers()
	return traceparent
}

// Tracestate renders the comma separated vendor entries.
func (tc TraceContext) Tracestate() string {
	return tc.state.String()
}

func (tc TraceContext) spanContext() trace.SpanContext {
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tc.traceID,
		SpanID:     tc.spanID,
		TraceFlags: tc.flags,
		TraceState: tc.state,
		Remote:     true,
	})
}

func newTraceID() trace.TraceID {
	var id trace.TraceID
	for !id.IsValid() {
		_, _ = rand.Read(id[:])
	}
	return id
}

func newSpanID() trace.SpanID {
	var id trace.SpanID
	for !id.IsValid() {
		_, _ = rand.Read(id[:])
	}
	return id
}
