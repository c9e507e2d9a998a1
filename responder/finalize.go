package responder

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/drblury/replyweaver/codec"
	"github.com/drblury/replyweaver/timing"
	"github.com/drblury/replyweaver/tracing"
)

// HeaderRequestID carries the request id on the way out.
const HeaderRequestID = "x-request-id"

// TraceHeaders returns the (traceparent, tracestate) pair. Without an
// attached context a new one is synthesised, with a single vendor entry
// mapping to the new span id.
func (r *Response[S]) TraceHeaders() (traceparent, tracestate string) {
	if r.hasTrace && r.trace.IsValid() {
		return r.trace.Headers()
	}
	tc := tracing.New()
	// traceVendor only returns keys that passed ValidateVendor.
	_ = tc.PushState(r.traceVendor(), tc.SpanID().String())
	return tc.Headers()
}

// RecordServerTiming appends a Server-Timing metric.
func (r *Response[S]) RecordServerTiming(metric timing.Metric) {
	r.serverTiming.Push(metric)
}

// ServerTiming renders the recorded metrics as a Server-Timing value.
func (r *Response[S]) ServerTiming() string {
	return r.serverTiming.String()
}

// ResponseTime returns the time elapsed since the start time and reports it
// to the metrics sink. Call it once, when the response is about to be sent.
// A request context that tracks its own request receives the report instead.
func (r *Response[S]) ResponseTime() time.Duration {
	elapsed := time.Since(r.start)
	if elapsed < 0 {
		elapsed = 0
	}
	if r.tracker != nil && r.tracker.Finish(r.status, elapsed) {
		return elapsed
	}
	r.metricsSink().ResponseFinished(r.status, elapsed)
	return elapsed
}

// Finalize appends the request id, trace and server timing headers and
// returns the full header list. Only the first call measures and reports;
// later calls return nil.
func (r *Response[S]) Finalize() []Header {
	if r.finalized {
		return nil
	}
	r.finalized = true

	if r.requestID != uuid.Nil {
		r.InsertHeader(HeaderRequestID, r.requestID.String())
	}

	traceparent, tracestate := r.TraceHeaders()
	r.InsertHeader(tracing.TraceparentHeader, traceparent)
	r.InsertHeader(tracing.TracestateHeader, tracestate)

	elapsed := r.ResponseTime()
	r.RecordServerTiming(timing.NewMetric("total").WithDuration(elapsed))
	r.InsertHeader(timing.HeaderName, r.ServerTiming())

	return r.headers
}

// IsFinalized reports whether Finalize already ran.
func (r *Response[S]) IsFinalized() bool { return r.finalized }

// WriteTo finalizes the response and writes it to w. When the body cannot be
// encoded the response is downgraded to an internal server error with the
// failure as plain text, and the encoding error is returned alongside any
// write error. Headers with invalid names or values are skipped.
func (r *Response[S]) WriteTo(w http.ResponseWriter) error {
	body, encodeErr := r.ReadBytes()
	contentType := r.ContentType()
	if encodeErr != nil {
		r.SetCode(wellKnown[S]().InternalServerError())
		contentType = codec.ContentTypeText
		body = []byte(encodeErr.Error())
	}

	header := w.Header()
	header.Set("Content-Type", contentType)
	for _, h := range r.Finalize() {
		if !httpguts.ValidHeaderFieldName(h.Name) || !httpguts.ValidHeaderFieldValue(h.Value) {
			continue
		}
		header.Add(h.Name, h.Value)
	}

	w.WriteHeader(r.status)
	_, writeErr := w.Write(body)
	return errors.Join(encodeErr, writeErr)
}
