// Package replyweaver builds, encodes and delivers HTTP responses for Go
// services. A response is a small state machine: its status code decides
// whether the outcome text renders as a success message or as an RFC 9457
// problem detail, its payload is either pre-encoded JSON or a structured
// value, and its body can be produced as a JSON envelope, JSON Lines,
// MessagePack, CSV, form data or BSON.
//
// # Packages
//
//   - responder: the Response type, its encoding pipeline and finalization,
//     plus the Responder façade with structured error handling and logging
//     via functional options.
//   - codec: body encoders and media type helpers.
//   - tracing: W3C traceparent/tracestate contexts.
//   - timing: Server-Timing metrics and header rendering.
//   - reqctx: per-request start time, request id and upstream trace context,
//     with a middleware that attaches them.
//   - metrics: request accounting sinks, backed by Prometheus by default.
//   - router: http.ServeMux with request context, OpenAPI validation, CORS,
//     timeouts and logging defaults.
//   - config: YAML configuration with REPLYWEAVER_* environment overrides.
//   - jsonutil: tiny helpers around sonic for performance-sensitive encoding
//     tasks.
//
// # Quick Start
//
//	resp := responder.NewResponder(
//	    responder.WithLogger(logger),
//	    responder.WithMetricsSink(sink),
//	)
//
//	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	    res := resp.NewResponse(r, http.StatusOK)
//	    res.SetCSVResponse(rows)
//	    resp.Respond(w, r, res)
//	})
//
//	mux := router.New(api, router.WithResponder(resp))
//
// Sharing the responder keeps envelopes, problem documents, request ids and
// trace headers consistent, and keeps the in-flight gauge balanced between
// the router middleware and finalized responses.
package replyweaver
