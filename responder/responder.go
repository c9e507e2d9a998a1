package responder

import (
	"log/slog"
	"net/http"

	"github.com/drblury/replyweaver/codec"
	"github.com/drblury/replyweaver/metrics"
	"github.com/drblury/replyweaver/reqctx"
	"github.com/drblury/replyweaver/tracing"
)

const statusDocBaseURL = "https://httpstatuses.io"

// ErrorClassifierFunc inspects an error and returns the HTTP status that should
// be used for the response. The boolean indicates whether the error was
// classified and prevents the generic internal server handler from running.
type ErrorClassifierFunc func(err error) (status int, handled bool)

// ResponderOption follows the functional options pattern used by NewResponder
// to configure optional collaborators.
type ResponderOption func(*Responder)

type statusMeta struct {
	typeURI  string
	title    string
	logLevel slog.Level
	logMsg   string
}

// StatusMetadata allows callers to customise how particular HTTP status codes
// are logged and represented in error payloads.
type StatusMetadata struct {
	TypeURI  string
	Title    string
	LogLevel slog.Level
	LogMsg   string
}

// Responder builds responses for HTTP handlers from the request context,
// writes them and logs failures. Every response it creates reports to the
// same metrics sink and uses the same tracestate vendor key.
type Responder struct {
	log             *slog.Logger
	statusMetadata  map[int]statusMeta
	errorClassifier ErrorClassifierFunc
	sink            metrics.Sink
	vendor          string
}

// NewResponder constructs a Responder with default status metadata, the
// global slog logger and the default metrics sink. Use ResponderOption
// functions to override specific behaviours.
func NewResponder(opts ...ResponderOption) *Responder {
	r := &Responder{
		log:            slog.Default(),
		statusMetadata: defaultStatusMetadata(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// WithLogger injects a custom slog logger for error reporting.
func WithLogger(logger *slog.Logger) ResponderOption {
	return func(r *Responder) {
		if logger != nil {
			r.log = logger
		}
	}
}

// WithErrorClassifier installs a classifier used by HandleErrors to derive the
// HTTP status code from returned errors.
func WithErrorClassifier(classifier ErrorClassifierFunc) ResponderOption {
	return func(r *Responder) {
		r.errorClassifier = classifier
	}
}

// WithMetricsSink routes request accounting to sink instead of the process
// default.
func WithMetricsSink(sink metrics.Sink) ResponderOption {
	return func(r *Responder) {
		r.sink = sink
	}
}

// WithTraceVendor sets the tracestate key written when a response has to
// synthesise its own trace context. A key tracestate cannot carry is
// ignored and the default vendor stays in place.
func WithTraceVendor(vendor string) ResponderOption {
	return func(r *Responder) {
		if err := tracing.ValidateVendor(vendor); err != nil {
			r.log.Warn("ignoring trace vendor", "vendor", vendor, "error", err)
			return
		}
		r.vendor = vendor
	}
}

// WithStatusMetadata overrides the error metadata used for a specific HTTP
// status code.
func WithStatusMetadata(status int, meta StatusMetadata) ResponderOption {
	return func(r *Responder) {
		if r.statusMetadata == nil {
			r.statusMetadata = make(map[int]statusMeta)
		}
		r.statusMetadata[status] = normalizeStatusMeta(status, statusMeta{
			typeURI:  meta.TypeURI,
			title:    meta.Title,
			logLevel: meta.LogLevel,
			logMsg:   meta.LogMsg,
		})
	}
}

// Logger returns the slog logger used internally by the responder.
func (r *Responder) Logger() *slog.Logger {
	return r.logger()
}

// MetricsSink returns the sink responses report to.
func (r *Responder) MetricsSink() metrics.Sink {
	if r == nil || r.sink == nil {
		return metrics.Default()
	}
	return r.sink
}

// NewResponse creates a response for status bound to req. The request
// context attached by reqctx.Middleware is reused; without one the request
// is counted as started here. Failures take their title and problem type
// from the status metadata.
func (r *Responder) NewResponse(req *http.Request, status int) *Response[StatusCode] {
	res := New(StatusCode(status))
	r.adopt(req, res)
	return res
}

func (r *Responder) adopt(req *http.Request, res *Response[StatusCode]) {
	res.SetMetricsSink(r.MetricsSink())
	res.SetTraceVendor(r.vendor)

	var rc *reqctx.Context
	if req != nil {
		rc, _ = reqctx.FromContext(req.Context())
	}
	if rc == nil {
		rc = reqctx.Begin(req, r.MetricsSink())
	}
	res.ApplyContext(rc)

	if !res.IsSuccess() {
		meta := r.statusMetaFor(res.StatusCode())
		res.title = meta.title
		res.typeURI = meta.typeURI
	}
}

// Respond finalizes res and writes it to w. Encoding and write failures are
// logged; an encoding failure has already been turned into a 500 by then.
func (r *Responder) Respond(w http.ResponseWriter, req *http.Request, res *Response[StatusCode]) {
	if w == nil || res == nil {
		return
	}
	if err := res.WriteTo(w); err != nil {
		r.logger().ErrorContext(requestContext(req), "failed to write response",
			"error", err,
			"status", res.StatusCode(),
			"requestId", res.RequestID().String(),
		)
	}
}

// RespondWithJSON serialises the provided value as the bare JSON body using
// the supplied status code.
func (r *Responder) RespondWithJSON(w http.ResponseWriter, req *http.Request, status int, v any) {
	res := r.NewResponse(req, status)
	res.SetJSONResponse(v)
	r.Respond(w, req, res)
}

// RespondWithData wraps v in the response envelope.
func (r *Responder) RespondWithData(w http.ResponseWriter, req *http.Request, status int, v any) {
	res := r.NewResponse(req, status)
	res.SetData(v)
	r.Respond(w, req, res)
}

// RespondWithEncoder sends v through enc, using the encoder's media type.
func (r *Responder) RespondWithEncoder(w http.ResponseWriter, req *http.Request, status int, v any, enc codec.Encoder) {
	res := r.NewResponse(req, status)
	res.SetJSONData(v)
	if contentType := enc.ContentType(); contentType != "" {
		res.SetContentType(contentType)
	}
	res.SetEncoder(enc)
	r.Respond(w, req, res)
}

// RespondWithValidation reports v: 200 when it succeeded, 400 with the field
// failures as data otherwise. It returns v.IsSuccess().
func (r *Responder) RespondWithValidation(w http.ResponseWriter, req *http.Request, v *Validation) bool {
	res := FromValidation[StatusCode](v)
	r.adopt(req, res)
	if !v.IsSuccess() {
		r.logger().LogAttrs(requestContext(req), slog.LevelWarn, "request validation failed",
			slog.Any("fields", v.Map()),
			slog.String("requestId", res.RequestID().String()),
		)
	}
	r.Respond(w, req, res)
	return v.IsSuccess()
}

// RespondWithView renders the named view as HTML.
func (r *Responder) RespondWithView(w http.ResponseWriter, req *http.Request, status int, renderer Renderer, name string, data any) {
	res := r.NewResponse(req, status)
	res.Render(renderer, name, data)
	if !res.IsSuccess() && status < http.StatusBadRequest {
		r.logger().ErrorContext(requestContext(req), "failed to render view",
			"view", name,
			"error", res.Message(),
		)
	}
	r.Respond(w, req, res)
}

func (r *Responder) logger() *slog.Logger {
	if r == nil || r.log == nil {
		return slog.Default()
	}
	return r.log
}

func (r *Responder) classifyError(err error) (int, bool) {
	if r.errorClassifier == nil {
		return 0, false
	}
	return r.errorClassifier(err)
}

func defaultStatusMetadata() map[int]statusMeta {
	return map[int]statusMeta{
		http.StatusInternalServerError: normalizeStatusMeta(http.StatusInternalServerError, statusMeta{logLevel: slog.LevelError}),
		http.StatusBadRequest:          normalizeStatusMeta(http.StatusBadRequest, statusMeta{logLevel: slog.LevelWarn}),
		http.StatusUnauthorized:        normalizeStatusMeta(http.StatusUnauthorized, statusMeta{logLevel: slog.LevelWarn}),
	}
}
