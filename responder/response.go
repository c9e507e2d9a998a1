package responder

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"github.com/drblury/replyweaver/codec"
	"github.com/drblury/replyweaver/jsonutil"
	"github.com/drblury/replyweaver/metrics"
	"github.com/drblury/replyweaver/timing"
	"github.com/drblury/replyweaver/tracing"
)

// RequestContext supplies the per-request state a response inherits.
type RequestContext interface {
	StartTime() time.Time
	RequestID() uuid.UUID
	Instance() string
	NewTraceContext() tracing.TraceContext
}

// requestTracker is implemented by request contexts that own the in-flight
// accounting of their request. Finish reports whether the context tracks the
// request; a tracked request is reported at most once.
type requestTracker interface {
	Finish(statusCode int, elapsed time.Duration) bool
}

// Header is a single outgoing header. Lists of headers may repeat a name.
type Header struct {
	Name  string
	Value string
}

// payload holds either pre-encoded JSON or a structured value, never both.
type payload interface {
	isPayload()
}

type rawPayload []byte

func (rawPayload) isPayload() {}

func (p rawPayload) MarshalJSON() ([]byte, error) { return p, nil }

type structuredPayload struct {
	value any
}

func (structuredPayload) isPayload() {}

// Response is one outgoing message. It is owned by a single request handler,
// mutated through its setters and consumed by Finalize or WriteTo.
//
// The outcome text is rendered as "message" on success and as "detail" on
// failure, so the two can never be populated together.
type Response[S Code[S]] struct {
	typeURI   string
	title     string
	status    int
	errorCode string
	instance  string
	success   bool
	note      string
	hasNote   bool

	start     time.Time
	requestID uuid.UUID

	payload     payload
	encoder     codec.Encoder
	contentType string

	trace        tracing.TraceContext
	hasTrace     bool
	serverTiming timing.ServerTiming
	headers      []Header

	sink      metrics.Sink
	tracker   requestTracker
	vendor    string
	finalized bool
}

// New creates a response for code with start time now and no request context.
func New[S Code[S]](code S) *Response[S] {
	r := &Response[S]{start: time.Now()}
	r.SetCode(code)
	return r
}

// WithContext creates a response whose start time, request id, instance and
// trace context come from ctx.
func WithContext[S Code[S]](code S, ctx RequestContext) *Response[S] {
	r := New(code)
	r.ApplyContext(ctx)
	return r
}

// Default creates a successful response.
func Default[S Code[S]]() *Response[S] {
	return New(wellKnown[S]().OK())
}

// ApplyContext copies the request state from ctx and requests a fresh trace
// context. The instance is only kept for failures.
func (r *Response[S]) ApplyContext(ctx RequestContext) {
	if ctx == nil {
		return
	}
	r.instance = ""
	if !r.success {
		r.instance = ctx.Instance()
	}
	r.start = ctx.StartTime()
	r.requestID = ctx.RequestID()
	r.trace = ctx.NewTraceContext()
	r.hasTrace = true
	r.tracker, _ = ctx.(requestTracker)
}

// SetCode re-derives status, success and the outcome text from code. The
// payload, headers and trace state are left alone.
func (r *Response[S]) SetCode(code S) {
	r.typeURI = code.TypeURI()
	r.title = code.Title()
	r.status = code.StatusCode()
	r.errorCode = code.ErrorCode()
	r.success = code.IsSuccess()
	r.note = code.Message()
	r.hasNote = r.note != ""
}

// SetInstance sets the URI reference identifying this occurrence of a problem.
func (r *Response[S]) SetInstance(instance string) {
	r.instance = instance
}

// SetMessage sets the outcome text without changing the success flag.
func (r *Response[S]) SetMessage(message string) {
	r.note = message
	r.hasNote = true
}

// SetErrorMessage reports err as the outcome text. A successful response is
// first escalated to the internal server error code so the error is always
// rendered as a problem detail.
func (r *Response[S]) SetErrorMessage(err error) {
	if err == nil {
		return
	}
	if r.success {
		r.SetCode(wellKnown[S]().InternalServerError())
	}
	r.SetMessage(err.Error())
}

// SetData encodes v to JSON and stores it as the raw payload. An encoding
// failure is reported through SetErrorMessage instead of being returned.
func (r *Response[S]) SetData(v any) {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		r.SetErrorMessage(err)
		return
	}
	r.payload = rawPayload(data)
}

// SetJSONData stores v as the structured payload. nil clears the payload.
func (r *Response[S]) SetJSONData(v any) {
	if v == nil {
		r.payload = nil
		return
	}
	r.payload = structuredPayload{value: v}
}

// SetValidationData stores the failed fields of v as the raw payload.
func (r *Response[S]) SetValidationData(v *Validation) {
	r.SetData(v.Map())
}

// SetEncoder installs the encoder that produces the body, bypassing content
// type dispatch.
func (r *Response[S]) SetEncoder(enc codec.Encoder) {
	r.encoder = enc
}

// SetContentType overrides the success-dependent default content type.
func (r *Response[S]) SetContentType(contentType string) {
	r.contentType = contentType
}

// SetMetricsSink overrides the sink reported to by ResponseTime.
func (r *Response[S]) SetMetricsSink(sink metrics.Sink) {
	r.sink = sink
}

// SetTraceVendor overrides the tracestate key used for synthesised trace
// contexts. Keys tracestate cannot carry are ignored.
func (r *Response[S]) SetTraceVendor(vendor string) {
	if tracing.ValidateVendor(vendor) != nil {
		return
	}
	r.vendor = vendor
}

func (r *Response[S]) setResponse(v any, enc codec.Encoder) {
	r.SetJSONData(v)
	if contentType := enc.ContentType(); contentType != "" {
		r.SetContentType(contentType)
	}
	r.SetEncoder(enc)
}

// SetFormResponse sends v as application/x-www-form-urlencoded.
func (r *Response[S]) SetFormResponse(v any) { r.setResponse(v, codec.Form) }

// SetJSONResponse sends v as a bare JSON body instead of the envelope. The
// content type keeps its success-dependent default.
func (r *Response[S]) SetJSONResponse(v any) {
	r.SetJSONData(v)
	r.SetEncoder(codec.JSON)
}

// SetJSONLinesResponse sends v as JSON Lines, one record per element.
func (r *Response[S]) SetJSONLinesResponse(v any) { r.setResponse(v, codec.JSONLines) }

// SetMsgPackResponse sends v as MessagePack.
func (r *Response[S]) SetMsgPackResponse(v any) { r.setResponse(v, codec.MsgPack) }

// SetCSVResponse sends v as CSV.
func (r *Response[S]) SetCSVResponse(v any) { r.setResponse(v, codec.CSV) }

// SetBSONResponse sends v as a BSON document.
func (r *Response[S]) SetBSONResponse(v any) { r.setResponse(v, codec.BSON) }

// SetTextResponse sends text as text/plain.
func (r *Response[S]) SetTextResponse(text string) {
	r.SetJSONData(text)
	r.SetContentType(codec.ContentTypeText)
	r.SetEncoder(codec.Encoder{})
}

// Render executes the named view and sends the result as text/html. A render
// failure turns the response into an internal server error carrying the
// failure as detail.
func (r *Response[S]) Render(renderer Renderer, name string, data any) {
	var buf bytes.Buffer
	err := errNoRenderer
	if renderer != nil {
		err = renderer.Render(&buf, name, data)
	}
	if err != nil {
		r.SetCode(wellKnown[S]().InternalServerError())
		r.SetMessage(err.Error())
		r.payload = nil
		r.contentType = ""
		r.encoder = codec.Encoder{}
		return
	}
	r.SetJSONData(buf.String())
	r.SetContentType(codec.ContentTypeHTML)
	r.SetEncoder(codec.Encoder{})
}

// InsertHeader appends a custom header. Names may repeat.
func (r *Response[S]) InsertHeader(name, value string) {
	r.headers = append(r.headers, Header{Name: name, Value: value})
}

// Header returns the first custom header value with the given name.
func (r *Response[S]) Header(name string) (string, bool) {
	for _, h := range r.headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Headers returns the custom headers in insertion order.
func (r *Response[S]) Headers() []Header {
	return r.headers
}

// StatusCode returns the numeric status.
func (r *Response[S]) StatusCode() int { return r.status }

// IsSuccess reports whether the response is successful.
func (r *Response[S]) IsSuccess() bool { return r.success }

// HasContext reports whether a trace context is attached and the request id
// is set.
func (r *Response[S]) HasContext() bool {
	return r.hasTrace && r.requestID != uuid.Nil
}

// Message returns the outcome text: the detail of a failure or the message
// of a success.
func (r *Response[S]) Message() string {
	if !r.hasNote {
		return ""
	}
	return r.note
}

// Instance returns the problem instance URI.
func (r *Response[S]) Instance() string { return r.instance }

// RequestID returns the request id, uuid.Nil when absent.
func (r *Response[S]) RequestID() uuid.UUID { return r.requestID }

// TraceID returns the trace id of the attached context, uuid.Nil without one.
func (r *Response[S]) TraceID() uuid.UUID {
	if !r.hasTrace {
		return uuid.Nil
	}
	return uuid.UUID(r.trace.TraceID())
}

// ContentType returns the explicit override, or the JSON envelope type
// matching the outcome.
func (r *Response[S]) ContentType() string {
	if r.contentType != "" {
		return r.contentType
	}
	if r.success {
		return codec.ContentTypeJSON
	}
	return codec.ContentTypeProblemJSON
}

func (r *Response[S]) metricsSink() metrics.Sink {
	if r.sink == nil {
		return metrics.Default()
	}
	return r.sink
}

func (r *Response[S]) traceVendor() string {
	if r.vendor == "" {
		return tracing.DefaultVendor
	}
	return r.vendor
}
