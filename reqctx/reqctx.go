// Package reqctx captures the per-request state responses inherit: when the
// request started, its id, the instance URI, and the upstream trace context
// if the caller sent one.
package reqctx

import (
	"context"
	mathrand "math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/drblury/replyweaver/metrics"
	"github.com/drblury/replyweaver/tracing"
)

// HeaderRequestID is read from incoming requests to reuse a caller id.
const HeaderRequestID = "X-Request-Id"

// Context implements the responder's RequestContext.
type Context struct {
	start       time.Time
	requestID   uuid.UUID
	instance    string
	upstream    tracing.TraceContext
	hasUpstream bool

	sink     metrics.Sink
	finished atomic.Bool
}

type contextKey struct{}

// FromRequest derives a Context from req. A valid UUID in X-Request-Id is
// reused, otherwise a new id is minted. A valid traceparent header becomes
// the upstream trace context.
func FromRequest(req *http.Request) *Context {
	c := &Context{start: time.Now()}
	if req == nil {
		c.requestID = NewRequestID()
		return c
	}

	if id, err := uuid.Parse(req.Header.Get(HeaderRequestID)); err == nil && id != uuid.Nil {
		c.requestID = id
	} else {
		c.requestID = NewRequestID()
	}
	if req.URL != nil {
		c.instance = req.URL.RequestURI()
	}
	if tc, err := tracing.Parse(req.Header.Get(tracing.TraceparentHeader), req.Header.Get(tracing.TracestateHeader)); err == nil {
		c.upstream = tc
		c.hasUpstream = true
	}
	return c
}

// Begin derives a Context from req and reports the request as in flight on
// sink. The request leaves the gauge through Finish.
func Begin(req *http.Request, sink metrics.Sink) *Context {
	c := FromRequest(req)
	if sink == nil {
		sink = metrics.Default()
	}
	c.sink = sink
	sink.RequestStarted()
	return c
}

// Finish reports the response for a request started with Begin. Only the
// first call reaches the sink. It returns false for contexts that were not
// started with Begin, leaving the report to the caller.
func (c *Context) Finish(statusCode int, elapsed time.Duration) bool {
	if c.sink == nil {
		return false
	}
	if c.finished.CompareAndSwap(false, true) {
		c.sink.ResponseFinished(statusCode, elapsed)
	}
	return true
}

// Finished reports whether Finish already reported the request.
func (c *Context) Finished() bool { return c.finished.Load() }

func (c *Context) StartTime() time.Time { return c.start }

func (c *Context) RequestID() uuid.UUID { return c.requestID }

func (c *Context) Instance() string { return c.instance }

// Upstream returns the trace context sent by the caller, if any.
func (c *Context) Upstream() (tracing.TraceContext, bool) {
	return c.upstream, c.hasUpstream
}

// NewTraceContext continues the upstream trace with a new span, or starts a
// new trace when the request carried none.
func (c *Context) NewTraceContext() tracing.TraceContext {
	if c.hasUpstream {
		return c.upstream.Child()
	}
	return tracing.New()
}

// WithContext stores c in ctx.
func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the Context stored by WithContext or Middleware.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok && c != nil
}

// Middleware attaches a Context to every request and counts it as in flight
// on sink. Responses built from the attached context report completion;
// requests answered without one, such as router 404s or CORS preflights, are
// reported with the status written once the handler returns.
func Middleware(sink metrics.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := Begin(r, sink)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				c.Finish(sw.status, time.Since(c.start))
			}()
			next.ServeHTTP(sw, r.WithContext(WithContext(r.Context(), c)))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	w.wroteHeader = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewRequestID mints a time-ordered id: a ULID carried in UUID form.
func NewRequestID() uuid.UUID {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return uuid.UUID(id)
}
