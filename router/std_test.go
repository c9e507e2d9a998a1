package router

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/drblury/replyweaver/metrics"
	"github.com/drblury/replyweaver/reqctx"
	"github.com/drblury/replyweaver/responder"
)

func TestNewAllowsMiddlewareOverride(t *testing.T) {
	var order []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	mux := New(handler, WithMiddlewareChain(
		recordingMiddleware("one", &order),
		recordingMiddleware("two", &order),
	))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	expected := []string{"one-before", "two-before", "handler", "two-after", "one-after"}
	if !reflect.DeepEqual(order, expected) {
		t.Fatalf("unexpected middleware order: got %v, want %v", order, expected)
	}

	if rr.Code != http.StatusTeapot {
		t.Fatalf("unexpected response code: got %d want %d", rr.Code, http.StatusTeapot)
	}
}

func TestNewSupportsPrependAndAppendMiddlewares(t *testing.T) {
	var order []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusNoContent)
	})

	mux := New(
		handler,
		WithoutOpenAPIValidation(),
		WithoutCORSMiddleware(),
		WithoutTimeoutMiddleware(),
		WithoutLoggingMiddleware(),
		WithMiddlewares(recordingMiddleware("outer", &order)),
		WithTrailingMiddlewares(recordingMiddleware("inner", &order)),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	expected := []string{"outer-before", "inner-before", "handler", "inner-after", "outer-after"}
	if !reflect.DeepEqual(order, expected) {
		t.Fatalf("unexpected middleware order: got %v want %v", order, expected)
	}

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected response code: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestNewAppliesCORSEnforcementFromConfig(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux := New(
		handler,
		WithConfigMutator(func(cfg *Config) {
			cfg.CORS = CORSConfig{
				Origins:          []string{"https://example.com"},
				Methods:          []string{http.MethodGet, http.MethodPost},
				Headers:          []string{"Content-Type"},
				AllowCredentials: true,
			}
		}),
	)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rr.Code, http.StatusOK)
	}

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Fatalf("unexpected access-control-allow-origin: got %q want %q", got, "https://example.com")
	}

	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET,POST" {
		t.Fatalf("unexpected access-control-allow-methods: got %q want %q", got, "GET,POST")
	}

	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
		t.Fatalf("unexpected access-control-allow-headers: got %q want %q", got, "Content-Type")
	}

	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("unexpected access-control-allow-credentials: got %q want %q", got, "true")
	}
}

func TestWithoutCORSMiddlewareSkipsHeaders(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux := New(
		handler,
		WithConfigMutator(func(cfg *Config) {
			cfg.CORS = CORSConfig{
				Origins: []string{"https://example.com"},
				Methods: []string{http.MethodGet},
				Headers: []string{"Authorization"},
			}
		}),
		WithoutCORSMiddleware(),
	)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected CORS headers to be skipped when middleware disabled")
	}

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status code: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestTimeoutMiddlewareCanBeDisabled(t *testing.T) {
	longHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	withTimeout := New(
		longHandler,
		WithConfig(Config{Timeout: 1 * time.Millisecond}),
	)

	withoutTimeout := New(
		longHandler,
		WithConfig(Config{Timeout: 1 * time.Millisecond}),
		WithoutTimeoutMiddleware(),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rrTimeout := httptest.NewRecorder()
	withTimeout.ServeHTTP(rrTimeout, req)
	if rrTimeout.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected timeout handler to fire, got %d", rrTimeout.Code)
	}

	rrNoTimeout := httptest.NewRecorder()
	withoutTimeout.ServeHTTP(rrNoTimeout, req)
	if rrNoTimeout.Code != http.StatusOK {
		t.Fatalf("expected handler to complete when timeout disabled, got %d", rrNoTimeout.Code)
	}
}

func TestRequestContextMiddlewareNeedsSink(t *testing.T) {
	var attached bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, attached = reqctx.FromContext(r.Context())
	})

	New(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if attached {
		t.Fatal("request context attached without a sink")
	}

	rec := metrics.NewRecorder()
	New(handler, WithMetricsSink(rec)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !attached {
		t.Fatal("request context missing with a sink configured")
	}
	if got := rec.Count(http.StatusOK); got != 1 {
		t.Fatalf("expected request to be counted once, got %d", got)
	}
	if got := rec.InFlight(); got != 0 {
		t.Fatalf("in-flight gauge not balanced: %d", got)
	}

	New(handler, WithMetricsSink(rec), WithoutRequestContext()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if attached {
		t.Fatal("request context attached after WithoutRequestContext")
	}
}

func TestRequestContextBalancesResponsesOutsideResponder(t *testing.T) {
	rec := metrics.NewRecorder()
	res := responder.NewResponder(
		responder.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		responder.WithMetricsSink(rec),
	)

	api := http.NewServeMux()
	api.HandleFunc("GET /known", func(w http.ResponseWriter, r *http.Request) {
		res.RespondWithJSON(w, r, http.StatusOK, "known")
	})

	mux := New(api,
		WithResponder(res),
		WithoutLoggingMiddleware(),
		WithConfigMutator(func(cfg *Config) {
			cfg.CORS = CORSConfig{Origins: []string{"*"}, Methods: []string{http.MethodGet}}
		}),
	)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "handled", method: http.MethodGet, path: "/known", want: http.StatusOK},
		{name: "not found", method: http.MethodGet, path: "/missing", want: http.StatusNotFound},
		{name: "method not allowed", method: http.MethodPost, path: "/known", want: http.StatusMethodNotAllowed},
		{name: "preflight", method: http.MethodOptions, path: "/known", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Origin", "https://example.com")
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, tt.want)
			}
			if got := rec.InFlight(); got != 0 {
				t.Fatalf("in-flight gauge leaked: %d", got)
			}
		})
	}

	if got := rec.Total(); got != int64(len(tests)) {
		t.Fatalf("unexpected finished responses: got %d want %d", got, len(tests))
	}
	if got := rec.Count(http.StatusNotFound); got != 1 {
		t.Fatalf("404 not counted: %d", got)
	}
	if got := rec.Count(http.StatusMethodNotAllowed); got != 1 {
		t.Fatalf("405 not counted: %d", got)
	}
}

func TestLoggingMiddlewareIncludesRequestID(t *testing.T) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux := New(handler,
		WithLogger(logger),
		WithMetricsSink(metrics.Noop{}),
		WithoutTimeoutMiddleware(),
		WithConfigMutator(func(cfg *Config) {
			cfg.HideHeaders = []string{"Authorization"}
		}),
	)

	const requestID = "0195f0f4-8c3e-7a3b-9a1c-5b2d3e4f5a6b"
	req := httptest.NewRequest(http.MethodGet, "/widgets", nil)
	req.Header.Set(reqctx.HeaderRequestID, requestID)
	req.Header.Set("Authorization", "Bearer secret")
	mux.ServeHTTP(httptest.NewRecorder(), req)

	out := logs.String()
	if !strings.Contains(out, `"RequestID":"`+requestID+`"`) {
		t.Fatalf("request id missing from request log: %s", out)
	}
	if strings.Contains(out, "Bearer secret") {
		t.Fatalf("authorization header not redacted: %s", out)
	}
}

func TestNewPanicsWhenHandlerNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when handler is nil")
		}
	}()

	New(nil)
}

func recordingMiddleware(label string, sink *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*sink = append(*sink, label+"-before")
			next.ServeHTTP(w, r)
			*sink = append(*sink, label+"-after")
		})
	}
}
