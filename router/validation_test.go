package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/drblury/replyweaver/codec"
	"github.com/drblury/replyweaver/metrics"
	"github.com/drblury/replyweaver/reqctx"
	"github.com/drblury/replyweaver/responder"
)

const itemsSpec = `
openapi: 3.0.3
info:
  title: items
  version: "1.0"
paths:
  /items:
    get:
      parameters:
        - name: limit
          in: query
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: ok
`

func loadItemsSpec(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(itemsSpec))
	if err != nil {
		t.Fatalf("load spec: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("validate spec: %v", err)
	}
	return doc
}

func TestValidationFailuresUseResponder(t *testing.T) {
	rec := metrics.NewRecorder()
	res := responder.NewResponder(
		responder.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		responder.WithMetricsSink(rec),
	)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res.RespondWithJSON(w, r, http.StatusOK, []string{"a"})
	})
	mux := New(handler,
		WithSwagger(loadItemsSpec(t)),
		WithResponder(res),
		WithoutLoggingMiddleware(),
	)

	t.Run("invalid request", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.Header.Set(reqctx.HeaderRequestID, "0195f0f4-8c3e-7a3b-9a1c-5b2d3e4f5a6b")
		mux.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
		}
		if got := rr.Header().Get("Content-Type"); got != codec.ContentTypeProblemJSON {
			t.Fatalf("unexpected content type: %q", got)
		}
		if got := rr.Header().Get(responder.HeaderRequestID); got != "0195f0f4-8c3e-7a3b-9a1c-5b2d3e4f5a6b" {
			t.Fatalf("request id not propagated: %q", got)
		}
		if !strings.Contains(rr.Body.String(), `"instance":"/items"`) {
			t.Fatalf("problem body missing instance: %s", rr.Body.String())
		}
	})

	t.Run("valid request", func(t *testing.T) {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items?limit=5", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("unexpected status: got %d want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
		}
		if strings.TrimSpace(rr.Body.String()) != `["a"]` {
			t.Fatalf("unexpected body: %s", rr.Body.String())
		}
	})

	if got := rec.InFlight(); got != 0 {
		t.Fatalf("in-flight gauge not balanced: %d", got)
	}
	if got := rec.Total(); got != 2 {
		t.Fatalf("unexpected finished responses: %d", got)
	}
}

func TestValidationFailuresWithoutResponder(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux := New(handler, WithSwagger(loadItemsSpec(t)), WithoutLoggingMiddleware())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
