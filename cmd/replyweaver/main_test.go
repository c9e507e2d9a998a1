package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/drblury/replyweaver/config"
	"github.com/drblury/replyweaver/jsonutil"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name:  "envelope",
			stdin: `{"a":1}`,
			args:  []string{"encode"},
			want:  `{"status":200,"success":true,"message":"OK","data":{"a":1}}`,
		},
		{
			name:  "csv",
			stdin: `[{"b":2,"a":"x"},{"a":"y"}]`,
			args:  []string{"encode", "--format", "csv"},
			want:  "a,b\nx,2\ny,\n",
		},
		{
			name:  "jsonlines",
			stdin: `[1,"two",{"three":3}]`,
			args:  []string{"encode", "-f", "jsonlines"},
			want:  "1\n\"two\"\n{\"three\":3}\n",
		},
		{
			name:  "form",
			stdin: `{"q":"go"}`,
			args:  []string{"encode", "-f", "form"},
			want:  "q=go",
		},
		{
			name:  "text",
			stdin: "not json",
			args:  []string{"encode", "-f", "text"},
			want:  "not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEncodeCommandFailureStatus(t *testing.T) {
	out, err := runCLI(t, `null`, "encode", "--status", "404", "--message", "gone")
	require.NoError(t, err)

	var problem map[string]any
	require.NoError(t, jsonutil.Unmarshal([]byte(out), &problem))
	assert.Equal(t, "gone", problem["detail"])
	assert.Equal(t, "Not Found", problem["title"])
	assert.NotContains(t, problem, "message")
}

func TestEncodeCommandMsgPack(t *testing.T) {
	out, err := runCLI(t, `{"name":"ada"}`, "encode", "-f", "msgpack")
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, msgpack.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "ada", decoded["name"])
}

func TestEncodeCommandHeaders(t *testing.T) {
	out, err := runCLI(t, `[{"a":1}]`, "encode", "-f", "csv", "--headers")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Status: 200\nContent-Type: text/csv; charset=utf-8\n"), out)
	assert.Contains(t, out, "traceparent: 00-")
	assert.Contains(t, out, "tracestate: replyweaver=")
	assert.Contains(t, out, "server-timing: total;dur=")
	assert.True(t, strings.HasSuffix(out, "\na\n1\n"), out)
}

func TestEncodeCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{name: "unknown format", stdin: `{}`, args: []string{"encode", "-f", "yaml"}, wantErr: "unknown format"},
		{name: "bad json", stdin: `{`, args: []string{"encode"}, wantErr: "decode input"},
		{name: "unsupported shape", stdin: `"scalar"`, args: []string{"encode", "-f", "bson"}, wantErr: "encode bson"},
		{name: "bad status", stdin: `{}`, args: []string{"encode", "--status", "42"}, wantErr: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler, err := newServerHandler(cfg, "", logger, prometheus.NewRegistry())
	require.NoError(t, err)
	return handler
}

func TestServerEncodeEndpoint(t *testing.T) {
	handler := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/encode?format=csv", strings.NewReader(`[{"id":1},{"id":2}]`))
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "id\n1\n2\n", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("x-request-id"))

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/encode?format=yaml", strings.NewReader(`{}`))
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServerStatusEndpoint(t *testing.T) {
	handler := newTestServer(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/status/418?message=short", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "application/problem+json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"detail":"short"`)
	assert.True(t, strings.HasPrefix(rr.Header().Get("server-timing"), `handler;desc="status", total;dur=`))
}

func TestServerValidateEndpoint(t *testing.T) {
	handler := newTestServer(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/validate", strings.NewReader(`{"name":"ada"}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"data":{"email":"required"}`)
}

func TestServerMetricsEndpoint(t *testing.T) {
	handler := newTestServer(t)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/status/200", nil))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `replyweaver_http_responses_total{status_code="200"} 1`)
	assert.Contains(t, body, "replyweaver_http_requests_in_flight 0")
}
