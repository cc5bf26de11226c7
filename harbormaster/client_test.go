package harbormaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(zerolog.Nop(), WithRetryDelay(10*time.Millisecond))
}

func TestClient_Submit(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/harbormaster.sendmessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "json", r.PostForm.Get("output"))
		assert.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("params")), &got))
		_, _ = w.Write([]byte(`{"result":null,"error_code":null,"error_info":null}`))
	}))
	defer server.Close()

	rc := newRunContext(t, model.RunContextOptions{PhabricatorURI: server.URL + "/"})
	payload := Payload{
		BuildTargetPHID: rc.BuildTargetPHID(),
		Type:            MessageTypeWork,
		Lint:            []Lint{{Name: "unused", Code: "unused_variables", Severity: SeverityWarning, Path: "src/lib.rs", Line: intPtr(10)}},
		Unit:            []Unit{},
	}

	require.NoError(t, newTestClient().Submit(context.Background(), rc, payload))

	assert.Equal(t, "PHID-HMBT-abc", got["buildTargetPHID"])
	assert.Equal(t, "work", got["type"])
	assert.Equal(t, map[string]any{"token": "api-secret"}, got["__conduit__"])
	require.Len(t, got["lint"], 1)
	assert.Equal(t, []any{}, got["unit"])
}

func TestClient_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		wantCode string
		attempts int32
	}{
		{
			name:     "conduit auth error",
			status:   http.StatusOK,
			body:     `{"result":null,"error_code":"ERR-INVALID-AUTH","error_info":"API token is invalid"}`,
			wantKind: ErrorKindAuth,
			wantCode: "ERR-INVALID-AUTH",
			attempts: 1,
		},
		{
			name:     "http forbidden",
			status:   http.StatusForbidden,
			body:     `forbidden`,
			wantKind: ErrorKindAuth,
			attempts: 1,
		},
		{
			name:     "conduit rejects parameters",
			status:   http.StatusOK,
			body:     `{"result":null,"error_code":"ERR-CONDUIT-CORE","error_info":"Invalid build target PHID"}`,
			wantKind: ErrorKindRejected,
			wantCode: "ERR-CONDUIT-CORE",
			attempts: 1,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `nope`,
			wantKind: ErrorKindRejected,
			attempts: 1,
		},
		{
			name:     "undecodable response",
			status:   http.StatusOK,
			body:     `<html>`,
			wantKind: ErrorKindRejected,
			attempts: 1,
		},
		{
			name:     "gateway error is retried once",
			status:   http.StatusBadGateway,
			body:     `upstream down`,
			wantKind: ErrorKindNetwork,
			attempts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			rc := newRunContext(t, model.RunContextOptions{PhabricatorURI: server.URL})
			err := newTestClient().Submit(context.Background(), rc, Translate(&model.AggregatedReport{}, rc))
			require.Error(t, err)

			var se *SubmissionError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantKind, se.Kind)
			assert.Equal(t, tt.wantCode, se.Code)
			assert.Equal(t, tt.attempts, attempts.Load())
		})
	}
}

func TestClient_RetrySucceeds(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"result":null,"error_code":null,"error_info":null}`))
	}))
	defer server.Close()

	rc := newRunContext(t, model.RunContextOptions{PhabricatorURI: server.URL})
	require.NoError(t, newTestClient().Submit(context.Background(), rc, Translate(&model.AggregatedReport{}, rc)))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	rc := newRunContext(t, model.RunContextOptions{PhabricatorURI: url})
	err := newTestClient().Submit(context.Background(), rc, Translate(&model.AggregatedReport{}, rc))
	assert.Equal(t, ErrorKindNetwork, KindOf(err))
	assert.Contains(t, err.Error(), "harbormaster submission failed (network)")
}

func TestClient_CancelledDuringRetryDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(zerolog.Nop(), WithRetryDelay(time.Hour))
	rc := newRunContext(t, model.RunContextOptions{PhabricatorURI: server.URL})

	done := make(chan error, 1)
	go func() {
		done <- client.Submit(ctx, rc, Translate(&model.AggregatedReport{}, rc))
	}()
	cancel()

	select {
	case err := <-done:
		assert.Equal(t, ErrorKindNetwork, KindOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("Submit did not return after cancellation")
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "  ", "empty response body"},
		{"short", " nope\n", "nope"},
		{"ascii truncated", strings.Repeat("a", 250), strings.Repeat("a", 200) + "..."},
		{"multi-byte truncated on rune boundary", strings.Repeat("é", 250), strings.Repeat("é", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snippet([]byte(tt.in))
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
