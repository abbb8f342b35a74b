package monitor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasgen/faults"
	"github.com/oasgen/faults/format"
)

// capturedRequest records what the endpoint received.
type capturedRequest struct {
	mu          sync.Mutex
	body        string
	contentType string
	count       int
}

func captureServer(t *testing.T, status int) (*httptest.Server, *capturedRequest) {
	t.Helper()
	cap := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		cap.mu.Lock()
		cap.body = string(data)
		cap.contentType = r.Header.Get("Content-Type")
		cap.count++
		cap.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, cap
}

// TestHTTPSinkSend verifies delivery of the JSON payload.
func TestHTTPSinkSend(t *testing.T) {
	srv, cap := captureServer(t, http.StatusAccepted)
	sink := NewHTTPSink(srv.URL, nil)

	rec := faults.New("fetch failed", faults.CodeNetworkTimeout, faults.Options{})
	payload := format.JSON(rec, faults.RenderOptions{})

	err := sink.Send(context.Background(), rec, payload)
	require.NoError(t, err)

	cap.mu.Lock()
	defer cap.mu.Unlock()
	assert.Equal(t, "application/json", cap.contentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(cap.body), &decoded))
	assert.Equal(t, "NETWORK_TIMEOUT", decoded["code"])
}

// TestHTTPSinkRejection verifies 4xx/5xx responses surface as errors.
func TestHTTPSinkRejection(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	sink := NewHTTPSink(srv.URL, nil)

	rec := faults.New("m", faults.CodeUnknown, faults.Options{})
	err := sink.Send(context.Background(), rec, "{}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

// TestHTTPSinkUnreachable verifies connection failures surface as errors.
func TestHTTPSinkUnreachable(t *testing.T) {
	sink := NewHTTPSink("http://127.0.0.1:1", nil)

	rec := faults.New("m", faults.CodeUnknown, faults.Options{})
	err := sink.Send(context.Background(), rec, "{}")
	require.Error(t, err)
}

// TestFilter verifies CEL expression matching over record fields.
func TestFilter(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		rec        *faults.Record
		want       bool
	}{
		{
			name:       "severity match",
			expression: `severity == 'fatal'`,
			rec: faults.New("boom", faults.CodeUnknown,
				faults.Options{Severity: faults.SeverityFatal}),
			want: true,
		},
		{
			name:       "severity mismatch",
			expression: `severity == 'fatal'`,
			rec:        faults.New("boom", faults.CodeUnknown, faults.Options{}),
			want:       false,
		},
		{
			name:       "code prefix",
			expression: `code.startsWith('FILE_') && !recoverable`,
			rec:        faults.New("missing", faults.CodeFileNotFound, faults.Options{}),
			want:       true,
		},
		{
			name:       "category or",
			expression: `category == 'network' || category == 'template'`,
			rec:        faults.New("t", faults.CodeTemplateSyntax, faults.Options{}),
			want:       true,
		},
		{
			name:       "message contains",
			expression: `message.contains('timeout')`,
			rec:        faults.New("request timeout", faults.CodeNetworkTimeout, faults.Options{}),
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.expression)
			require.NoError(t, err)

			got, err := f.Match(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestFilterCompileErrors verifies bad expressions fail at construction
// and non-boolean expressions fail at evaluation.
func TestFilterCompileErrors(t *testing.T) {
	_, err := NewFilter(`severity ==`)
	require.Error(t, err, "syntax error must fail compilation")

	_, err = NewFilter(`hostname == 'x'`)
	require.Error(t, err, "unknown variable must fail compilation")

	f, err := NewFilter(`message`)
	require.NoError(t, err)
	_, err = f.Match(faults.New("m", faults.CodeUnknown, faults.Options{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want bool")
}

// TestFilteredSink verifies only matching records are forwarded.
func TestFilteredSink(t *testing.T) {
	srv, cap := captureServer(t, http.StatusOK)
	filter, err := NewFilter(`category == 'network'`)
	require.NoError(t, err)
	sink := NewFilteredSink(filter, NewHTTPSink(srv.URL, nil))
	ctx := context.Background()

	network := faults.New("down", faults.CodeNetworkTimeout, faults.Options{})
	require.NoError(t, sink.Send(ctx, network, "{}"))

	validation := faults.New("invalid", faults.CodeValidationFailed, faults.Options{})
	require.NoError(t, sink.Send(ctx, validation, "{}"))

	cap.mu.Lock()
	defer cap.mu.Unlock()
	assert.Equal(t, 1, cap.count, "only the matching record should be delivered")
}
