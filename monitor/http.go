package monitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oasgen/faults"
)

// sendTimeout bounds each delivery independently of the caller's context,
// so a slow endpoint cannot stall the pipeline.
const sendTimeout = 5 * time.Second

// HTTPSink posts the JSON form of each handled error to a caller-supplied
// endpoint. The endpoint address is configuration; this subsystem does not
// interpret it.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink creates a sink posting to endpoint. A nil client uses a
// default with the send timeout.
func NewHTTPSink(endpoint string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	return &HTTPSink{endpoint: endpoint, client: client}
}

// Send posts one payload. The request uses its own timeout so delivery
// never outlives the monitoring budget.
func (s *HTTPSink) Send(ctx context.Context, _ *faults.Record, payload string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, s.endpoint, strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build monitoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver to monitoring endpoint: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("monitoring endpoint rejected payload: %s", resp.Status)
	}
	return nil
}
