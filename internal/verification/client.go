package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// LocalClient adapts the in-process Service to the ServerClient interface
// used by the orchestrator, for deployments where upload flow and
// verification service share a binary.
type LocalClient struct {
	service Service
}

func NewLocalClient(service Service) *LocalClient {
	return &LocalClient{service: service}
}

func (c *LocalClient) Verify(ctx context.Context, userID uuid.UUID, bundle Bundle) (*Verdict, error) {
	return c.service.VerifyUpload(ctx, userID, bundle)
}

// TimeoutClient bounds the verification round-trip with a single deadline.
// Behavior on timeout matches "service unavailable": skip and continue.
type TimeoutClient struct {
	inner   ServerClient
	timeout time.Duration
}

func NewTimeoutClient(inner ServerClient, timeout time.Duration) *TimeoutClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TimeoutClient{inner: inner, timeout: timeout}
}

func (c *TimeoutClient) Verify(ctx context.Context, userID uuid.UUID, bundle Bundle) (*Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Verify(ctx, userID, bundle)
}

// HTTPClient calls a remote verification service. One bounded timeout, no
// retries: a retried duplicate check would pollute its own counts.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Verify(ctx context.Context, _ uuid.UUID, bundle Bundle) (*Verdict, error) {
	body, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/verification/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verification service returned %d", resp.StatusCode)
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &verdict, nil
}
