package forward

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a downstream response is relayed.
const maxResponseBytes = 1 << 20

// Response is a downstream reply to be relayed to the original caller.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client posts accepted payloads to the downstream service.
type Client struct {
	destination string
	client      *http.Client
}

func NewClient(destination string, timeout time.Duration) *Client {
	return &Client{
		destination: destination,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether a downstream destination is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.destination != ""
}

// Forward sends body as JSON and returns the downstream reply.
func (c *Client) Forward(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.destination, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward to %s failed: %w", c.destination, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read forward response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        payload,
	}, nil
}
