package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTeamsTimeout = 10 * time.Second
	userAgent           = "sonarteams/1"
	maxResponseBody     = 64 << 10
)

// DeliveryResult describes one POST to the webhook.
type DeliveryResult struct {
	Succeeded bool
	// StatusCode is 0 when no response was received.
	StatusCode int
	// Detail holds the start of a rejected response body, for logs.
	Detail string
	Err    error
}

// TeamsClient posts prepared payloads to a Teams incoming webhook.
type TeamsClient struct {
	client *http.Client
}

// NewTeamsClient creates a TeamsClient. A zero timeout uses the default.
func NewTeamsClient(timeout time.Duration) *TeamsClient {
	if timeout <= 0 {
		timeout = defaultTeamsTimeout
	}
	return &TeamsClient{client: &http.Client{Timeout: timeout}}
}

// Post sends body to webhookURL once. A non-2xx answer is reported through
// DeliveryResult.Succeeded with a nil error; only failures to reach the
// endpoint return an error, and it wraps ErrTransport.
func (t *TeamsClient) Post(ctx context.Context, webhookURL string, body []byte) (DeliveryResult, error) {
	if err := ValidateWebhookURL(webhookURL); err != nil {
		return failed(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return failed(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req) // #nosec G107 -- webhookURL is a user-configured Teams incoming webhook
	if err != nil {
		return failed(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	res := DeliveryResult{
		StatusCode: resp.StatusCode,
		Succeeded:  resp.StatusCode >= 200 && resp.StatusCode <= 299,
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if !res.Succeeded {
		res.Detail = truncate(strings.TrimSpace(string(b)), 256)
	}
	return res, nil
}

func failed(err error) (DeliveryResult, error) {
	err = fmt.Errorf("%w: %v", ErrTransport, err)
	return DeliveryResult{Err: err}, err
}

// ValidateWebhookURL checks that raw is an absolute http(s) URL.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL must include a host")
	}
	return nil
}

// RedactURL strips path and query from a webhook URL. Teams embeds the
// credential in the path.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid-url>"
	}
	return u.Scheme + "://" + u.Host + "/***"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
