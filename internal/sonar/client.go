package sonar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal SonarQube Web API client. Only the calls needed to fill
// in measures and to check connectivity are implemented.
type Client struct {
	http *http.Client
}

// NewClient returns a Client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// SystemStatus is the response of GET /api/system/status.
type SystemStatus struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

type measuresResponse struct {
	Component struct {
		Key      string    `json:"key"`
		Measures []measure `json:"measures"`
	} `json:"component"`
}

type measure struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
	Period *struct {
		Value string `json:"value"`
	} `json:"period"`
	Periods []struct {
		Value string `json:"value"`
	} `json:"periods"`
}

// value falls back to the new-code period for metrics (new_*) that have no
// overall value.
func (m measure) value() string {
	if m.Value != "" {
		return m.Value
	}
	if m.Period != nil {
		return m.Period.Value
	}
	if len(m.Periods) > 0 {
		return m.Periods[0].Value
	}
	return ""
}

// Measures fetches the given metric keys for component. Metrics the server
// does not know are absent from the returned map.
func (c *Client) Measures(ctx context.Context, serverURL, token, component string, keys []string) (map[string]string, error) {
	q := url.Values{}
	q.Set("component", component)
	q.Set("metricKeys", strings.Join(keys, ","))

	b, err := c.do(ctx, serverURL, token, "/api/measures/component?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var out measuresResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding measures: %w", err)
	}
	values := make(map[string]string, len(out.Component.Measures))
	for _, m := range out.Component.Measures {
		if v := m.value(); v != "" {
			values[m.Metric] = v
		}
	}
	return values, nil
}

// Ping calls GET /api/system/status.
func (c *Client) Ping(ctx context.Context, serverURL, token string) (*SystemStatus, error) {
	b, err := c.do(ctx, serverURL, token, "/api/system/status")
	if err != nil {
		return nil, err
	}
	var out SystemStatus
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}

// do executes an authenticated GET and returns the response body.
// Non-2xx responses are converted to descriptive errors.
func (c *Client) do(ctx context.Context, serverURL, token, path string) ([]byte, error) {
	endpoint := strings.TrimRight(serverURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		// SonarQube user tokens authenticate as the basic-auth login with an empty password.
		req.SetBasicAuth(token, "")
	}

	res, err := c.http.Do(req) // #nosec G107 -- serverURL is the SonarQube instance that sent the analysis
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", strings.TrimRight(serverURL, "/"), err)
	}
	defer res.Body.Close() //nolint:errcheck

	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var apiErr struct {
			Errors []struct {
				Msg string `json:"msg"`
			} `json:"errors"`
		}
		if jsonErr := json.Unmarshal(b, &apiErr); jsonErr == nil && len(apiErr.Errors) > 0 {
			return nil, fmt.Errorf("sonarqube error (%d): %s", res.StatusCode, apiErr.Errors[0].Msg)
		}
		return nil, fmt.Errorf("sonarqube returned %d", res.StatusCode)
	}
	return b, nil
}
