package notify

import "context"

// Poster delivers a serialised payload to a webhook. TeamsClient is the
// production implementation.
type Poster interface {
	Post(ctx context.Context, webhookURL string, body []byte) (DeliveryResult, error)
}

// MeasureSource looks up metric values that the analysis event did not carry.
type MeasureSource interface {
	Measures(ctx context.Context, serverURL, token, component string, keys []string) (map[string]string, error)
}
