package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/models"
)

// Notifier runs notification cycles: gate, payload, delivery. It holds no
// per-cycle state and may be shared between goroutines.
type Notifier struct {
	poster   Poster
	measures MeasureSource
	logger   *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithMeasureSource enables lookup of tracked metrics missing from the event.
func WithMeasureSource(m MeasureSource) Option {
	return func(n *Notifier) { n.measures = m }
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// NewNotifier creates a Notifier that delivers through poster.
func NewNotifier(poster Poster, opts ...Option) *Notifier {
	n := &Notifier{poster: poster, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Cycle summarises one Run.
type Cycle struct {
	ID      string `json:"cycle_id"`
	Sent    bool   `json:"sent"`
	Skipped bool   `json:"skipped"`
}

// Run executes one notification cycle and logs its outcome. It never returns
// an error and never panics; the log line is the only failure channel.
func (n *Notifier) Run(ctx context.Context, cfg config.NotifierConfig, outcome models.AnalysisOutcome) Cycle {
	cycle := Cycle{ID: uuid.NewString()}
	log := n.logger.With("cycle_id", cycle.ID, "project", cfg.ProjectID)

	res, err := n.dispatch(ctx, log, cfg, outcome)
	switch {
	case err == nil:
		cycle.Sent = true
		log.Info("notify: teams message posted", "status", res.StatusCode)
	case IsSkipped(err):
		cycle.Skipped = true
		log.Info("notify: notification skipped", "reason", err.Error())
	case errors.Is(err, ErrTransport):
		log.Error("notify: teams webhook unreachable", "webhook", RedactURL(cfg.WebhookURL), "error", err)
	case errors.Is(err, ErrRejected):
		log.Error("notify: teams message failed",
			"webhook", RedactURL(cfg.WebhookURL), "status", res.StatusCode, "detail", res.Detail)
	default:
		log.Error("notify: failed to send teams message", "error", err)
	}
	return cycle
}

// Dispatch evaluates the gate, builds the card and posts it once. Errors wrap
// one of the package error kinds. Panics are recovered as ErrUnexpected.
func (n *Notifier) Dispatch(ctx context.Context, cfg config.NotifierConfig, outcome models.AnalysisOutcome) (DeliveryResult, error) {
	return n.dispatch(ctx, n.logger, cfg, outcome)
}

func (n *Notifier) dispatch(ctx context.Context, log *slog.Logger, cfg config.NotifierConfig, outcome models.AnalysisOutcome) (res DeliveryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrUnexpected, r)
			res = DeliveryResult{Err: err}
		}
	}()

	if err := EvaluateGate(cfg, outcome); err != nil {
		return DeliveryResult{}, err
	}

	outcome = n.enrich(ctx, log, cfg, outcome)

	var author string
	if cfg.ShowAuthor {
		author = cfg.AuthorName
	}
	body, err := BuildPayload(PayloadInput{
		Outcome:           outcome,
		ServerURL:         cfg.ServerURL,
		GatePassed:        outcome.QualityGateStatus.Passed(),
		ProjectID:         cfg.ProjectID,
		TrackedMetricKeys: cfg.TrackedMetricKeys,
		AuthorName:        author,
	})
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("%w: building payload: %v", ErrUnexpected, err)
	}
	log.Debug("notify: posting teams message",
		"webhook", RedactURL(cfg.WebhookURL), "bytes", len(body), "metrics", len(cfg.TrackedMetricKeys))

	res, err = n.poster.Post(ctx, cfg.WebhookURL, body)
	if err != nil {
		if errors.Is(err, ErrTransport) {
			return res, err
		}
		return res, fmt.Errorf("%w: %v", ErrUnexpected, err)
	}
	if !res.Succeeded {
		err = fmt.Errorf("%w: status %d", ErrRejected, res.StatusCode)
		res.Err = err
		return res, err
	}
	return res, nil
}

// enrich fills tracked metrics the event did not carry. Lookup failures leave
// the outcome as is; the card then shows placeholders.
func (n *Notifier) enrich(ctx context.Context, log *slog.Logger, cfg config.NotifierConfig, outcome models.AnalysisOutcome) models.AnalysisOutcome {
	if n.measures == nil {
		return outcome
	}
	var want []string
	for _, k := range cfg.TrackedMetricKeys {
		if _, ok := outcome.Metric(k); !ok {
			want = append(want, k)
		}
	}
	if len(want) == 0 {
		return outcome
	}
	got, err := n.measures.Measures(ctx, cfg.ServerURL, cfg.AuthToken, cfg.ProjectID, want)
	if err != nil {
		log.Warn("notify: measure lookup failed", "project", cfg.ProjectID, "error", err)
		return outcome
	}
	return outcome.WithMetrics(got)
}
