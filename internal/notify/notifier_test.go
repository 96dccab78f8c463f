package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/models"
)

type recordingPoster struct {
	mu     sync.Mutex
	calls  []postCall
	result DeliveryResult
	err    error
}

type postCall struct {
	url  string
	body []byte
}

func (p *recordingPoster) Post(_ context.Context, url string, body []byte) (DeliveryResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, postCall{url: url, body: append([]byte(nil), body...)})
	return p.result, p.err
}

type stubMeasures struct {
	values map[string]string
	err    error
	asked  []string
	panic  bool
}

func (s *stubMeasures) Measures(_ context.Context, _, _, _ string, keys []string) (map[string]string, error) {
	if s.panic {
		panic("boom")
	}
	s.asked = append(s.asked, keys...)
	return s.values, s.err
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestEndToEndAlwaysPostsPassCard(t *testing.T) {
	poster := &recordingPoster{result: DeliveryResult{Succeeded: true, StatusCode: 200}}
	var logs bytes.Buffer
	n := NewNotifier(poster, WithLogger(testLogger(&logs)))

	cycle := n.Run(context.Background(), readyConfig(), models.AnalysisOutcome{QualityGateStatus: models.QualityGateOK})

	if !cycle.Sent || cycle.Skipped || cycle.ID == "" {
		t.Fatalf("unexpected cycle %+v", cycle)
	}
	if len(poster.calls) != 1 {
		t.Fatalf("expected one delivery, got %d", len(poster.calls))
	}
	call := poster.calls[0]
	if call.url != "https://x" {
		t.Fatalf("expected delivery to https://x, got %q", call.url)
	}
	var card MessageCard
	if err := json.Unmarshal(call.body, &card); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if card.ThemeColor != PassColor {
		t.Fatalf("expected pass color, got %s", card.ThemeColor)
	}
	if card.PotentialAction[0].Targets[0].URI != "https://s/dashboard?id=p1" {
		t.Fatalf("unexpected link %q", card.PotentialAction[0].Targets[0].URI)
	}
	if !strings.Contains(logs.String(), "teams message posted") {
		t.Fatalf("expected success log, got %s", logs.String())
	}
}

func TestEndToEndBadGateConditionSkipsDelivery(t *testing.T) {
	poster := &recordingPoster{result: DeliveryResult{Succeeded: true, StatusCode: 200}}
	measures := &stubMeasures{}
	var logs bytes.Buffer
	n := NewNotifier(poster, WithMeasureSource(measures), WithLogger(testLogger(&logs)))

	cfg := readyConfig()
	cfg.PostCondition = config.PostOnBadGate
	cfg.TrackedMetricKeys = []string{"coverage"}
	cycle := n.Run(context.Background(), cfg, models.AnalysisOutcome{QualityGateStatus: models.QualityGateOK})

	if cycle.Sent || !cycle.Skipped {
		t.Fatalf("expected skipped cycle, got %+v", cycle)
	}
	if len(poster.calls) != 0 || len(measures.asked) != 0 {
		t.Fatalf("expected no work after a failed gate, got %d posts and lookups %v", len(poster.calls), measures.asked)
	}
	if !strings.Contains(logs.String(), "level=INFO") || !strings.Contains(logs.String(), "post conditions do not match") {
		t.Fatalf("expected info-level skip log, got %s", logs.String())
	}
}

func TestDispatchClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		poster *recordingPoster
		kind   error
		level  string
	}{
		{"rejected", &recordingPoster{result: DeliveryResult{StatusCode: 500}}, ErrRejected, "level=ERROR"},
		{"transport", &recordingPoster{err: ErrTransport}, ErrTransport, "level=ERROR"},
		{"other", &recordingPoster{err: errors.New("weird")}, ErrUnexpected, "level=ERROR"},
	}
	for _, tc := range cases {
		var logs bytes.Buffer
		n := NewNotifier(tc.poster, WithLogger(testLogger(&logs)))

		_, err := n.Dispatch(context.Background(), readyConfig(), models.AnalysisOutcome{})
		if !errors.Is(err, tc.kind) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.kind, err)
		}

		cycle := n.Run(context.Background(), readyConfig(), models.AnalysisOutcome{})
		if cycle.Sent || cycle.Skipped {
			t.Fatalf("%s: unexpected cycle %+v", tc.name, cycle)
		}
		if !strings.Contains(logs.String(), tc.level) {
			t.Fatalf("%s: expected %s log, got %s", tc.name, tc.level, logs.String())
		}
	}
}

func TestRunRecoversFromPanics(t *testing.T) {
	poster := &recordingPoster{result: DeliveryResult{Succeeded: true}}
	var logs bytes.Buffer
	n := NewNotifier(poster, WithMeasureSource(&stubMeasures{panic: true}), WithLogger(testLogger(&logs)))

	cfg := readyConfig()
	cfg.TrackedMetricKeys = []string{"coverage"}

	_, err := n.Dispatch(context.Background(), cfg, models.AnalysisOutcome{})
	if !errors.Is(err, ErrUnexpected) {
		t.Fatalf("expected ErrUnexpected, got %v", err)
	}
	cycle := n.Run(context.Background(), cfg, models.AnalysisOutcome{})
	if cycle.Sent {
		t.Fatal("expected no delivery after a panic")
	}
	if len(poster.calls) != 0 {
		t.Fatalf("expected no posts, got %d", len(poster.calls))
	}
}

func TestDispatchEnrichesOnlyMissingMetrics(t *testing.T) {
	poster := &recordingPoster{result: DeliveryResult{Succeeded: true, StatusCode: 200}}
	measures := &stubMeasures{values: map[string]string{"bugs": "4", "coverage": "1.0"}}
	n := NewNotifier(poster, WithMeasureSource(measures), WithLogger(testLogger(&bytes.Buffer{})))

	cfg := readyConfig()
	cfg.TrackedMetricKeys = []string{"coverage", "bugs"}
	outcome := models.AnalysisOutcome{Metrics: map[string]string{"coverage": "92.0"}}

	if _, err := n.Dispatch(context.Background(), cfg, outcome); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(measures.asked) != 1 || measures.asked[0] != "bugs" {
		t.Fatalf("expected lookup of bugs only, got %v", measures.asked)
	}
	var card MessageCard
	if err := json.Unmarshal(poster.calls[0].body, &card); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	facts := card.Sections[0].Facts
	if facts[0].Value != "92.0" || facts[1].Value != "4" {
		t.Fatalf("unexpected facts %+v", facts)
	}
}

func TestDispatchMeasureFailureStillSends(t *testing.T) {
	poster := &recordingPoster{result: DeliveryResult{Succeeded: true, StatusCode: 200}}
	var logs bytes.Buffer
	n := NewNotifier(poster, WithMeasureSource(&stubMeasures{err: errors.New("401")}), WithLogger(testLogger(&logs)))

	cfg := readyConfig()
	cfg.TrackedMetricKeys = []string{"bugs"}
	if _, err := n.Dispatch(context.Background(), cfg, models.AnalysisOutcome{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(string(poster.calls[0].body), `"value":"-"`) {
		t.Fatalf("expected placeholder value, got %s", poster.calls[0].body)
	}
	if !strings.Contains(logs.String(), "measure lookup failed") {
		t.Fatalf("expected warn log, got %s", logs.String())
	}
}

func TestRunTagsEveryLogLineWithCycleID(t *testing.T) {
	poster := &recordingPoster{result: DeliveryResult{Succeeded: true, StatusCode: 200}}
	var logs bytes.Buffer
	n := NewNotifier(poster, WithMeasureSource(&stubMeasures{err: errors.New("401")}), WithLogger(testLogger(&logs)))

	cfg := readyConfig()
	cfg.TrackedMetricKeys = []string{"bugs"}
	cycle := n.Run(context.Background(), cfg, models.AnalysisOutcome{})
	if !cycle.Sent {
		t.Fatalf("expected sent cycle, got %+v", cycle)
	}

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	for _, want := range []string{"measure lookup failed", "posting teams message", "teams message posted"} {
		if !strings.Contains(logs.String(), want) {
			t.Fatalf("expected %q in logs, got %s", want, logs.String())
		}
	}
	for _, line := range lines {
		if !strings.Contains(line, "cycle_id="+cycle.ID) {
			t.Fatalf("log line without cycle id: %s", line)
		}
	}
}

func TestDispatchAuthorOnlyWhenShown(t *testing.T) {
	poster := &recordingPoster{result: DeliveryResult{Succeeded: true, StatusCode: 200}}
	n := NewNotifier(poster, WithLogger(testLogger(&bytes.Buffer{})))

	cfg := readyConfig()
	cfg.AuthorName = "alice"
	if _, err := n.Dispatch(context.Background(), cfg, models.AnalysisOutcome{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	cfg.ShowAuthor = true
	if _, err := n.Dispatch(context.Background(), cfg, models.AnalysisOutcome{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if strings.Contains(string(poster.calls[0].body), "alice") {
		t.Fatal("expected no author line when show_author is off")
	}
	if !strings.Contains(string(poster.calls[1].body), `{"name":"Author","value":"alice"}`) {
		t.Fatalf("expected author fact, got %s", poster.calls[1].body)
	}
}

func TestRunAgainstTeamsClient(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	n := NewNotifier(NewTeamsClient(time.Second), WithLogger(testLogger(&logs)))
	cfg := readyConfig()
	cfg.WebhookURL = srv.URL

	cycle := n.Run(context.Background(), cfg, models.AnalysisOutcome{QualityGateStatus: models.QualityGateError})
	if cycle.Sent {
		t.Fatal("expected rejected delivery")
	}
	if hits != 1 {
		t.Fatalf("expected a single attempt, got %d", hits)
	}
	if !strings.Contains(logs.String(), "teams message failed") || !strings.Contains(logs.String(), "status=400") {
		t.Fatalf("expected rejection log, got %s", logs.String())
	}
}
