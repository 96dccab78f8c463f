package config

import (
	"strings"
)

// PostCondition selects which quality-gate outcomes trigger a notification.
type PostCondition int

const (
	// PostAlways notifies regardless of the gate verdict. It is the default.
	PostAlways PostCondition = iota
	// PostOnBadGate notifies only when the gate did not pass.
	PostOnBadGate
	// PostOnGoodGate notifies only when the gate passed.
	PostOnGoodGate
)

// Administration labels accepted for notifier.post_conditions.
const (
	LabelBadQualityGate  = "Bad Quality Gateway"
	LabelGoodQualityGate = "Good Quality Gateway"
	LabelAlways          = "Both"
)

func (p PostCondition) String() string {
	switch p {
	case PostOnBadGate:
		return LabelBadQualityGate
	case PostOnGoodGate:
		return LabelGoodQualityGate
	default:
		return LabelAlways
	}
}

// ParsePostCondition maps a configured label to a PostCondition.
// Empty and unrecognised values fall back to PostAlways.
func ParsePostCondition(raw string) PostCondition {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case strings.ToLower(LabelBadQualityGate), "bad", "on_bad_gate":
		return PostOnBadGate
	case strings.ToLower(LabelGoodQualityGate), "good", "on_good_gate":
		return PostOnGoodGate
	default:
		return PostAlways
	}
}

// Scanner-supplied property keys.
const (
	PropHook      = "sonar.teams.hook"
	PropToken     = "sonar.login"
	PropProjectID = "sonar.analysis.projectId"
	PropServerURL = "sonar.host.url"
	PropAuthor    = "show.author"
	PropMetrics   = "sonar.teams.metrics"

	// analysisPrefix is the only prefix SonarQube forwards to webhooks.
	analysisPrefix = "sonar.analysis."
)

// NotifierConfig is the fully resolved configuration for one notification
// cycle. It is immutable once built.
type NotifierConfig struct {
	Enabled           bool
	PostCondition     PostCondition
	WebhookURL        string
	ShowAuthor        bool
	AuthorName        string
	AuthToken         string
	ProjectID         string
	ServerURL         string
	TrackedMetricKeys []string
}

func (c NotifierConfig) HasWebhookURL() bool { return present(c.WebhookURL) }
func (c NotifierConfig) HasAuthorName() bool { return present(c.AuthorName) }
func (c NotifierConfig) HasAuthToken() bool  { return present(c.AuthToken) }
func (c NotifierConfig) HasProjectID() bool  { return present(c.ProjectID) }
func (c NotifierConfig) HasServerURL() bool  { return present(c.ServerURL) }

func present(v string) bool { return strings.TrimSpace(v) != "" }

// ResolveNotifierConfig merges administrator settings with the properties
// supplied by the scanner for a single analysis. Scanner values win over the
// configured fallbacks. The configured token is only used against the
// configured server URL.
func ResolveNotifierConfig(cfg Config, props map[string]string) NotifierConfig {
	s := cfg.Notifier
	nc := NotifierConfig{
		Enabled:       s.Enabled,
		PostCondition: ParsePostCondition(s.PostConditions),
		ShowAuthor:    s.ShowAuthor,
		WebhookURL:    firstPresent(property(props, PropHook), s.WebhookURL),
		AuthToken:     property(props, PropToken),
		ProjectID:     property(props, PropProjectID),
		ServerURL:     firstPresent(property(props, PropServerURL), cfg.Sonar.URL),
		AuthorName:    property(props, PropAuthor),
	}
	if nc.AuthToken == "" && sameServer(nc.ServerURL, cfg.Sonar.URL) {
		nc.AuthToken = strings.TrimSpace(cfg.Sonar.Token)
	}
	if raw := property(props, PropMetrics); raw != "" {
		nc.TrackedMetricKeys = SplitMetricKeys(raw)
	} else {
		nc.TrackedMetricKeys = cleanKeys(s.ReportsMetrics)
	}
	return nc
}

// SplitMetricKeys parses a comma-separated metric list, keeping order and
// dropping blanks.
func SplitMetricKeys(raw string) []string {
	return cleanKeys(strings.Split(raw, ","))
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// property looks up key as given and, for keys outside the analysis
// namespace, under the sonar.analysis. prefix as well.
func property(props map[string]string, key string) string {
	if v := strings.TrimSpace(props[key]); v != "" {
		return v
	}
	if !strings.HasPrefix(key, analysisPrefix) {
		return strings.TrimSpace(props[analysisPrefix+key])
	}
	return ""
}

// sameServer compares two server URLs, ignoring surrounding space and
// trailing slashes. Empty URLs never match.
func sameServer(a, b string) bool {
	a = strings.TrimRight(strings.TrimSpace(a), "/")
	b = strings.TrimRight(strings.TrimSpace(b), "/")
	return a != "" && strings.EqualFold(a, b)
}

func firstPresent(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
