package notify

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/CosmoTheDev/sonar-teams-notifier/models"
)

const (
	// PassColor is the card theme color when the quality gate passed.
	PassColor = "008000"
	// FailColor is the card theme color for every other gate status.
	FailColor = "bc4749"

	// MissingMetricValue is rendered for tracked keys absent from the outcome.
	MissingMetricValue = "-"

	messageCardType    = "MessageCard"
	messageCardContext = "https://schema.org/extensions"
)

// PayloadInput is everything the card is rendered from.
type PayloadInput struct {
	Outcome           models.AnalysisOutcome
	ServerURL         string
	GatePassed        bool
	ProjectID         string
	TrackedMetricKeys []string
	// AuthorName is omitted from the card when empty.
	AuthorName string
}

// MessageCard is the Teams incoming-webhook card format.
type MessageCard struct {
	Type            string        `json:"@type"`
	Context         string        `json:"@context"`
	ThemeColor      string        `json:"themeColor"`
	Summary         string        `json:"summary"`
	Title           string        `json:"title"`
	Sections        []CardSection `json:"sections"`
	PotentialAction []CardAction  `json:"potentialAction"`
}

// CardSection is one activity block of a MessageCard.
type CardSection struct {
	ActivityTitle    string     `json:"activityTitle"`
	ActivitySubtitle string     `json:"activitySubtitle,omitempty"`
	Text             string     `json:"text,omitempty"`
	Facts            []CardFact `json:"facts"`
	Markdown         bool       `json:"markdown"`
}

// CardFact is a name/value row in a section.
type CardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CardAction is a button under the card, e.g. an OpenUri link.
type CardAction struct {
	Type    string       `json:"@type"`
	Name    string       `json:"name"`
	Targets []CardTarget `json:"targets"`
}

// CardTarget is the URI an action opens on a given OS.
type CardTarget struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

// BuildCard renders the card for in. It performs no I/O.
func BuildCard(in PayloadInput) MessageCard {
	link := DashboardURL(in.ServerURL, in.ProjectID)

	name := in.Outcome.ProjectName
	if name == "" {
		name = in.ProjectID
	}

	color, verdict := FailColor, "failed"
	if in.GatePassed {
		color, verdict = PassColor, "passed"
	}

	facts := make([]CardFact, 0, len(in.TrackedMetricKeys)+1)
	for _, key := range in.TrackedMetricKeys {
		value, ok := in.Outcome.Metric(key)
		if !ok || value == "" {
			value = MissingMetricValue
		}
		facts = append(facts, CardFact{Name: key, Value: value})
	}
	if in.AuthorName != "" {
		facts = append(facts, CardFact{Name: "Author", Value: in.AuthorName})
	}

	var subtitle string
	if !in.Outcome.AnalysisDate.IsZero() {
		subtitle = in.Outcome.AnalysisDate.UTC().Format(time.RFC3339)
	}

	title := "SonarQube analysis of " + name
	return MessageCard{
		Type:       messageCardType,
		Context:    messageCardContext,
		ThemeColor: color,
		Summary:    title,
		Title:      title,
		Sections: []CardSection{{
			ActivityTitle:    "Quality gate " + verdict + " (" + gateLabel(in.Outcome.QualityGateStatus) + ")",
			ActivitySubtitle: subtitle,
			Text:             "[" + name + "](" + link + ")",
			Facts:            facts,
			Markdown:         true,
		}},
		PotentialAction: []CardAction{{
			Type:    "OpenUri",
			Name:    "Open in SonarQube",
			Targets: []CardTarget{{OS: "default", URI: link}},
		}},
	}
}

// BuildPayload renders and serialises the card. Identical inputs always
// produce identical bytes.
func BuildPayload(in PayloadInput) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(BuildCard(in)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DashboardURL links to the project dashboard on serverURL.
func DashboardURL(serverURL, projectID string) string {
	return strings.TrimRight(serverURL, "/") + "/dashboard?id=" + url.QueryEscape(projectID)
}

func gateLabel(s models.QualityGateStatus) string {
	if s == "" {
		return string(models.QualityGateNone)
	}
	return string(s)
}
