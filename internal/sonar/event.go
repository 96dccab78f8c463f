package sonar

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Sonar-Webhook-HMAC-SHA256"

// timeLayout is the format SonarQube uses for analysedAt and changedAt.
const timeLayout = "2006-01-02T15:04:05-0700"

// WebhookEvent is the body SonarQube POSTs to project webhooks once an
// analysis has been processed.
type WebhookEvent struct {
	ServerURL   string            `json:"serverUrl"   yaml:"serverUrl"`
	TaskID      string            `json:"taskId"      yaml:"taskId"`
	Status      string            `json:"status"      yaml:"status"`
	AnalysedAt  string            `json:"analysedAt"  yaml:"analysedAt"`
	Revision    string            `json:"revision"    yaml:"revision"`
	ChangedAt   string            `json:"changedAt"   yaml:"changedAt"`
	Project     Project           `json:"project"     yaml:"project"`
	Branch      *Branch           `json:"branch"      yaml:"branch"`
	QualityGate *QualityGate      `json:"qualityGate" yaml:"qualityGate"`
	Properties  map[string]string `json:"properties"  yaml:"properties"`
}

type Project struct {
	Key  string `json:"key"  yaml:"key"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url"  yaml:"url"`
}

type Branch struct {
	Name   string `json:"name"   yaml:"name"`
	Type   string `json:"type"   yaml:"type"`
	IsMain bool   `json:"isMain" yaml:"isMain"`
	URL    string `json:"url"    yaml:"url"`
}

type QualityGate struct {
	Name       string      `json:"name"       yaml:"name"`
	Status     string      `json:"status"     yaml:"status"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

type Condition struct {
	Metric         string `json:"metric"         yaml:"metric"`
	Operator       string `json:"operator"       yaml:"operator"`
	Value          string `json:"value"          yaml:"value"`
	Status         string `json:"status"         yaml:"status"`
	ErrorThreshold string `json:"errorThreshold" yaml:"errorThreshold"`
}

// ToOutcome converts the event into the pipeline's AnalysisOutcome.
// Quality gate condition values become metrics.
func (e WebhookEvent) ToOutcome() models.AnalysisOutcome {
	o := models.AnalysisOutcome{
		QualityGateStatus: models.QualityGateNone,
		ProjectKey:        e.Project.Key,
		ProjectName:       e.Project.Name,
		AnalysisDate:      parseTime(e.AnalysedAt),
		Revision:          e.Revision,
		Metrics:           map[string]string{},
	}
	if e.Branch != nil {
		o.Branch = e.Branch.Name
	}
	if e.QualityGate != nil {
		o.QualityGateStatus = models.MapQualityGateStatus(e.QualityGate.Status)
		for _, c := range e.QualityGate.Conditions {
			if c.Metric != "" && c.Value != "" {
				o.Metrics[c.Metric] = c.Value
			}
		}
	}
	return o
}

// ScannerProperties returns the event properties, completed with the
// project key, server URL and author carried elsewhere in the event when the
// scanner did not set them.
func (e WebhookEvent) ScannerProperties() map[string]string {
	props := make(map[string]string, len(e.Properties)+2)
	for k, v := range e.Properties {
		props[k] = v
	}
	if strings.TrimSpace(props[config.PropProjectID]) == "" && e.Project.Key != "" {
		props[config.PropProjectID] = e.Project.Key
	}
	if strings.TrimSpace(props[config.PropServerURL]) == "" && e.ServerURL != "" {
		props[config.PropServerURL] = e.ServerURL
	}
	if author := strings.TrimSpace(props["sonar.analysis.author"]); author != "" && strings.TrimSpace(props[config.PropAuthor]) == "" {
		props[config.PropAuthor] = author
	}
	return props
}

// VerifySignature reports whether header is the hex HMAC-SHA256 of body
// keyed with secret.
func VerifySignature(body []byte, secret, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	want := Sign(body, secret)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(header))))
}

// Sign returns the signature SonarQube would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseTime(raw string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
