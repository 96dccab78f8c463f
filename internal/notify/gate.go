package notify

import (
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/models"
)

// ShouldNotify reports whether a notification must be sent for outcome.
func ShouldNotify(cfg config.NotifierConfig, outcome models.AnalysisOutcome) bool {
	return EvaluateGate(cfg, outcome) == nil
}

// EvaluateGate applies the gate rules in order and returns a *GateError for the
// first one that fails, or nil when the cycle may proceed.
func EvaluateGate(cfg config.NotifierConfig, outcome models.AnalysisOutcome) error {
	if !cfg.Enabled {
		return &GateError{Kind: ErrDisabled, Rule: "notifier.enabled is false"}
	}
	if !postConditionMet(cfg.PostCondition, outcome.QualityGateStatus) {
		return &GateError{
			Kind: ErrPostConditionUnmet,
			Rule: cfg.PostCondition.String() + " with quality gate " + outcome.QualityGateStatus.String(),
		}
	}
	if !cfg.HasWebhookURL() {
		return missing("no hook URL found")
	}
	// show_author without an author fails the whole cycle, not just the author line.
	if cfg.ShowAuthor && !cfg.HasAuthorName() {
		return missing("no author provided by scanner")
	}
	if !cfg.HasAuthToken() {
		return missing("no token found")
	}
	if !cfg.HasProjectID() {
		return missing("no project id found")
	}
	if !cfg.HasServerURL() {
		return missing("no server url found")
	}
	return nil
}

func postConditionMet(p config.PostCondition, status models.QualityGateStatus) bool {
	switch p {
	case config.PostOnBadGate:
		return !status.Passed()
	case config.PostOnGoodGate:
		return status.Passed()
	default:
		return true
	}
}

func missing(rule string) error {
	return &GateError{Kind: ErrConfigurationMissing, Rule: rule}
}
