package models

import "time"

// AnalysisOutcome is the read-only result of a single SonarQube analysis run.
// It lives for exactly one notification cycle.
type AnalysisOutcome struct {
	QualityGateStatus QualityGateStatus `json:"quality_gate_status" yaml:"quality_gate_status"`
	ProjectKey        string            `json:"project_key"         yaml:"project_key"`
	ProjectName       string            `json:"project_name"        yaml:"project_name"`
	AnalysisDate      time.Time         `json:"analysis_date"       yaml:"analysis_date"`
	Branch            string            `json:"branch,omitempty"    yaml:"branch,omitempty"`
	Revision          string            `json:"revision,omitempty"  yaml:"revision,omitempty"`
	// Metrics maps a metric key (e.g. "coverage") to its rendered value.
	Metrics map[string]string `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Metric returns the value recorded for key and whether it was present.
func (o AnalysisOutcome) Metric(key string) (string, bool) {
	v, ok := o.Metrics[key]
	return v, ok
}

// WithMetrics returns a copy of o whose metric map also holds extra.
// Existing values are never overwritten. o itself is left untouched.
func (o AnalysisOutcome) WithMetrics(extra map[string]string) AnalysisOutcome {
	merged := make(map[string]string, len(o.Metrics)+len(extra))
	for k, v := range o.Metrics {
		merged[k] = v
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	o.Metrics = merged
	return o
}
