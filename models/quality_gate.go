package models

import "strings"

// QualityGateStatus is the pass/fail verdict SonarQube computes for an analysis.
type QualityGateStatus string

const (
	QualityGateOK    QualityGateStatus = "OK"
	QualityGateError QualityGateStatus = "ERROR"
	QualityGateNone  QualityGateStatus = "NONE"
)

// Passed reports whether the gate verdict is OK. NONE counts as not passed.
func (s QualityGateStatus) Passed() bool {
	return s == QualityGateOK
}

func (s QualityGateStatus) String() string {
	return string(s)
}

// MapQualityGateStatus normalises platform-specific gate strings to QualityGateStatus.
func MapQualityGateStatus(raw string) QualityGateStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OK", "PASSED":
		return QualityGateOK
	case "ERROR", "FAILED", "WARN":
		return QualityGateError
	default:
		return QualityGateNone
	}
}
