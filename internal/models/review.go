package models

import (
	"strings"
	"time"
)

// PillarName is one of the six fixed architecture-review dimensions.
type PillarName string

const (
	PillarOperationalExcellence PillarName = "operationalExcellence"
	PillarSecurity              PillarName = "security"
	PillarReliability           PillarName = "reliability"
	PillarPerformanceEfficiency PillarName = "performanceEfficiency"
	PillarCostOptimization      PillarName = "costOptimization"
	PillarSustainability        PillarName = "sustainability"
)

// AllPillars lists the pillars in their canonical display order.
var AllPillars = []PillarName{
	PillarOperationalExcellence,
	PillarSecurity,
	PillarReliability,
	PillarPerformanceEfficiency,
	PillarCostOptimization,
	PillarSustainability,
}

// Valid reports whether p is one of the six pillars.
func (p PillarName) Valid() bool {
	for _, known := range AllPillars {
		if p == known {
			return true
		}
	}
	return false
}

// DisplayName returns the pillar's human-readable title in the given language.
func (p PillarName) DisplayName(lang Language) string {
	names, ok := pillarDisplayNames[p]
	if !ok {
		return string(p)
	}
	if lang == LanguageKorean {
		return names[1]
	}
	return names[0]
}

var pillarDisplayNames = map[PillarName][2]string{
	PillarOperationalExcellence: {"Operational Excellence", "운영 우수성"},
	PillarSecurity:              {"Security", "보안"},
	PillarReliability:           {"Reliability", "안정성"},
	PillarPerformanceEfficiency: {"Performance Efficiency", "성능 효율성"},
	PillarCostOptimization:      {"Cost Optimization", "비용 최적화"},
	PillarSustainability:        {"Sustainability", "지속 가능성"},
}

// PillarStatus is the terminal state of one pillar review.
type PillarStatus string

const (
	PillarCompleted PillarStatus = "Completed"
	PillarFailed    PillarStatus = "Failed"
)

// Severity of a governance violation.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// ParseSeverity normalises a model-reported severity, defaulting to Medium.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "높음":
		return SeverityHigh
	case "low", "낮음":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// GovernanceViolation is a policy the reviewed document appears to break.
type GovernanceViolation struct {
	PolicyID    string   `json:"policyId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Correction  string   `json:"correction"`
	Severity    Severity `json:"severity"`
}

// PillarResult is produced exactly once per requested pillar per run,
// whether the review succeeded or not.
type PillarResult struct {
	PillarName           PillarName            `json:"pillarName"`
	Status               PillarStatus          `json:"status"`
	Findings             string                `json:"findings"`
	Recommendations      []string              `json:"recommendations"`
	GovernanceViolations []GovernanceViolation `json:"governanceViolations,omitempty"`
	CompletedAt          time.Time             `json:"completedAt"`
	Error                string                `json:"error,omitempty"`
}
