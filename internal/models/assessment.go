package models

import (
	"fmt"
	"time"
)

// AssessmentKind identifies one of the assessment variants a therapy may own
type AssessmentKind string

const (
	KindScreening   AssessmentKind = "screening"
	KindPretest     AssessmentKind = "pretest"
	KindPosttest    AssessmentKind = "posttest"
	KindObservation AssessmentKind = "observation"
)

// AssessmentKinds lists every variant in the order they happen during a therapy
var AssessmentKinds = []AssessmentKind{KindScreening, KindPretest, KindObservation, KindPosttest}

// ParseAssessmentKind converts a path segment into an AssessmentKind
func ParseAssessmentKind(s string) (AssessmentKind, error) {
	for _, k := range AssessmentKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown assessment kind %q", s)
}

// TotalField is the name the total is exposed under, e.g. totalPretestScore
func (k AssessmentKind) TotalField() string {
	switch k {
	case KindScreening:
		return "totalScreeningScore"
	case KindPretest:
		return "totalPretestScore"
	case KindPosttest:
		return "totalPosttestScore"
	case KindObservation:
		return "totalObservationScore"
	}
	return "totalScore"
}

// Assessment is a scored record belonging to exactly one therapy.
// Scores holds the sub-scores keyed by field name; Total is derived from them.
type Assessment struct {
	ID              int64             `json:"id"`
	TherapyID       int64             `json:"therapy_id"`
	Kind            AssessmentKind    `json:"kind"`
	Scores          map[string]int    `json:"scores"`
	Interpretations map[string]string `json:"interpretations"`
	Total           int               `json:"total_score"`
	Recommendation  string            `json:"recommendation,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// AssessmentWithChild adds the display name of the child the assessment is about
type AssessmentWithChild struct {
	Assessment
	ChildName string `json:"child_name"`
}
