// Package scoring turns typed sub-score input into assessment totals.
package scoring

import (
	"therapytrack/internal/models"
)

// Instrument is a fixed, ordered set of named sub-scores
type Instrument struct {
	Name   string
	Fields []string
}

var (
	// DASS21 is the Depression Anxiety Stress Scales screening instrument
	DASS21 = Instrument{
		Name:   "dass21",
		Fields: []string{"depression", "anxiety", "stress"},
	}

	// SDQ is the Strengths and Difficulties Questionnaire used for pretests and posttests
	SDQ = Instrument{
		Name:   "sdq",
		Fields: []string{"emotional", "conduct", "hyperactivity", "peer", "prosocial", "difficulties"},
	}

	// Observation is the counselor's structured observation sheet
	Observation = Instrument{
		Name:   "observation",
		Fields: []string{"communication", "social", "emotional", "behavior", "attention"},
	}
)

// ForKind returns the instrument an assessment variant is scored with
func ForKind(kind models.AssessmentKind) Instrument {
	switch kind {
	case models.KindScreening:
		return DASS21
	case models.KindObservation:
		return Observation
	default:
		return SDQ
	}
}

// Lookup finds an instrument by its own name or by the assessment kind that uses it
func Lookup(name string) (Instrument, bool) {
	for _, inst := range []Instrument{DASS21, SDQ, Observation} {
		if inst.Name == name {
			return inst, true
		}
	}
	if kind, err := models.ParseAssessmentKind(name); err == nil {
		return ForKind(kind), true
	}
	return Instrument{}, false
}

// Has reports whether field belongs to the instrument
func (i Instrument) Has(field string) bool {
	for _, f := range i.Fields {
		if f == field {
			return true
		}
	}
	return false
}
