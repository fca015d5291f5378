// Package activity projects therapies and assessments into a uniform feed and
// filters it for list and dashboard views.
package activity

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"therapytrack/internal/models"
)

// Type is the kind of record an activity was projected from
type Type string

const (
	All             Type = "all"
	TypeScreening   Type = "screening"
	TypePretest     Type = "pretest"
	TypeObservation Type = "observation"
	TypePosttest    Type = "posttest"
	TypeTherapy     Type = "therapy"
)

// Types lists every concrete activity type
var Types = []Type{TypeScreening, TypePretest, TypeObservation, TypePosttest, TypeTherapy}

// ParseType reads a type filter. Empty input means All.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(All) {
		return All, nil
	}
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return All, fmt.Errorf("unknown activity type %q", s)
}

// Activity is a view-model row; it is rebuilt per request and never stored
type Activity struct {
	ID          int64     `json:"id"`
	Type        Type      `json:"type"`
	ChildName   string    `json:"child_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Link        string    `json:"link"`
}

// Matches reports whether a satisfies the type filter and the free-text query.
// The query is matched case-insensitively against ChildName and Description.
func Matches(a Activity, typ Type, query string) bool {
	if typ != All && a.Type != typ {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.ChildName), q) ||
		strings.Contains(strings.ToLower(a.Description), q)
}

// Filter returns the matching activities sorted newest first. Items with equal
// timestamps keep their input order. The input slice is left untouched.
func Filter(list []Activity, typ Type, query string) []Activity {
	out := make([]Activity, 0, len(list))
	for _, a := range list {
		if Matches(a, typ, query) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b Activity) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// FromTherapy projects a therapy into an activity
func FromTherapy(t models.Therapy, childName string) Activity {
	desc := "Therapy started"
	if title := strings.TrimSpace(t.Title); title != "" {
		desc += ": " + title
	}
	return Activity{
		ID:          t.ID,
		Type:        TypeTherapy,
		ChildName:   childName,
		Description: desc,
		CreatedAt:   t.CreatedAt,
		Link:        fmt.Sprintf("/therapies/%d", t.ID),
	}
}

// FromAssessment projects any assessment variant into an activity
func FromAssessment(a models.Assessment, childName string) Activity {
	return Activity{
		ID:          a.ID,
		Type:        Type(a.Kind),
		ChildName:   childName,
		Description: fmt.Sprintf("%s recorded, total score %d", kindLabel(a.Kind), a.Total),
		CreatedAt:   a.CreatedAt,
		Link:        fmt.Sprintf("/assessments/%s/%d", a.Kind, a.ID),
	}
}

func kindLabel(kind models.AssessmentKind) string {
	switch kind {
	case models.KindScreening:
		return "Screening (DASS-21)"
	case models.KindPretest:
		return "Pretest (SDQ)"
	case models.KindPosttest:
		return "Posttest (SDQ)"
	case models.KindObservation:
		return "Observation"
	}
	return string(kind)
}
