package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"therapytrack/internal/validation"
)

// Policy decides what happens to invalid sub-score input at submit time
type Policy int

const (
	// Lenient coerces empty or non-numeric input to 0 and keeps negatives
	Lenient Policy = iota
	// Strict rejects empty, non-numeric and negative input
	Strict
)

// ParsePolicy reads a policy name from configuration
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("unknown score policy %q", s)
	}
}

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// Evaluate fills a sheet from submitted input. Unknown fields are always
// rejected; the remaining checks depend on the policy.
func (p Policy) Evaluate(inst Instrument, raw map[string]string) (*Sheet, error) {
	var errs validation.Errors

	unknown := make([]string, 0)
	for field := range raw {
		if !inst.Has(field) {
			unknown = append(unknown, field)
		}
	}
	sort.Strings(unknown)
	for _, field := range unknown {
		errs = append(errs, validation.Error{Field: field, Message: "is not part of the " + inst.Name + " instrument"})
	}

	sheet := NewSheet(inst)
	for _, field := range inst.Fields {
		text := raw[field]
		if p == Strict {
			if msg := strictProblem(text); msg != "" {
				errs = append(errs, validation.Error{Field: field, Message: msg})
				continue
			}
		}
		// field is known, Set cannot fail
		_ = sheet.Set(field, text)
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return sheet, nil
}

func strictProblem(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "is required"
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return "must be a whole number"
	}
	if n < 0 {
		return "must not be negative"
	}
	return ""
}
