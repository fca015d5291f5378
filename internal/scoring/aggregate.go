package scoring

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownField is returned when a sub-score name is not part of the instrument
var ErrUnknownField = errors.New("unknown score field")

// ParseSubScore parses typed input as an integer. Empty or non-numeric input
// counts as 0; negative numbers are kept as typed.
func ParseSubScore(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	return n
}

// Sum adds sub-scores without rounding or clamping
func Sum(values ...int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

// TotalOf parses each instrument field from raw and returns their sum.
// Fields missing from raw contribute 0.
func TotalOf(inst Instrument, raw map[string]string) int {
	total := 0
	for _, f := range inst.Fields {
		total += ParseSubScore(raw[f])
	}
	return total
}

// Sheet holds the sub-scores of one assessment form while it is being edited.
// The total is recomputed on every change.
type Sheet struct {
	instrument Instrument
	raw        map[string]string
	values     map[string]int
	total      int
}

// NewSheet creates an empty sheet where every field is 0
func NewSheet(inst Instrument) *Sheet {
	s := &Sheet{
		instrument: inst,
		raw:        make(map[string]string, len(inst.Fields)),
		values:     make(map[string]int, len(inst.Fields)),
	}
	for _, f := range inst.Fields {
		s.values[f] = 0
	}
	return s
}

// Instrument returns the instrument the sheet is scored with
func (s *Sheet) Instrument() Instrument {
	return s.instrument
}

// Set records typed input for a field and recomputes the total
func (s *Sheet) Set(field, text string) error {
	if !s.instrument.Has(field) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	s.raw[field] = text
	s.values[field] = ParseSubScore(text)
	s.recompute()
	return nil
}

// SetInt records an already parsed value for a field and recomputes the total
func (s *Sheet) SetInt(field string, v int) error {
	if !s.instrument.Has(field) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	s.raw[field] = strconv.Itoa(v)
	s.values[field] = v
	s.recompute()
	return nil
}

// Total returns the sum of all sub-scores
func (s *Sheet) Total() int {
	return s.total
}

// Values returns a copy of the parsed sub-scores
func (s *Sheet) Values() map[string]int {
	out := make(map[string]int, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Raw returns a copy of the typed input as entered
func (s *Sheet) Raw() map[string]string {
	out := make(map[string]string, len(s.raw))
	for k, v := range s.raw {
		out[k] = v
	}
	return out
}

func (s *Sheet) recompute() {
	total := 0
	for _, f := range s.instrument.Fields {
		total += s.values[f]
	}
	s.total = total
}
