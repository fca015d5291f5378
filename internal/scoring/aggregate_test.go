package scoring

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"therapytrack/internal/models"
	"therapytrack/internal/validation"
)

func TestParseSubScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"5", 5},
		{" 12 ", 12},
		{"", 0},
		{"   ", 0},
		{"abc", 0},
		{"3.5", 0},
		{"-2", -2},
		{"+4", 4},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSubScore(tt.in))
		})
	}
}

func TestSDQScenarioTotal(t *testing.T) {
	sheet := NewSheet(SDQ)
	input := map[string]int{
		"emotional":     5,
		"conduct":       3,
		"hyperactivity": 2,
		"peer":          1,
		"prosocial":     4,
		"difficulties":  11,
	}
	for field, v := range input {
		require.NoError(t, sheet.SetInt(field, v))
	}

	assert.Equal(t, 26, sheet.Total())
}

func TestSheetRecomputesOnEveryChange(t *testing.T) {
	sheet := NewSheet(DASS21)
	assert.Equal(t, 0, sheet.Total())

	require.NoError(t, sheet.Set("depression", "7"))
	assert.Equal(t, 7, sheet.Total())

	require.NoError(t, sheet.Set("anxiety", "4"))
	assert.Equal(t, 11, sheet.Total())

	require.NoError(t, sheet.Set("depression", "oops"))
	assert.Equal(t, 4, sheet.Total(), "invalid input contributes 0")

	require.NoError(t, sheet.Set("stress", "-3"))
	assert.Equal(t, 1, sheet.Total(), "negatives are summed as typed")

	// Same inputs yield the same total
	require.NoError(t, sheet.Set("stress", "-3"))
	assert.Equal(t, 1, sheet.Total())

	assert.Equal(t, map[string]int{"depression": 0, "anxiety": 4, "stress": -3}, sheet.Values())
	assert.Equal(t, "oops", sheet.Raw()["depression"])
}

func TestSheetRejectsUnknownField(t *testing.T) {
	sheet := NewSheet(Observation)

	err := sheet.Set("prosocial", "3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.Equal(t, 0, sheet.Total())
}

func TestTotalMatchesSumForNonNegativeInput(t *testing.T) {
	for _, inst := range []Instrument{DASS21, SDQ, Observation} {
		t.Run(inst.Name, func(t *testing.T) {
			raw := make(map[string]string)
			values := make([]int, 0, len(inst.Fields))
			for i, f := range inst.Fields {
				v := (i*7 + 3) % 10
				raw[f] = strconv.Itoa(v)
				values = append(values, v)
			}
			assert.Equal(t, Sum(values...), TotalOf(inst, raw))
		})
	}
}

func TestTotalOfMissingFieldsCountZero(t *testing.T) {
	assert.Equal(t, 9, TotalOf(DASS21, map[string]string{"anxiety": "9"}))
	assert.Equal(t, 0, TotalOf(DASS21, nil))
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"dass21", "dass21", true},
		{"sdq", "sdq", true},
		{"screening", "dass21", true},
		{"pretest", "sdq", true},
		{"posttest", "sdq", true},
		{"observation", "observation", true},
		{"iq", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, ok := Lookup(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, inst.Name)
		})
	}
}

func TestForKind(t *testing.T) {
	assert.Equal(t, DASS21.Name, ForKind(models.KindScreening).Name)
	assert.Equal(t, SDQ.Name, ForKind(models.KindPretest).Name)
	assert.Equal(t, SDQ.Name, ForKind(models.KindPosttest).Name)
	assert.Equal(t, Observation.Name, ForKind(models.KindObservation).Name)
}

func TestPolicyEvaluate(t *testing.T) {
	raw := map[string]string{"depression": "4", "anxiety": "", "stress": "x"}

	t.Run("lenient coerces", func(t *testing.T) {
		sheet, err := Lenient.Evaluate(DASS21, raw)
		require.NoError(t, err)
		assert.Equal(t, 4, sheet.Total())
	})

	t.Run("strict rejects", func(t *testing.T) {
		_, err := Strict.Evaluate(DASS21, raw)
		require.Error(t, err)

		var errs validation.Errors
		require.True(t, errors.As(err, &errs))
		assert.Equal(t, validation.Errors{
			{Field: "anxiety", Message: "is required"},
			{Field: "stress", Message: "must be a whole number"},
		}, errs)
	})

	t.Run("strict rejects negatives", func(t *testing.T) {
		_, err := Strict.Evaluate(DASS21, map[string]string{"depression": "1", "anxiety": "-1", "stress": "0"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "anxiety: must not be negative")
	})

	t.Run("lenient keeps negatives", func(t *testing.T) {
		sheet, err := Lenient.Evaluate(DASS21, map[string]string{"depression": "1", "anxiety": "-1", "stress": "0"})
		require.NoError(t, err)
		assert.Equal(t, 0, sheet.Total())
	})

	t.Run("unknown fields rejected by both", func(t *testing.T) {
		for _, p := range []Policy{Lenient, Strict} {
			_, err := p.Evaluate(DASS21, map[string]string{"depression": "1", "anxiety": "1", "stress": "1", "iq": "100"})
			require.Error(t, err, p.String())
		}
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Lenient, p)

	p, err = ParsePolicy("STRICT")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
