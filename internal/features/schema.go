package features

import (
	"fmt"
	"strings"

	"github.com/Skufu/AortaRisk/internal/patient"
)

// Vector is a feature row in schema order.
type Vector []float64

type Column struct {
	Name string `json:"name"`
	Unit string `json:"unit"`

	extract func(patient.Input) float64
}

// Schema is the ordered column layout a scaler and model were fitted with.
type Schema struct {
	columns []Column
}

// Canonical is the column layout of the fitted aortic dissection model.
var Canonical = Schema{columns: []Column{
	{Name: "age", Unit: "years", extract: func(in patient.Input) float64 { return float64(in.Age) }},
	{Name: "HR", Unit: "bpm", extract: func(in patient.Input) float64 { return float64(in.HeartRate) }},
	{Name: "HGB", Unit: "g/L", extract: func(in patient.Input) float64 { return float64(in.Hemoglobin) }},
	{Name: "hospitalization", Unit: "days", extract: func(in patient.Input) float64 { return float64(in.HospitalizationDays) }},
	{Name: "BUN", Unit: "mmol/L", extract: func(in patient.Input) float64 { return in.BUN }},
	{Name: "coronary heart disease", Unit: "0/1", extract: func(in patient.Input) float64 { return indicator(in.CoronaryDisease) }},
	{Name: "renal dysfunction", Unit: "0/1", extract: func(in patient.Input) float64 { return indicator(in.RenalDysfunction) }},
}}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (s Schema) Len() int { return len(s.columns) }

func (s Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Encode maps a patient tuple to a vector in column order.
func (s Schema) Encode(in patient.Input) Vector {
	v := make(Vector, len(s.columns))
	for i, c := range s.columns {
		v[i] = c.extract(in)
	}
	return v
}

// Verify fails unless fitted equals the schema's names in count, order and
// spelling. fitted is the column list recorded by the artifact.
func (s Schema) Verify(fitted []string) error {
	encoded := s.Names()
	if len(fitted) != len(encoded) {
		return &MismatchError{
			Expected: fitted,
			Actual:   encoded,
			Reason:   fmt.Sprintf("expected %d features, got %d", len(fitted), len(encoded)),
		}
	}
	for i := range encoded {
		if fitted[i] != encoded[i] {
			return &MismatchError{
				Expected: fitted,
				Actual:   encoded,
				Reason:   fmt.Sprintf("feature %d: expected %q, got %q", i, fitted[i], encoded[i]),
			}
		}
	}
	return nil
}

// MismatchError reports a disagreement between the encoder's columns and
// the columns a fitted artifact expects. Expected is the artifact's view,
// Actual is what the encoder produced.
type MismatchError struct {
	Expected []string
	Actual   []string
	Reason   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("feature schema mismatch: %s (expected [%s], actual [%s])",
		e.Reason, strings.Join(e.Expected, ", "), strings.Join(e.Actual, ", "))
}
