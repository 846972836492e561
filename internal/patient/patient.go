package patient

import (
	"fmt"
	"math"
	"strings"
)

// Input is one submitted tuple from the parameter form.
type Input struct {
	Age                 int     `json:"age"`
	HeartRate           int     `json:"heartRate"`
	Hemoglobin          int     `json:"hemoglobin"`
	HospitalizationDays int     `json:"hospitalizationDays"`
	BUN                 float64 `json:"bun"`
	CoronaryDisease     bool    `json:"coronaryDisease"`
	RenalDysfunction    bool    `json:"renalDysfunction"`
}

const (
	Yes = "Yes"
	No  = "No"
)

type FieldKind string

const (
	KindInt    FieldKind = "int"
	KindFloat  FieldKind = "float"
	KindChoice FieldKind = "choice"
)

// Field describes one form control and the domain it enforces.
type Field struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Step    float64   `json:"step,omitempty"`
	Default any       `json:"default"`
	Options []string  `json:"options,omitempty"`
}

// Fields lists the form controls in display order.
var Fields = []Field{
	{Key: "age", Label: "Age (years)", Kind: KindInt, Min: 20, Max: 100, Step: 1, Default: 50},
	{Key: "heartRate", Label: "Heart Rate (HR, bpm)", Kind: KindInt, Min: 30, Max: 180, Step: 1, Default: 70},
	{Key: "hemoglobin", Label: "Hemoglobin (HGB, g/L)", Kind: KindInt, Min: 50, Max: 200, Step: 1, Default: 120},
	{Key: "hospitalizationDays", Label: "Hospitalization Days", Kind: KindInt, Min: 1, Max: 100, Step: 1, Default: 10},
	{Key: "bun", Label: "Blood Urea Nitrogen (BUN, mmol/L)", Kind: KindFloat, Min: 1.0, Max: 50.0, Step: 0.1, Default: 4.0},
	{Key: "coronaryDisease", Label: "Coronary Heart Disease", Kind: KindChoice, Default: No, Options: []string{No, Yes}},
	{Key: "renalDysfunction", Label: "Renal Insufficiency", Kind: KindChoice, Default: No, Options: []string{No, Yes}},
}

// Defaults returns the tuple the form is pre-filled with.
func Defaults() Input {
	return Input{
		Age:                 50,
		HeartRate:           70,
		Hemoglobin:          120,
		HospitalizationDays: 10,
		BUN:                 4.0,
	}
}

// ParseChoice maps a Yes/No selection to a bool.
func ParseChoice(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case Yes:
		return true, nil
	case No:
		return false, nil
	default:
		return false, fmt.Errorf("must be %q or %q, got %q", No, Yes, s)
	}
}

// Choice renders a bool the way the form displays it.
func Choice(b bool) string {
	if b {
		return Yes
	}
	return No
}

// ValidationError lists every field outside its domain.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid patient input: " + strings.Join(e.Problems, "; ")
}

// Validate checks each field against the form's domain.
func (in Input) Validate() error {
	var problems []string
	checkInt := func(name string, v, lo, hi int) {
		if v < lo || v > hi {
			problems = append(problems, fmt.Sprintf("%s must be between %d and %d, got %d", name, lo, hi, v))
		}
	}
	checkInt("age", in.Age, 20, 100)
	checkInt("heartRate", in.HeartRate, 30, 180)
	checkInt("hemoglobin", in.Hemoglobin, 50, 200)
	checkInt("hospitalizationDays", in.HospitalizationDays, 1, 100)

	if math.IsNaN(in.BUN) || in.BUN < 1.0 || in.BUN > 50.0 {
		problems = append(problems, fmt.Sprintf("bun must be between 1.0 and 50.0, got %v", in.BUN))
	} else if !onStep(in.BUN, 0.1) {
		problems = append(problems, fmt.Sprintf("bun must be a multiple of 0.1, got %v", in.BUN))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func onStep(v, step float64) bool {
	n := v / step
	return math.Abs(n-math.Round(n)) < 1e-6
}
