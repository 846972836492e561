package advice

import (
	"fmt"
	"strconv"

	"github.com/Skufu/AortaRisk/internal/patient"
)

type Status string

const (
	Below    Status = "below"
	Within   Status = "within"
	Above    Status = "above"
	Present  Status = "present"
	Extended Status = "extended"
)

// Advisory is one line of personalized guidance.
type Advisory struct {
	Field  string `json:"field"`
	Status Status `json:"status"`
	Text   string `json:"text"`
}

// RangeRule bands one laboratory or vital value. Low and High are both
// inside the normal band.
type RangeRule struct {
	Field     string
	Label     string
	Unit      string
	Low, High float64
	BelowHint string
	AboveHint string
	value     func(patient.Input) float64
	format    func(float64) string
}

// ExtendedStayDays is the longest stay that does not trigger an advisory.
const ExtendedStayDays = 14

var Ranges = []RangeRule{
	{
		Field: "heartRate", Label: "Heart Rate", Unit: "bpm", Low: 60, High: 100,
		BelowHint: "Adjusting antihypertensive medications, evaluating for conduction disorders",
		AboveHint: "Aggressive heart rate control with beta-blockers",
		value:     func(in patient.Input) float64 { return float64(in.HeartRate) },
		format:    formatInt,
	},
	{
		Field: "bun", Label: "Blood Urea Nitrogen", Unit: "mmol/L", Low: 2.9, High: 8.2,
		BelowHint: "Nutritional assessment and liver function evaluation",
		AboveHint: "Renal function assessment, protein restriction, hydration optimization",
		value:     func(in patient.Input) float64 { return in.BUN },
		format:    func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	},
	{
		Field: "hemoglobin", Label: "Hemoglobin", Unit: "g/L", Low: 120, High: 160,
		BelowHint: "Anemia workup, iron supplementation, or erythropoietin therapy",
		AboveHint: "Monitoring for hyperviscosity syndrome, ensuring adequate hydration",
		value:     func(in patient.Input) float64 { return float64(in.Hemoglobin) },
		format:    formatInt,
	},
}

func formatInt(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) }

// Checklist is appended to every result regardless of input.
var Checklist = []string{
	"Strict blood pressure control (target SBP <120 mmHg)",
	"Regular imaging surveillance (CTA every 6-12 months)",
	"Smoking cessation and lipid management",
	"Avoidance of strenuous physical activity",
	"Immediate evaluation for recurrent chest/back pain",
	"Consideration of TEVAR for appropriate candidates",
	"Annual cardiology follow-up",
}

func (r RangeRule) band(v float64) Status {
	switch {
	case v < r.Low:
		return Below
	case v > r.High:
		return Above
	default:
		return Within
	}
}

func (r RangeRule) normal() string {
	return fmt.Sprintf("%s-%s %s", trim(r.Low), trim(r.High), r.Unit)
}

func trim(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (r RangeRule) evaluate(in patient.Input) Advisory {
	v := r.value(in)
	status := r.band(v)
	head := fmt.Sprintf("%s (%s %s)", r.Label, r.format(v), r.Unit)

	var text string
	switch status {
	case Below:
		text = fmt.Sprintf("%s: Below normal range (%s). Consider: %s", head, r.normal(), r.BelowHint)
	case Above:
		text = fmt.Sprintf("%s: Above normal range (%s). Consider: %s", head, r.normal(), r.AboveHint)
	default:
		text = fmt.Sprintf("%s: Within normal range", head)
	}
	return Advisory{Field: r.Field, Status: status, Text: text}
}

// Recommend evaluates the raw input against the reference ranges. It does
// not depend on the predicted risk.
func Recommend(in patient.Input) []Advisory {
	out := make([]Advisory, 0, len(Ranges)+3)
	for _, r := range Ranges {
		out = append(out, r.evaluate(in))
	}

	if in.CoronaryDisease {
		out = append(out, Advisory{
			Field:  "coronaryDisease",
			Status: Present,
			Text:   "Coronary Heart Disease: Present. Consider: Optimizing antiplatelet therapy, statins, and evaluation for revascularization",
		})
	}
	if in.RenalDysfunction {
		out = append(out, Advisory{
			Field:  "renalDysfunction",
			Status: Present,
			Text:   "Renal Insufficiency: Present. Consider: Nephrology consultation, avoiding nephrotoxic agents, BP target <130/80 mmHg",
		})
	}
	if in.HospitalizationDays > ExtendedStayDays {
		out = append(out, Advisory{
			Field:  "hospitalizationDays",
			Status: Extended,
			Text: fmt.Sprintf("Hospitalization Duration (%d days): Extended stay. Consider: Comprehensive complication assessment and rehabilitation planning",
				in.HospitalizationDays),
		})
	}
	return out
}
