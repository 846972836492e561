package risk

import "fmt"

// Threshold is the probability cutoff calibrated with the model. It is not
// configurable.
const Threshold = 0.207

type Band string

const (
	High Band = "High"
	Low  Band = "Low"
)

// Assessment is the rendered outcome of one prediction.
type Assessment struct {
	Probability float64 `json:"probability"`
	Percentage  string  `json:"percentage"`
	Band        Band    `json:"band"`
	Label       string  `json:"label"`
	Message     string  `json:"message"`
}

// Classify bands p against Threshold; the cutoff itself is High.
func Classify(p float64) Band {
	if p >= Threshold {
		return High
	}
	return Low
}

func Assess(p float64) Assessment {
	band := Classify(p)
	a := Assessment{
		Probability: p,
		Percentage:  Percent(p),
		Band:        band,
		Label:       fmt.Sprintf("%s Risk", band),
	}
	if band == High {
		a.Message = "Elevated risk of mortality within 3 years. Proactive intervention recommended."
	} else {
		a.Message = "Lower risk of mortality within 3 years. Regular monitoring advised."
	}
	return a
}

// Percent renders p as a percentage with two decimals, e.g. 0.2071 -> "20.71%".
func Percent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

// Summary is the headline line shown above the recommendations.
func (a Assessment) Summary() string {
	return fmt.Sprintf("Predicted Mortality Risk: %s (%s)", a.Percentage, a.Label)
}
