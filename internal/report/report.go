package report

import (
	"github.com/Skufu/AortaRisk/internal/advice"
	"github.com/Skufu/AortaRisk/internal/patient"
	"github.com/Skufu/AortaRisk/internal/risk"
)

// Predictor returns the positive-class probability for a tuple.
type Predictor interface {
	Predict(in patient.Input) (float64, error)
}

type ModelInfo struct {
	Name     string  `json:"name"`
	AUC      float64 `json:"auc"`
	Accuracy float64 `json:"accuracy"`
	Outcome  string  `json:"outcome"`
}

// Model describes the fitted classifier as published with it.
var Model = ModelInfo{
	Name:     "SVM",
	AUC:      0.94,
	Accuracy: 0.888,
	Outcome:  "3-year mortality in acute Type B aortic dissection",
}

// Report is everything rendered for one submission.
type Report struct {
	Input      patient.Input     `json:"input"`
	Assessment risk.Assessment   `json:"assessment"`
	Summary    string            `json:"summary"`
	Advisories []advice.Advisory `json:"advisories"`
	Checklist  []string          `json:"checklist"`
	Model      ModelInfo         `json:"model"`
}

// Build scores in and attaches the rule-based recommendations. The
// recommendations are computed from the raw input only.
func Build(p Predictor, in patient.Input) (Report, error) {
	prob, err := p.Predict(in)
	if err != nil {
		return Report{}, err
	}
	a := risk.Assess(prob)
	return Report{
		Input:      in,
		Assessment: a,
		Summary:    a.Summary(),
		Advisories: advice.Recommend(in),
		Checklist:  append([]string(nil), advice.Checklist...),
		Model:      Model,
	}, nil
}
