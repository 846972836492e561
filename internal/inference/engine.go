package inference

import (
	"fmt"

	"github.com/Skufu/AortaRisk/internal/features"
	"github.com/Skufu/AortaRisk/internal/model"
	"github.com/Skufu/AortaRisk/internal/patient"
)

// Engine scores patient tuples against a fixed artifact pair. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	artifacts *model.Artifacts
	schema    features.Schema
}

// New checks the encoder schema against the scaler's recorded feature names
// and the classifier's input width before any prediction is served.
func New(artifacts *model.Artifacts, schema features.Schema) (*Engine, error) {
	if artifacts == nil || artifacts.Scaler == nil || artifacts.Model == nil {
		return nil, fmt.Errorf("inference: artifacts not loaded")
	}
	if err := schema.Verify(artifacts.Scaler.FeatureNamesIn); err != nil {
		return nil, fmt.Errorf("inference: scaler %s: %w", artifacts.ScalerName, err)
	}
	if n := artifacts.Model.NumFeatures(); n != schema.Len() {
		return nil, fmt.Errorf("inference: model %s: %w", artifacts.ModelName, &features.MismatchError{
			Actual: schema.Names(),
			Reason: fmt.Sprintf("model expects %d features, encoder produces %d", n, schema.Len()),
		})
	}
	return &Engine{artifacts: artifacts, schema: schema}, nil
}

func (e *Engine) Schema() features.Schema { return e.schema }

// ScalerFeatureNames returns the column names recorded in the fitted scaler.
func (e *Engine) ScalerFeatureNames() []string {
	names := make([]string, len(e.artifacts.Scaler.FeatureNamesIn))
	copy(names, e.artifacts.Scaler.FeatureNamesIn)
	return names
}

func (e *Engine) ArtifactNames() (scaler, model string) {
	return e.artifacts.ScalerName, e.artifacts.ModelName
}

// Predict returns the probability of the positive class (death within three
// years) for in.
func (e *Engine) Predict(in patient.Input) (float64, error) {
	return e.predictVector(e.schema.Encode(in))
}

func (e *Engine) predictVector(v features.Vector) (float64, error) {
	if len(v) != e.artifacts.Scaler.NumFeatures() {
		return 0, &features.MismatchError{
			Expected: e.ScalerFeatureNames(),
			Actual:   e.schema.Names(),
			Reason:   fmt.Sprintf("vector has %d values, scaler expects %d", len(v), e.artifacts.Scaler.NumFeatures()),
		}
	}
	scaled, err := e.artifacts.Scaler.Transform(v)
	if err != nil {
		return 0, fmt.Errorf("transform: %w", err)
	}
	proba, err := e.artifacts.Model.PredictProba(scaled)
	if err != nil {
		return 0, fmt.Errorf("predict_proba: %w", err)
	}
	return proba[1], nil
}
