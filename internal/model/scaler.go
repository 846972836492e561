package model

import (
	"fmt"
)

// StandardScaler holds the fitted attributes of a scikit-learn StandardScaler.
type StandardScaler struct {
	Type           string    `json:"type" yaml:"type"`
	FeatureNamesIn []string  `json:"feature_names_in" yaml:"feature_names_in"`
	Mean           []float64 `json:"mean" yaml:"mean"`
	Scale          []float64 `json:"scale" yaml:"scale"`
}

func (s *StandardScaler) NumFeatures() int { return len(s.FeatureNamesIn) }

func (s *StandardScaler) validate() error {
	if s.Type != "StandardScaler" {
		return fmt.Errorf("%w: scaler type %q", ErrUnsupported, s.Type)
	}
	n := len(s.FeatureNamesIn)
	if n == 0 {
		return fmt.Errorf("scaler: feature_names_in is empty")
	}
	if s.Mean != nil && len(s.Mean) != n {
		return fmt.Errorf("scaler: mean has %d values for %d features", len(s.Mean), n)
	}
	if s.Scale != nil && len(s.Scale) != n {
		return fmt.Errorf("scaler: scale has %d values for %d features", len(s.Scale), n)
	}
	return nil
}

// Transform standardizes x. A zero scale leaves the centered value unchanged.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != s.NumFeatures() {
		return nil, fmt.Errorf("scaler: X has %d features, but StandardScaler is expecting %d features as input", len(x), s.NumFeatures())
	}
	out := make([]float64, len(x))
	for i, v := range x {
		if s.Mean != nil {
			v -= s.Mean[i]
		}
		if s.Scale != nil && s.Scale[i] != 0 {
			v /= s.Scale[i]
		}
		out[i] = v
	}
	return out, nil
}
