package model

import (
	"fmt"
	"math"
)

type Kernel string

const (
	KernelLinear  Kernel = "linear"
	KernelRBF     Kernel = "rbf"
	KernelPoly    Kernel = "poly"
	KernelSigmoid Kernel = "sigmoid"
)

// Probability estimates are clamped to this margin like libsvm does.
const minProb = 1e-7

// SVC holds the fitted attributes of a binary scikit-learn SVC trained with
// probability=True. DualCoef and Intercept use scikit-learn's public sign
// convention: a positive decision value favours Classes[1].
type SVC struct {
	Type           string      `json:"type" yaml:"type"`
	Kernel         Kernel      `json:"kernel" yaml:"kernel"`
	Gamma          float64     `json:"gamma" yaml:"gamma"`
	Coef0          float64     `json:"coef0" yaml:"coef0"`
	Degree         int         `json:"degree" yaml:"degree"`
	Classes        []int       `json:"classes" yaml:"classes"`
	SupportVectors [][]float64 `json:"support_vectors" yaml:"support_vectors"`
	DualCoef       []float64   `json:"dual_coef" yaml:"dual_coef"`
	Intercept      float64     `json:"intercept" yaml:"intercept"`
	ProbA          float64     `json:"prob_a" yaml:"prob_a"`
	ProbB          float64     `json:"prob_b" yaml:"prob_b"`
	NFeaturesIn    int         `json:"n_features_in,omitempty" yaml:"n_features_in,omitempty"`
}

// NumFeatures is the width of the support vectors.
func (m *SVC) NumFeatures() int {
	if len(m.SupportVectors) == 0 {
		return m.NFeaturesIn
	}
	return len(m.SupportVectors[0])
}

func (m *SVC) validate() error {
	if m.Type != "SVC" {
		return fmt.Errorf("%w: model type %q", ErrUnsupported, m.Type)
	}
	switch m.Kernel {
	case KernelLinear, KernelRBF, KernelPoly, KernelSigmoid:
	default:
		return fmt.Errorf("%w: kernel %q", ErrUnsupported, m.Kernel)
	}
	if len(m.Classes) != 2 {
		return fmt.Errorf("%w: %d classes, only binary models are supported", ErrUnsupported, len(m.Classes))
	}
	if len(m.SupportVectors) == 0 {
		return fmt.Errorf("model: no support vectors")
	}
	if len(m.DualCoef) != len(m.SupportVectors) {
		return fmt.Errorf("model: %d dual coefficients for %d support vectors", len(m.DualCoef), len(m.SupportVectors))
	}
	width := len(m.SupportVectors[0])
	for i, sv := range m.SupportVectors {
		if len(sv) != width {
			return fmt.Errorf("model: support vector %d has %d features, expected %d", i, len(sv), width)
		}
	}
	if m.NFeaturesIn != 0 && m.NFeaturesIn != width {
		return fmt.Errorf("model: n_features_in is %d but support vectors have %d features", m.NFeaturesIn, width)
	}
	if m.Kernel == KernelPoly && m.Degree < 0 {
		return fmt.Errorf("model: negative polynomial degree %d", m.Degree)
	}
	return nil
}

func (m *SVC) kernel(a, b []float64) float64 {
	switch m.Kernel {
	case KernelRBF:
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Exp(-m.Gamma * sum)
	case KernelPoly:
		return math.Pow(m.Gamma*dot(a, b)+m.Coef0, float64(m.Degree))
	case KernelSigmoid:
		return math.Tanh(m.Gamma*dot(a, b) + m.Coef0)
	default:
		return dot(a, b)
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// DecisionFunction returns the signed distance of x to the separating
// hyperplane; positive values favour Classes[1].
func (m *SVC) DecisionFunction(x []float64) (float64, error) {
	if len(x) != m.NumFeatures() {
		return 0, fmt.Errorf("model: X has %d features, but SVC is expecting %d features as input", len(x), m.NumFeatures())
	}
	d := m.Intercept
	for i, sv := range m.SupportVectors {
		d += m.DualCoef[i] * m.kernel(sv, x)
	}
	return d, nil
}

// PredictProba returns the Platt-scaled probabilities of Classes[0] and
// Classes[1] for x.
func (m *SVC) PredictProba(x []float64) ([2]float64, error) {
	d, err := m.DecisionFunction(x)
	if err != nil {
		return [2]float64{}, err
	}
	// libsvm scores with the opposite sign and reports the first class.
	p0 := sigmoidPredict(-d, m.ProbA, m.ProbB)
	p0 = math.Min(math.Max(p0, minProb), 1-minProb)
	return [2]float64{p0, 1 - p0}, nil
}

func sigmoidPredict(dec, a, b float64) float64 {
	fApB := dec*a + b
	if fApB >= 0 {
		return math.Exp(-fApB) / (1 + math.Exp(-fApB))
	}
	return 1 / (1 + math.Exp(fApB))
}
