package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrUnsupported = errors.New("unsupported artifact")
)

// Artifacts is the fitted scaler and classifier pair. It is never mutated
// after Load returns.
type Artifacts struct {
	Scaler *StandardScaler
	Model  *SVC

	ScalerName string
	ModelName  string
}

// Source fetches raw artifact bytes by name.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Load fetches and decodes both artifacts. Any failure is terminal for the
// caller; nothing is retried.
func Load(ctx context.Context, src Source, scalerName, modelName string) (*Artifacts, error) {
	scaler := &StandardScaler{}
	if err := fetchInto(ctx, src, scalerName, scaler); err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	if err := scaler.validate(); err != nil {
		return nil, fmt.Errorf("load scaler %s: %w", scalerName, err)
	}

	svc := &SVC{}
	if err := fetchInto(ctx, src, modelName, svc); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if err := svc.validate(); err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelName, err)
	}

	if svc.NumFeatures() != scaler.NumFeatures() {
		return nil, fmt.Errorf("model expects %d features but scaler was fitted on %d", svc.NumFeatures(), scaler.NumFeatures())
	}

	return &Artifacts{Scaler: scaler, Model: svc, ScalerName: scalerName, ModelName: modelName}, nil
}

func fetchInto(ctx context.Context, src Source, name string, out any) error {
	raw, err := src.Fetch(ctx, name)
	if err != nil {
		return err
	}
	if err := Decode(name, raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Decode selects a codec from the artifact name's extension.
func Decode(name string, raw []byte, out any) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		return dec.Decode(out)
	case ".pkl", ".pickle":
		return fmt.Errorf("%w: pickle artifacts must be exported to JSON or YAML", ErrUnsupported)
	default:
		return fmt.Errorf("%w: extension of %q", ErrUnsupported, name)
	}
}
