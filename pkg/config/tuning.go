package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the operator-editable detector configuration. It overrides
// the built-in weight table and selected thresholds without a rebuild.
type Tuning struct {
	// Weights maps indicator names to aggregation weights in [0, 1].
	// Unknown names are ignored so tuning files survive version drift.
	Weights map[string]float64 `yaml:"weights"`

	Thresholds struct {
		// AnomalyFloor overrides the nearest-neighbor similarity floor.
		AnomalyFloor float64 `yaml:"anomaly_floor"`
		// VoteWindowSeconds overrides the vote coordination window.
		VoteWindowSeconds float64 `yaml:"vote_window_seconds"`
	} `yaml:"thresholds"`
}

// LoadTuning reads a YAML tuning file. A missing path returns an empty
// tuning, which applies no overrides.
func LoadTuning(path string) (*Tuning, error) {
	if path == "" {
		return &Tuning{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tuning file: %w", err)
	}
	for name, w := range t.Weights {
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("tuning weight %q out of range: %v", name, w)
		}
	}
	return &t, nil
}
