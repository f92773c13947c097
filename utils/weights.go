// Package utils holds the checkpoint serialization and the timing
// bookkeeping shared by the training commands.
package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// WeightData represents one serializable parameter array.
type WeightData struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all parameters of a model, keyed by parameter name.
// Tracked state (normalization running statistics) is included so a loaded
// model reproduces predictions exactly.
type ModelWeights struct {
	Version string                `json:"version"`
	Params  map[string]WeightData `json:"params"`
}

// NewModelWeights returns an empty snapshot container.
func NewModelWeights() *ModelWeights {
	return &ModelWeights{Version: "1.0", Params: make(map[string]WeightData)}
}

// Add copies a parameter array into the snapshot.
func (w *ModelWeights) Add(name string, shape []int, data []float64) {
	w.Params[name] = WeightData{
		Shape: append([]int(nil), shape...),
		Data:  append([]float64(nil), data...),
	}
}

// SaveWeights saves model weights to a JSON file.
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file.
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return &weights, nil
}
