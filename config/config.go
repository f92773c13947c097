// Package config loads the training configuration from a YAML file, covering
// filtering, augmentation, model and trainer settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Filter struct {
	SampleRate float64 `yaml:"sample_rate"`
	Lowcut     float64 `yaml:"lowcut"`
	Highcut    float64 `yaml:"highcut"`
	Order      int     `yaml:"order"`
}

type Augment struct {
	MaxShift   int     `yaml:"max_shift"`
	NoiseLevel float64 `yaml:"noise_level"`
	ScaleLow   float64 `yaml:"scale_low"`
	ScaleHigh  float64 `yaml:"scale_high"`
	OffsetLow  float64 `yaml:"offset_low"`
	OffsetHigh float64 `yaml:"offset_high"`
}

type Model struct {
	NumClasses int     `yaml:"num_classes"`
	Dropout    float64 `yaml:"dropout"`
}

type Train struct {
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay"`
	Epochs       int     `yaml:"epochs"`
	TestFraction float64 `yaml:"test_fraction"`
	Seed         int64   `yaml:"seed"`
	Checkpoint   string  `yaml:"checkpoint"`
}

type Root struct {
	Filter  Filter  `yaml:"filter"`
	Augment Augment `yaml:"augment"`
	Model   Model   `yaml:"model"`
	Train   Train   `yaml:"train"`
}

// Default returns the reference configuration: 1 kHz EMG, 20-450 Hz band,
// 10 words, AdamW at 1e-3 with 1e-4 decay.
func Default() Root {
	return Root{
		Filter: Filter{SampleRate: 1000, Lowcut: 20, Highcut: 450, Order: 4},
		Augment: Augment{
			MaxShift:   100,
			NoiseLevel: 0.02,
			ScaleLow:   0.9,
			ScaleHigh:  1.1,
			OffsetLow:  -0.1,
			OffsetHigh: 0.1,
		},
		Model: Model{NumClasses: 10, Dropout: 0.3},
		Train: Train{
			BatchSize:    16,
			LearningRate: 1e-3,
			WeightDecay:  1e-4,
			Epochs:       50,
			TestFraction: 0.2,
			Seed:         42,
			Checkpoint:   "best_model.json",
		},
	}
}

// Load reads a YAML file over the defaults; missing keys keep their default
// values.
func Load(path string) (*Root, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
