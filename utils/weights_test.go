package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsRoundTrip(t *testing.T) {
	w := NewModelWeights()
	w.Add("stem.conv.weight", []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	w.Add("stem.bn.running_mean", []int{3}, []float64{0.1, -0.2, 0.3})

	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, SaveWeights(path, w))

	loaded, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, w.Version, loaded.Version)
	assert.Equal(t, w.Params["stem.conv.weight"], loaded.Params["stem.conv.weight"])
	assert.Equal(t, w.Params["stem.bn.running_mean"], loaded.Params["stem.bn.running_mean"])
}

func TestAddCopiesData(t *testing.T) {
	w := NewModelWeights()
	data := []float64{1, 2}
	shape := []int{2}
	w.Add("p", shape, data)
	data[0] = 99
	shape[0] = 99
	assert.Equal(t, 1.0, w.Params["p"].Data[0], "snapshot must not alias caller data")
	assert.Equal(t, 2, w.Params["p"].Shape[0], "snapshot must not alias caller shape")
}

func TestLoadWeightsMissingFile(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
