package emg

import (
	"fmt"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// SampleStore binds conditioned windows to zero-based class indices. The
// augmenting mode is fixed at construction; a store built for evaluation
// never augments.
type SampleStore struct {
	windows []*tensor.Tensor
	classes []int
	aug     *Augmenter
}

// NewSampleStore validates the raw 1-based labels against the class count,
// zero-bases them once, and optionally attaches an augmenter for train-time
// access. windows and labels must have the same length.
func NewSampleStore(windows []*tensor.Tensor, labels []int, numClasses int, aug *Augmenter) (*SampleStore, error) {
	if len(windows) != len(labels) {
		return nil, fmt.Errorf("emg: %d windows but %d labels", len(windows), len(labels))
	}
	if numClasses < 1 {
		return nil, fmt.Errorf("emg: class count must be positive, got %d", numClasses)
	}
	classes := make([]int, len(labels))
	for i, l := range labels {
		if l < 1 || l > numClasses {
			return nil, fmt.Errorf("emg: window %d has label %d, labels are 1-based up to %d", i, l, numClasses)
		}
		classes[i] = l - 1
	}
	return &SampleStore{windows: windows, classes: classes, aug: aug}, nil
}

// Len returns the number of entries.
func (s *SampleStore) Len() int { return len(s.windows) }

// At returns the window at index i and its zero-based class. In augmenting
// mode the window is a freshly transformed copy; otherwise it is the stored
// original, which callers must not mutate.
func (s *SampleStore) At(i int) (*tensor.Tensor, int) {
	w := s.windows[i]
	if s.aug != nil {
		w = s.aug.Apply(w)
	}
	return w, s.classes[i]
}
