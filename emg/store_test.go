package emg

import (
	"testing"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

func makeWindows(n, length int) ([]*tensor.Tensor, []int) {
	windows := make([]*tensor.Tensor, n)
	labels := make([]int, n)
	for i := range windows {
		w := tensor.New(NumChannels, length)
		for j := range w.Data {
			w.Data[j] = float64(i*1000 + j)
		}
		windows[i] = w
		labels[i] = i%10 + 1
	}
	return windows, labels
}

func TestSampleStoreZeroBasesLabels(t *testing.T) {
	windows, labels := makeWindows(20, 8)
	s, err := NewSampleStore(windows, labels, 10, nil)
	if err != nil {
		t.Fatalf("NewSampleStore: %v", err)
	}
	for i := 0; i < s.Len(); i++ {
		_, cls := s.At(i)
		if cls != labels[i]-1 {
			t.Fatalf("entry %d: class %d for label %d", i, cls, labels[i])
		}
	}
}

func TestSampleStoreLengthMismatch(t *testing.T) {
	windows, labels := makeWindows(3, 8)
	if _, err := NewSampleStore(windows, labels[:2], 10, nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestSampleStoreRejectsZeroLabel(t *testing.T) {
	windows, labels := makeWindows(3, 8)
	labels[1] = 0
	if _, err := NewSampleStore(windows, labels, 10, nil); err == nil {
		t.Fatal("expected 1-based label error")
	}
}

func TestSampleStoreRejectsLabelAboveClassCount(t *testing.T) {
	windows, labels := makeWindows(3, 8)
	labels[2] = 11
	if _, err := NewSampleStore(windows, labels, 10, nil); err == nil {
		t.Fatal("expected out-of-range label error")
	}
	if _, err := NewSampleStore(windows, labels[:3], 0, nil); err == nil {
		t.Fatal("expected class-count error")
	}
}

func TestSampleStoreWithoutAugmenterReturnsOriginal(t *testing.T) {
	windows, labels := makeWindows(2, 8)
	s, err := NewSampleStore(windows, labels, 10, nil)
	if err != nil {
		t.Fatalf("NewSampleStore: %v", err)
	}
	w, _ := s.At(0)
	if w != windows[0] {
		t.Fatal("non-augmenting store should return the stored window")
	}
}

func TestSampleStoreWithAugmenterReturnsCopy(t *testing.T) {
	windows, labels := makeWindows(2, 500)
	s, err := NewSampleStore(windows, labels, 10, NewAugmenter(9))
	if err != nil {
		t.Fatalf("NewSampleStore: %v", err)
	}
	orig := windows[0].Clone()
	for i := 0; i < 10; i++ {
		w, _ := s.At(0)
		if w == windows[0] {
			t.Fatal("augmenting store must not hand out the stored window")
		}
	}
	for i := range orig.Data {
		if windows[0].Data[i] != orig.Data[i] {
			t.Fatalf("augmenting access mutated stored window at %d", i)
		}
	}
}

func TestTrainTestSplitSizesAndPartition(t *testing.T) {
	windows, labels := makeWindows(50, 8)
	trainW, trainL, testW, testL := TrainTestSplit(windows, labels, 0.2, 42)
	if len(trainW) != 40 || len(testW) != 10 {
		t.Fatalf("split sizes %d/%d, want 40/10", len(trainW), len(testW))
	}
	if len(trainL) != 40 || len(testL) != 10 {
		t.Fatalf("label sizes %d/%d, want 40/10", len(trainL), len(testL))
	}
	seen := make(map[*tensor.Tensor]bool)
	for _, w := range append(append([]*tensor.Tensor(nil), trainW...), testW...) {
		if seen[w] {
			t.Fatal("window appears in both partitions")
		}
		seen[w] = true
	}
	if len(seen) != 50 {
		t.Fatalf("partition covers %d of 50 windows", len(seen))
	}
}

func TestTrainTestSplitReproducible(t *testing.T) {
	windows, labels := makeWindows(30, 8)
	_, l1, _, t1 := TrainTestSplit(windows, labels, 0.2, 7)
	_, l2, _, t2 := TrainTestSplit(windows, labels, 0.2, 7)
	for i := range l1 {
		if l1[i] != l2[i] {
			t.Fatal("same seed produced different train order")
		}
	}
	for i := range t1 {
		if t1[i] != t2[i] {
			t.Fatal("same seed produced different test order")
		}
	}
}
