package emg

import (
	"golang.org/x/exp/rand"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// TrainTestSplit shuffles the windows with the given seed and carves off the
// last testFraction of them as the held-out set.
func TrainTestSplit(windows []*tensor.Tensor, labels []int, testFraction float64, seed uint64) (trainW []*tensor.Tensor, trainL []int, testW []*tensor.Tensor, testL []int) {
	n := len(windows)
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * testFraction)
	nTrain := n - nTest

	for i, p := range perm {
		if i < nTrain {
			trainW = append(trainW, windows[p])
			trainL = append(trainL, labels[p])
		} else {
			testW = append(testW, windows[p])
			testL = append(testL, labels[p])
		}
	}
	return trainW, trainL, testW, testL
}
