package nn

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/utils"
)

// Dataset serves labeled windows by index. The emg.SampleStore satisfies it.
type Dataset interface {
	Len() int
	At(i int) (*tensor.Tensor, int)
}

// EpochMetrics is the per-epoch report of the trainer.
type EpochMetrics struct {
	Epoch     int
	TrainLoss float64
	TrainAcc  float64
	ValLoss   float64
	ValAcc    float64
	BestAcc   float64
	Saved     bool
}

// Trainer drives epochs over the datasets through the network, applies
// optimizer steps, and persists the parameters whenever validation accuracy
// strictly improves. It owns the best-accuracy state: initialized to zero at
// the start of Run, updated only inside the epoch loop.
type Trainer struct {
	Net       Module
	Opt       *AdamW
	TrainSet  Dataset
	ValSet    Dataset
	BatchSize int
	Epochs    int

	// CheckpointPath is where the best parameters are written. Empty disables
	// persistence (useful in tests).
	CheckpointPath string

	Log     *logrus.Logger
	Stats   *utils.TimingStats
	History []EpochMetrics

	loss    SoftmaxCrossEntropy
	rng     *rand.Rand
	bestAcc float64
}

// NewTrainer wires a trainer with a seeded shuffle order.
func NewTrainer(net Module, opt *AdamW, train, val Dataset, batchSize, epochs int, checkpointPath string, seed int64) *Trainer {
	return &Trainer{
		Net:            net,
		Opt:            opt,
		TrainSet:       train,
		ValSet:         val,
		BatchSize:      batchSize,
		Epochs:         epochs,
		CheckpointPath: checkpointPath,
		Log:            logrus.New(),
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// Run trains for the configured number of epochs and returns the best
// validation accuracy observed. There is no early stopping; the epoch budget
// is fixed and the best checkpoint is whatever was saved along the way.
func (t *Trainer) Run() (float64, error) {
	if t.BatchSize <= 0 {
		return 0, fmt.Errorf("trainer: batch size must be positive, got %d", t.BatchSize)
	}
	if t.TrainSet.Len() < t.BatchSize {
		return 0, fmt.Errorf("trainer: training set has %d samples, smaller than one batch of %d", t.TrainSet.Len(), t.BatchSize)
	}
	if t.ValSet.Len() == 0 {
		return 0, fmt.Errorf("trainer: validation set is empty")
	}

	t.bestAcc = 0
	t.History = t.History[:0]
	start := time.Now()

	for epoch := 1; epoch <= t.Epochs; epoch++ {
		trainLoss, trainAcc, err := t.trainEpoch()
		if err != nil {
			return 0, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		valLoss, valAcc, err := t.validate()
		if err != nil {
			return 0, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		metrics := EpochMetrics{
			Epoch:     epoch,
			TrainLoss: trainLoss,
			TrainAcc:  trainAcc,
			ValLoss:   valLoss,
			ValAcc:    valAcc,
		}
		t.Log.Infof("epoch %d/%d | train loss %.4f acc %.4f | val loss %.4f acc %.4f",
			epoch, t.Epochs, trainLoss, trainAcc, valLoss, valAcc)

		if valAcc > t.bestAcc {
			t.bestAcc = valAcc
			metrics.Saved = true
			if t.CheckpointPath != "" {
				if err := utils.SaveWeights(t.CheckpointPath, SnapshotParams(t.Net.Params())); err != nil {
					return 0, fmt.Errorf("epoch %d: saving checkpoint: %w", epoch, err)
				}
			}
			t.Log.Infof("new best validation accuracy %.4f, checkpoint saved", valAcc)
		}
		metrics.BestAcc = t.bestAcc
		t.History = append(t.History, metrics)
	}

	if t.Stats != nil {
		t.Stats.TotalTime = time.Since(start)
	}
	t.Log.Infof("best validation accuracy: %.4f", t.bestAcc)
	return t.bestAcc, nil
}

// trainEpoch runs one pass over the training set in shuffled full batches.
// A final partial batch is dropped; validation keeps its remainder.
func (t *Trainer) trainEpoch() (loss, acc float64, err error) {
	t.Net.SetMode(Train)
	perm := t.rng.Perm(t.TrainSet.Len())
	numBatches := len(perm) / t.BatchSize

	var totalLoss float64
	var correct, total int
	for i := 0; i < numBatches; i++ {
		idx := perm[i*t.BatchSize : (i+1)*t.BatchSize]

		tLoad := time.Now()
		batch, labels, err := t.assembleBatch(t.TrainSet, idx)
		if err != nil {
			return 0, 0, err
		}
		t.addTime(&t.statsField().DataLoadingTime, tLoad)

		tFwd := time.Now()
		logits, err := t.Net.Forward(batch)
		if err != nil {
			return 0, 0, err
		}
		batchLoss, err := t.loss.Forward(logits, labels)
		if err != nil {
			return 0, 0, err
		}
		t.addTime(&t.statsField().ForwardPassTime, tFwd)

		tBwd := time.Now()
		if _, err := t.Net.Backward(t.loss.Backward()); err != nil {
			return 0, 0, err
		}
		t.addTime(&t.statsField().BackwardPassTime, tBwd)

		tUpd := time.Now()
		t.Opt.Step(t.Net.Params())
		t.addTime(&t.statsField().UpdateTime, tUpd)

		totalLoss += batchLoss * float64(len(idx))
		correct += countCorrect(logits, labels)
		total += len(idx)
	}

	if total == 0 {
		return 0, 0, fmt.Errorf("trainer: no full training batches; %d samples with batch size %d", t.TrainSet.Len(), t.BatchSize)
	}
	return totalLoss / float64(total), float64(correct) / float64(total), nil
}

// validate runs one deterministic pass over the held-out set: evaluation
// mode, fixed order, remainder batch included, no parameter updates.
func (t *Trainer) validate() (loss, acc float64, err error) {
	t.Net.SetMode(Eval)
	n := t.ValSet.Len()

	var totalLoss float64
	var correct, total int
	for start := 0; start < n; start += t.BatchSize {
		end := start + t.BatchSize
		if end > n {
			end = n
		}
		idx := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			idx = append(idx, i)
		}

		batch, labels, err := t.assembleBatch(t.ValSet, idx)
		if err != nil {
			return 0, 0, err
		}
		logits, err := t.Net.Forward(batch)
		if err != nil {
			return 0, 0, err
		}
		batchLoss, err := t.loss.Forward(logits, labels)
		if err != nil {
			return 0, 0, err
		}

		totalLoss += batchLoss * float64(len(idx))
		correct += countCorrect(logits, labels)
		total += len(idx)
	}

	if total == 0 {
		return 0, 0, fmt.Errorf("trainer: validation set produced no batches")
	}
	return totalLoss / float64(total), float64(correct) / float64(total), nil
}

// assembleBatch stacks windows into one [B, C, T] tensor. All windows in a
// batch must share the same shape. Each index is retrieved exactly once so
// augmented stores draw one transform per access.
func (t *Trainer) assembleBatch(ds Dataset, idx []int) (*tensor.Tensor, []int, error) {
	var batch *tensor.Tensor
	var channels, length int
	labels := make([]int, len(idx))

	for i, id := range idx {
		w, cls := ds.At(id)
		if i == 0 {
			if len(w.Shape) != 2 {
				return nil, nil, fmt.Errorf("trainer: window must be [channels, length], got shape %v", w.Shape)
			}
			channels, length = w.Shape[0], w.Shape[1]
			batch = tensor.New(len(idx), channels, length)
		} else if w.Shape[0] != channels || w.Shape[1] != length {
			return nil, nil, fmt.Errorf("trainer: window %d has shape %v, batch expects [%d %d]", id, w.Shape, channels, length)
		}
		copy(batch.Data[i*channels*length:(i+1)*channels*length], w.Data)
		labels[i] = cls
	}
	return batch, labels, nil
}

func countCorrect(logits *tensor.Tensor, labels []int) int {
	preds := Argmax(logits)
	correct := 0
	for i, p := range preds {
		if p == labels[i] {
			correct++
		}
	}
	return correct
}

func (t *Trainer) statsField() *utils.TimingStats {
	if t.Stats == nil {
		t.Stats = &utils.TimingStats{}
	}
	return t.Stats
}

func (t *Trainer) addTime(dst *time.Duration, since time.Time) {
	*dst += time.Since(since)
}
