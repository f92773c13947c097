// emg-train: trains the silent-speech word classifier on 4-channel EMG
// recordings.
//
// Usage:
//
//	emg-train --data=recordings.csv --epochs=50 --lr=0.001
//
// Without --data a synthetic dataset is generated, which is useful for smoke
// runs and timing.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/config"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/emg"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/model"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/utils"
)

var (
	configPath = flag.String("config", "", "YAML config file (optional)")
	dataPath   = flag.String("data", "", "CSV recordings; empty generates synthetic data")
	epochs     = flag.Int("epochs", 0, "Override epoch count")
	lr         = flag.Float64("lr", 0, "Override learning rate")
	batchSize  = flag.Int("batch", 0, "Override batch size")
	output     = flag.String("output", "", "Override checkpoint path")
	seed       = flag.Int64("seed", 0, "Override shuffle/init seed")
	samples    = flag.Int("samples", 100, "Synthetic sample count")
	length     = flag.Int("length", 3000, "Synthetic window length")
	verbose    = flag.Bool("verbose", true, "Print timing statistics")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = *loaded
	}
	if *epochs > 0 {
		cfg.Train.Epochs = *epochs
	}
	if *lr > 0 {
		cfg.Train.LearningRate = *lr
	}
	if *batchSize > 0 {
		cfg.Train.BatchSize = *batchSize
	}
	if *output != "" {
		cfg.Train.Checkpoint = *output
	}
	if *seed != 0 {
		cfg.Train.Seed = *seed
	}
	rand.Seed(cfg.Train.Seed)

	fmt.Println("EMG silent-speech trainer")
	fmt.Printf("  Epochs:        %d\n", cfg.Train.Epochs)
	fmt.Printf("  Batch size:    %d\n", cfg.Train.BatchSize)
	fmt.Printf("  Learning rate: %.4f\n", cfg.Train.LearningRate)
	fmt.Printf("  Weight decay:  %.6f\n", cfg.Train.WeightDecay)
	fmt.Printf("  Classes:       %d\n", cfg.Model.NumClasses)
	fmt.Printf("  Checkpoint:    %s\n", cfg.Train.Checkpoint)
	fmt.Println()

	fp := emg.FilterParams{
		SampleRate: cfg.Filter.SampleRate,
		Lowcut:     cfg.Filter.Lowcut,
		Highcut:    cfg.Filter.Highcut,
		Order:      cfg.Filter.Order,
	}

	var windows []*tensor.Tensor
	var labels []int
	var err error
	if *dataPath != "" {
		fmt.Printf("Loading %s...\n", *dataPath)
		windows, labels, err = emg.LoadCSV(*dataPath, fp)
	} else {
		fmt.Printf("Generating %d synthetic windows of length %d...\n", *samples, *length)
		windows, labels = generateData(*samples, *length, cfg.Model.NumClasses, cfg.Filter.SampleRate)
		err = emg.FilterWindows(windows, fp)
	}
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Loaded %d windows\n", len(windows))

	trainW, trainL, valW, valL := emg.TrainTestSplit(windows, labels, cfg.Train.TestFraction, uint64(cfg.Train.Seed))

	aug := emg.NewAugmenter(uint64(cfg.Train.Seed))
	aug.MaxShift = cfg.Augment.MaxShift
	aug.NoiseLevel = cfg.Augment.NoiseLevel
	aug.ScaleLow, aug.ScaleHigh = cfg.Augment.ScaleLow, cfg.Augment.ScaleHigh
	aug.OffsetLow, aug.OffsetHigh = cfg.Augment.OffsetLow, cfg.Augment.OffsetHigh

	trainSet, err := emg.NewSampleStore(trainW, trainL, cfg.Model.NumClasses, aug)
	if err != nil {
		fatal(err)
	}
	valSet, err := emg.NewSampleStore(valW, valL, cfg.Model.NumClasses, nil)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Split: %d train / %d validation\n\n", trainSet.Len(), valSet.Len())

	net, err := model.NewSpeechNet(model.Config{
		InChannels: emg.NumChannels,
		NumClasses: cfg.Model.NumClasses,
		Dropout:    cfg.Model.Dropout,
	})
	if err != nil {
		fatal(err)
	}

	opt := nn.NewAdamW(cfg.Train.LearningRate, cfg.Train.WeightDecay)
	trainer := nn.NewTrainer(net, opt, trainSet, valSet,
		cfg.Train.BatchSize, cfg.Train.Epochs, cfg.Train.Checkpoint, cfg.Train.Seed)
	trainer.Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	trainer.Stats = &utils.TimingStats{}

	best, err := trainer.Run()
	if err != nil {
		fatal(err)
	}

	fmt.Printf("\nBest validation accuracy: %.4f\n", best)
	steps := cfg.Train.Epochs * (trainSet.Len() / cfg.Train.BatchSize)
	utils.PrintTimingStats(trainer.Stats, steps)
}

// generateData synthesizes labeled windows whose channels carry a
// class-dependent tone burst in noise, so a smoke run has signal to learn.
func generateData(n, length, classes int, fs float64) ([]*tensor.Tensor, []int) {
	windows := make([]*tensor.Tensor, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		cls := i % classes
		freq := 40 + 30*float64(cls)
		w := tensor.New(emg.NumChannels, length)
		for c := 0; c < emg.NumChannels; c++ {
			phase := rand.Float64() * 2 * math.Pi
			for s := 0; s < length; s++ {
				tone := math.Sin(2*math.Pi*freq*float64(s)/fs + phase)
				w.Data[c*length+s] = tone + 0.5*rand.NormFloat64()
			}
		}
		windows[i] = w
		labels[i] = cls + 1
	}
	return windows, labels
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
