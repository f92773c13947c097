// emg-infer: classifies recorded EMG windows with a trained checkpoint.
//
// Usage:
//
//	emg-infer --weights=best_model.json --data=recordings.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/config"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/emg"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/model"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/utils"
)

var (
	configPath  = flag.String("config", "", "YAML config file (optional)")
	weightsPath = flag.String("weights", "best_model.json", "Trained model checkpoint")
	dataPath    = flag.String("data", "", "CSV recordings to classify (required)")
)

func main() {
	flag.Parse()
	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --data is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = *loaded
	}

	net, err := model.NewSpeechNet(model.Config{
		InChannels: emg.NumChannels,
		NumClasses: cfg.Model.NumClasses,
		Dropout:    cfg.Model.Dropout,
	})
	if err != nil {
		fatal(err)
	}
	weights, err := utils.LoadWeights(*weightsPath)
	if err != nil {
		fatal(err)
	}
	if err := nn.LoadParams(net.Params(), weights); err != nil {
		fatal(err)
	}
	net.SetMode(nn.Eval)

	fp := emg.FilterParams{
		SampleRate: cfg.Filter.SampleRate,
		Lowcut:     cfg.Filter.Lowcut,
		Highcut:    cfg.Filter.Highcut,
		Order:      cfg.Filter.Order,
	}
	windows, labels, err := emg.LoadCSV(*dataPath, fp)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Classifying %d windows from %s\n", len(windows), *dataPath)

	correct := 0
	for i, w := range windows {
		batch := w.Clone()
		batch.Shape = []int{1, w.Shape[0], w.Shape[1]}
		logits, err := net.Forward(batch)
		if err != nil {
			fatal(fmt.Errorf("window %d: %w", i, err))
		}
		pred := nn.Argmax(logits)[0]
		// Report in the recording's 1-based word numbering.
		fmt.Printf("window %d: predicted word %d (label %d)\n", i, pred+1, labels[i])
		if pred+1 == labels[i] {
			correct++
		}
	}
	fmt.Printf("Accuracy: %.4f (%d/%d)\n", float64(correct)/float64(len(windows)), correct, len(windows))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
