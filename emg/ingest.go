// Package emg turns raw 4-channel textile-EMG recordings into labeled,
// bandpass-conditioned utterance windows and serves them to the trainer.
package emg

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/dsp"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// NumChannels is the fixed channel count of the headphone sensor array.
const NumChannels = 4

// FilterParams configures the per-channel bandpass applied at ingestion.
type FilterParams struct {
	SampleRate float64
	Lowcut     float64
	Highcut    float64
	Order      int
}

// ReadWindows parses rows of the form
//
//	sample_id, time_index, ch1, ch2, ch3, ch4, label
//
// and groups rows sharing a sample_id into one [NumChannels, T] window. A
// header row is skipped if present. Every row of one sample_id must carry the
// same label; a conflict is a fatal data-integrity error. Returned labels are
// the raw 1-based values from the file.
func ReadWindows(r io.Reader) ([]*tensor.Tensor, []int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	type group struct {
		channels [NumChannels][]float64
		label    int
	}
	var order []string
	groups := make(map[string]*group)

	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading record: %w", err)
		}
		row++
		if len(rec) != NumChannels+3 {
			return nil, nil, fmt.Errorf("row %d: expected %d columns, got %d", row, NumChannels+3, len(rec))
		}
		if row == 1 {
			if _, err := strconv.ParseFloat(rec[2], 64); err != nil {
				// header row
				continue
			}
		}

		id := rec[0]
		label, err := strconv.Atoi(rec[len(rec)-1])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: parsing label %q: %w", row, rec[len(rec)-1], err)
		}

		g, ok := groups[id]
		if !ok {
			g = &group{label: label}
			groups[id] = g
			order = append(order, id)
		} else if g.label != label {
			return nil, nil, fmt.Errorf("sample %s has conflicting labels %d and %d", id, g.label, label)
		}
		for c := 0; c < NumChannels; c++ {
			v, err := strconv.ParseFloat(rec[2+c], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: parsing ch%d %q: %w", row, c+1, rec[2+c], err)
			}
			g.channels[c] = append(g.channels[c], v)
		}
	}

	windows := make([]*tensor.Tensor, 0, len(order))
	labels := make([]int, 0, len(order))
	for _, id := range order {
		g := groups[id]
		n := len(g.channels[0])
		w := tensor.New(NumChannels, n)
		for c := 0; c < NumChannels; c++ {
			copy(w.Data[c*n:(c+1)*n], g.channels[c])
		}
		windows = append(windows, w)
		labels = append(labels, g.label)
	}
	return windows, labels, nil
}

// LoadCSV reads windows from path and bandpass-filters each channel in place
// of the raw values. The returned windows are immutable from here on.
func LoadCSV(path string, fp FilterParams) ([]*tensor.Tensor, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	windows, labels, err := ReadWindows(f)
	if err != nil {
		return nil, nil, err
	}
	if err := FilterWindows(windows, fp); err != nil {
		return nil, nil, err
	}
	return windows, labels, nil
}

// FilterWindows applies the zero-phase bandpass to every channel of every
// window. Channels stay time-aligned because the filter has zero net phase.
func FilterWindows(windows []*tensor.Tensor, fp FilterParams) error {
	for i, w := range windows {
		n := w.Shape[1]
		for c := 0; c < NumChannels; c++ {
			filtered, err := dsp.Bandpass(w.Data[c*n:(c+1)*n], fp.Lowcut, fp.Highcut, fp.SampleRate, fp.Order)
			if err != nil {
				return fmt.Errorf("filtering window %d channel %d: %w", i, c+1, err)
			}
			copy(w.Data[c*n:(c+1)*n], filtered)
		}
	}
	return nil
}
