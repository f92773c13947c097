// Package model assembles the silent-speech classifier network: a wide-kernel
// strided stem, three residual squeeze-and-excitation stages, and a pooled
// classification head producing raw class scores.
package model

import (
	"fmt"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn/layers"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// Config sets the architecture knobs of the classifier.
type Config struct {
	InChannels int     // EMG channel count, 4 for the headphone array
	NumClasses int     // spoken-word classes
	Dropout    float64 // dropout probability in blocks and head
}

// DefaultConfig matches the reference deployment: 4 channels, 10 words.
func DefaultConfig() Config {
	return Config{InChannels: 4, NumClasses: 10, Dropout: 0.3}
}

// stageSpec describes one residual stage for the builder: explicit
// construction-time assembly instead of loop-built layer lists.
type stageSpec struct {
	name    string
	inChan  int
	outChan int
	blocks  int
	stride  int
}

// SpeechNet maps a [batch, channels, T] EMG window batch to
// [batch, numClasses] logits. The train/eval mode is explicit state set by
// the caller; nothing switches it implicitly.
type SpeechNet struct {
	seq  *nn.Sequential
	mode nn.Mode
	cfg  Config
}

// NewSpeechNet builds the full network: stem (wide-kernel strided conv,
// norm, relu, pool), stages 16->16, 16->32/2, 32->64/2 of two blocks each,
// and the pooled head.
func NewSpeechNet(cfg Config) (*SpeechNet, error) {
	if cfg.InChannels < 1 || cfg.NumClasses < 2 {
		return nil, fmt.Errorf("model: invalid config: %d channels, %d classes", cfg.InChannels, cfg.NumClasses)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("model: dropout must be in [0, 1), got %g", cfg.Dropout)
	}

	var mods []nn.Module

	// Stem: cheap early downsampling before the residual stages.
	mods = append(mods,
		layers.NewConv1D("stem.conv", cfg.InChannels, 16, 7, 2, 3),
		layers.NewBatchNorm1D("stem.bn", 16),
		layers.NewReLU(),
		layers.NewMaxPool1D(3, 2, 1),
	)

	stages := []stageSpec{
		{name: "stage1", inChan: 16, outChan: 16, blocks: 2, stride: 1},
		{name: "stage2", inChan: 16, outChan: 32, blocks: 2, stride: 2},
		{name: "stage3", inChan: 32, outChan: 64, blocks: 2, stride: 2},
	}
	for _, s := range stages {
		mods = append(mods, makeStage(s, cfg.Dropout)...)
	}

	// Head: pool over time, regularize, project to class scores.
	mods = append(mods,
		layers.NewGlobalAvgPool1D(),
		layers.NewDropout(cfg.Dropout),
		layers.NewLinear("head.fc", 64, cfg.NumClasses),
	)

	net := &SpeechNet{seq: &nn.Sequential{Layers: mods}, cfg: cfg}
	net.SetMode(nn.Train)
	return net, nil
}

// makeStage expands a stage spec into its ordered block sequence. Only the
// first block changes channel count and stride; the rest keep the shape.
func makeStage(s stageSpec, dropout float64) []nn.Module {
	mods := make([]nn.Module, 0, s.blocks)
	for b := 0; b < s.blocks; b++ {
		in, stride := s.outChan, 1
		if b == 0 {
			in, stride = s.inChan, s.stride
		}
		name := fmt.Sprintf("%s.block%d", s.name, b)
		mods = append(mods, layers.NewResidualSEBlock(name, in, s.outChan, stride, dropout))
	}
	return mods
}

// Forward produces [batch, numClasses] logits; no final activation, the loss
// applies softmax itself.
func (n *SpeechNet) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return n.seq.Forward(x)
}

// Backward propagates the logits gradient to the input.
func (n *SpeechNet) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	return n.seq.Backward(grad)
}

// Params returns all learnable weights plus tracked normalization state.
func (n *SpeechNet) Params() []*nn.Param { return n.seq.Params() }

// SetMode switches between stochastic training and deterministic evaluation
// behavior for every layer.
func (n *SpeechNet) SetMode(m nn.Mode) {
	n.mode = m
	n.seq.SetMode(m)
}

// Mode reports the network's current mode.
func (n *SpeechNet) Mode() nn.Mode { return n.mode }

// Config returns the architecture configuration the network was built with.
func (n *SpeechNet) Config() Config { return n.cfg }
