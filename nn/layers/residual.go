package layers

import (
	"fmt"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// ResidualSEBlock is conv-bn-relu-conv-bn with an SE gate on the main path
// and an additive skip connection, followed by ReLU and dropout. When the
// channel count or stride changes, the skip is projected through a 1x1
// convolution with its own normalization.
type ResidualSEBlock struct {
	conv1 *Conv1D
	bn1   *BatchNorm1D
	relu1 *ReLU
	conv2 *Conv1D
	bn2   *BatchNorm1D
	se    *SEGate

	proj   *Conv1D // nil for an identity skip
	projBN *BatchNorm1D

	relu2 *ReLU
	drop  *Dropout
	name  string
}

// NewResidualSEBlock builds one block mapping inChan -> outChan with the
// given stride on the first convolution.
func NewResidualSEBlock(name string, inChan, outChan, stride int, dropout float64) *ResidualSEBlock {
	b := &ResidualSEBlock{
		conv1: NewConv1D(name+".conv1", inChan, outChan, 3, stride, 1),
		bn1:   NewBatchNorm1D(name+".bn1", outChan),
		relu1: NewReLU(),
		conv2: NewConv1D(name+".conv2", outChan, outChan, 3, 1, 1),
		bn2:   NewBatchNorm1D(name+".bn2", outChan),
		se:    NewSEGate(name+".se", outChan, 4),
		relu2: NewReLU(),
		drop:  NewDropout(dropout),
		name:  name,
	}
	if inChan != outChan || stride != 1 {
		b.proj = NewConv1D(name+".proj", inChan, outChan, 1, stride, 0)
		b.projBN = NewBatchNorm1D(name+".proj_bn", outChan)
	}
	return b
}

func (r *ResidualSEBlock) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := r.conv1.Forward(input)
	if err != nil {
		return nil, err
	}
	if out, err = r.bn1.Forward(out); err != nil {
		return nil, err
	}
	if out, err = r.relu1.Forward(out); err != nil {
		return nil, err
	}
	if out, err = r.conv2.Forward(out); err != nil {
		return nil, err
	}
	if out, err = r.bn2.Forward(out); err != nil {
		return nil, err
	}
	if out, err = r.se.Forward(out); err != nil {
		return nil, err
	}

	skip := input
	if r.proj != nil {
		if skip, err = r.proj.Forward(input); err != nil {
			return nil, err
		}
		if skip, err = r.projBN.Forward(skip); err != nil {
			return nil, err
		}
	}

	sum, err := tensor.Add(out, skip)
	if err != nil {
		return nil, fmt.Errorf("%s: joining skip connection: %w", r.name, err)
	}
	if sum, err = r.relu2.Forward(sum); err != nil {
		return nil, err
	}
	return r.drop.Forward(sum)
}

func (r *ResidualSEBlock) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	grad, err := r.drop.Backward(gradOut)
	if err != nil {
		return nil, err
	}
	if grad, err = r.relu2.Backward(grad); err != nil {
		return nil, err
	}

	// The summed gradient flows into both the main and the skip path.
	main, err := r.se.Backward(grad)
	if err != nil {
		return nil, err
	}
	if main, err = r.bn2.Backward(main); err != nil {
		return nil, err
	}
	if main, err = r.conv2.Backward(main); err != nil {
		return nil, err
	}
	if main, err = r.relu1.Backward(main); err != nil {
		return nil, err
	}
	if main, err = r.bn1.Backward(main); err != nil {
		return nil, err
	}
	if main, err = r.conv1.Backward(main); err != nil {
		return nil, err
	}

	skip := grad
	if r.proj != nil {
		if skip, err = r.projBN.Backward(skip); err != nil {
			return nil, err
		}
		if skip, err = r.proj.Backward(skip); err != nil {
			return nil, err
		}
	}

	return tensor.Add(main, skip)
}

func (r *ResidualSEBlock) Params() []*nn.Param {
	ps := append(r.conv1.Params(), r.bn1.Params()...)
	ps = append(ps, r.conv2.Params()...)
	ps = append(ps, r.bn2.Params()...)
	ps = append(ps, r.se.Params()...)
	if r.proj != nil {
		ps = append(ps, r.proj.Params()...)
		ps = append(ps, r.projBN.Params()...)
	}
	return ps
}

func (r *ResidualSEBlock) SetMode(m nn.Mode) {
	for _, mod := range []nn.Module{r.conv1, r.bn1, r.relu1, r.conv2, r.bn2, r.se, r.relu2, r.drop} {
		mod.SetMode(m)
	}
	if r.proj != nil {
		r.proj.SetMode(m)
		r.projBN.SetMode(m)
	}
}
