package nn

import (
	"fmt"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/utils"
)

// SnapshotParams copies every parameter (trainable and tracked) into a
// serializable snapshot. The copy is deep; later optimizer steps do not
// disturb a saved checkpoint.
func SnapshotParams(params []*Param) *utils.ModelWeights {
	w := utils.NewModelWeights()
	for _, p := range params {
		w.Add(p.Name, p.Data.Shape, p.Data.Data)
	}
	return w
}

// LoadParams copies a snapshot back into the parameters of an
// identically-constructed network. Every parameter must be present with a
// matching size.
func LoadParams(params []*Param, w *utils.ModelWeights) error {
	for _, p := range params {
		wd, ok := w.Params[p.Name]
		if !ok {
			return fmt.Errorf("checkpoint is missing parameter %s", p.Name)
		}
		if len(wd.Data) != len(p.Data.Data) {
			return fmt.Errorf("parameter %s has %d values in checkpoint, expected %d", p.Name, len(wd.Data), len(p.Data.Data))
		}
		copy(p.Data.Data, wd.Data)
	}
	return nil
}
