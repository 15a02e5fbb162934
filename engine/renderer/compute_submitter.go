package renderer

import (
	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
	"github.com/cogentcore/webgpu/wgpu"
)

type computeSubmitter struct {
	r        Renderer
	key      string
	groups   []*wgpu.BindGroup
	released bool
}

var _ renderable.ComputeSubmitter = &computeSubmitter{}

// NewComputeSubmitter creates a ComputeSubmitter dispatching the compute pipeline key within the
// renderer's current compute frame.
//
// Parameters:
//   - r: the renderer
//   - key: the compute pipeline key
//   - groups: bind groups set at indices 0..len-1
//
// Returns:
//   - renderable.ComputeSubmitter: the submitter
func NewComputeSubmitter(r Renderer, key string, groups ...*wgpu.BindGroup) renderable.ComputeSubmitter {
	return &computeSubmitter{r: r, key: key, groups: groups}
}

func (c *computeSubmitter) Dispatch(x, y, z uint32) {
	if c.released {
		return
	}
	if err := c.r.DispatchCompute(c.key, c.groups, [3]uint32{x, y, z}); err != nil {
		common.Logger().Warn("[Submitter] dispatch skipped", "key", c.key, "error", err)
	}
}

func (c *computeSubmitter) Release() {
	c.released = true
	c.groups = nil
}
