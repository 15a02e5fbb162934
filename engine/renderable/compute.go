package renderable

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
)

type compute struct {
	id    uint64
	ids   *IDSource
	label string
	sub   ComputeSubmitter

	groups   [3]uint32
	variants map[Variant]bool

	disposed bool
}

// Compute is a renderable that dispatches a compute pipeline instead of drawing.
// It has no culling state and exposes only the shared capability plus its workgroup grid.
type Compute interface {
	Renderable

	// Workgroups returns the dispatch grid.
	//
	// Returns:
	//   - x, y, z: workgroup counts
	Workgroups() (x, y, z uint32)

	// SetWorkgroups sets the dispatch grid. A zero count skips the dispatch.
	//
	// Parameters:
	//   - x, y, z: workgroup counts
	SetWorkgroups(x, y, z uint32)
}

var _ Compute = &compute{}

// NewCompute creates a Compute renderable dispatching through sub.
// Panics if sub is nil.
//
// Parameters:
//   - sub: the compute submitter (must not be nil)
//   - options: functional options to configure the renderable
//
// Returns:
//   - Compute: the new renderable
func NewCompute(sub ComputeSubmitter, options ...ComputeBuilderOption) Compute {
	if sub == nil {
		panic("renderable: NewCompute requires a non-nil ComputeSubmitter")
	}
	c := &compute{
		ids:    DefaultIDs,
		sub:    sub,
		groups: [3]uint32{1, 1, 1},
	}
	for _, option := range options {
		option(c)
	}
	c.id = c.ids.Next()
	return c
}

func (c *compute) live() {
	if c.disposed {
		panic(fmt.Errorf("compute renderable %d: %w", c.id, ErrDisposed))
	}
}

func (c *compute) ID() uint64 {
	c.live()
	return c.id
}

func (c *compute) Kind() Kind {
	c.live()
	return KindCompute
}

func (c *compute) Workgroups() (x, y, z uint32) {
	c.live()
	return c.groups[0], c.groups[1], c.groups[2]
}

func (c *compute) SetWorkgroups(x, y, z uint32) {
	c.live()
	c.groups = [3]uint32{x, y, z}
}

func (c *compute) Render(variant Variant, _ int) {
	c.live()
	if c.variants != nil && !c.variants[variant] {
		return
	}
	if c.groups[0] == 0 || c.groups[1] == 0 || c.groups[2] == 0 {
		return
	}
	c.sub.Dispatch(c.groups[0], c.groups[1], c.groups[2])
}

func (c *compute) Update() error {
	c.live()
	return nil
}

func (c *compute) Dispose() {
	c.live()
	c.sub.Release()
	c.disposed = true
	common.Logger().Debug("[Renderable] disposed compute renderable", "id", c.id, "label", c.label)
}
