package renderable

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/batch"
	"github.com/Carmen-Shannon/oxy-cull/engine/grid"
	"github.com/Carmen-Shannon/oxy-cull/engine/lod"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

type graphics struct {
	id    uint64
	ids   *IDSource
	label string
	sub   Submitter

	grid          *grid.InstanceGrid
	table         *lod.Table
	builder       *batch.Builder
	instanceCount uint32
	drawCount     uint32
	firstIndex    uint32
	baseVertex    int32

	culled  bool
	pending bool

	opacity    float32
	modulation float32
	fade       *gween.Tween
	alpha      float32
	alphaSent  bool

	disposed bool
}

// Graphics is a drawable renderable whose instances can be culled against a camera.
// It starts uncalled and draws every instance until Cull succeeds.
// A Graphics is not safe for concurrent use.
type Graphics interface {
	Renderable

	// Cull runs the batch builder for the given camera.
	// When no grid is attached, the draw count is zero or there are no instances the renderable
	// stays uncalled and keeps drawing everything.
	//
	// Parameters:
	//   - plane: the camera cull plane
	//   - frustum: the camera frustum
	//
	// Returns:
	//   - bool: true if the renderable is now culled
	Cull(plane common.Plane, frustum *common.Frustum) bool

	// Uncull forces a full draw on the next Render.
	Uncull()

	// Culled reports whether the next Render draws batches instead of every instance.
	Culled() bool

	// Batches returns the batches filled by the last Cull.
	//
	// Returns:
	//   - []*batch.MultiDrawBatch: the batches, owned by the renderable
	Batches() []*batch.MultiDrawBatch

	// Grid returns the attached grid, or nil when culling is disabled.
	Grid() *grid.InstanceGrid

	// SetGrid attaches a grid after validating it. Passing nil disables culling.
	// An invalid grid is rejected and the previous grid stays attached.
	//
	// Parameters:
	//   - g: the grid or nil
	//
	// Returns:
	//   - error: an error wrapping grid.ErrInvalidGrid
	SetGrid(g *grid.InstanceGrid) error

	// LodTable returns the attached LOD table, or nil when banding is disabled.
	LodTable() *lod.Table

	// SetLodTable attaches a LOD table. Passing nil disables banding.
	//
	// Parameters:
	//   - t: the table or nil
	SetLodTable(t *lod.Table)

	// InstanceCount returns the number of instances in the instance buffer.
	InstanceCount() uint32

	// SetInstanceCount sets the number of instances drawn by a full draw.
	//
	// Parameters:
	//   - n: the instance count
	SetInstanceCount(n uint32)

	// DrawCount returns the number of elements drawn per instance.
	DrawCount() uint32

	// SetDrawCount sets the number of elements drawn per instance.
	//
	// Parameters:
	//   - n: the element count
	SetDrawCount(n uint32)

	// Opacity returns the base opacity.
	Opacity() float32

	// SetOpacity sets the base opacity. The uploaded value is the base opacity times the
	// current fade factor.
	//
	// Parameters:
	//   - base: the base opacity
	SetOpacity(base float32)

	// Fade tweens the fade factor linearly from one value to another.
	// A non-positive duration applies the target immediately.
	//
	// Parameters:
	//   - from: the starting factor
	//   - to: the final factor
	//   - seconds: the duration of the fade
	Fade(from, to, seconds float32)

	// Advance steps a running fade.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)

	// EffectiveOpacity returns the base opacity combined with the fade factor.
	EffectiveOpacity() float32

	// Stats reports what the next Render submits.
	//
	// Returns:
	//   - entries: the number of draw commands
	//   - instances: the number of drawn instances
	Stats() (entries int, instances uint64)
}

var _ Graphics = &graphics{}

// NewGraphics creates a Graphics renderable drawing through sub.
// Panics if sub is nil.
//
// Parameters:
//   - sub: the submitter issuing the draws (must not be nil)
//   - options: functional options to configure the renderable
//
// Returns:
//   - Graphics: the new renderable
//   - error: an error wrapping grid.ErrInvalidGrid if the configured grid is invalid
func NewGraphics(sub Submitter, options ...GraphicsBuilderOption) (Graphics, error) {
	if sub == nil {
		panic("renderable: NewGraphics requires a non-nil Submitter")
	}

	r := &graphics{
		ids:        DefaultIDs,
		sub:        sub,
		opacity:    1,
		modulation: 1,
	}
	for _, option := range options {
		option(r)
	}

	if r.grid != nil {
		if err := r.grid.Validate(); err != nil {
			return nil, fmt.Errorf("failed to attach grid: %w", err)
		}
		r.instanceCount = common.Coalesce(r.instanceCount, r.grid.InstanceCount())
	}
	r.builder = batch.NewBuilder(batch.WithFirstIndex(r.firstIndex), batch.WithBaseVertex(r.baseVertex))
	r.id = r.ids.Next()

	common.Logger().Debug("[Renderable] created graphics renderable",
		"id", r.id, "label", r.label, "instances", r.instanceCount, "grid", r.grid != nil)
	return r, nil
}

func (r *graphics) live() {
	if r.disposed {
		panic(fmt.Errorf("graphics renderable %d: %w", r.id, ErrDisposed))
	}
}

func (r *graphics) ID() uint64 {
	r.live()
	return r.id
}

func (r *graphics) Kind() Kind {
	r.live()
	return KindGraphics
}

func (r *graphics) Cull(plane common.Plane, frustum *common.Frustum) bool {
	r.live()
	if r.grid == nil || r.drawCount == 0 || r.instanceCount == 0 {
		r.culled = false
		return false
	}
	r.culled = r.builder.Cull(plane, frustum, r.grid, r.table, r.drawCount)
	if r.culled {
		r.pending = true
	}
	return r.culled
}

func (r *graphics) Uncull() {
	r.live()
	r.culled = false
}

func (r *graphics) Culled() bool {
	r.live()
	return r.culled
}

func (r *graphics) Batches() []*batch.MultiDrawBatch {
	r.live()
	return r.builder.Batches()
}

func (r *graphics) Grid() *grid.InstanceGrid {
	r.live()
	return r.grid
}

func (r *graphics) SetGrid(g *grid.InstanceGrid) error {
	r.live()
	if g != nil {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("failed to attach grid: %w", err)
		}
	}
	r.grid = g
	if g == nil {
		r.culled = false
	}
	return nil
}

func (r *graphics) LodTable() *lod.Table {
	r.live()
	return r.table
}

func (r *graphics) SetLodTable(t *lod.Table) {
	r.live()
	r.table = t
}

func (r *graphics) InstanceCount() uint32 {
	r.live()
	return r.instanceCount
}

func (r *graphics) SetInstanceCount(n uint32) {
	r.live()
	r.instanceCount = n
}

func (r *graphics) DrawCount() uint32 {
	r.live()
	return r.drawCount
}

func (r *graphics) SetDrawCount(n uint32) {
	r.live()
	r.drawCount = n
}

func (r *graphics) Opacity() float32 {
	r.live()
	return r.opacity
}

func (r *graphics) SetOpacity(base float32) {
	r.live()
	r.opacity = base
}

func (r *graphics) Fade(from, to, seconds float32) {
	r.live()
	if seconds <= 0 {
		r.fade = nil
		r.modulation = to
		return
	}
	r.fade = gween.New(from, to, seconds, ease.Linear)
	r.modulation = from
}

func (r *graphics) Advance(dt float32) {
	r.live()
	if r.fade == nil {
		return
	}
	v, done := r.fade.Update(dt)
	r.modulation = v
	if done {
		r.fade = nil
	}
}

func (r *graphics) EffectiveOpacity() float32 {
	r.live()
	return r.opacity * r.modulation
}

func (r *graphics) Render(variant Variant, sharedResourceCount int) {
	r.live()

	if alpha := r.opacity * r.modulation; !r.alphaSent || alpha != r.alpha {
		r.sub.SetUniform(AlphaUniform, [4]float32{alpha, 0, 0, 0})
		r.alpha = alpha
		r.alphaSent = true
	}

	cmd := DrawCommand{
		Variant:             variant,
		SharedResourceCount: sharedResourceCount,
		First:               r.firstIndex,
		Count:               r.drawCount,
		BaseVertex:          r.baseVertex,
	}
	if !r.culled {
		if r.instanceCount == 0 || r.drawCount == 0 {
			return
		}
		cmd.InstanceCount = r.instanceCount
		r.sub.Draw(cmd)
		return
	}
	for _, b := range r.builder.Batches() {
		if b.Count == 0 {
			continue
		}
		r.sub.MultiDraw(cmd, b)
	}
}

func (r *graphics) Update() error {
	r.live()
	if !r.pending || !r.culled {
		return nil
	}
	if err := r.sub.Upload(r.builder.Batches()); err != nil {
		return fmt.Errorf("failed to upload batches for renderable %d: %w", r.id, err)
	}
	r.pending = false
	return nil
}

func (r *graphics) Stats() (entries int, instances uint64) {
	r.live()
	if !r.culled {
		if r.instanceCount == 0 || r.drawCount == 0 {
			return 0, 0
		}
		return 1, uint64(r.instanceCount)
	}
	return r.builder.Totals()
}

func (r *graphics) Dispose() {
	r.live()
	r.sub.Release()
	r.disposed = true
	r.culled = false
	r.fade = nil
	common.Logger().Debug("[Renderable] disposed graphics renderable", "id", r.id, "label", r.label)
}
