// Package renderable wraps instanced geometry and compute work into units the frame loop can
// cull, render, update and dispose.
package renderable

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-cull/engine/batch"
)

// ErrDisposed is carried by the panic raised when a disposed renderable is used.
var ErrDisposed = errors.New("renderable used after dispose")

// AlphaUniform is the uniform receiving the effective opacity.
const AlphaUniform = "uAlpha"

// Kind tags the closed set of renderable variants.
type Kind uint8

const (
	// KindGraphics is a renderable that draws culled instanced geometry.
	KindGraphics Kind = iota
	// KindCompute is a renderable that dispatches a compute pipeline.
	KindCompute
)

// String returns the lowercase name of the kind.
//
// Returns:
//   - string: the kind name, "unknown" outside the defined kinds
func (k Kind) String() string {
	switch k {
	case KindGraphics:
		return "graphics"
	case KindCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// Variant selects which pass a renderable is drawn for.
type Variant uint8

const (
	// VariantColor is the shaded color pass.
	VariantColor Variant = iota
	// VariantDepth is a depth-only pass such as a shadow or prepass.
	VariantDepth
	// VariantPicking writes object IDs for selection.
	VariantPicking
)

// DrawCommand describes a draw independently of the graphics API.
// For MultiDraw the per-entry parameters come from the batch and only Variant and
// SharedResourceCount are meaningful.
type DrawCommand struct {
	Variant Variant
	// SharedResourceCount is the number of resource slots already bound by the caller.
	// Renderable resources are bound after them.
	SharedResourceCount int
	First               uint32
	Count               uint32
	BaseVertex          int32
	InstanceCount       uint32
}

// Renderable is the capability shared by every variant.
type Renderable interface {
	// ID returns the unique identifier assigned at construction.
	ID() uint64

	// Kind returns the variant of the renderable.
	Kind() Kind

	// Render submits the renderable's work for one pass.
	//
	// Parameters:
	//   - variant: the pass being rendered
	//   - sharedResourceCount: resource slots already bound by the caller
	Render(variant Variant, sharedResourceCount int)

	// Update pushes pending buffer rebuilds to the GPU.
	//
	// Returns:
	//   - error: an error if an upload failed
	Update() error

	// Dispose releases GPU resources. Any later call panics with ErrDisposed.
	Dispose()
}

// Submitter is the graphics API side of a Graphics renderable.
type Submitter interface {
	// Draw issues a single instanced draw.
	//
	// Parameters:
	//   - cmd: the draw parameters
	Draw(cmd DrawCommand)

	// MultiDraw issues every valid entry of b, applying b.Uniforms first.
	//
	// Parameters:
	//   - cmd: pass level parameters
	//   - b: the batch to draw, Count > 0
	MultiDraw(cmd DrawCommand, b *batch.MultiDrawBatch)

	// SetUniform sets a vec4 uniform for subsequent draws.
	//
	// Parameters:
	//   - name: the uniform name
	//   - v: the value
	SetUniform(name string, v [4]float32)

	// Upload writes the batches' arguments and uniforms into GPU buffers where the backend needs them.
	//
	// Parameters:
	//   - batches: the batches filled by the last cull
	//
	// Returns:
	//   - error: an error if a buffer could not be created or written
	Upload(batches []*batch.MultiDrawBatch) error

	// Release frees every GPU resource held by the submitter.
	Release()
}

// ComputeSubmitter is the graphics API side of a Compute renderable.
type ComputeSubmitter interface {
	// Dispatch runs the compute pipeline over the given workgroup grid.
	//
	// Parameters:
	//   - x, y, z: workgroup counts
	Dispatch(x, y, z uint32)

	// Release frees every GPU resource held by the submitter.
	Release()
}
