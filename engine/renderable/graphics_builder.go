package renderable

import (
	"github.com/Carmen-Shannon/oxy-cull/engine/grid"
	"github.com/Carmen-Shannon/oxy-cull/engine/lod"
)

// GraphicsBuilderOption is a functional option for configuring a Graphics renderable.
type GraphicsBuilderOption func(*graphics)

// WithGraphicsIDSource sets the source the renderable takes its ID from.
//
// Parameters:
//   - src: the identifier source, nil keeps DefaultIDs
//
// Returns:
//   - GraphicsBuilderOption: option function to apply
func WithGraphicsIDSource(src *IDSource) GraphicsBuilderOption {
	return func(r *graphics) {
		if src != nil {
			r.ids = src
		}
	}
}

// WithLabel sets a name used in log output.
//
// Parameters:
//   - label: the name
//
// Returns:
//   - GraphicsBuilderOption: option function to apply
func WithLabel(label string) GraphicsBuilderOption {
	return func(r *graphics) {
		r.label = label
	}
}

// WithGrid attaches the instance grid. It is validated by NewGraphics.
// When no instance count is configured the grid's instance count is used.
//
// Parameters:
//   - g: the grid
//
// Returns:
//   - GraphicsBuilderOption: option function to apply
func WithGrid(g *grid.InstanceGrid) GraphicsBuilderOption {
	return func(r *graphics) {
		r.grid = g
	}
}

// WithLodTable attaches the LOD table.
//
// Parameters:
//   - t: the table
//
// Returns:
//   - GraphicsBuilderOption: option function to apply
func WithLodTable(t *lod.Table) GraphicsBuilderOption {
	return func(r *graphics) {
		r.table = t
	}
}

// WithInstanceCount sets the number of instances in the instance buffer.
//
// Parameters:
//   - n: the instance count
//
// Returns:
//   - GraphicsBuilderOption: option function to apply
func WithInstanceCount(n uint32) GraphicsBuilderOption {
	return func(r *graphics) {
		r.instanceCount = n
	}
}

// WithDrawCount sets the number of indices drawn per instance.
//
// Parameters:
//   - n: the element count
//
// Returns:
//   - GraphicsBuilderOption: option function to apply
func WithDrawCount(n uint32) GraphicsBuilderOption {
	return func(r *graphics) {
		r.drawCount = n
	}
}

// WithIndexRange places the mesh inside a shared index and vertex buffer.
//
// Parameters:
//   - first: the first index of the mesh
//   - baseVertex: the value added to every index
//
// Returns:
//   - GraphicsBuilderOption: option function to apply
func WithIndexRange(first uint32, baseVertex int32) GraphicsBuilderOption {
	return func(r *graphics) {
		r.firstIndex = first
		r.baseVertex = baseVertex
	}
}

// WithOpacity sets the base opacity. Defaults to 1.
//
// Parameters:
//   - base: the base opacity
//
// Returns:
//   - GraphicsBuilderOption: option function to apply
func WithOpacity(base float32) GraphicsBuilderOption {
	return func(r *graphics) {
		r.opacity = base
	}
}
