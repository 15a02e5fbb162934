// Package grid holds the static spatial partition of an instanced geometry.
// Each cell owns a contiguous range of instance indices and a bounding sphere
// enclosing all of them. Cells are stored in instance-buffer order, which is what
// lets adjacent surviving cells be merged into a single draw.
package grid

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
)

// ErrInvalidGrid is wrapped by every error returned from Validate.
var ErrInvalidGrid = errors.New("invalid instance grid")

// InstanceGrid is an immutable partition of instances into cells.
// Cell i owns the instance indices [CellOffsets[i], CellOffsets[i+1]).
type InstanceGrid struct {
	// CellCount is the number of cells.
	CellCount int
	// CellOffsets holds CellCount+1 non-decreasing instance offsets, starting at 0.
	CellOffsets []uint32
	// CellSpheres packs one bounding sphere per cell as x, y, z, radius.
	CellSpheres []float32
}

// NewInstanceGrid wraps already computed offsets and packed spheres and validates them.
//
// Parameters:
//   - offsets: CellCount+1 instance offsets
//   - spheres: 4*CellCount packed sphere values
//
// Returns:
//   - *InstanceGrid: the grid
//   - error: an error wrapping ErrInvalidGrid if the data breaks the partition invariant
func NewInstanceGrid(offsets []uint32, spheres []float32) (*InstanceGrid, error) {
	g := &InstanceGrid{
		CellCount:   len(offsets) - 1,
		CellOffsets: offsets,
		CellSpheres: spheres,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the partition invariant: CellCount+1 offsets starting at 0,
// non-decreasing, and four sphere values per cell.
//
// Returns:
//   - error: nil if the grid is usable for culling, otherwise an error wrapping ErrInvalidGrid
func (g *InstanceGrid) Validate() error {
	if g.CellCount < 0 {
		return fmt.Errorf("%w: negative cell count %d", ErrInvalidGrid, g.CellCount)
	}
	if len(g.CellOffsets) != g.CellCount+1 {
		return fmt.Errorf("%w: expected %d offsets, got %d", ErrInvalidGrid, g.CellCount+1, len(g.CellOffsets))
	}
	if len(g.CellSpheres) != g.CellCount*4 {
		return fmt.Errorf("%w: expected %d sphere values, got %d", ErrInvalidGrid, g.CellCount*4, len(g.CellSpheres))
	}
	if g.CellOffsets[0] != 0 {
		return fmt.Errorf("%w: first offset is %d, expected 0", ErrInvalidGrid, g.CellOffsets[0])
	}
	for i := 1; i < len(g.CellOffsets); i++ {
		if g.CellOffsets[i] < g.CellOffsets[i-1] {
			return fmt.Errorf("%w: offset %d (%d) is smaller than offset %d (%d)",
				ErrInvalidGrid, i, g.CellOffsets[i], i-1, g.CellOffsets[i-1])
		}
	}
	for i := 0; i < g.CellCount; i++ {
		if r := g.CellSpheres[i*4+3]; r < 0 {
			return fmt.Errorf("%w: cell %d has negative radius %v", ErrInvalidGrid, i, r)
		}
	}
	return nil
}

// InstanceCount returns the total number of instances covered by the grid.
//
// Returns:
//   - uint32: CellOffsets[CellCount]
func (g *InstanceGrid) InstanceCount() uint32 {
	if len(g.CellOffsets) == 0 {
		return 0
	}
	return g.CellOffsets[len(g.CellOffsets)-1]
}

// Sphere reconstructs the bounding sphere of cell i from packed storage.
//
// Parameters:
//   - i: the cell index
//
// Returns:
//   - common.Sphere: the cell bounds
func (g *InstanceGrid) Sphere(i int) common.Sphere {
	o := i * 4
	return common.Sphere{
		Center: [3]float32{g.CellSpheres[o], g.CellSpheres[o+1], g.CellSpheres[o+2]},
		Radius: g.CellSpheres[o+3],
	}
}

// Range returns the instance index range [begin, end) owned by cell i.
//
// Parameters:
//   - i: the cell index
//
// Returns:
//   - begin: first instance index of the cell
//   - end: one past the last instance index of the cell
func (g *InstanceGrid) Range(i int) (begin, end uint32) {
	return g.CellOffsets[i], g.CellOffsets[i+1]
}
