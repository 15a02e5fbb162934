package grid

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-cull/common"
)

// ErrNoInstances is returned by Build when no positions are supplied.
var ErrNoInstances = errors.New("no instances to partition")

const (
	// DefaultCellPopulation is the average number of instances per cell the builder aims for
	// when no explicit cell size is configured.
	DefaultCellPopulation = 64
	// DefaultInstanceRadius is the bounding radius assumed for a single instance.
	DefaultInstanceRadius = 1
)

// builder holds the configuration applied by GridBuilderOption values.
type builder struct {
	cellSize       float32
	population     int
	instanceRadius float32
	instanceRadii  []float32
}

// GridBuilderOption is a functional option for configuring Build.
type GridBuilderOption func(*builder)

// WithCellSize is an option builder that fixes the edge length of a grid cell.
//
// Parameters:
//   - size: the cell edge length in world units, values <= 0 are ignored
//
// Returns:
//   - GridBuilderOption: a function that applies the cell size option
func WithCellSize(size float32) GridBuilderOption {
	return func(b *builder) {
		if size > 0 {
			b.cellSize = size
		}
	}
}

// WithTargetCellPopulation is an option builder that sets how many instances a cell should
// hold on average when the cell size is derived automatically.
//
// Parameters:
//   - n: the target population, values <= 0 are ignored
//
// Returns:
//   - GridBuilderOption: a function that applies the population option
func WithTargetCellPopulation(n int) GridBuilderOption {
	return func(b *builder) {
		if n > 0 {
			b.population = n
		}
	}
}

// WithInstanceRadius is an option builder that sets the bounding radius of every instance.
//
// Parameters:
//   - r: the radius, values < 0 are ignored
//
// Returns:
//   - GridBuilderOption: a function that applies the instance radius option
func WithInstanceRadius(r float32) GridBuilderOption {
	return func(b *builder) {
		if r >= 0 {
			b.instanceRadius = r
		}
	}
}

// WithInstanceRadii is an option builder that sets one bounding radius per instance.
// The slice must have the same length as the positions given to Build, otherwise it is ignored.
//
// Parameters:
//   - radii: per-instance radii in input order
//
// Returns:
//   - GridBuilderOption: a function that applies the per-instance radii option
func WithInstanceRadii(radii []float32) GridBuilderOption {
	return func(b *builder) {
		b.instanceRadii = radii
	}
}

// Build partitions instance positions into grid cells.
// The returned order is the permutation to apply to the instance buffer: the instance stored
// at buffer index i must be the input instance order[i]. Instances inside one cell keep their
// relative input order.
//
// Parameters:
//   - positions: instance centers in world space
//   - options: functional options to configure the partition
//
// Returns:
//   - *InstanceGrid: the validated grid
//   - []uint32: the buffer permutation
//   - error: ErrNoInstances if positions is empty
func Build(positions [][3]float32, options ...GridBuilderOption) (*InstanceGrid, []uint32, error) {
	if len(positions) == 0 {
		return nil, nil, ErrNoInstances
	}

	b := &builder{
		population:     DefaultCellPopulation,
		instanceRadius: DefaultInstanceRadius,
	}
	for _, opt := range options {
		opt(b)
	}
	if len(b.instanceRadii) != len(positions) {
		b.instanceRadii = nil
	}

	lo, hi := positions[0], positions[0]
	for _, p := range positions[1:] {
		for a := range 3 {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
	}

	cellSize := common.Coalesce(b.cellSize, autoCellSize(lo, hi, len(positions), b.population))

	var dims [3]uint64
	for a := range 3 {
		dims[a] = uint64((hi[a]-lo[a])/cellSize) + 1
	}

	keys := make([]uint64, len(positions))
	order := make([]uint32, len(positions))
	for i, p := range positions {
		var c [3]uint64
		for a := range 3 {
			c[a] = min(uint64((p[a]-lo[a])/cellSize), dims[a]-1)
		}
		keys[i] = (c[2]*dims[1]+c[1])*dims[0] + c[0]
		order[i] = uint32(i)
	}
	slices.SortStableFunc(order, func(x, y uint32) int {
		return cmp.Compare(keys[x], keys[y])
	})

	offsets := make([]uint32, 0, 64)
	spheres := make([]float32, 0, 256)
	offsets = append(offsets, 0)
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && keys[order[end]] == keys[order[start]] {
			end++
		}
		s := b.cellSphere(positions, order[start:end])
		spheres = append(spheres, s.Center[0], s.Center[1], s.Center[2], s.Radius)
		offsets = append(offsets, uint32(end))
		start = end
	}

	g, err := NewInstanceGrid(offsets, spheres)
	if err != nil {
		return nil, nil, err
	}
	common.Logger().Info("[Grid] built instance grid",
		"instances", len(positions), "cells", g.CellCount, "cellSize", cellSize)
	return g, order, nil
}

// cellSphere bounds the members of one cell: the center is the center of their AABB and the
// radius reaches the farthest member plus its instance radius.
func (b *builder) cellSphere(positions [][3]float32, members []uint32) common.Sphere {
	lo, hi := positions[members[0]], positions[members[0]]
	for _, m := range members[1:] {
		p := positions[m]
		for a := range 3 {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
	}
	center := [3]float32{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2, (lo[2] + hi[2]) / 2}

	var radius float32
	for _, m := range members {
		p := positions[m]
		dx, dy, dz := p[0]-center[0], p[1]-center[1], p[2]-center[2]
		d := float32(math.Sqrt(float64(dx*dx+dy*dy+dz*dz))) + b.radiusOf(m)
		radius = max(radius, d)
	}
	return common.Sphere{Center: center, Radius: radius}
}

func (b *builder) radiusOf(i uint32) float32 {
	if b.instanceRadii != nil {
		return b.instanceRadii[i]
	}
	return b.instanceRadius
}

// autoCellSize picks a cell edge so that roughly population instances share a cell, using only
// the axes along which the instances actually spread. Flat or linear layouts therefore still
// get a sensible cell size.
func autoCellSize(lo, hi [3]float32, count, population int) float32 {
	cells := math.Ceil(float64(count) / float64(population))
	extent := 1.0
	axes := 0
	var longest float32
	for a := range 3 {
		e := hi[a] - lo[a]
		longest = max(longest, e)
		if e > 0 {
			extent *= float64(e)
			axes++
		}
	}
	if axes == 0 {
		return 1
	}
	size := float32(math.Pow(extent/cells, 1/float64(axes)))
	if size <= 0 || math.IsNaN(float64(size)) || math.IsInf(float64(size), 0) {
		return max(longest, 1)
	}
	return size
}
