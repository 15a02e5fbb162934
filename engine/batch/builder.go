package batch

import (
	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/grid"
	"github.com/Carmen-Shannon/oxy-cull/engine/lod"
)

// Builder runs the per-frame culling pass of one renderable and owns its batches.
// A Builder is not safe for concurrent use.
type Builder struct {
	pool    []*MultiDrawBatch
	batches []*MultiDrawBatch

	built    bool
	table    *lod.Table
	version  uint64
	rebuilds int

	first      uint32
	baseVertex int32
}

// NewBuilder creates a Builder with no batches. Batches are created on the first Cull.
//
// Parameters:
//   - options: functional options to configure the builder
//
// Returns:
//   - *Builder: the new builder
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Cull fills the batches with the merged instance ranges of every cell that intersects the
// frustum and, when the LOD table is active, falls into a band.
//
// With a single band the cell is tested against that band before the frustum. With several
// bands the union of all bands is tested first and the cell is then appended to the batch of
// every band it reaches, so overlapping bands draw the cell more than once.
// Runs of consecutive surviving cells are merged into one entry; an empty cell ends the run.
// Band uniforms are rebuilt only when the table or its version changes.
//
// Parameters:
//   - plane: the cull plane, distances are measured along its normal
//   - frustum: the view frustum
//   - g: the grid, nil disables culling
//   - table: the LOD table, nil or empty disables banding
//   - drawCount: elements per instance, 0 disables culling
//
// Returns:
//   - bool: false when culling did not run and the caller must draw everything
func (b *Builder) Cull(plane common.Plane, frustum *common.Frustum, g *grid.InstanceGrid, table *lod.Table, drawCount uint32) bool {
	if g == nil || drawCount == 0 || g.InstanceCount() == 0 {
		return false
	}

	if b.stale(table) {
		b.rebuild(table)
	}

	for _, batch := range b.batches {
		batch.EnsureCapacity(g.CellCount)
		batch.Reset()
	}

	multi := table.Len() > 1
	ranged := table.Active() && !table.Unbounded()
	var lo, hi float32
	if ranged {
		lo, hi = table.Bounds()
	}

	params := DrawParams{First: b.first, Count: drawCount, BaseVertex: b.baseVertex}
	if table.Len() == 1 {
		params.Count = common.Coalesce(table.Level(0).DrawCount, drawCount)
	}

	for i := 0; i < g.CellCount; i++ {
		// an empty cell ends every open run whatever its sphere
		begin, end := g.Range(i)
		if begin == end {
			for _, batch := range b.batches {
				batch.Break()
			}
			continue
		}
		s := g.Sphere(i)

		var d float32
		if ranged {
			d = common.PlaneDistanceToPoint(plane, s.Center)
			if d+s.Radius < lo || d-s.Radius > hi {
				continue
			}
		}
		if !common.FrustumIntersectsSphere(frustum, s) {
			continue
		}

		if !multi {
			b.batches[0].Append(params, begin, end-begin)
			continue
		}
		for j, level := range table.Levels() {
			if !level.Contains(d, s.Radius) {
				continue
			}
			p := params
			p.Count = common.Coalesce(level.DrawCount, drawCount)
			b.batches[j].Append(p, begin, end-begin)
		}
	}
	return true
}

func (b *Builder) stale(table *lod.Table) bool {
	if !b.built || table != b.table {
		return true
	}
	return table != nil && table.Version() != b.version
}

// rebuild resizes the batch list to the band count and rewrites the band uniforms.
func (b *Builder) rebuild(table *lod.Table) {
	n := max(table.Len(), 1)
	for len(b.pool) < n {
		b.pool = append(b.pool, &MultiDrawBatch{})
	}
	b.batches = b.pool[:n]

	for i, batch := range b.batches {
		batch.Uniforms = batch.Uniforms[:0]
		if table.Active() {
			batch.Uniforms = append(batch.Uniforms, Uniform{Name: lod.UniformName, Value: table.Level(i).Uniform()})
		}
	}

	b.built = true
	b.table = table
	b.version = 0
	if table != nil {
		b.version = table.Version()
	}
	b.rebuilds++
	common.Logger().Debug("[Batch] rebuilt band uniforms", "bands", table.Len(), "version", b.version)
}

// Batches returns the batches filled by the last Cull, one per band or a single one without LOD.
// The slice and the batches stay owned by the builder and are overwritten by the next Cull.
//
// Returns:
//   - []*MultiDrawBatch: the current batches, empty before the first Cull
func (b *Builder) Batches() []*MultiDrawBatch {
	return b.batches
}

// UniformRebuilds returns how many times band uniforms were rebuilt.
//
// Returns:
//   - int: the rebuild count
func (b *Builder) UniformRebuilds() int {
	return b.rebuilds
}

// Totals sums the valid entries and instances over all batches.
// Instances drawn by several overlapping bands are counted once per band.
//
// Returns:
//   - entries: the number of draw commands
//   - instances: the number of drawn instances
func (b *Builder) Totals() (entries int, instances uint64) {
	for _, batch := range b.batches {
		entries += batch.Count
		instances += batch.Instances()
	}
	return entries, instances
}
