// Package lod describes distance bands used to pick a level of detail per grid cell.
package lod

// UniformName is the uniform override every band contributes to its batch.
// Its value is (MinDistance, MaxDistance, Overlap, SizeFactor).
const UniformName = "uLod"

// Level is one distance band. Bands of a Table may overlap so that a transition
// zone is drawn by both neighbouring levels.
type Level struct {
	MinDistance float32
	MaxDistance float32
	Overlap     float32
	DrawCount   uint32 // element count per instance for this band, 0 keeps the renderable's count
	SizeFactor  float32
}

// Contains reports whether a sphere at distance d with radius r reaches into the band.
// Both edges are inclusive.
//
// Parameters:
//   - d: signed distance of the sphere center along the view axis
//   - r: sphere radius
//
// Returns:
//   - bool: true if any part of the sphere lies within [MinDistance, MaxDistance]
func (l Level) Contains(d, r float32) bool {
	return d+r >= l.MinDistance && d-r <= l.MaxDistance
}

// Uniform packs the band parameters in the layout of the "uLod" override.
//
// Returns:
//   - [4]float32: min, max, overlap and size factor
func (l Level) Uniform() [4]float32 {
	return [4]float32{l.MinDistance, l.MaxDistance, l.Overlap, l.SizeFactor}
}

// Table is an ordered list of bands tagged with a version counter.
// Every mutation bumps the version so consumers can detect changes without comparing bands.
// A Table is not safe for concurrent mutation.
type Table struct {
	levels  []Level
	version uint64
}

// NewTable creates a table holding a copy of levels. A fresh table starts at version 1.
//
// Parameters:
//   - levels: the bands in evaluation order
//
// Returns:
//   - *Table: the new table
func NewTable(levels ...Level) *Table {
	t := &Table{}
	t.SetLevels(levels)
	return t
}

// Version returns the mutation counter of the table.
//
// Returns:
//   - uint64: the current version, never 0 for a table built with NewTable
func (t *Table) Version() uint64 {
	return t.version
}

// Len returns the number of bands.
//
// Returns:
//   - int: the band count, 0 for a nil table
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.levels)
}

// Level returns band i.
//
// Parameters:
//   - i: the band index
//
// Returns:
//   - Level: a copy of the band
func (t *Table) Level(i int) Level {
	return t.levels[i]
}

// Levels returns the bands. The slice is owned by the table and must not be modified.
//
// Returns:
//   - []Level: the bands in evaluation order
func (t *Table) Levels() []Level {
	return t.levels
}

// SetLevels replaces every band and bumps the version.
//
// Parameters:
//   - levels: the new bands, copied into the table
func (t *Table) SetLevels(levels []Level) {
	t.levels = append(t.levels[:0], levels...)
	t.version++
}

// SetLevel replaces band i and bumps the version.
//
// Parameters:
//   - i: the band index
//   - l: the new band
func (t *Table) SetLevel(i int, l Level) {
	t.levels[i] = l
	t.version++
}

// Active reports whether the table restricts culling at all.
// A nil or empty table disables LOD.
//
// Returns:
//   - bool: true if at least one band is present
func (t *Table) Active() bool {
	return t.Len() > 0
}

// Unbounded reports whether the table is a single band with both distances zero,
// which keeps LOD active for uniforms and draw counts but skips the distance test.
//
// Returns:
//   - bool: true for the single unrestricted band
func (t *Table) Unbounded() bool {
	return t.Len() == 1 && t.levels[0].MinDistance == 0 && t.levels[0].MaxDistance == 0
}

// Bounds returns the union of all bands.
//
// Returns:
//   - lo: the smallest MinDistance
//   - hi: the largest MaxDistance
func (t *Table) Bounds() (lo, hi float32) {
	if t.Len() == 0 {
		return 0, 0
	}
	lo, hi = t.levels[0].MinDistance, t.levels[0].MaxDistance
	for _, l := range t.levels[1:] {
		lo = min(lo, l.MinDistance)
		hi = max(hi, l.MaxDistance)
	}
	return lo, hi
}
