// Package batch turns the visible cells of an instance grid into merged multi-draw arguments.
//
// A Builder keeps one MultiDrawBatch per LOD band and refills them every frame without
// allocating once the batches have grown to the grid's cell count.
package batch

// IndexSize is the size in bytes of one element of the index buffer (uint32 indices).
const IndexSize = 4

// Uniform is a named vec4 override applied while the batch is drawn.
type Uniform struct {
	Name  string
	Value [4]float32
}

// DrawParams are the per-command parameters shared by every instance range of a draw.
// Ranges are only merged when their parameters are equal.
type DrawParams struct {
	First      uint32 // first index in the index buffer
	Count      uint32 // elements drawn per instance
	BaseVertex int32
}

// Entry is one merged draw command read back from a batch.
type Entry struct {
	First         uint32
	Count         uint32
	Offset        uint32 // byte offset of First in the index buffer
	InstanceCount uint32
	BaseVertex    int32
	BaseInstance  uint32
}

// MultiDrawBatch holds the arguments of one multi-draw as parallel slices.
// Entries [0, Count) are valid, disjoint and increasing in BaseInstance.
// The slices all have length Capacity() and are grown to an exact requested size, never shrunk.
type MultiDrawBatch struct {
	Firsts         []uint32
	Counts         []uint32
	Offsets        []uint32
	InstanceCounts []uint32
	BaseVertices   []int32
	BaseInstances  []uint32

	// Count is the number of valid entries, always <= Capacity().
	Count int
	// Uniforms are applied in order before the batch is submitted.
	Uniforms []Uniform

	open bool
}

// Capacity returns the number of entries the batch can hold without growing.
//
// Returns:
//   - int: the physical length of the argument slices
func (b *MultiDrawBatch) Capacity() int {
	return len(b.Firsts)
}

// EnsureCapacity grows the argument slices to exactly n entries if they are shorter.
// Valid entries are preserved and a larger capacity is never reduced.
//
// Parameters:
//   - n: the number of entries that must fit
func (b *MultiDrawBatch) EnsureCapacity(n int) {
	if n <= b.Capacity() {
		return
	}
	b.Firsts = grow(b.Firsts, n, b.Count)
	b.Counts = grow(b.Counts, n, b.Count)
	b.Offsets = grow(b.Offsets, n, b.Count)
	b.InstanceCounts = grow(b.InstanceCounts, n, b.Count)
	b.BaseVertices = grow(b.BaseVertices, n, b.Count)
	b.BaseInstances = grow(b.BaseInstances, n, b.Count)
}

func grow[T uint32 | int32](s []T, n, keep int) []T {
	grown := make([]T, n)
	copy(grown, s[:keep])
	return grown
}

// Reset drops every entry while keeping capacity and uniforms.
func (b *MultiDrawBatch) Reset() {
	b.Count = 0
	b.open = false
}

// Break closes the current run so the next Append starts a new entry even if its range
// is contiguous with the last one.
func (b *MultiDrawBatch) Break() {
	b.open = false
}

// Append adds the instance range [begin, begin+instances) drawn with p.
// If the run is open, the range directly follows the last entry and it uses the same
// parameters, the last entry is extended instead. The caller must ensure capacity for a new entry.
//
// Parameters:
//   - p: the draw parameters of the range
//   - begin: the first instance index
//   - instances: the number of instances, must be > 0
func (b *MultiDrawBatch) Append(p DrawParams, begin, instances uint32) {
	if last := b.Count - 1; b.open && last >= 0 &&
		b.BaseInstances[last]+b.InstanceCounts[last] == begin &&
		b.Counts[last] == p.Count &&
		b.Firsts[last] == p.First &&
		b.BaseVertices[last] == p.BaseVertex {
		b.InstanceCounts[last] += instances
		return
	}
	i := b.Count
	b.Firsts[i] = p.First
	b.Counts[i] = p.Count
	b.Offsets[i] = p.First * IndexSize
	b.InstanceCounts[i] = instances
	b.BaseVertices[i] = p.BaseVertex
	b.BaseInstances[i] = begin
	b.Count++
	b.open = true
}

// Entry returns valid entry i.
//
// Parameters:
//   - i: the entry index, must be < Count
//
// Returns:
//   - Entry: a copy of the entry
func (b *MultiDrawBatch) Entry(i int) Entry {
	return Entry{
		First:         b.Firsts[i],
		Count:         b.Counts[i],
		Offset:        b.Offsets[i],
		InstanceCount: b.InstanceCounts[i],
		BaseVertex:    b.BaseVertices[i],
		BaseInstance:  b.BaseInstances[i],
	}
}

// Instances returns the number of instances referenced by the valid entries.
//
// Returns:
//   - uint64: the sum of InstanceCounts[0:Count]
func (b *MultiDrawBatch) Instances() uint64 {
	var n uint64
	for _, c := range b.InstanceCounts[:b.Count] {
		n += uint64(c)
	}
	return n
}

// SetUniform replaces the override called name, or appends it if the batch has none yet.
//
// Parameters:
//   - name: the uniform name
//   - v: the vec4 value
func (b *MultiDrawBatch) SetUniform(name string, v [4]float32) {
	for i := range b.Uniforms {
		if b.Uniforms[i].Name == name {
			b.Uniforms[i].Value = v
			return
		}
	}
	b.Uniforms = append(b.Uniforms, Uniform{Name: name, Value: v})
}
