package renderer

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/batch"
	"github.com/Carmen-Shannon/oxy-cull/engine/lod"
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
)

// UniformSlotSize is the stride of one per-draw uniform slot. It matches the minimum
// uniform buffer offset alignment WebGPU guarantees.
const UniformSlotSize = 256

// DefaultUniformLayout places the opacity and LOD band uniforms in a slot.
//
//	struct DrawUniforms {
//	    alpha: vec4<f32>, // offset 0, x used
//	    lod:   vec4<f32>, // offset 16
//	}
var DefaultUniformLayout = map[string]uint32{
	renderable.AlphaUniform: 0,
	lod.UniformName:         16,
}

// uniformStaging is the CPU copy of a submitter's uniform buffer. Slot 0 serves full draws,
// slot 1+i serves batch i. Values set with set apply to every slot unless the batch carries
// its own override of the same name.
type uniformStaging struct {
	layout  map[string]uint32
	globals []batch.Uniform
	batches []*batch.MultiDrawBatch
	data    []byte
	dirty   bool

	// overrides recorded by the last assign, batch i owns stamps[stampEnds[i-1]:stampEnds[i]]
	stamps    []batch.Uniform
	stampEnds []int
	assigned  bool
}

func newUniformStaging(layout map[string]uint32) *uniformStaging {
	s := &uniformStaging{layout: layout}
	s.data = common.Grow(s.data, UniformSlotSize)
	return s
}

// set stores a value shared by all slots. Names missing from the layout are ignored.
func (s *uniformStaging) set(name string, v [4]float32) bool {
	off, ok := s.layout[name]
	if !ok {
		return false
	}
	found := false
	for i := range s.globals {
		if s.globals[i].Name == name {
			s.globals[i].Value = v
			found = true
			break
		}
	}
	if !found {
		s.globals = append(s.globals, batch.Uniform{Name: name, Value: v})
	}

	s.put(0, off, v)
	for i, b := range s.batches {
		if !overrides(b, name) {
			s.put(1+i, off, v)
		}
	}
	s.dirty = true
	return true
}

// assign lays out one slot per batch, in order. Staging stays clean when the batch list and
// every batch's overrides match the previous assign.
func (s *uniformStaging) assign(batches []*batch.MultiDrawBatch) {
	if s.unchanged(batches) {
		return
	}
	s.batches = append(s.batches[:0], batches...)
	s.data = common.Grow(s.data, (1+len(batches))*UniformSlotSize)
	s.stamps = s.stamps[:0]
	s.stampEnds = s.stampEnds[:0]
	for i, b := range batches {
		slot := 1 + i
		clear(s.data[slot*UniformSlotSize : (slot+1)*UniformSlotSize])
		for _, g := range s.globals {
			s.put(slot, s.layout[g.Name], g.Value)
		}
		for _, u := range b.Uniforms {
			if off, ok := s.layout[u.Name]; ok {
				s.put(slot, off, u.Value)
			}
		}
		s.stamps = append(s.stamps, b.Uniforms...)
		s.stampEnds = append(s.stampEnds, len(s.stamps))
	}
	s.dirty = true
}

// unchanged reports whether batches are the assigned batches holding the recorded overrides.
func (s *uniformStaging) unchanged(batches []*batch.MultiDrawBatch) bool {
	if !s.assigned || len(batches) != len(s.batches) {
		s.assigned = true
		return false
	}
	start := 0
	for i, b := range batches {
		if b != s.batches[i] {
			return false
		}
		end := s.stampEnds[i]
		if !slices.Equal(b.Uniforms, s.stamps[start:end]) {
			return false
		}
		start = end
	}
	return true
}

// slot returns the slot serving b, or 0 when b was not assigned.
func (s *uniformStaging) slot(b *batch.MultiDrawBatch) int {
	for i, assigned := range s.batches {
		if assigned == b {
			return 1 + i
		}
	}
	return 0
}

func (s *uniformStaging) slots() int {
	return len(s.data) / UniformSlotSize
}

func (s *uniformStaging) offset(slot int) uint32 {
	return uint32(slot * UniformSlotSize)
}

func (s *uniformStaging) value(slot int, name string) ([4]float32, bool) {
	off, ok := s.layout[name]
	if !ok || slot >= s.slots() {
		return [4]float32{}, false
	}
	var v [4]float32
	base := slot*UniformSlotSize + int(off)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(s.data[base+i*4:]))
	}
	return v, true
}

func (s *uniformStaging) put(slot int, off uint32, v [4]float32) {
	base := slot*UniformSlotSize + int(off)
	for i, f := range v {
		binary.LittleEndian.PutUint32(s.data[base+i*4:], math.Float32bits(f))
	}
}

func overrides(b *batch.MultiDrawBatch, name string) bool {
	for _, u := range b.Uniforms {
		if u.Name == name {
			return true
		}
	}
	return false
}
