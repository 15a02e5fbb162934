package batch

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-cull/common"
)

// GPUDrawIndexedIndirectArgs is the GPU layout of one DrawIndexedIndirect command.
// Size: 20 bytes (5 × u32, tightly packed).
type GPUDrawIndexedIndirectArgs struct {
	IndexCount    uint32 // offset  0
	InstanceCount uint32 // offset  4
	FirstIndex    uint32 // offset  8
	BaseVertex    int32  // offset 12
	FirstInstance uint32 // offset 16
}

// Size returns the size of the GPUDrawIndexedIndirectArgs struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (20)
func (g *GPUDrawIndexedIndirectArgs) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDrawIndexedIndirectArgs struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload
func (g *GPUDrawIndexedIndirectArgs) Marshal() []byte {
	buf := make([]byte, 20)
	g.put(buf)
	return buf
}

func (g *GPUDrawIndexedIndirectArgs) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], g.IndexCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.FirstIndex)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(g.BaseVertex))
	binary.LittleEndian.PutUint32(buf[16:20], g.FirstInstance)
}

// GPULodParams is the GPU layout of the "uLod" band uniform.
// Size: 16 bytes (vec4<f32>).
type GPULodParams struct {
	MinDistance float32 // offset  0
	MaxDistance float32 // offset  4
	Overlap     float32 // offset  8
	SizeFactor  float32 // offset 12
}

// Size returns the size of the GPULodParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPULodParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULodParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GPULodParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.MinDistance))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.MaxDistance))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Overlap))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.SizeFactor))
	return buf
}

// NewGPULodParams converts a "uLod" uniform value into its GPU layout.
//
// Parameters:
//   - v: min, max, overlap and size factor
//
// Returns:
//   - GPULodParams: the GPU struct
func NewGPULodParams(v [4]float32) GPULodParams {
	return GPULodParams{MinDistance: v[0], MaxDistance: v[1], Overlap: v[2], SizeFactor: v[3]}
}

// PackIndirect writes the valid entries as consecutive GPUDrawIndexedIndirectArgs into dst.
// dst is reused when it is large enough, so callers keep the returned slice as staging memory.
//
// Parameters:
//   - dst: the staging slice to reuse, may be nil
//
// Returns:
//   - []byte: Count × 20 bytes of indirect arguments
func (b *MultiDrawBatch) PackIndirect(dst []byte) []byte {
	var args GPUDrawIndexedIndirectArgs
	stride := args.Size()
	dst = common.Grow(dst, b.Count*stride)
	for i := 0; i < b.Count; i++ {
		args = GPUDrawIndexedIndirectArgs{
			IndexCount:    b.Counts[i],
			InstanceCount: b.InstanceCounts[i],
			FirstIndex:    b.Firsts[i],
			BaseVertex:    b.BaseVertices[i],
			FirstInstance: b.BaseInstances[i],
		}
		args.put(dst[i*stride:])
	}
	return dst
}
