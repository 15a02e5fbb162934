package model

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Size: 24 bytes, attribute 0 is the position and attribute 1 the normal.
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 24)
	putFloats(buf, g.Position[:])
	putFloats(buf[12:], g.Normal[:])
	return buf
}

// GPUInstance is the per-instance record read by the instance shaders, as two vec4s.
// Size: 32 bytes (std430 aligned, no padding required).
type GPUInstance struct {
	Position [3]float32 // offset  0: world position (12 bytes)
	Scale    float32    // offset 12: uniform scale (4 bytes)
	Color    [4]float32 // offset 16: RGBA tint (16 bytes)
}

// GPUInstanceFloats is the number of float32 values per GPUInstance.
const GPUInstanceFloats = 8

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, 32)
	putFloats(buf, g.Position[:])
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Scale))
	putFloats(buf[16:], g.Color[:])
	return buf
}

// AppendFloats appends the instance as GPUInstanceFloats values, for texel buffers.
//
// Parameters:
//   - dst: the slice to append to
//
// Returns:
//   - []float32: the extended slice
func (g *GPUInstance) AppendFloats(dst []float32) []float32 {
	return append(dst,
		g.Position[0], g.Position[1], g.Position[2], g.Scale,
		g.Color[0], g.Color[1], g.Color[2], g.Color[3])
}

func putFloats(buf []byte, v []float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(f))
	}
}

// ComputeBoundingRadius calculates the bounding sphere radius of a mesh around its origin.
//
// Parameters:
//   - positions: the vertex positions
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(positions [][3]float32) float32 {
	var maxDistSq float32
	for _, p := range positions {
		maxDistSq = max(maxDistSq, p[0]*p[0]+p[1]*p[1]+p[2]*p[2])
	}
	return float32(math.Sqrt(float64(maxDistSq)))
}
