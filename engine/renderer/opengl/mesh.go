package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Mesh holds the GL objects of an uploaded geometry.
// Attribute 0 is the position, attribute 1 the normal when present.
type Mesh struct {
	VAO        uint32
	VBO        uint32
	NBO        uint32
	EBO        uint32
	IndexCount int32
	VertCount  int32
}

// Indexed reports whether the mesh has an element buffer.
//
// Returns:
//   - bool: true when draws use DrawElements
func (m *Mesh) Indexed() bool {
	return m.EBO != 0
}

// NewMesh uploads positions, optional normals and optional uint32 indices into a new VAO.
//
// Parameters:
//   - positions: vertex positions
//   - normals: vertex normals, nil or the same length as positions
//   - indices: triangle indices, nil for non-indexed geometry
//
// Returns:
//   - *Mesh: the uploaded mesh
func NewMesh(positions, normals [][3]float32, indices []uint32) *Mesh {
	m := &Mesh{VertCount: int32(len(positions)), IndexCount: int32(len(indices))}

	gl.GenVertexArrays(1, &m.VAO)
	gl.BindVertexArray(m.VAO)

	gl.GenBuffers(1, &m.VBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.VBO)
	if len(positions) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(positions)*12, gl.Ptr(positions), gl.STATIC_DRAW)
	}
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 12, gl.PtrOffset(0))

	if len(normals) == len(positions) && len(normals) > 0 {
		gl.GenBuffers(1, &m.NBO)
		gl.BindBuffer(gl.ARRAY_BUFFER, m.NBO)
		gl.BufferData(gl.ARRAY_BUFFER, len(normals)*12, gl.Ptr(normals), gl.STATIC_DRAW)
		gl.EnableVertexAttribArray(1)
		gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 12, gl.PtrOffset(0))
	}

	if len(indices) > 0 {
		gl.GenBuffers(1, &m.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	return m
}

// Release deletes the mesh's GL objects.
func (m *Mesh) Release() {
	if m.VAO != 0 {
		gl.DeleteVertexArrays(1, &m.VAO)
	}
	for _, b := range []*uint32{&m.VBO, &m.NBO, &m.EBO} {
		if *b != 0 {
			gl.DeleteBuffers(1, b)
			*b = 0
		}
	}
	m.VAO = 0
}
