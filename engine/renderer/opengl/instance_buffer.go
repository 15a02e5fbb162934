package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"
)

// InstanceBuffer holds a fixed number of vec4 texels per instance in a buffer texture
// (RGBA32F), readable in GLSL as
//
//	uniform samplerBuffer uInstances;
//	vec4 inst = texelFetch(uInstances, (gl_InstanceID + uBaseInstance) * texels + k);
type InstanceBuffer struct {
	buffer  uint32
	texture uint32
	texels  int
	count   int
}

// NewInstanceBuffer uploads packed instance data.
//
// Parameters:
//   - data: texels*4 floats per instance in instance-buffer order
//   - texels: vec4 texels per instance, values < 1 select 1
//
// Returns:
//   - *InstanceBuffer: the buffer texture
func NewInstanceBuffer(data []float32, texels int) *InstanceBuffer {
	b := &InstanceBuffer{texels: max(texels, 1)}
	gl.GenBuffers(1, &b.buffer)
	gl.GenTextures(1, &b.texture)
	b.Update(data)
	return b
}

// Update replaces the instance data.
//
// Parameters:
//   - data: texels*4 floats per instance
func (b *InstanceBuffer) Update(data []float32) {
	b.count = len(data) / (4 * b.texels)
	gl.BindBuffer(gl.TEXTURE_BUFFER, b.buffer)
	if len(data) > 0 {
		gl.BufferData(gl.TEXTURE_BUFFER, len(data)*4, gl.Ptr(data), gl.DYNAMIC_DRAW)
	}
	gl.BindTexture(gl.TEXTURE_BUFFER, b.texture)
	gl.TexBuffer(gl.TEXTURE_BUFFER, gl.RGBA32F, b.buffer)
	gl.BindTexture(gl.TEXTURE_BUFFER, 0)
	gl.BindBuffer(gl.TEXTURE_BUFFER, 0)
}

// Count returns the number of instances held.
//
// Returns:
//   - int: the instance count
func (b *InstanceBuffer) Count() int {
	return b.count
}

// Bind binds the buffer texture to texture unit unit.
//
// Parameters:
//   - unit: the texture unit index
func (b *InstanceBuffer) Bind(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_BUFFER, b.texture)
}

// Release deletes the buffer and its texture.
func (b *InstanceBuffer) Release() {
	if b.texture != 0 {
		gl.DeleteTextures(1, &b.texture)
		b.texture = 0
	}
	if b.buffer != 0 {
		gl.DeleteBuffers(1, &b.buffer)
		b.buffer = 0
	}
}
