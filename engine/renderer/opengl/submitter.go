package opengl

import (
	"github.com/Carmen-Shannon/oxy-cull/engine/batch"
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
	"github.com/go-gl/gl/v4.1-core/gl"
)

type submitter struct {
	mesh     *Mesh
	mode     uint32
	programs map[renderable.Variant]uint32
	cache    *uniformCache
	globals  []batch.Uniform

	instances       *InstanceBuffer
	instanceUnit    uint32
	instanceSampler string

	ownsMesh bool
	released bool
}

var _ renderable.Submitter = &submitter{}

// NewSubmitter creates an OpenGL Submitter drawing mesh with one program per render variant.
//
// Parameters:
//   - mesh: the uploaded geometry
//   - options: functional options to configure the submitter
//
// Returns:
//   - renderable.Submitter: the submitter
func NewSubmitter(mesh *Mesh, options ...SubmitterBuilderOption) renderable.Submitter {
	s := &submitter{
		mesh:            mesh,
		mode:            gl.TRIANGLES,
		programs:        make(map[renderable.Variant]uint32),
		cache:           newUniformCache(),
		instanceSampler: "uInstances",
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *submitter) Draw(cmd renderable.DrawCommand) {
	prog, ok := s.begin(cmd.Variant)
	if !ok {
		return
	}
	gl.Uniform1i(s.cache.location(prog, BaseInstanceUniform), 0)
	s.draw(cmd.First*batch.IndexSize, cmd.First, cmd.Count, cmd.InstanceCount, cmd.BaseVertex)
	gl.BindVertexArray(0)
}

func (s *submitter) MultiDraw(cmd renderable.DrawCommand, b *batch.MultiDrawBatch) {
	prog, ok := s.begin(cmd.Variant)
	if !ok {
		return
	}
	for _, u := range b.Uniforms {
		gl.Uniform4f(s.cache.location(prog, u.Name), u.Value[0], u.Value[1], u.Value[2], u.Value[3])
	}
	baseLoc := s.cache.location(prog, BaseInstanceUniform)
	for i := 0; i < b.Count; i++ {
		gl.Uniform1i(baseLoc, int32(b.BaseInstances[i]))
		s.draw(b.Offsets[i], b.Firsts[i], b.Counts[i], b.InstanceCounts[i], b.BaseVertices[i])
	}
	gl.BindVertexArray(0)
}

func (s *submitter) SetUniform(name string, v [4]float32) {
	for i := range s.globals {
		if s.globals[i].Name == name {
			s.globals[i].Value = v
			return
		}
	}
	s.globals = append(s.globals, batch.Uniform{Name: name, Value: v})
}

// Upload is a no-op: GL draws read batch arguments straight from client memory.
func (s *submitter) Upload([]*batch.MultiDrawBatch) error {
	return nil
}

func (s *submitter) Release() {
	if s.released {
		return
	}
	s.released = true
	for _, prog := range s.programs {
		s.cache.forget(prog)
	}
	if s.ownsMesh && s.mesh != nil {
		s.mesh.Release()
	}
}

// begin makes the variant's program current with the mesh, the instance buffer and the
// global uniforms bound.
func (s *submitter) begin(variant renderable.Variant) (uint32, bool) {
	if s.released || s.mesh == nil {
		return 0, false
	}
	prog, ok := s.programs[variant]
	if !ok {
		return 0, false
	}
	gl.UseProgram(prog)
	gl.BindVertexArray(s.mesh.VAO)
	if s.instances != nil {
		s.instances.Bind(s.instanceUnit)
		gl.Uniform1i(s.cache.location(prog, s.instanceSampler), int32(s.instanceUnit))
	}
	for _, u := range s.globals {
		gl.Uniform4f(s.cache.location(prog, u.Name), u.Value[0], u.Value[1], u.Value[2], u.Value[3])
	}
	return prog, true
}

func (s *submitter) draw(offset, first, count, instances uint32, baseVertex int32) {
	if s.mesh.Indexed() {
		gl.DrawElementsInstancedBaseVertex(s.mode, int32(count), gl.UNSIGNED_INT,
			gl.PtrOffset(int(offset)), int32(instances), baseVertex)
		return
	}
	gl.DrawArraysInstanced(s.mode, int32(first)+baseVertex, int32(count), int32(instances))
}
