package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/batch"
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
	"github.com/cogentcore/webgpu/wgpu"
)

// indirectStride is the size of one DrawIndexedIndirect argument record.
const indirectStride = 20

type submitter struct {
	r     Renderer
	mesh  *Mesh
	label string

	pipelines map[renderable.Variant]string
	groups    []*wgpu.BindGroup // bound at 0..len-1, the uniform group follows

	staging     *uniformStaging
	uniformBuf  *wgpu.Buffer
	uniformBG   *wgpu.BindGroup
	uniformSize uint64
	dynamic     [1]uint32

	indirect bool
	args     []byte
	argBase  []uint64 // byte offset of each batch's records in argsBuf
	argsBuf  *wgpu.Buffer
	argsSize uint64

	released bool
}

var _ renderable.Submitter = &submitter{}

// NewSubmitter creates a WebGPU Submitter drawing mesh with the pipelines registered on r.
// Each draw binds the configured bind groups at indices 0..n-1 and a per-draw uniform slot at
// index n, so every pipeline must be created with r.UniformLayout at that index.
//
// Parameters:
//   - r: the renderer owning the device and the frame pass
//   - mesh: the geometry to draw, with an index buffer
//   - options: functional options to configure the submitter
//
// Returns:
//   - renderable.Submitter: the submitter
//   - error: an error if the uniform buffer could not be created
func NewSubmitter(r Renderer, mesh *Mesh, options ...SubmitterBuilderOption) (renderable.Submitter, error) {
	if r == nil || mesh == nil || mesh.VertexBuffer == nil || mesh.IndexBuffer == nil {
		return nil, fmt.Errorf("failed to create submitter: renderer and indexed mesh are required")
	}
	s := &submitter{
		r:         r,
		mesh:      mesh,
		label:     "submitter",
		pipelines: make(map[renderable.Variant]string),
		staging:   newUniformStaging(DefaultUniformLayout),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.ensureUniforms(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *submitter) Draw(cmd renderable.DrawCommand) {
	pass := s.begin(cmd)
	if pass == nil {
		return
	}
	s.dynamic[0] = s.staging.offset(0)
	pass.SetBindGroup(uint32(len(s.groups)), s.uniformBG, s.dynamic[:])
	pass.DrawIndexed(cmd.Count, cmd.InstanceCount, cmd.First, cmd.BaseVertex, 0)
}

func (s *submitter) MultiDraw(cmd renderable.DrawCommand, b *batch.MultiDrawBatch) {
	pass := s.begin(cmd)
	if pass == nil {
		return
	}
	slot := s.staging.slot(b)
	s.dynamic[0] = s.staging.offset(slot)
	pass.SetBindGroup(uint32(len(s.groups)), s.uniformBG, s.dynamic[:])

	if s.indirect && slot > 0 && s.argsBuf != nil {
		base := s.argBase[slot-1]
		for i := 0; i < b.Count; i++ {
			pass.DrawIndexedIndirect(s.argsBuf, base+uint64(i*indirectStride))
		}
		return
	}
	for i := 0; i < b.Count; i++ {
		pass.DrawIndexed(b.Counts[i], b.InstanceCounts[i], b.Firsts[i], b.BaseVertices[i], b.BaseInstances[i])
	}
}

func (s *submitter) SetUniform(name string, v [4]float32) {
	if !s.staging.set(name, v) {
		common.Logger().Debug("[Submitter] uniform not in layout", "label", s.label, "name", name)
	}
}

func (s *submitter) Upload(batches []*batch.MultiDrawBatch) error {
	s.staging.assign(batches)
	if s.staging.dirty {
		if err := s.ensureUniforms(); err != nil {
			return err
		}
	}
	if !s.indirect {
		return nil
	}

	s.argBase = common.Grow(s.argBase, len(batches))
	total := 0
	for i, b := range batches {
		s.argBase[i] = uint64(total)
		total += b.Count * indirectStride
	}
	s.args = common.Grow(s.args, total)
	for i, b := range batches {
		start := int(s.argBase[i])
		b.PackIndirect(s.args[start:start:len(s.args)])
	}
	if total == 0 {
		return nil
	}
	if uint64(total) > s.argsSize {
		if s.argsBuf != nil {
			s.argsBuf.Release()
		}
		buf, err := s.r.CreateBuffer(s.label+" Indirect Buffer", uint64(total),
			wgpu.BufferUsageIndirect|wgpu.BufferUsageCopyDst)
		if err != nil {
			s.argsBuf, s.argsSize = nil, 0
			return fmt.Errorf("failed to create indirect buffer: %w", err)
		}
		s.argsBuf, s.argsSize = buf, uint64(total)
	}
	s.r.WriteBuffers([]BufferWrite{{Buffer: s.argsBuf, Data: s.args}})
	return nil
}

func (s *submitter) Release() {
	if s.released {
		return
	}
	s.released = true
	if s.uniformBG != nil {
		s.uniformBG.Release()
		s.uniformBG = nil
	}
	if s.uniformBuf != nil {
		s.uniformBuf.Release()
		s.uniformBuf = nil
	}
	if s.argsBuf != nil {
		s.argsBuf.Release()
		s.argsBuf = nil
	}
}

// begin binds the pipeline, the shared groups past sharedResourceCount and the mesh, and
// flushes staged uniforms. It returns nil when nothing can be drawn.
func (s *submitter) begin(cmd renderable.DrawCommand) *wgpu.RenderPassEncoder {
	if s.released {
		return nil
	}
	key, ok := s.pipelines[cmd.Variant]
	if !ok {
		return nil
	}
	p := s.r.Pipeline(key)
	pass := s.r.Pass()
	if p == nil || pass == nil {
		return nil
	}
	if s.staging.dirty {
		if err := s.ensureUniforms(); err != nil {
			common.Logger().Error("[Submitter] failed to grow uniform buffer", "label", s.label, "error", err)
			return nil
		}
	}

	pass.SetPipeline(p)
	for i := cmd.SharedResourceCount; i < len(s.groups); i++ {
		pass.SetBindGroup(uint32(i), s.groups[i], nil)
	}
	pass.SetVertexBuffer(0, s.mesh.VertexBuffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(s.mesh.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	return pass
}

// ensureUniforms grows the uniform buffer to the staged slot count and writes the staging data.
func (s *submitter) ensureUniforms() error {
	need := uint64(s.staging.slots() * UniformSlotSize)
	if s.uniformBuf == nil || need > s.uniformSize {
		layout, err := s.r.UniformLayout()
		if err != nil {
			return err
		}
		buf, err := s.r.CreateBuffer(s.label+" Uniform Buffer", need, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("failed to create uniform buffer: %w", err)
		}
		bg, err := s.r.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  s.label + " Uniform Bind Group",
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: buf, Offset: 0, Size: UniformSlotSize},
			},
		})
		if err != nil {
			buf.Release()
			return fmt.Errorf("failed to create uniform bind group: %w", err)
		}
		if s.uniformBG != nil {
			s.uniformBG.Release()
		}
		if s.uniformBuf != nil {
			s.uniformBuf.Release()
		}
		s.uniformBuf, s.uniformBG, s.uniformSize = buf, bg, need
		common.Logger().Debug("[Submitter] grew uniform buffer", "label", s.label, "slots", s.staging.slots())
	}
	s.r.WriteBuffers([]BufferWrite{{Buffer: s.uniformBuf, Data: s.staging.data}})
	s.staging.dirty = false
	return nil
}
