// Package renderer is the WebGPU side of the engine. It owns the device, the surface and the
// per-frame render pass, caches pipelines by key, and provides Submitter implementations that
// draw culled multi-draw batches.
package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Surface is anything that can describe a presentable WebGPU surface, typically a window.
type Surface interface {
	// SurfaceDescriptor returns the platform surface descriptor.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the surface is not available
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// FramebufferSize returns the surface size in pixels.
	//
	// Returns:
	//   - width, height: the size in pixels
	FramebufferSize() (width, height int)
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelines        map[string]*wgpu.RenderPipeline
	computePipelines map[string]*wgpu.ComputePipeline
	uniformLayout    *wgpu.BindGroupLayout

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           *[4]float64
}

// Renderer manages the GPU device, the surface frame cycle and a cache of pipelines.
//
// A frame is BeginFrame, any number of Submitter draws against Pass, EndFrame, then Present.
type Renderer interface {
	// Device returns the GPU device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the device queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// Resize reconfigures the surface for a new framebuffer size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the render targets could not be recreated
	Resize(width, height int) error

	// SetPresentMode changes the present mode, applied on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// UniformLayout returns the bind group layout of the per-draw uniform slots used by
	// Submitter. Render pipelines drawn through a Submitter must include it at the submitter's
	// uniform group index.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the shared layout
	//   - error: an error if the layout could not be created
	UniformLayout() (*wgpu.BindGroupLayout, error)

	// RegisterPipeline creates a render pipeline and caches it under desc.Key.
	// Registering an existing key is a no-op.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidPipeline, or a creation error
	RegisterPipeline(desc PipelineDescriptor) error

	// RegisterComputePipeline creates a compute pipeline and caches it under desc.Key.
	// Registering an existing key is a no-op.
	//
	// Parameters:
	//   - desc: the compute pipeline descriptor
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidPipeline, or a creation error
	RegisterComputePipeline(desc ComputePipelineDescriptor) error

	// Pipeline returns the cached render pipeline for key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the pipeline, or nil if not registered
	Pipeline(key string) *wgpu.RenderPipeline

	// ComputePipeline returns the cached compute pipeline for key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - *wgpu.ComputePipeline: the pipeline, or nil if not registered
	ComputePipeline(key string) *wgpu.ComputePipeline

	// CreateBuffer creates an uninitialized GPU buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes
	//   - usage: buffer usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: an error if the buffer could not be created
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// CreateMesh uploads vertex and uint32 index data.
	//
	// Parameters:
	//   - label: debug label prefix
	//   - vertexData: raw vertex bytes
	//   - indexData: raw index bytes
	//
	// Returns:
	//   - *Mesh: the uploaded mesh
	//   - error: an error if a buffer could not be created
	CreateMesh(label string, vertexData, indexData []byte) (*Mesh, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: the writes to perform in order
	WriteBuffers(writes []BufferWrite)

	// BeginComputeFrame starts batching compute dispatches into one submission.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame submits the batched compute dispatches.
	EndComputeFrame()

	// DispatchCompute encodes a dispatch of the cached compute pipeline key.
	//
	// Parameters:
	//   - key: the compute pipeline key
	//   - groups: bind groups set at indices 0..len-1
	//   - workGroupCount: workgroups in x, y and z
	//
	// Returns:
	//   - error: an error if key is not registered
	DispatchCompute(key string, groups []*wgpu.BindGroup, workGroupCount [3]uint32) error

	// BeginFrame acquires the next surface texture and begins the main render pass.
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	BeginFrame() error

	// Pass returns the main render pass of the current frame.
	//
	// Returns:
	//   - *wgpu.RenderPassEncoder: the pass, or nil outside a frame
	Pass() *wgpu.RenderPassEncoder

	// EndFrame ends the main render pass and submits it.
	EndFrame()

	// Present presents the frame.
	Present()

	// Release frees every cached pipeline and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer presenting to surface.
//
// Parameters:
//   - backendType: the GPU backend
//   - surface: the presentation surface
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the device or surface could not be initialized
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:               &sync.Mutex{},
		pipelines:        make(map[string]*wgpu.RenderPipeline),
		computePipelines: make(map[string]*wgpu.ComputePipeline),
		backendType:      backendType,
	}

	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if c := r.clearColor; c != nil {
		r.backend.SetClearColor(wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]})
	}

	width, height := surface.FramebufferSize()
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		r.backend.Release()
		return nil, fmt.Errorf("failed to configure surface: %w", err)
	}
	common.Logger().Info("[Renderer] initialized", "backend", "wgpu", "width", width, "height", height, "msaa", msaa)
	return r, nil
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Queue() *wgpu.Queue {
	return r.backend.Queue()
}

func (r *renderer) Resize(width, height int) error {
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) UniformLayout() (*wgpu.BindGroupLayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.uniformLayout != nil {
		return r.uniformLayout, nil
	}
	layout, err := r.backend.Device().CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Draw Uniform Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   UniformSlotSize,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create uniform bind group layout: %w", err)
	}
	r.uniformLayout = layout
	return layout, nil
}

func (r *renderer) RegisterPipeline(desc PipelineDescriptor) error {
	if err := desc.normalize(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pipelines[desc.Key]; exists {
		return nil
	}
	p, err := r.backend.CreateRenderPipeline(&desc)
	if err != nil {
		return fmt.Errorf("failed to register pipeline %q: %w", desc.Key, err)
	}
	r.pipelines[desc.Key] = p
	common.Logger().Debug("[Renderer] registered pipeline", "key", desc.Key)
	return nil
}

func (r *renderer) RegisterComputePipeline(desc ComputePipelineDescriptor) error {
	if err := desc.normalize(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.computePipelines[desc.Key]; exists {
		return nil
	}
	p, err := r.backend.CreateComputePipeline(&desc)
	if err != nil {
		return fmt.Errorf("failed to register compute pipeline %q: %w", desc.Key, err)
	}
	r.computePipelines[desc.Key] = p
	common.Logger().Debug("[Renderer] registered compute pipeline", "key", desc.Key)
	return nil
}

func (r *renderer) Pipeline(key string) *wgpu.RenderPipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[key]
}

func (r *renderer) ComputePipeline(key string) *wgpu.ComputePipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.computePipelines[key]
}

func (r *renderer) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return r.backend.CreateBuffer(label, size, usage)
}

func (r *renderer) CreateMesh(label string, vertexData, indexData []byte) (*Mesh, error) {
	return r.backend.CreateMesh(label, vertexData, indexData)
}

func (r *renderer) WriteBuffers(writes []BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() {
	r.backend.EndComputeFrame()
}

func (r *renderer) DispatchCompute(key string, groups []*wgpu.BindGroup, workGroupCount [3]uint32) error {
	p := r.ComputePipeline(key)
	if p == nil {
		return fmt.Errorf("compute pipeline %q not found in cache", key)
	}
	r.backend.DispatchCompute(p, groups, workGroupCount)
	return nil
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) Pass() *wgpu.RenderPassEncoder {
	return r.backend.Pass()
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	for k, p := range r.pipelines {
		p.Release()
		delete(r.pipelines, k)
	}
	for k, p := range r.computePipelines {
		p.Release()
		delete(r.computePipelines, k)
	}
	if r.uniformLayout != nil {
		r.uniformLayout.Release()
		r.uniformLayout = nil
	}
	r.mu.Unlock()
	r.backend.Release()
}
