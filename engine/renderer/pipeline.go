package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrInvalidPipeline is wrapped by every pipeline descriptor validation error.
var ErrInvalidPipeline = errors.New("invalid pipeline descriptor")

// PipelineDescriptor describes a render pipeline compiled from one WGSL module.
type PipelineDescriptor struct {
	Key    string
	Source string // WGSL containing both entry points

	VertexEntry   string // defaults to "vs_main"
	FragmentEntry string // defaults to "fs_main"

	VertexLayouts    []wgpu.VertexBufferLayout
	BindGroupLayouts []*wgpu.BindGroupLayout

	Topology           wgpu.PrimitiveTopology // defaults to triangle list
	CullMode           wgpu.CullMode          // defaults to none
	Blend              bool
	DepthTestDisabled  bool
	DepthWriteDisabled bool
}

// ComputePipelineDescriptor describes a compute pipeline compiled from one WGSL module.
type ComputePipelineDescriptor struct {
	Key              string
	Source           string
	EntryPoint       string // defaults to "cs_main"
	BindGroupLayouts []*wgpu.BindGroupLayout
}

// normalize fills defaults and checks the descriptor.
func (d *PipelineDescriptor) normalize() error {
	if d.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidPipeline)
	}
	if d.Source == "" {
		return fmt.Errorf("%w: %q has no shader source", ErrInvalidPipeline, d.Key)
	}
	for i, l := range d.BindGroupLayouts {
		if l == nil {
			return fmt.Errorf("%w: %q bind group layout %d is nil", ErrInvalidPipeline, d.Key, i)
		}
	}
	d.VertexEntry = common.Coalesce(d.VertexEntry, "vs_main")
	d.FragmentEntry = common.Coalesce(d.FragmentEntry, "fs_main")
	d.Topology = common.Coalesce(d.Topology, wgpu.PrimitiveTopologyTriangleList)
	d.CullMode = common.Coalesce(d.CullMode, wgpu.CullModeNone)
	return nil
}

func (d *ComputePipelineDescriptor) normalize() error {
	if d.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidPipeline)
	}
	if d.Source == "" {
		return fmt.Errorf("%w: %q has no shader source", ErrInvalidPipeline, d.Key)
	}
	d.EntryPoint = common.Coalesce(d.EntryPoint, "cs_main")
	return nil
}
