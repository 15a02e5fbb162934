package renderer

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestPipelineDescriptorDefaults(t *testing.T) {
	d := PipelineDescriptor{Key: "instances", Source: "@vertex fn vs_main() {}"}
	if err := d.normalize(); err != nil {
		t.Fatalf("normalize: unexpected error %v", err)
	}
	if d.VertexEntry != "vs_main" || d.FragmentEntry != "fs_main" {
		t.Errorf("entry points: expected vs_main/fs_main, got %s/%s", d.VertexEntry, d.FragmentEntry)
	}
	if d.Topology != wgpu.PrimitiveTopologyTriangleList {
		t.Errorf("topology: expected triangle list, got %v", d.Topology)
	}
}

func TestPipelineDescriptorRejects(t *testing.T) {
	cases := []struct {
		name string
		d    PipelineDescriptor
	}{
		{"no key", PipelineDescriptor{Source: "x"}},
		{"no source", PipelineDescriptor{Key: "k"}},
		{"nil layout", PipelineDescriptor{Key: "k", Source: "x", BindGroupLayouts: []*wgpu.BindGroupLayout{nil}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.d.normalize(); !errors.Is(err, ErrInvalidPipeline) {
				t.Errorf("expected ErrInvalidPipeline, got %v", err)
			}
		})
	}

	cd := ComputePipelineDescriptor{Key: "k"}
	if err := cd.normalize(); !errors.Is(err, ErrInvalidPipeline) {
		t.Errorf("compute: expected ErrInvalidPipeline, got %v", err)
	}
}
