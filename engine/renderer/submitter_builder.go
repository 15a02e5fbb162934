package renderer

import (
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
	"github.com/cogentcore/webgpu/wgpu"
)

// SubmitterBuilderOption is a functional option for configuring a Submitter via NewSubmitter.
type SubmitterBuilderOption func(*submitter)

// WithSubmitterLabel is an option builder that sets the debug label prefix of created buffers.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the label option to a submitter
func WithSubmitterLabel(label string) SubmitterBuilderOption {
	return func(s *submitter) {
		if label != "" {
			s.label = label
		}
	}
}

// WithVariantPipeline is an option builder that draws variant with the pipeline cached under key.
// Variants without a pipeline are skipped.
//
// Parameters:
//   - variant: the render variant
//   - key: the pipeline key registered on the renderer
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the pipeline option to a submitter
func WithVariantPipeline(variant renderable.Variant, key string) SubmitterBuilderOption {
	return func(s *submitter) {
		s.pipelines[variant] = key
	}
}

// WithBindGroups is an option builder that sets the bind groups bound before the uniform group.
// The first DrawCommand.SharedResourceCount of them are assumed already bound by the caller.
//
// Parameters:
//   - groups: bind groups for indices 0..len-1
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the bind groups option to a submitter
func WithBindGroups(groups ...*wgpu.BindGroup) SubmitterBuilderOption {
	return func(s *submitter) {
		s.groups = groups
	}
}

// WithIndirect is an option builder that draws batch entries with DrawIndexedIndirect from an
// argument buffer written on Upload. Non-zero base instances need the device's
// indirect-first-instance feature.
//
// Parameters:
//   - enabled: true to draw indirectly
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the indirect option to a submitter
func WithIndirect(enabled bool) SubmitterBuilderOption {
	return func(s *submitter) {
		s.indirect = enabled
	}
}

// WithUniformLayout is an option builder that replaces DefaultUniformLayout.
// Entries whose vec4 would not fit inside a slot are dropped.
//
// Parameters:
//   - layout: uniform names mapped to byte offsets inside a slot
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the layout option to a submitter
func WithUniformLayout(layout map[string]uint32) SubmitterBuilderOption {
	return func(s *submitter) {
		clean := make(map[string]uint32, len(layout))
		for name, off := range layout {
			if off+16 <= UniformSlotSize {
				clean[name] = off
			}
		}
		s.staging = newUniformStaging(clean)
	}
}
