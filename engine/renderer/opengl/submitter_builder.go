package opengl

import (
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
)

// SubmitterBuilderOption is a functional option for configuring a Submitter via NewSubmitter.
type SubmitterBuilderOption func(*submitter)

// WithVariantProgram is an option builder that draws variant with program.
// Variants without a program are skipped.
//
// Parameters:
//   - variant: the render variant
//   - program: a linked GL program
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the program option to a submitter
func WithVariantProgram(variant renderable.Variant, program uint32) SubmitterBuilderOption {
	return func(s *submitter) {
		s.programs[variant] = program
	}
}

// WithInstanceBuffer is an option builder that binds b on unit before every draw and points
// the sampler uniform at it.
//
// Parameters:
//   - b: the instance buffer
//   - unit: the texture unit
//   - sampler: the samplerBuffer uniform name, empty keeps "uInstances"
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the instance buffer option to a submitter
func WithInstanceBuffer(b *InstanceBuffer, unit uint32, sampler string) SubmitterBuilderOption {
	return func(s *submitter) {
		s.instances = b
		s.instanceUnit = unit
		if sampler != "" {
			s.instanceSampler = sampler
		}
	}
}

// WithPrimitiveMode is an option builder that sets the GL primitive mode, gl.TRIANGLES by default.
//
// Parameters:
//   - mode: the primitive mode
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the mode option to a submitter
func WithPrimitiveMode(mode uint32) SubmitterBuilderOption {
	return func(s *submitter) {
		s.mode = mode
	}
}

// WithOwnedMesh is an option builder that makes Release delete the mesh.
//
// Returns:
//   - SubmitterBuilderOption: a function that applies the ownership option to a submitter
func WithOwnedMesh() SubmitterBuilderOption {
	return func(s *submitter) {
		s.ownsMesh = true
	}
}
