package scene

import "github.com/Carmen-Shannon/oxy-cull/engine/renderable"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithRenderables adds initial renderables to the scene.
//
// Parameters:
//   - items: the renderables to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRenderables(items ...renderable.Renderable) SceneBuilderOption {
	return func(s *scene) {
		for _, r := range items {
			s.add(r)
		}
	}
}

// WithCullWorkers sets the number of worker goroutines used to cull renderables in parallel.
// Defaults to runtime.NumCPU()-1. With a single worker culling runs on the calling goroutine.
//
// Parameters:
//   - n: the number of cull workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.cullWorkers = n
	}
}

// WithCullingDisabled disables culling for the scene. Every graphics renderable then draws
// all of its instances. By default culling is enabled (disabled = false).
//
// Parameters:
//   - disabled: true to disable culling, false to enable it (default)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}
