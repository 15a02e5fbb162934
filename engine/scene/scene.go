// Package scene orchestrates a frame over many renderables: culling against one camera,
// uploading pending buffers and submitting draws.
package scene

import (
	"errors"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/camera"
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
)

// Stats aggregates what the last Cull left for Render to submit.
type Stats struct {
	Renderables int    // registered renderables of any kind
	Culled      int    // graphics renderables drawing batches
	Entries     int    // draw commands
	Instances   uint64 // drawn instances, counted once per band
	Total       uint64 // instances a full draw of every graphics renderable would submit
}

// Scene owns a camera and a list of renderables and drives them through one frame.
// Renderables are rendered in the order they were added.
// Registry methods are safe for concurrent use; the frame methods must be called from the
// thread that owns the GPU context, in the order Cull, Update, Render.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Add registers a renderable. Adding the same renderable twice has no effect.
	//
	// Parameters:
	//   - r: the renderable to add
	Add(r renderable.Renderable)

	// Get retrieves a renderable by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the renderable's ID
	//
	// Returns:
	//   - renderable.Renderable: the renderable or nil
	Get(id uint64) renderable.Renderable

	// Remove unregisters a renderable without disposing it.
	//
	// Parameters:
	//   - id: the renderable's ID
	//
	// Returns:
	//   - renderable.Renderable: the removed renderable or nil
	Remove(id uint64) renderable.Renderable

	// Count returns the number of registered renderables.
	Count() int

	// CullingDisabled returns whether culling is turned off, in which case every graphics
	// renderable draws all of its instances.
	CullingDisabled() bool

	// SetCullingDisabled enables or disables culling for the scene.
	//
	// Parameters:
	//   - disabled: true to disable culling
	SetCullingDisabled(disabled bool)

	// Cull updates the camera, derives its cull plane and frustum once and culls every
	// graphics renderable. With more than one graphics renderable the work runs on the
	// scene's worker pool, one task per renderable, and Cull returns once all are done.
	Cull()

	// Advance steps running opacity fades.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)

	// Update pushes pending buffer rebuilds of every renderable.
	//
	// Returns:
	//   - error: the joined upload errors, nil if all succeeded
	Update() error

	// Render submits every graphics renderable for one pass. Compute renderables are skipped.
	//
	// Parameters:
	//   - variant: the pass being rendered
	//   - sharedResourceCount: resource slots already bound by the caller
	Render(variant renderable.Variant, sharedResourceCount int)

	// Dispatch runs every compute renderable. The caller must have opened a compute frame.
	//
	// Parameters:
	//   - variant: the pass the dispatches belong to
	Dispatch(variant renderable.Variant)

	// Stats aggregates the draw statistics of the registered renderables.
	//
	// Returns:
	//   - Stats: the aggregated statistics
	Stats() Stats

	// Dispose disposes every renderable and empties the scene.
	Dispose()
}

type scene struct {
	mu *sync.RWMutex

	name            string
	cam             camera.Camera
	items           []renderable.Renderable
	graphics        []renderable.Graphics
	cullingDisabled bool

	// cullPool runs the per-renderable culling tasks. Workers persist across frames.
	cullPool    worker.DynamicWorkerPool
	cullWorkers int
}

var _ Scene = &scene{}

// NewScene creates a new Scene viewed through cam.
// Panics if cam is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}

	s := &scene{
		mu:          &sync.RWMutex{},
		name:        name,
		cam:         cam,
		cullWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}

	// Initialize the pool after options so WithCullWorkers can override the default.
	s.cullPool = worker.NewDynamicWorkerPool(s.cullWorkers, 256, 1*time.Second)

	common.Logger().Info("[Scene] created scene", "name", s.name, "renderables", len(s.items), "workers", s.cullWorkers)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Add(r renderable.Renderable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(r)
}

// add registers r. Caller must hold the write lock.
func (s *scene) add(r renderable.Renderable) {
	if slices.Contains(s.items, r) {
		return
	}
	s.items = append(s.items, r)
	if g, ok := r.(renderable.Graphics); ok {
		s.graphics = append(s.graphics, g)
	}
}

func (s *scene) Get(id uint64) renderable.Renderable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.items {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

func (s *scene) Remove(id uint64) renderable.Renderable {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.items, func(r renderable.Renderable) bool { return r.ID() == id })
	if i < 0 {
		return nil
	}
	r := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	if g, ok := r.(renderable.Graphics); ok {
		s.graphics = slices.DeleteFunc(s.graphics, func(x renderable.Graphics) bool { return x == g })
	}
	return r
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *scene) CullingDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cullingDisabled
}

func (s *scene) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *scene) Cull() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cullingDisabled {
		for _, g := range s.graphics {
			g.Uncull()
		}
		return
	}

	s.cam.Update()
	plane := s.cam.CullPlane()
	frustum := s.cam.Frustum()

	if len(s.graphics) < 2 || s.cullWorkers < 2 {
		for _, g := range s.graphics {
			g.Cull(plane, &frustum)
		}
		return
	}

	// Each task owns exactly one renderable, so no renderable is touched by two goroutines.
	// A WaitGroup provides the per-frame barrier since pool.Wait() blocks until
	// workers idle-exit which is unsuitable for frame-rate workloads.
	var wg sync.WaitGroup
	for i, g := range s.graphics {
		wg.Add(1)
		s.cullPool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				return g.Cull(plane, &frustum), nil
			},
		})
	}
	wg.Wait()
}

func (s *scene) Advance(dt float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.graphics {
		g.Advance(dt)
	}
}

func (s *scene) Update() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var errs []error
	for _, r := range s.items {
		if err := r.Update(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *scene) Render(variant renderable.Variant, sharedResourceCount int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.items {
		if r.Kind() == renderable.KindCompute {
			continue
		}
		r.Render(variant, sharedResourceCount)
	}
}

func (s *scene) Dispatch(variant renderable.Variant) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.items {
		if r.Kind() == renderable.KindCompute {
			r.Render(variant, 0)
		}
	}
}

func (s *scene) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Renderables: len(s.items)}
	for _, g := range s.graphics {
		entries, instances := g.Stats()
		st.Entries += entries
		st.Instances += instances
		if g.DrawCount() > 0 {
			st.Total += uint64(g.InstanceCount())
		}
		if g.Culled() {
			st.Culled++
		}
	}
	return st
}

func (s *scene) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.items {
		r.Dispose()
	}
	common.Logger().Info("[Scene] disposed scene", "name", s.name, "renderables", len(s.items))
	s.items = nil
	s.graphics = nil
}
