// Package engine drives the per-frame cycle over registered scenes: fixed-rate ticks, culling,
// GPU uploads, rendering into a frame target, and profiling.
package engine

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/profiler"
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
	"github.com/Carmen-Shannon/oxy-cull/engine/scene"
	"github.com/Carmen-Shannon/oxy-cull/engine/window"
)

// maxTicksPerFrame bounds fixed-rate catch-up after a stall.
const maxTicksPerFrame = 8

// FrameTarget is the graphics API side of a frame: it opens the pass scenes render into and
// presents it.
type FrameTarget interface {
	// BeginFrame prepares the frame for drawing.
	//
	// Returns:
	//   - error: an error if the frame cannot be drawn, the frame is then skipped
	BeginFrame() error

	// EndFrame submits and presents the frame.
	EndFrame()
}

// ComputeTarget is the graphics API side of the compute dispatches run before each frame's
// render pass.
type ComputeTarget interface {
	// BeginComputeFrame opens the encoder compute renderables dispatch into.
	//
	// Returns:
	//   - error: an error if no dispatch can be recorded, the dispatches are then skipped
	BeginComputeFrame() error

	// EndComputeFrame submits the recorded dispatches.
	EndComputeFrame()
}

// engine implements the Engine interface.
type engine struct {
	mu sync.Mutex

	window  window.Window
	target  FrameTarget
	compute ComputeTarget

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickRate       time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene
	keys   []int
	active []scene.Scene // scenes of the current frame, reused across frames

	variant             renderable.Variant
	sharedResourceCount int

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	now      func() time.Time
	last     time.Time
	tickDebt time.Duration
	quit     bool
}

// Engine orchestrates the frame loop over a set of scenes.
//
// Each frame runs, on the calling thread: pending fixed-rate ticks, then for every scene in
// ascending z-index order Advance, Cull and Update, then the compute dispatches of every scene
// inside one compute frame, then BeginFrame, Render of every scene and EndFrame, then the render
// callback and the profiler.
type Engine interface {
	// Window returns the window driving Run, or nil for headless engines.
	//
	// Returns:
	//   - window.Window: the window
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Profiler returns the engine's profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// SetTickRate sets the fixed tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: ticks per second, values <= 0 select 60
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each fixed tick.
	//
	// Parameters:
	//   - callback: receives the fixed tick duration in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: receives the frame duration in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional frame rate cap. Pass 0 to uncap.
	//
	// Parameters:
	//   - fps: frames per second
	SetRenderFrameLimit(fps float64)

	// SetVariant selects the render variant and the number of leading shared resources
	// passed to every Render call.
	//
	// Parameters:
	//   - variant: the render variant
	//   - sharedResourceCount: resources already bound by the frame target
	SetVariant(variant renderable.Variant, sharedResourceCount int)

	// AddScene registers a scene at the given z-index key, replacing any previous one.
	//
	// Parameters:
	//   - key: the z-index
	//   - s: the scene
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key without disposing it.
	//
	// Parameters:
	//   - key: the z-index
	//
	// Returns:
	//   - scene.Scene: the removed scene, or nil
	RemoveScene(key int) scene.Scene

	// Scene retrieves the scene registered at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index
	//
	// Returns:
	//   - scene.Scene: the scene, or nil
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: the scenes
	Scenes() map[int]scene.Scene

	// Frame runs one frame.
	//
	// Returns:
	//   - scene.Stats: the statistics summed over all scenes after culling
	//   - error: the joined Update errors of all scenes
	Frame() (scene.Stats, error)

	// Run runs frames until the window closes or Quit is called. Blocks.
	//
	// Returns:
	//   - error: an error if the engine has no window
	Run() error

	// Quit stops Run after the current frame. Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine. Options are applied directly to the engine struct.
//
// Parameters:
//   - options: functional options to configure the engine
//
// Returns:
//   - Engine: the engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		scenes:   make(map[int]scene.Scene),
		profiler: profiler.NewProfiler(),
		tickRate: time.Second / 60,
		variant:  renderable.VariantColor,
		now:      time.Now,
	}

	for _, opt := range options {
		opt(e)
	}
	slices.Sort(e.keys)
	e.last = e.now()
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickRate = time.Duration(float64(time.Second) / fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) SetVariant(variant renderable.Variant, sharedResourceCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variant = variant
	e.sharedResourceCount = max(sharedResourceCount, 0)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	if s == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.scenes[key]; !exists {
		e.keys = append(e.keys, key)
		slices.Sort(e.keys)
	}
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes[key]
	if !ok {
		return nil
	}
	delete(e.scenes, key)
	if i := slices.Index(e.keys, key); i >= 0 {
		e.keys = slices.Delete(e.keys, i, i+1)
	}
	return s
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func (e *engine) Frame() (scene.Stats, error) {
	e.mu.Lock()
	now := e.now()
	frame := now.Sub(e.last)
	e.last = now
	tick, tickRate := e.tickCallback, e.tickRate
	render, limit := e.renderCallback, e.renderFrameLimit
	variant, shared := e.variant, e.sharedResourceCount
	profiling := e.profilingEnabled
	e.active = e.active[:0]
	for _, k := range e.keys {
		e.active = append(e.active, e.scenes[k])
	}
	active := e.active
	e.mu.Unlock()

	dt := float32(frame.Seconds())

	if tick != nil {
		e.tickDebt += frame
		ticks := 0
		for e.tickDebt >= tickRate && ticks < maxTicksPerFrame {
			tick(float32(tickRate.Seconds()))
			e.tickDebt -= tickRate
			ticks++
		}
		if ticks == maxTicksPerFrame {
			e.tickDebt = 0
		}
	}

	var errs []error
	var total scene.Stats
	for _, s := range active {
		s.Advance(dt)
		s.Cull()
		if err := s.Update(); err != nil {
			errs = append(errs, err)
		}
		st := s.Stats()
		total.Renderables += st.Renderables
		total.Culled += st.Culled
		total.Entries += st.Entries
		total.Instances += st.Instances
		total.Total += st.Total
	}

	if e.compute != nil {
		if err := e.compute.BeginComputeFrame(); err != nil {
			common.Logger().Warn("[Engine] compute skipped", "error", err)
		} else {
			for _, s := range active {
				s.Dispatch(variant)
			}
			e.compute.EndComputeFrame()
		}
	}

	if e.target != nil {
		if err := e.target.BeginFrame(); err != nil {
			common.Logger().Warn("[Engine] frame skipped", "error", err)
		} else {
			for _, s := range active {
				s.Render(variant, shared)
			}
			e.target.EndFrame()
		}
	}

	if render != nil {
		render(dt)
	}
	if profiling {
		e.profiler.Tick(total)
	}

	if limit > 0 {
		if remaining := limit - e.now().Sub(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	return total, errors.Join(errs...)
}

func (e *engine) Run() error {
	if e.window == nil {
		return errors.New("engine has no window")
	}
	e.window.SetUpdateCallback(func() {
		e.mu.Lock()
		quit := e.quit
		e.mu.Unlock()
		if quit {
			_ = e.window.Close()
			return
		}
		if _, err := e.Frame(); err != nil {
			common.Logger().Error("[Engine] frame update failed", "error", err)
		}
	})
	e.window.ProcessMessages()
	return nil
}

func (e *engine) Quit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quit = true
}
