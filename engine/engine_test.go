package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-cull/engine/batch"
	"github.com/Carmen-Shannon/oxy-cull/engine/camera"
	"github.com/Carmen-Shannon/oxy-cull/engine/grid"
	"github.com/Carmen-Shannon/oxy-cull/engine/renderable"
	"github.com/Carmen-Shannon/oxy-cull/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeTarget struct {
	begins, ends int
	err          error
}

func (f *fakeTarget) BeginFrame() error { f.begins++; return f.err }
func (f *fakeTarget) EndFrame()         { f.ends++ }

type fakeComputeTarget struct {
	log *[]string
	err error
}

func (f *fakeComputeTarget) BeginComputeFrame() error {
	*f.log = append(*f.log, "compute begin")
	return f.err
}
func (f *fakeComputeTarget) EndComputeFrame() { *f.log = append(*f.log, "compute end") }

type orderCompute struct{ log *[]string }

func (c *orderCompute) Dispatch(_, _, _ uint32) { *c.log = append(*c.log, "dispatch") }
func (c *orderCompute) Release()                {}

type orderSubmitter struct {
	name      string
	log       *[]string
	uploadErr error
}

func (s *orderSubmitter) Draw(renderable.DrawCommand) { *s.log = append(*s.log, s.name) }
func (s *orderSubmitter) MultiDraw(renderable.DrawCommand, *batch.MultiDrawBatch) {
	*s.log = append(*s.log, s.name)
}
func (s *orderSubmitter) SetUniform(string, [4]float32)         {}
func (s *orderSubmitter) Upload([]*batch.MultiDrawBatch) error { return s.uploadErr }
func (s *orderSubmitter) Release()                              {}

func newTestScene(t *testing.T, name string, log *[]string, uploadErr error) scene.Scene {
	t.Helper()
	g, err := grid.NewInstanceGrid([]uint32{0, 10, 20}, []float32{
		0, 0, 0, 1,
		500, 0, 0, 1,
	})
	if err != nil {
		t.Fatalf("NewInstanceGrid: %v", err)
	}
	r, err := renderable.NewGraphics(&orderSubmitter{name: name, log: log, uploadErr: uploadErr},
		renderable.WithGrid(g), renderable.WithDrawCount(36))
	if err != nil {
		t.Fatalf("NewGraphics: %v", err)
	}
	cam := camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, 30}), camera.WithClip(0.1, 100))
	return scene.NewScene(name, cam, scene.WithRenderables(r))
}

func TestFixedTicksAccumulate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	e := NewEngine(WithClock(clock.now), WithTickRate(10))

	ticks := 0
	e.SetTickCallback(func(dt float32) {
		ticks++
		if dt < 0.0999 || dt > 0.1001 {
			t.Errorf("tick dt: expected 0.1, got %v", dt)
		}
	})

	clock.advance(250 * time.Millisecond)
	if _, err := e.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if ticks != 2 {
		t.Errorf("after 250ms: expected 2 ticks, got %d", ticks)
	}

	clock.advance(60 * time.Millisecond)
	e.Frame()
	if ticks != 3 {
		t.Errorf("after 310ms: expected 3 ticks, got %d", ticks)
	}
}

func TestTickCatchUpIsBounded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	e := NewEngine(WithClock(clock.now), WithTickRate(100))
	ticks := 0
	e.SetTickCallback(func(float32) { ticks++ })

	clock.advance(10 * time.Second)
	e.Frame()
	if ticks != maxTicksPerFrame {
		t.Errorf("expected %d ticks after a stall, got %d", maxTicksPerFrame, ticks)
	}
	clock.advance(5 * time.Millisecond)
	e.Frame()
	if ticks != maxTicksPerFrame {
		t.Errorf("expected the stall debt to be dropped, got %d ticks", ticks)
	}
}

func TestFrameRendersScenesInKeyOrder(t *testing.T) {
	var log []string
	target := &fakeTarget{}
	e := NewEngine(WithFrameTarget(target), WithScene(5, newTestScene(t, "top", &log, nil)))
	e.AddScene(-1, newTestScene(t, "bottom", &log, nil))
	e.AddScene(2, newTestScene(t, "middle", &log, nil))

	stats, err := e.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	want := []string{"bottom", "middle", "top"}
	if len(log) != len(want) {
		t.Fatalf("render order: expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("render order: expected %v, got %v", want, log)
		}
	}
	if target.begins != 1 || target.ends != 1 {
		t.Errorf("frame target: expected one begin and end, got %d and %d", target.begins, target.ends)
	}
	if stats.Renderables != 3 || stats.Culled != 3 {
		t.Errorf("stats: expected 3 renderables all culled, got %+v", stats)
	}
	if stats.Instances != 30 || stats.Total != 60 {
		t.Errorf("stats: expected 30 of 60 instances, got %d of %d", stats.Instances, stats.Total)
	}
}

func TestFrameDispatchesComputeBeforeRender(t *testing.T) {
	var log []string
	s := newTestScene(t, "draw", &log, nil)
	s.Add(renderable.NewCompute(&orderCompute{log: &log}))
	e := NewEngine(
		WithFrameTarget(&fakeTarget{}),
		WithComputeTarget(&fakeComputeTarget{log: &log}),
		WithScene(0, s),
	)

	e.Frame()
	want := []string{"compute begin", "dispatch", "compute end", "draw"}
	if len(log) != len(want) {
		t.Fatalf("frame order: expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("frame order: expected %v, got %v", want, log)
		}
	}
}

func TestFrameSkipsDispatchWhenComputeTargetFails(t *testing.T) {
	var log []string
	s := newTestScene(t, "draw", &log, nil)
	s.Add(renderable.NewCompute(&orderCompute{log: &log}))
	e := NewEngine(
		WithFrameTarget(&fakeTarget{}),
		WithComputeTarget(&fakeComputeTarget{log: &log, err: errors.New("device lost")}),
		WithScene(0, s),
	)

	e.Frame()
	want := []string{"compute begin", "draw"}
	if len(log) != len(want) || log[0] != want[0] || log[1] != want[1] {
		t.Errorf("frame order: expected %v, got %v", want, log)
	}
}

func TestFrameWithoutComputeTargetNeverDispatches(t *testing.T) {
	var log []string
	s := newTestScene(t, "draw", &log, nil)
	s.Add(renderable.NewCompute(&orderCompute{log: &log}))
	e := NewEngine(WithFrameTarget(&fakeTarget{}), WithScene(0, s))

	e.Frame()
	if len(log) != 1 || log[0] != "draw" {
		t.Errorf("expected only the draw, got %v", log)
	}
}

func TestFrameReusesActiveScenes(t *testing.T) {
	var log []string
	e := NewEngine(WithScene(0, newTestScene(t, "a", &log, nil)), WithScene(1, newTestScene(t, "b", &log, nil))).(*engine)

	e.Frame()
	first := &e.active[0]
	e.Frame()
	if &e.active[0] != first {
		t.Errorf("active scenes: expected the backing array to be reused")
	}
	if len(e.active) != 2 {
		t.Errorf("active scenes: expected 2, got %d", len(e.active))
	}
}

func TestFrameSkipsRenderWhenTargetFails(t *testing.T) {
	var log []string
	target := &fakeTarget{err: errors.New("surface lost")}
	rendered := 0
	e := NewEngine(WithFrameTarget(target), WithScene(0, newTestScene(t, "a", &log, nil)))
	e.SetRenderCallback(func(float32) { rendered++ })

	e.Frame()
	if len(log) != 0 {
		t.Errorf("expected no draws, got %v", log)
	}
	if target.ends != 0 {
		t.Errorf("expected EndFrame to be skipped, got %d calls", target.ends)
	}
	if rendered != 1 {
		t.Errorf("expected the render callback to still run, got %d", rendered)
	}
}

func TestFrameJoinsUpdateErrors(t *testing.T) {
	var log []string
	boom := errors.New("upload failed")
	e := NewEngine(WithScene(0, newTestScene(t, "a", &log, boom)), WithScene(1, newTestScene(t, "b", &log, nil)))
	if _, err := e.Frame(); !errors.Is(err, boom) {
		t.Errorf("Frame: expected the upload error, got %v", err)
	}
}

func TestSceneRegistry(t *testing.T) {
	var log []string
	e := NewEngine()
	a := newTestScene(t, "a", &log, nil)
	e.AddScene(3, a)
	e.AddScene(3, newTestScene(t, "b", &log, nil))
	if len(e.Scenes()) != 1 {
		t.Errorf("AddScene: expected replacement at key 3, got %d scenes", len(e.Scenes()))
	}
	if got := e.Scene(3); got == nil || got.Name() != "b" {
		t.Errorf("Scene(3): expected b, got %v", got)
	}
	if got := e.RemoveScene(3); got == nil || got.Name() != "b" {
		t.Errorf("RemoveScene(3): expected b, got %v", got)
	}
	if e.RemoveScene(3) != nil {
		t.Errorf("RemoveScene: expected nil for a missing key")
	}
	e.AddScene(1, nil)
	if len(e.Scenes()) != 0 {
		t.Errorf("AddScene(nil): expected no scene to be registered")
	}
}

func TestRunRequiresWindow(t *testing.T) {
	if err := NewEngine().Run(); err == nil {
		t.Errorf("Run: expected an error without a window")
	}
}
