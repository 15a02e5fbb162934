package renderable

import (
	"errors"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/batch"
	"github.com/Carmen-Shannon/oxy-cull/engine/grid"
	"github.com/Carmen-Shannon/oxy-cull/engine/lod"
)

type fakeSubmitter struct {
	draws      []DrawCommand
	multiDraws []batch.Entry
	uniforms   map[string][][4]float32
	uploads    int
	uploadErr  error
	released   int
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{uniforms: make(map[string][][4]float32)}
}

func (f *fakeSubmitter) Draw(cmd DrawCommand) { f.draws = append(f.draws, cmd) }

func (f *fakeSubmitter) MultiDraw(_ DrawCommand, b *batch.MultiDrawBatch) {
	for i := 0; i < b.Count; i++ {
		f.multiDraws = append(f.multiDraws, b.Entry(i))
	}
}

func (f *fakeSubmitter) SetUniform(name string, v [4]float32) {
	f.uniforms[name] = append(f.uniforms[name], v)
}

func (f *fakeSubmitter) Upload([]*batch.MultiDrawBatch) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads++
	return nil
}

func (f *fakeSubmitter) Release() { f.released++ }

type fakeComputeSubmitter struct {
	dispatches [][3]uint32
	released   int
}

func (f *fakeComputeSubmitter) Dispatch(x, y, z uint32) {
	f.dispatches = append(f.dispatches, [3]uint32{x, y, z})
}

func (f *fakeComputeSubmitter) Release() { f.released++ }

// box returns an axis-aligned frustum covering [-h, h] on every axis.
func box(h float32) common.Frustum {
	return common.Frustum{Planes: [6]common.Plane{
		common.NewPlane([3]float32{1, 0, 0}, [3]float32{-h, 0, 0}),
		common.NewPlane([3]float32{-1, 0, 0}, [3]float32{h, 0, 0}),
		common.NewPlane([3]float32{0, 1, 0}, [3]float32{0, -h, 0}),
		common.NewPlane([3]float32{0, -1, 0}, [3]float32{0, h, 0}),
		common.NewPlane([3]float32{0, 0, 1}, [3]float32{0, 0, -h}),
		common.NewPlane([3]float32{0, 0, -1}, [3]float32{0, 0, h}),
	}}
}

var plane = common.NewPlane([3]float32{0, 0, -1}, [3]float32{0, 0, 0})

// threeCells has cells at x = -20, 0 and 20 with 10 instances each.
func threeCells(t *testing.T) *grid.InstanceGrid {
	t.Helper()
	g, err := grid.NewInstanceGrid([]uint32{0, 10, 20, 30}, []float32{
		-20, 0, 0, 1,
		0, 0, 0, 1,
		20, 0, 0, 1,
	})
	if err != nil {
		t.Fatalf("NewInstanceGrid: %v", err)
	}
	return g
}

func mustGraphics(t *testing.T, sub Submitter, options ...GraphicsBuilderOption) Graphics {
	t.Helper()
	r, err := NewGraphics(sub, options...)
	if err != nil {
		t.Fatalf("NewGraphics: %v", err)
	}
	return r
}

func expectDisposedPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrDisposed) {
			t.Errorf("%s: expected a panic carrying ErrDisposed, got %v", name, rec)
		}
	}()
	fn()
}

func TestGraphicsFullDrawWithoutGrid(t *testing.T) {
	sub := newFakeSubmitter()
	r := mustGraphics(t, sub, WithInstanceCount(30), WithDrawCount(36), WithIndexRange(6, 2))
	f := box(5)

	if r.Cull(plane, &f) {
		t.Errorf("Cull: expected no culling without a grid")
	}
	r.Render(VariantColor, 2)
	if len(sub.draws) != 1 {
		t.Fatalf("Render: expected one full draw, got %d", len(sub.draws))
	}
	want := DrawCommand{Variant: VariantColor, SharedResourceCount: 2, First: 6, Count: 36, BaseVertex: 2, InstanceCount: 30}
	if sub.draws[0] != want {
		t.Errorf("Draw: expected %+v, got %+v", want, sub.draws[0])
	}
	if len(sub.multiDraws) != 0 {
		t.Errorf("Render: expected no batched draws, got %v", sub.multiDraws)
	}
}

func TestGraphicsCullRendersBatches(t *testing.T) {
	sub := newFakeSubmitter()
	r := mustGraphics(t, sub, WithGrid(threeCells(t)), WithDrawCount(36))
	if r.InstanceCount() != 30 {
		t.Errorf("InstanceCount: expected the grid's 30 instances, got %d", r.InstanceCount())
	}
	f := box(5)

	if !r.Cull(plane, &f) || !r.Culled() {
		t.Fatalf("Cull: expected the renderable to be culled")
	}
	r.Render(VariantColor, 0)
	if len(sub.draws) != 0 {
		t.Errorf("Render: expected no full draw, got %v", sub.draws)
	}
	if len(sub.multiDraws) != 1 || sub.multiDraws[0].BaseInstance != 10 || sub.multiDraws[0].InstanceCount != 10 {
		t.Errorf("MultiDraw: expected the middle cell only, got %+v", sub.multiDraws)
	}
	if entries, instances := r.Stats(); entries != 1 || instances != 10 {
		t.Errorf("Stats: expected 1 entry and 10 instances, got %d and %d", entries, instances)
	}

	r.Uncull()
	r.Render(VariantPicking, 0)
	if len(sub.draws) != 1 || sub.draws[0].InstanceCount != 30 {
		t.Errorf("Uncull: expected a full draw of 30 instances, got %+v", sub.draws)
	}
}

func TestGraphicsCullPreconditions(t *testing.T) {
	f := box(50)
	cases := []struct {
		name    string
		options []GraphicsBuilderOption
	}{
		{"no draw count", []GraphicsBuilderOption{WithGrid(threeCells(t))}},
		{"no grid", []GraphicsBuilderOption{WithDrawCount(3), WithInstanceCount(30)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := mustGraphics(t, newFakeSubmitter(), c.options...)
			if r.Cull(plane, &f) || r.Culled() {
				t.Errorf("Cull: expected the renderable to stay uncalled")
			}
		})
	}

	r := mustGraphics(t, newFakeSubmitter(), WithGrid(threeCells(t)), WithDrawCount(3))
	r.SetInstanceCount(0)
	if r.Cull(plane, &f) {
		t.Errorf("Cull: expected no culling with zero instances")
	}
}

func TestGraphicsRejectsInvalidGrid(t *testing.T) {
	bad := &grid.InstanceGrid{CellCount: 1, CellOffsets: []uint32{0, 5}, CellSpheres: []float32{0, 0, 0}}
	if _, err := NewGraphics(newFakeSubmitter(), WithGrid(bad)); !errors.Is(err, grid.ErrInvalidGrid) {
		t.Errorf("NewGraphics: expected ErrInvalidGrid, got %v", err)
	}

	good := threeCells(t)
	r := mustGraphics(t, newFakeSubmitter(), WithGrid(good), WithDrawCount(3))
	if err := r.SetGrid(bad); !errors.Is(err, grid.ErrInvalidGrid) {
		t.Errorf("SetGrid: expected ErrInvalidGrid, got %v", err)
	}
	if r.Grid() != good {
		t.Errorf("SetGrid: expected the previous grid to stay attached")
	}

	f := box(50)
	r.Cull(plane, &f)
	if err := r.SetGrid(nil); err != nil {
		t.Fatalf("SetGrid(nil): unexpected error %v", err)
	}
	if r.Culled() {
		t.Errorf("SetGrid(nil): expected culling to be disabled")
	}
}

func TestGraphicsUploadsOnlyAfterCull(t *testing.T) {
	sub := newFakeSubmitter()
	r := mustGraphics(t, sub, WithGrid(threeCells(t)), WithDrawCount(3),
		WithLodTable(lod.NewTable(lod.Level{MaxDistance: 100})))
	f := box(50)

	if err := r.Update(); err != nil || sub.uploads != 0 {
		t.Fatalf("Update: expected nothing to upload before Cull, got %d uploads, err %v", sub.uploads, err)
	}
	r.Cull(plane, &f)
	if err := r.Update(); err != nil {
		t.Fatalf("Update: unexpected error %v", err)
	}
	if err := r.Update(); err != nil {
		t.Fatalf("Update: unexpected error %v", err)
	}
	if sub.uploads != 1 {
		t.Errorf("Update: expected one upload per cull, got %d", sub.uploads)
	}

	sub.uploadErr = errors.New("device lost")
	r.Cull(plane, &f)
	if err := r.Update(); !errors.Is(err, sub.uploadErr) {
		t.Errorf("Update: expected the upload error to be wrapped, got %v", err)
	}
}

func TestGraphicsAlphaUploadIsDirtyChecked(t *testing.T) {
	sub := newFakeSubmitter()
	r := mustGraphics(t, sub, WithInstanceCount(1), WithDrawCount(3), WithOpacity(0.5))

	r.Render(VariantColor, 0)
	r.Render(VariantColor, 0)
	if got := sub.uniforms[AlphaUniform]; len(got) != 1 || got[0][0] != 0.5 {
		t.Fatalf("Render: expected a single uAlpha upload of 0.5, got %v", got)
	}

	r.SetOpacity(0.5)
	r.Render(VariantColor, 0)
	if len(sub.uniforms[AlphaUniform]) != 1 {
		t.Errorf("Render: expected no upload when the opacity is unchanged")
	}

	r.SetOpacity(0.8)
	r.Render(VariantColor, 0)
	if got := sub.uniforms[AlphaUniform]; len(got) != 2 || got[1][0] != 0.8 {
		t.Errorf("Render: expected a second upload of 0.8, got %v", got)
	}
}

func TestGraphicsFade(t *testing.T) {
	sub := newFakeSubmitter()
	r := mustGraphics(t, sub, WithInstanceCount(1), WithDrawCount(3), WithOpacity(0.5))

	r.Fade(0, 1, 2)
	if r.EffectiveOpacity() != 0 {
		t.Errorf("Fade: expected the factor to start at 0, got %v", r.EffectiveOpacity())
	}
	r.Advance(1)
	if got := r.EffectiveOpacity(); got < 0.24 || got > 0.26 {
		t.Errorf("Advance: expected about 0.25 halfway through, got %v", got)
	}
	r.Advance(5)
	if got := r.EffectiveOpacity(); got != 0.5 {
		t.Errorf("Advance: expected 0.5 once finished, got %v", got)
	}
	r.Advance(1)
	if got := r.EffectiveOpacity(); got != 0.5 {
		t.Errorf("Advance: expected a finished fade to stay at 0.5, got %v", got)
	}

	r.Fade(1, 0.2, 0)
	if got := r.EffectiveOpacity(); got < 0.099 || got > 0.101 {
		t.Errorf("Fade: expected an instant fade to 0.1, got %v", got)
	}
}

func TestGraphicsDisposePanicsOnReuse(t *testing.T) {
	sub := newFakeSubmitter()
	r := mustGraphics(t, sub, WithGrid(threeCells(t)), WithDrawCount(3))
	r.Dispose()
	if sub.released != 1 {
		t.Errorf("Dispose: expected the submitter to be released once, got %d", sub.released)
	}

	f := box(5)
	calls := map[string]func(){
		"Render":  func() { r.Render(VariantColor, 0) },
		"Cull":    func() { r.Cull(plane, &f) },
		"Update":  func() { _ = r.Update() },
		"Dispose": func() { r.Dispose() },
		"ID":      func() { r.ID() },
	}
	for name, fn := range calls {
		expectDisposedPanic(t, name, fn)
	}
}

func TestComputeDispatches(t *testing.T) {
	sub := &fakeComputeSubmitter{}
	c := NewCompute(sub, WithWorkgroups(8, 4, 1), WithVariants(VariantDepth))
	if c.Kind() != KindCompute {
		t.Errorf("Kind: expected compute, got %v", c.Kind())
	}

	c.Render(VariantColor, 0)
	c.Render(VariantDepth, 0)
	if len(sub.dispatches) != 1 || sub.dispatches[0] != [3]uint32{8, 4, 1} {
		t.Errorf("Render: expected one dispatch of 8x4x1, got %v", sub.dispatches)
	}

	c.SetWorkgroups(0, 1, 1)
	c.Render(VariantDepth, 0)
	if len(sub.dispatches) != 1 {
		t.Errorf("Render: expected an empty grid to skip the dispatch")
	}
	if err := c.Update(); err != nil {
		t.Errorf("Update: unexpected error %v", err)
	}

	c.Dispose()
	if sub.released != 1 {
		t.Errorf("Dispose: expected the submitter to be released")
	}
	expectDisposedPanic(t, "Render", func() { c.Render(VariantDepth, 0) })
}

func TestRenderableVariantsShareCapability(t *testing.T) {
	ids := NewIDSource()
	items := []Renderable{
		mustGraphics(t, newFakeSubmitter(), WithGraphicsIDSource(ids)),
		NewCompute(&fakeComputeSubmitter{}, WithComputeIDSource(ids)),
	}
	for i, want := range []Kind{KindGraphics, KindCompute} {
		if items[i].Kind() != want {
			t.Errorf("item %d: expected kind %v, got %v", i, want, items[i].Kind())
		}
		if items[i].ID() != uint64(i+1) {
			t.Errorf("item %d: expected ID %d, got %d", i, i+1, items[i].ID())
		}
	}
	if _, ok := items[1].(Graphics); ok {
		t.Errorf("Compute: expected no graphics capability")
	}
}

func TestIDSourceIsMonotonic(t *testing.T) {
	ids := NewIDSource()
	var wg sync.WaitGroup
	got := make([][]uint64, 4)
	for w := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 250 {
				got[w] = append(got[w], ids.Next())
			}
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool, 1000)
	for _, list := range got {
		for i, id := range list {
			if seen[id] {
				t.Fatalf("Next: duplicate ID %d", id)
			}
			seen[id] = true
			if i > 0 && id <= list[i-1] {
				t.Fatalf("Next: expected increasing IDs, got %d after %d", id, list[i-1])
			}
		}
	}
	if ids.Next() != 1001 {
		t.Errorf("Next: expected 1001 after 1000 IDs")
	}
}

func TestKindString(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindGraphics, "graphics"},
		{KindCompute, "compute"},
		{Kind(9), "unknown"},
	}
	for _, c := range cases {
		if got := c.kind.String(); got != c.want {
			t.Errorf("Kind(%d).String(): expected %q, got %q", c.kind, c.want, got)
		}
	}
}
