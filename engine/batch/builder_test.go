package batch

import (
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/grid"
	"github.com/Carmen-Shannon/oxy-cull/engine/lod"
	"github.com/go-gl/mathgl/mgl32"
)

// viewPlane measures distance along -z from the origin.
var viewPlane = common.NewPlane([3]float32{0, 0, -1}, [3]float32{0, 0, 0})

// boxFrustum returns an axis-aligned frustum covering [-h, h] on every axis.
func boxFrustum(h float32) common.Frustum {
	return common.Frustum{Planes: [6]common.Plane{
		common.NewPlane([3]float32{1, 0, 0}, [3]float32{-h, 0, 0}),
		common.NewPlane([3]float32{-1, 0, 0}, [3]float32{h, 0, 0}),
		common.NewPlane([3]float32{0, 1, 0}, [3]float32{0, -h, 0}),
		common.NewPlane([3]float32{0, -1, 0}, [3]float32{0, h, 0}),
		common.NewPlane([3]float32{0, 0, 1}, [3]float32{0, 0, -h}),
		common.NewPlane([3]float32{0, 0, -1}, [3]float32{0, 0, h}),
	}}
}

// perspectiveFrustum looks down -z from the origin.
func perspectiveFrustum() common.Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 200)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	vp := proj.Mul4(view)
	return common.ExtractFrustumFromMatrix(vp[:])
}

func mustGrid(t testing.TB, offsets []uint32, spheres []float32) *grid.InstanceGrid {
	t.Helper()
	g, err := grid.NewInstanceGrid(offsets, spheres)
	if err != nil {
		t.Fatalf("NewInstanceGrid: %v", err)
	}
	return g
}

// lineGrid lays out cells along -z, cell i centered at distance (i+1)*spacing, each holding per instances.
func lineGrid(t testing.TB, cells, per int, spacing, radius float32) *grid.InstanceGrid {
	t.Helper()
	offsets := make([]uint32, cells+1)
	spheres := make([]float32, 0, cells*4)
	for i := range cells {
		offsets[i+1] = offsets[i] + uint32(per)
		spheres = append(spheres, 0, 0, -float32(i+1)*spacing, radius)
	}
	return mustGrid(t, offsets, spheres)
}

func randomGrid(t testing.TB, seed uint64, n int) *grid.InstanceGrid {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	positions := make([][3]float32, n)
	for i := range positions {
		positions[i] = [3]float32{r.Float32()*240 - 120, r.Float32()*240 - 120, r.Float32()*240 - 120}
	}
	g, _, err := grid.Build(positions, grid.WithTargetCellPopulation(8), grid.WithInstanceRadius(0.5))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func entries(b *MultiDrawBatch) []Entry {
	out := make([]Entry, b.Count)
	for i := range out {
		out[i] = b.Entry(i)
	}
	return out
}

// coverage counts how often each instance index is referenced by the batch.
func coverage(b *MultiDrawBatch) map[uint32]int {
	seen := make(map[uint32]int)
	for i := 0; i < b.Count; i++ {
		for j := b.BaseInstances[i]; j < b.BaseInstances[i]+b.InstanceCounts[i]; j++ {
			seen[j]++
		}
	}
	return seen
}

func checkOrdered(t *testing.T, b *MultiDrawBatch) {
	t.Helper()
	for i := 0; i < b.Count; i++ {
		if b.InstanceCounts[i] == 0 {
			t.Errorf("entry %d: expected a non-empty range", i)
		}
		if i > 0 && b.BaseInstances[i] < b.BaseInstances[i-1]+b.InstanceCounts[i-1] {
			t.Errorf("entry %d: range starting at %d overlaps the previous entry", i, b.BaseInstances[i])
		}
	}
}

func TestCullFourCellExample(t *testing.T) {
	cases := []struct {
		name  string
		empty [3]float32 // sphere center of the empty cell
	}{
		{"empty cell visible", [3]float32{0, 0, 0}},
		{"empty cell outside frustum", [3]float32{1000, 0, 0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := mustGrid(t, []uint32{0, 10, 10, 25, 40}, []float32{
				0, 0, 0, 1,
				c.empty[0], c.empty[1], c.empty[2], 1,
				2, 2, 2, 1,
				-2, -2, -2, 1,
			})
			f := boxFrustum(10)
			b := NewBuilder()

			if !b.Cull(viewPlane, &f, g, nil, 36) {
				t.Fatalf("Cull: expected culling to run")
			}
			batches := b.Batches()
			if len(batches) != 1 {
				t.Fatalf("Batches: expected 1 batch without LOD, got %d", len(batches))
			}
			got := entries(batches[0])
			want := []Entry{
				{Count: 36, InstanceCount: 10, BaseInstance: 0},
				{Count: 36, InstanceCount: 30, BaseInstance: 10},
			}
			if len(got) != len(want) {
				t.Fatalf("entries: expected %+v, got %+v", want, got)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("entry %d: expected %+v, got %+v", i, want[i], got[i])
				}
			}
			if len(batches[0].Uniforms) != 0 {
				t.Errorf("Uniforms: expected none without LOD, got %v", batches[0].Uniforms)
			}
		})
	}
}

func TestCullOverlappingBands(t *testing.T) {
	g := mustGrid(t, []uint32{0, 5}, []float32{0, 0, -45, 2})
	f := boxFrustum(200)
	table := lod.NewTable(
		lod.Level{MinDistance: 0, MaxDistance: 50, Overlap: 10, DrawCount: 36, SizeFactor: 1},
		lod.Level{MinDistance: 40, MaxDistance: 100, Overlap: 10, DrawCount: 12, SizeFactor: 2},
	)
	b := NewBuilder()

	if !b.Cull(viewPlane, &f, g, table, 100) {
		t.Fatalf("Cull: expected culling to run")
	}
	batches := b.Batches()
	if len(batches) != 2 {
		t.Fatalf("Batches: expected one batch per band, got %d", len(batches))
	}
	for i, wantCount := range []uint32{36, 12} {
		got := entries(batches[i])
		if len(got) != 1 || got[0].InstanceCount != 5 || got[0].Count != wantCount {
			t.Errorf("band %d: expected one entry of 5 instances drawing %d elements, got %+v", i, wantCount, got)
		}
		u := batches[i].Uniforms
		if len(u) != 1 || u[0].Name != lod.UniformName || u[0].Value != table.Level(i).Uniform() {
			t.Errorf("band %d: expected uLod uniform %v, got %v", i, table.Level(i).Uniform(), u)
		}
	}
}

func TestCullBandFallsBackToRenderableDrawCount(t *testing.T) {
	g := lineGrid(t, 2, 3, 10, 1)
	f := boxFrustum(200)
	table := lod.NewTable(lod.Level{MaxDistance: 15}, lod.Level{MinDistance: 15, MaxDistance: 30, DrawCount: 6})
	b := NewBuilder()
	b.Cull(viewPlane, &f, g, table, 24)

	near, far := b.Batches()[0], b.Batches()[1]
	if near.Count != 1 || near.Counts[0] != 24 || near.BaseInstances[0] != 0 {
		t.Errorf("near band: expected cell 0 drawn with 24 elements, got %+v", entries(near))
	}
	if far.Count != 1 || far.Counts[0] != 6 || far.BaseInstances[0] != 3 {
		t.Errorf("far band: expected cell 1 drawn with 6 elements, got %+v", entries(far))
	}
}

func TestCullSingleBandRange(t *testing.T) {
	// cells at distances 10, 20, 30 and 40 with radius 1
	g := lineGrid(t, 4, 2, 10, 1)
	f := boxFrustum(200)
	table := lod.NewTable(lod.Level{MinDistance: 11, MaxDistance: 29, DrawCount: 9})
	b := NewBuilder()
	b.Cull(viewPlane, &f, g, table, 36)

	got := entries(b.Batches()[0])
	want := []Entry{{Count: 9, InstanceCount: 6, BaseInstance: 0}}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("entries: expected cells 0 to 2 merged as %+v, got %+v", want, got)
	}
}

func TestCullUnboundedBandKeepsFrustumTest(t *testing.T) {
	g := lineGrid(t, 4, 2, 10, 1)
	f := boxFrustum(30)
	table := lod.NewTable(lod.Level{DrawCount: 9, SizeFactor: 3})
	b := NewBuilder()
	b.Cull(viewPlane, &f, g, table, 36)

	batch := b.Batches()[0]
	got := entries(batch)
	if len(got) != 1 || got[0].InstanceCount != 6 || got[0].Count != 9 {
		t.Errorf("entries: expected cells 0 to 2 drawn with 9 elements, got %+v", got)
	}
	if len(batch.Uniforms) != 1 || batch.Uniforms[0].Value[3] != 3 {
		t.Errorf("Uniforms: expected the band uniform, got %v", batch.Uniforms)
	}
}

func TestCullPreconditions(t *testing.T) {
	g := lineGrid(t, 2, 2, 10, 1)
	empty := mustGrid(t, []uint32{0, 0}, []float32{0, 0, 0, 1})
	f := boxFrustum(100)
	b := NewBuilder()

	cases := []struct {
		name      string
		g         *grid.InstanceGrid
		drawCount uint32
	}{
		{"no grid", nil, 36},
		{"zero draw count", g, 0},
		{"zero instances", empty, 36},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if b.Cull(viewPlane, &f, c.g, nil, c.drawCount) {
				t.Errorf("Cull: expected culling to be disabled")
			}
		})
	}
	if len(b.Batches()) != 0 {
		t.Errorf("Batches: expected no batches after disabled culls, got %d", len(b.Batches()))
	}
}

func TestCullMergesContiguousVisibleCells(t *testing.T) {
	g := lineGrid(t, 16, 4, 1, 0.5)
	f := boxFrustum(100)
	b := NewBuilder(WithFirstIndex(6), WithBaseVertex(-2))
	b.Cull(viewPlane, &f, g, nil, 36)

	got := entries(b.Batches()[0])
	want := Entry{First: 6, Count: 36, Offset: 24, InstanceCount: 64, BaseVertex: -2}
	if len(got) != 1 || got[0] != want {
		t.Errorf("entries: expected a single merged entry %+v, got %+v", want, got)
	}
}

func TestCullSoundAndComplete(t *testing.T) {
	f := perspectiveFrustum()
	for seed := range uint64(5) {
		g := randomGrid(t, seed, 2000)
		b := NewBuilder()
		if !b.Cull(viewPlane, &f, g, nil, 36) {
			t.Fatalf("seed %d: expected culling to run", seed)
		}
		batch := b.Batches()[0]
		checkOrdered(t, batch)
		if batch.Count > g.CellCount {
			t.Errorf("seed %d: Count %d exceeds CellCount %d", seed, batch.Count, g.CellCount)
		}

		seen := coverage(batch)
		for c := 0; c < g.CellCount; c++ {
			visible := common.FrustumIntersectsSphere(&f, g.Sphere(c))
			begin, end := g.Range(c)
			for i := begin; i < end; i++ {
				if visible && seen[i] != 1 {
					t.Fatalf("seed %d: instance %d of visible cell %d referenced %d times", seed, i, c, seen[i])
				}
				if !visible && seen[i] != 0 {
					t.Fatalf("seed %d: instance %d of culled cell %d is drawn", seed, i, c)
				}
			}
		}
	}
}

func TestCullBandsSoundAndComplete(t *testing.T) {
	f := perspectiveFrustum()
	table := lod.NewTable(
		lod.Level{MinDistance: 0, MaxDistance: 40},
		lod.Level{MinDistance: 30, MaxDistance: 80, DrawCount: 12},
		lod.Level{MinDistance: 70, MaxDistance: 150, DrawCount: 6},
	)
	g := randomGrid(t, 42, 3000)
	b := NewBuilder()
	b.Cull(viewPlane, &f, g, table, 36)

	for j, batch := range b.Batches() {
		checkOrdered(t, batch)
		seen := coverage(batch)
		level := table.Level(j)
		for c := 0; c < g.CellCount; c++ {
			s := g.Sphere(c)
			d := common.PlaneDistanceToPoint(viewPlane, s.Center)
			want := 0
			if common.FrustumIntersectsSphere(&f, s) && level.Contains(d, s.Radius) {
				want = 1
			}
			begin, end := g.Range(c)
			for i := begin; i < end; i++ {
				if seen[i] != want {
					t.Fatalf("band %d: instance %d of cell %d referenced %d times, expected %d", j, i, c, seen[i], want)
				}
			}
		}
	}
}

func TestCullIdempotentWithoutTableChange(t *testing.T) {
	f := perspectiveFrustum()
	g := randomGrid(t, 7, 1500)
	table := lod.NewTable(lod.Level{MaxDistance: 60}, lod.Level{MinDistance: 50, MaxDistance: 200})
	b := NewBuilder()

	b.Cull(viewPlane, &f, g, table, 36)
	first := make([][]Entry, len(b.Batches()))
	for i, batch := range b.Batches() {
		first[i] = entries(batch)
	}
	b.Cull(viewPlane, &f, g, table, 36)

	if b.UniformRebuilds() != 1 {
		t.Errorf("UniformRebuilds: expected 1 after two culls, got %d", b.UniformRebuilds())
	}
	for i, batch := range b.Batches() {
		second := entries(batch)
		if len(second) != len(first[i]) {
			t.Fatalf("band %d: expected %d entries, got %d", i, len(first[i]), len(second))
		}
		for k := range second {
			if second[k] != first[i][k] {
				t.Errorf("band %d entry %d: expected %+v, got %+v", i, k, first[i][k], second[k])
			}
		}
	}

	table.SetLevel(1, lod.Level{MinDistance: 55, MaxDistance: 200})
	b.Cull(viewPlane, &f, g, table, 36)
	if b.UniformRebuilds() != 2 {
		t.Errorf("UniformRebuilds: expected a rebuild after a table change, got %d", b.UniformRebuilds())
	}
	if v := b.Batches()[1].Uniforms[0].Value[0]; v != 55 {
		t.Errorf("Uniforms: expected the new band minimum 55, got %v", v)
	}
}

func TestCullResizesBatchesWithBandCount(t *testing.T) {
	g := lineGrid(t, 4, 2, 10, 1)
	f := boxFrustum(200)
	table := lod.NewTable(lod.Level{MaxDistance: 20}, lod.Level{MinDistance: 20, MaxDistance: 50})
	b := NewBuilder()

	b.Cull(viewPlane, &f, g, table, 36)
	if len(b.Batches()) != 2 {
		t.Fatalf("Batches: expected 2, got %d", len(b.Batches()))
	}
	table.SetLevels([]lod.Level{{MaxDistance: 100}})
	b.Cull(viewPlane, &f, g, table, 36)
	if len(b.Batches()) != 1 {
		t.Fatalf("Batches: expected 1 after removing a band, got %d", len(b.Batches()))
	}
	b.Cull(viewPlane, &f, g, nil, 36)
	if len(b.Batches()) != 1 || len(b.Batches()[0].Uniforms) != 0 {
		t.Errorf("Batches: expected a single batch without uniforms once LOD is disabled")
	}
	if b.UniformRebuilds() != 3 {
		t.Errorf("UniformRebuilds: expected 3, got %d", b.UniformRebuilds())
	}
}

func TestCullCapacityIsMonotonic(t *testing.T) {
	f := boxFrustum(1000)
	b := NewBuilder()
	prev := 0
	for _, cells := range []int{4, 16, 8, 2, 32} {
		g := lineGrid(t, cells, 1, 1, 0.5)
		b.Cull(viewPlane, &f, g, nil, 3)
		batch := b.Batches()[0]
		if batch.Capacity() < prev {
			t.Errorf("cells=%d: capacity shrank from %d to %d", cells, prev, batch.Capacity())
		}
		if batch.Capacity() < cells {
			t.Errorf("cells=%d: capacity %d cannot hold every cell", cells, batch.Capacity())
		}
		if batch.Count > cells {
			t.Errorf("cells=%d: Count %d exceeds the cell count", cells, batch.Count)
		}
		prev = batch.Capacity()
	}
	if prev != 32 {
		t.Errorf("Capacity: expected exact fit of 32, got %d", prev)
	}
}

func TestCullDoesNotAllocate(t *testing.T) {
	f := perspectiveFrustum()
	g := randomGrid(t, 3, 4000)
	table := lod.NewTable(lod.Level{MaxDistance: 60}, lod.Level{MinDistance: 50, MaxDistance: 200, DrawCount: 12})
	b := NewBuilder()
	b.Cull(viewPlane, &f, g, table, 36)

	allocs := testing.AllocsPerRun(20, func() {
		b.Cull(viewPlane, &f, g, table, 36)
	})
	if allocs != 0 {
		t.Errorf("Cull: expected no allocations per frame, got %v", allocs)
	}
}

func BenchmarkCull(b *testing.B) {
	f := perspectiveFrustum()
	g := randomGrid(b, 11, 100000)
	table := lod.NewTable(lod.Level{MaxDistance: 60}, lod.Level{MinDistance: 50, MaxDistance: 200, DrawCount: 12})
	builder := NewBuilder()
	builder.Cull(viewPlane, &f, g, table, 36)

	b.ReportAllocs()
	for b.Loop() {
		builder.Cull(viewPlane, &f, g, table, 36)
	}
}
