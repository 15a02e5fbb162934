package model

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-cull/engine/grid"
	"github.com/Carmen-Shannon/oxy-cull/engine/loader"
)

func TestCubeShape(t *testing.T) {
	c := Cube()
	if len(c.Positions) != 24 || len(c.Normals) != 24 || len(c.Indices) != 36 {
		t.Fatalf("Cube: expected 24/24/36, got %d/%d/%d", len(c.Positions), len(c.Normals), len(c.Indices))
	}
	for i, p := range c.Positions {
		for a := range 3 {
			if p[a] != 0.5 && p[a] != -0.5 {
				t.Fatalf("vertex %d: expected a unit cube corner, got %v", i, p)
			}
		}
	}
	want := float32(math.Sqrt(0.75))
	if r := ComputeBoundingRadius(c.Positions); math.Abs(float64(r-want)) > 1e-6 {
		t.Errorf("ComputeBoundingRadius: expected %v, got %v", want, r)
	}
}

func TestFieldIsDeterministic(t *testing.T) {
	a, b := Field(50, 2, 7), Field(50, 2, 7)
	if len(a) != 50 {
		t.Fatalf("Field: expected 50 instances, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Field: instance %d differs between runs with the same seed", i)
		}
	}
	if Field(0, 2, 7) != nil {
		t.Errorf("Field(0): expected nil")
	}
}

func TestNewModelOrdersInstancesByCell(t *testing.T) {
	instances := []GPUInstance{
		{Position: [3]float32{0, 0, 0}, Scale: 1, Color: [4]float32{1, 0, 0, 1}},
		{Position: [3]float32{50, 0, 0}, Scale: 1, Color: [4]float32{0, 1, 0, 1}},
		{Position: [3]float32{0.2, 0, 0}, Scale: 2, Color: [4]float32{0, 0, 1, 1}},
	}
	m, err := NewModel(Cube(), instances, WithName("crates"), WithCellSize(10))
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if m.Name() != "crates" {
		t.Errorf("Name: expected crates, got %s", m.Name())
	}
	g := m.Grid()
	if g.CellCount != 2 {
		t.Fatalf("CellCount: expected 2, got %d", g.CellCount)
	}
	got := m.Instances()
	if got[0] != instances[0] || got[1] != instances[2] || got[2] != instances[1] {
		t.Errorf("Instances: expected grid order 0, 2, 1, got %v", got)
	}

	// the scaled instance widens its cell sphere
	s := g.Sphere(0)
	if s.Radius < 0.1+2*m.BoundingRadius()-1e-5 {
		t.Errorf("Sphere(0): radius %v does not cover the scaled instance", s.Radius)
	}
}

func TestNewModelRejectsEmpty(t *testing.T) {
	if _, err := NewModel(&loader.Mesh{Name: "none"}, nil); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("NewModel: expected ErrEmptyMesh, got %v", err)
	}
	if _, err := NewModel(Cube(), nil); !errors.Is(err, grid.ErrNoInstances) {
		t.Errorf("NewModel: expected ErrNoInstances, got %v", err)
	}
}

func TestBufferData(t *testing.T) {
	instances := Field(4, 3, 1)
	m, err := NewModel(Cube(), instances)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if n := len(m.VertexData()); n != 24*24 {
		t.Errorf("VertexData: expected %d bytes, got %d", 24*24, n)
	}
	if n := len(m.IndexData()); n != 36*4 {
		t.Errorf("IndexData: expected %d bytes, got %d", 36*4, n)
	}
	if m.IndexCount() != 36 {
		t.Errorf("IndexCount: expected 36, got %d", m.IndexCount())
	}

	data := m.InstanceData()
	floats := m.InstanceFloats()
	if len(data) != 4*32 || len(floats) != 4*GPUInstanceFloats {
		t.Fatalf("instance data: expected 128 bytes and 32 floats, got %d and %d", len(data), len(floats))
	}
	for i, f := range floats {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])); got != f {
			t.Fatalf("value %d: bytes hold %v, floats hold %v", i, got, f)
		}
	}
	if floats[3] != m.Instances()[0].Scale {
		t.Errorf("InstanceFloats: expected the scale in the fourth slot")
	}
}
