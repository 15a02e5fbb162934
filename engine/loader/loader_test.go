package loader

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeScene writes a glTF file with two meshes and a small node hierarchy:
//
//	group (T 10,0,0 S 2) -> a (crate, T 1,0,0), b (other, T 0,1,0)
//	c (crate, T 0,0,-5 R 90deg Y S 3)
func writeScene(t *testing.T) string {
	t.Helper()

	buf := make([]byte, 0, 44)
	for _, v := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	for _, i := range []uint16{0, 1, 2} {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}
	buf = append(buf, 0, 0)
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf)

	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0, 3]}],
  "nodes": [
    {"name": "group", "translation": [10, 0, 0], "scale": [2, 2, 2], "children": [1, 2]},
    {"name": "a", "mesh": 0, "translation": [1, 0, 0]},
    {"name": "b", "mesh": 1, "translation": [0, 1, 0]},
    {"name": "c", "mesh": 0, "translation": [0, 0, -5], "rotation": [0, 0.7071068, 0, 0.7071068], "scale": [3, 3, 3]}
  ],
  "meshes": [
    {"name": "crate", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]},
    {"name": "other", "primitives": [{"attributes": {"POSITION": 0}}]}
  ],
  "buffers": [{"byteLength": %d, "uri": %q}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36, "target": 34962},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6, "target": 34963}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ]
}`, len(buf), uri)

	path := filepath.Join(t.TempDir(), "scene.gltf")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

func near(a, b [3]float32) bool {
	for i := range 3 {
		if math.Abs(float64(a[i]-b[i])) > 1e-4 {
			return false
		}
	}
	return true
}

func TestLoadInstancePositions(t *testing.T) {
	path := writeScene(t)

	positions, scales, err := LoadInstancePositions(path, "crate")
	if err != nil {
		t.Fatalf("LoadInstancePositions: unexpected error %v", err)
	}
	if len(positions) != 2 || len(scales) != 2 {
		t.Fatalf("expected 2 instances, got %d positions and %d scales", len(positions), len(scales))
	}
	if !near(positions[0], [3]float32{12, 0, 0}) {
		t.Errorf("positions[0]: expected {12 0 0}, got %v", positions[0])
	}
	if !near(positions[1], [3]float32{0, 0, -5}) {
		t.Errorf("positions[1]: expected {0 0 -5}, got %v", positions[1])
	}
	if math.Abs(float64(scales[0]-2)) > 1e-4 || math.Abs(float64(scales[1]-3)) > 1e-4 {
		t.Errorf("scales: expected [2 3], got %v", scales)
	}
}

func TestInstancesAllMeshes(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	instances, err := l.Instances(writeScene(t), "")
	if err != nil {
		t.Fatalf("Instances: unexpected error %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(instances) != len(want) {
		t.Fatalf("expected %d instances, got %d", len(want), len(instances))
	}
	for i, name := range want {
		if instances[i].Node != name {
			t.Errorf("instances[%d]: expected node %q, got %q", i, name, instances[i].Node)
		}
	}
	if instances[1].Mesh != "other" || !near(instances[1].Position, [3]float32{10, 2, 0}) {
		t.Errorf("instances[1]: expected other at {10 2 0}, got %s at %v", instances[1].Mesh, instances[1].Position)
	}
}

func TestInstancesMeshNotFound(t *testing.T) {
	_, _, err := LoadInstancePositions(writeScene(t), "missing")
	if !errors.Is(err, ErrMeshNotFound) {
		t.Errorf("expected ErrMeshNotFound, got %v", err)
	}
}

func TestMesh(t *testing.T) {
	path := writeScene(t)
	l := NewLoader(BackendTypeGLTF)

	m, err := l.Mesh(path, "crate")
	if err != nil {
		t.Fatalf("Mesh: unexpected error %v", err)
	}
	if len(m.Positions) != 3 || m.Positions[1] != [3]float32{1, 0, 0} {
		t.Errorf("Positions: unexpected %v", m.Positions)
	}
	if len(m.Indices) != 3 || m.Indices[2] != 2 {
		t.Errorf("Indices: unexpected %v", m.Indices)
	}

	other, err := l.Mesh(path, "other")
	if err != nil {
		t.Fatalf("Mesh(other): unexpected error %v", err)
	}
	if len(other.Indices) != 3 || other.Indices[1] != 1 {
		t.Errorf("Mesh(other): expected generated indices, got %v", other.Indices)
	}

	if _, err := l.Mesh(path, "missing"); !errors.Is(err, ErrMeshNotFound) {
		t.Errorf("Mesh(missing): expected ErrMeshNotFound, got %v", err)
	}
}

func TestLoaderCachesAndForgets(t *testing.T) {
	path := writeScene(t)
	l := NewLoader(BackendTypeGLTF)
	if _, err := l.Instances(path, ""); err != nil {
		t.Fatalf("Instances: unexpected error %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := l.Instances(path, ""); err != nil {
		t.Errorf("Instances: expected cached document, got %v", err)
	}
	l.Forget(path)
	if _, err := l.Instances(path, ""); err == nil {
		t.Error("Instances: expected an error after Forget on a removed file")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	if _, err := l.Instances("scene.obj", ""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
