// Package loader reads instance placements and meshes from scene files.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrMeshNotFound is returned when no mesh or node matches the requested mesh name.
	ErrMeshNotFound = errors.New("mesh not found")
	// ErrUnsupportedFormat is returned for files no backend can read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// LoaderBackendType selects the file format backend.
type LoaderBackendType int

const (
	BackendTypeGLTF LoaderBackendType = iota
)

// Instance is one placement of a mesh in the scene hierarchy.
type Instance struct {
	Node      string
	Mesh      string
	Transform mgl32.Mat4 // node to world
	Position  [3]float32
	Scale     float32 // largest axis scale of Transform, usable as a bounding radius factor
}

// Mesh is the geometry of the first primitive of a mesh.
type Mesh struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	Indices   []uint32
}

type loader struct {
	backend loaderBackend
}

// Loader reads instances and meshes through a format backend.
// Parsed files are cached per path until Forget is called. Safe for concurrent use.
type Loader interface {
	// Instances returns every node of the default scene that references the named mesh,
	// in depth-first scene order.
	//
	// Parameters:
	//   - path: the file to read
	//   - meshName: the mesh to look for, empty selects every mesh
	//
	// Returns:
	//   - []Instance: the placements, in world space
	//   - error: ErrMeshNotFound if no node references the mesh, or a read error
	Instances(path, meshName string) ([]Instance, error)

	// Mesh returns the geometry of the named mesh.
	//
	// Parameters:
	//   - path: the file to read
	//   - meshName: the mesh to read, empty selects the first mesh
	//
	// Returns:
	//   - *Mesh: the geometry
	//   - error: ErrMeshNotFound if the mesh does not exist, or a read error
	Mesh(path, meshName string) (*Mesh, error)

	// Forget drops the cached file for path.
	//
	// Parameters:
	//   - path: the file to forget
	Forget(path string)
}

var _ Loader = &loader{}

// NewLoader creates a Loader for the given backend type.
//
// Parameters:
//   - backendType: the file format backend
//   - options: functional options to configure the loader
//
// Returns:
//   - Loader: the new loader
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{}
	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// LoadInstancePositions reads the world positions and scales of every node referencing
// meshName from a glTF or GLB file.
//
// Parameters:
//   - path: the file to read
//   - meshName: the mesh to look for, empty selects every mesh
//
// Returns:
//   - [][3]float32: world positions
//   - []float32: per-instance scales in the same order
//   - error: an error if the file cannot be read or the mesh is not referenced
func LoadInstancePositions(path, meshName string) ([][3]float32, []float32, error) {
	instances, err := NewLoader(BackendTypeGLTF).Instances(path, meshName)
	if err != nil {
		return nil, nil, err
	}
	positions := make([][3]float32, len(instances))
	scales := make([]float32, len(instances))
	for i, inst := range instances {
		positions[i] = inst.Position
		scales[i] = inst.Scale
	}
	return positions, scales, nil
}

func (l *loader) Instances(path, meshName string) ([]Instance, error) {
	if err := l.check(path); err != nil {
		return nil, err
	}
	instances, err := l.backend.Instances(path, meshName)
	if err != nil {
		return nil, fmt.Errorf("failed to load instances from %s: %w", path, err)
	}
	return instances, nil
}

func (l *loader) Mesh(path, meshName string) (*Mesh, error) {
	if err := l.check(path); err != nil {
		return nil, err
	}
	m, err := l.backend.Mesh(path, meshName)
	if err != nil {
		return nil, fmt.Errorf("failed to load mesh from %s: %w", path, err)
	}
	return m, nil
}

func (l *loader) Forget(path string) {
	l.backend.Forget(path)
}

// check rejects paths the backend cannot read.
func (l *loader) check(path string) error {
	if l.backend == nil {
		return fmt.Errorf("failed to load %s: %w: no backend", path, ErrUnsupportedFormat)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !l.backend.Supports(ext) {
		return fmt.Errorf("failed to load %s: %w: %q", path, ErrUnsupportedFormat, ext)
	}
	return nil
}
