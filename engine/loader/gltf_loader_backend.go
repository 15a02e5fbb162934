package loader

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

var identity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

type gltfLoaderBackend struct {
	mu   sync.Mutex
	docs map[string]*gltf.Document
}

var _ loaderBackend = &gltfLoaderBackend{}

func newGLTFLoaderBackend() *gltfLoaderBackend {
	return &gltfLoaderBackend{docs: make(map[string]*gltf.Document)}
}

func (b *gltfLoaderBackend) Supports(ext string) bool {
	return ext == ".gltf" || ext == ".glb"
}

func (b *gltfLoaderBackend) Forget(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, path)
}

func (b *gltfLoaderBackend) open(path string) (*gltf.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if doc, ok := b.docs[path]; ok {
		return doc, nil
	}
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gltf: %w", err)
	}
	b.docs[path] = doc
	return doc, nil
}

func (b *gltfLoaderBackend) Instances(path, meshName string) ([]Instance, error) {
	doc, err := b.open(path)
	if err != nil {
		return nil, err
	}

	var out []Instance
	var walk func(idx int, parent mgl32.Mat4, depth int)
	walk = func(idx int, parent mgl32.Mat4, depth int) {
		if idx < 0 || idx >= len(doc.Nodes) || depth > len(doc.Nodes) {
			return
		}
		gn := doc.Nodes[idx]
		world := parent.Mul4(localTransform(gn))
		if gn.Mesh != nil && *gn.Mesh < len(doc.Meshes) {
			name := doc.Meshes[*gn.Mesh].Name
			if meshName == "" || name == meshName {
				out = append(out, Instance{
					Node:      gn.Name,
					Mesh:      name,
					Transform: world,
					Position:  [3]float32(world.Col(3).Vec3()),
					Scale:     maxScale(world),
				})
			}
		}
		for _, c := range gn.Children {
			walk(c, world, depth+1)
		}
	}
	for _, root := range roots(doc) {
		walk(root, mgl32.Ident4(), 0)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMeshNotFound, meshName)
	}
	return out, nil
}

func (b *gltfLoaderBackend) Mesh(path, meshName string) (*Mesh, error) {
	doc, err := b.open(path)
	if err != nil {
		return nil, err
	}

	var gm *gltf.Mesh
	for _, m := range doc.Meshes {
		if meshName == "" || m.Name == meshName {
			gm = m
			break
		}
	}
	if gm == nil || len(gm.Primitives) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMeshNotFound, meshName)
	}
	prim := gm.Primitives[0]

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("mesh %q has no POSITION attribute", gm.Name)
	}
	m := &Mesh{Name: gm.Name}
	if m.Positions, err = modeler.ReadPosition(doc, doc.Accessors[posIdx], nil); err != nil {
		return nil, fmt.Errorf("failed to read positions of %q: %w", gm.Name, err)
	}
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if m.Normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("failed to read normals of %q: %w", gm.Name, err)
		}
	}
	if prim.Indices != nil {
		if m.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, fmt.Errorf("failed to read indices of %q: %w", gm.Name, err)
		}
	} else {
		m.Indices = make([]uint32, len(m.Positions))
		for i := range m.Indices {
			m.Indices[i] = uint32(i)
		}
	}
	return m, nil
}

// roots returns the root nodes of the default scene, or every parentless node without one.
func roots(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var out []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			out = append(out, i)
		}
	}
	return out
}

// localTransform composes the node's TRS, or returns its explicit matrix when one is set.
func localTransform(gn *gltf.Node) mgl32.Mat4 {
	if gn.Matrix != identity && gn.Matrix != ([16]float64{}) {
		var m mgl32.Mat4
		for i, v := range gn.Matrix {
			m[i] = float32(v)
		}
		return m
	}
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault() // [x, y, z, w]
	s := gn.ScaleOrDefault()
	rot := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

// maxScale returns the length of the longest basis vector of m.
func maxScale(m mgl32.Mat4) float32 {
	var s float32
	for c := range 3 {
		s = max(s, m.Col(c).Vec3().Len())
	}
	if math.IsNaN(float64(s)) {
		return 1
	}
	return s
}
