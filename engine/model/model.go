// Package model pairs a mesh with its instances and lays the instances out in the buffer
// order of their instance grid, ready for culled multi-draw rendering.
package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/grid"
	"github.com/Carmen-Shannon/oxy-cull/engine/loader"
)

// ErrEmptyMesh is returned by NewModel for a mesh without vertices.
var ErrEmptyMesh = errors.New("mesh has no vertices")

// model is the implementation of the Model interface.
type model struct {
	name           string
	mesh           *loader.Mesh
	grid           *grid.InstanceGrid
	instances      []GPUInstance
	boundingRadius float32

	cellSize   float32
	population int
}

// Model is an instanced mesh. Instances are stored in grid order: cell i owns the instances
// [Grid().CellOffsets[i], Grid().CellOffsets[i+1]).
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Mesh retrieves the source geometry.
	//
	// Returns:
	//   - *loader.Mesh: the mesh
	Mesh() *loader.Mesh

	// Grid retrieves the instance partition.
	//
	// Returns:
	//   - *grid.InstanceGrid: the grid
	Grid() *grid.InstanceGrid

	// Instances retrieves the instances in buffer order.
	//
	// Returns:
	//   - []GPUInstance: the instances
	Instances() []GPUInstance

	// BoundingRadius retrieves the unscaled mesh radius around its origin.
	//
	// Returns:
	//   - float32: the radius
	BoundingRadius() float32

	// IndexCount retrieves the number of indices drawn per instance.
	//
	// Returns:
	//   - uint32: the index count
	IndexCount() uint32

	// VertexData serializes the mesh as GPUVertex records.
	//
	// Returns:
	//   - []byte: the vertex buffer contents
	VertexData() []byte

	// IndexData serializes the mesh indices as uint32 values.
	//
	// Returns:
	//   - []byte: the index buffer contents
	IndexData() []byte

	// InstanceData serializes the instances as GPUInstance records in buffer order.
	//
	// Returns:
	//   - []byte: the instance buffer contents
	InstanceData() []byte

	// InstanceFloats flattens the instances in buffer order, GPUInstanceFloats values each.
	//
	// Returns:
	//   - []float32: the instance texel data
	InstanceFloats() []float32
}

var _ Model = &model{}

// NewModel partitions the instances of a mesh into a grid and reorders them to match.
// Each instance is bounded by the mesh radius times its scale.
//
// Parameters:
//   - mesh: the geometry, must have positions
//   - instances: the instances in any order
//   - options: functional options to configure the model
//
// Returns:
//   - Model: the model
//   - error: ErrEmptyMesh, or the grid.Build error
func NewModel(mesh *loader.Mesh, instances []GPUInstance, options ...ModelBuilderOption) (Model, error) {
	if mesh == nil || len(mesh.Positions) == 0 {
		return nil, ErrEmptyMesh
	}
	m := &model{
		name: mesh.Name,
		mesh: mesh,
	}
	for _, opt := range options {
		opt(m)
	}
	m.boundingRadius = ComputeBoundingRadius(mesh.Positions)

	positions := make([][3]float32, len(instances))
	radii := make([]float32, len(instances))
	for i, inst := range instances {
		positions[i] = inst.Position
		radii[i] = m.boundingRadius * common.Coalesce(inst.Scale, 1)
	}

	gridOpts := []grid.GridBuilderOption{grid.WithInstanceRadii(radii)}
	if m.cellSize > 0 {
		gridOpts = append(gridOpts, grid.WithCellSize(m.cellSize))
	}
	if m.population > 0 {
		gridOpts = append(gridOpts, grid.WithTargetCellPopulation(m.population))
	}
	g, order, err := grid.Build(positions, gridOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to partition model %s: %w", m.name, err)
	}

	m.grid = g
	m.instances = make([]GPUInstance, len(order))
	for i, src := range order {
		m.instances[i] = instances[src]
	}
	common.Logger().Debug("[Model] created model", "name", m.name, "instances", len(m.instances), "cells", g.CellCount)
	return m, nil
}

// FromLoader builds a model from the placements of a mesh in a scene file.
//
// Parameters:
//   - l: the loader
//   - path: the scene file
//   - meshName: the mesh, empty selects the first mesh
//   - color: the tint given to every instance
//   - options: functional options to configure the model
//
// Returns:
//   - Model: the model
//   - error: a loader or partition error
func FromLoader(l loader.Loader, path, meshName string, color [4]float32, options ...ModelBuilderOption) (Model, error) {
	mesh, err := l.Mesh(path, meshName)
	if err != nil {
		return nil, err
	}
	placements, err := l.Instances(path, mesh.Name)
	if err != nil {
		return nil, err
	}
	instances := make([]GPUInstance, len(placements))
	for i, p := range placements {
		instances[i] = GPUInstance{Position: p.Position, Scale: p.Scale, Color: color}
	}
	return NewModel(mesh, instances, options...)
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Mesh() *loader.Mesh {
	return m.mesh
}

func (m *model) Grid() *grid.InstanceGrid {
	return m.grid
}

func (m *model) Instances() []GPUInstance {
	return m.instances
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) IndexCount() uint32 {
	if len(m.mesh.Indices) == 0 {
		return uint32(len(m.mesh.Positions))
	}
	return uint32(len(m.mesh.Indices))
}

func (m *model) VertexData() []byte {
	size := (&GPUVertex{}).Size()
	out := make([]byte, 0, len(m.mesh.Positions)*size)
	for i, p := range m.mesh.Positions {
		v := GPUVertex{Position: p}
		if i < len(m.mesh.Normals) {
			v.Normal = m.mesh.Normals[i]
		}
		out = append(out, v.Marshal()...)
	}
	return out
}

func (m *model) IndexData() []byte {
	if len(m.mesh.Indices) == 0 {
		return nil
	}
	return common.SliceToBytes(m.mesh.Indices)
}

func (m *model) InstanceData() []byte {
	size := (&GPUInstance{}).Size()
	out := make([]byte, 0, len(m.instances)*size)
	for i := range m.instances {
		out = append(out, m.instances[i].Marshal()...)
	}
	return out
}

func (m *model) InstanceFloats() []float32 {
	out := make([]float32, 0, len(m.instances)*GPUInstanceFloats)
	for i := range m.instances {
		out = m.instances[i].AppendFloats(out)
	}
	return out
}
