package model

import (
	"math"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-cull/engine/loader"
)

// Cube returns a unit cube centered on the origin with flat per-face normals.
//
// Returns:
//   - *loader.Mesh: 24 vertices and 36 indices
func Cube() *loader.Mesh {
	faces := [6]struct{ n, u, v [3]float32 }{
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
	}
	m := &loader.Mesh{
		Name:      "cube",
		Positions: make([][3]float32, 0, 24),
		Normals:   make([][3]float32, 0, 24),
		Indices:   make([]uint32, 0, 36),
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range faces {
		base := uint32(len(m.Positions))
		for _, c := range corners {
			var p [3]float32
			for a := range 3 {
				p[a] = 0.5 * (f.n[a] + c[0]*f.u[a] + c[1]*f.v[a])
			}
			m.Positions = append(m.Positions, p)
			m.Normals = append(m.Normals, f.n)
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// Field scatters count instances over a square lattice in the XZ plane, each jittered inside
// its lattice slot and tinted by its distance from the center.
// The same seed always produces the same field.
//
// Parameters:
//   - count: the number of instances
//   - spacing: the lattice pitch in world units
//   - seed: the random seed
//
// Returns:
//   - []GPUInstance: the instances in lattice order
func Field(count int, spacing float32, seed uint64) []GPUInstance {
	if count <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	side := int(math.Ceil(math.Sqrt(float64(count))))
	half := float32(side-1) * spacing / 2
	maxDist := max(half*float32(math.Sqrt2), 1)

	out := make([]GPUInstance, 0, count)
	for i := range count {
		x := float32(i%side)*spacing - half + (rng.Float32()-0.5)*spacing*0.5
		z := float32(i/side)*spacing - half + (rng.Float32()-0.5)*spacing*0.5
		y := (rng.Float32() - 0.5) * spacing
		d := float32(math.Sqrt(float64(x*x+z*z))) / maxDist
		out = append(out, GPUInstance{
			Position: [3]float32{x, y, z},
			Scale:    0.5 + rng.Float32()*0.5,
			Color:    [4]float32{0.3 + 0.7*d, 0.8 - 0.5*d, 1 - 0.6*d, 1},
		})
	}
	return out
}
