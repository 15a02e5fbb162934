package common

import (
	"math"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Sphere is a bounding sphere with a world-space center and radius.
type Sphere struct {
	Center [3]float32
	Radius float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// NewPlane builds a normalized plane passing through point with the given normal.
// A zero-length normal yields the zero plane, for which every point has distance 0.
//
// Parameters:
//   - normal: the plane normal, does not need to be unit length
//   - point: any point lying on the plane
//
// Returns:
//   - Plane: the normalized plane
func NewPlane(normal, point [3]float32) Plane {
	p := Plane{Normal: normal}
	if !normalize(&p) {
		return Plane{}
	}
	p.Distance = -(p.Normal[0]*point[0] + p.Normal[1]*point[1] + p.Normal[2]*point[2])
	return p
}

// PlaneDistanceToPoint returns the signed distance from point to the plane.
// Positive values lie on the side the normal points to.
//
// Parameters:
//   - p: the plane, expected to be normalized
//   - point: the point to measure
//
// Returns:
//   - float32: the signed distance
func PlaneDistanceToPoint(p Plane, point [3]float32) float32 {
	return p.Normal[0]*point[0] + p.Normal[1]*point[1] + p.Normal[2]*point[2] + p.Distance
}

// FrustumIntersectsSphere reports whether any part of the sphere lies inside the frustum.
// The test is conservative: a sphere is rejected only when it is entirely behind one plane,
// so spheres near frustum corners may be accepted although they are not visible.
// A sphere exactly touching a plane is accepted.
//
// Parameters:
//   - f: the frustum with inward facing, normalized planes
//   - s: the sphere to test
//
// Returns:
//   - bool: false only if the sphere is completely outside
func FrustumIntersectsSphere(f *Frustum, s Sphere) bool {
	for i := range f.Planes {
		if PlaneDistanceToPoint(f.Planes[i], s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined View * Projection matrix.
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row.
	// Plane = row3 +/- rowN, with row r spread over indices r, r+4, r+8, r+12.
	combine := func(row int, sign float32) Plane {
		return Plane{
			Normal: [3]float32{
				viewProj[3] + sign*viewProj[row],
				viewProj[7] + sign*viewProj[4+row],
				viewProj[11] + sign*viewProj[8+row],
			},
			Distance: viewProj[15] + sign*viewProj[12+row],
		}
	}

	f.Planes[FrustumLeft] = combine(0, 1)
	f.Planes[FrustumRight] = combine(0, -1)
	f.Planes[FrustumBottom] = combine(1, 1)
	f.Planes[FrustumTop] = combine(1, -1)
	f.Planes[FrustumNear] = combine(2, 1)
	f.Planes[FrustumFar] = combine(2, -1)

	for i := range f.Planes {
		normalize(&f.Planes[i])
	}

	return f
}

// normalize scales a plane so that its normal has unit length.
// Returns false and leaves the plane untouched when the normal has zero length.
func normalize(p *Plane) bool {
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length == 0 {
		return false
	}
	invLen := 1.0 / length
	p.Normal[0] *= invLen
	p.Normal[1] *= invLen
	p.Normal[2] *= invLen
	p.Distance *= invLen
	return true
}
