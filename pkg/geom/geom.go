// Package geom holds the pure geometry routines behind picking and
// serialization: ray/triangle intersection, ray/mesh intersection,
// screen-space unprojection and bounding boxes. All functions are
// deterministic and allocation free.
package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the tolerance used for the parallel test and the minimum
// accepted hit distance.
const Epsilon float32 = 1e-7

// Ray is a half-line starting at Origin and extending along Dir.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// IntersectRayTriangle implements Möller–Trumbore. It returns the ray
// parameter t of the hit, or ok=false when the ray is parallel to the
// triangle plane, misses it, or hits at t <= Epsilon. dir need not be
// normalized; t is then in units of dir's length.
func IntersectRayTriangle(origin, dir, v0, v1, v2 mgl32.Vec3) (t float32, ok bool) {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)

	h := dir.Cross(edge2)
	a := edge1.Dot(h)
	if math32.Abs(a) < Epsilon {
		return 0, false
	}

	f := 1 / a
	s := origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t = f * edge2.Dot(q)
	if t <= Epsilon {
		return 0, false
	}
	return t, true
}

// IntersectRayMesh tests every consecutive index triple and returns the
// smallest positive hit distance. Triples that reference vertices outside
// the vertex slice are skipped, as is a trailing partial triple.
func IntersectRayMesh(origin, dir mgl32.Vec3, vertices []mgl32.Vec3, indices []uint32) (float32, bool) {
	closest := math32.Inf(1)
	hit := false
	n := uint32(len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		t, ok := IntersectRayTriangle(origin, dir, vertices[i0], vertices[i1], vertices[i2])
		if ok && t < closest {
			closest = t
			hit = true
		}
	}

	if !hit {
		return 0, false
	}
	return closest, true
}

// Bounds returns the component-wise minimum and maximum of points.
func Bounds(points []mgl32.Vec3) (min, max mgl32.Vec3, ok bool) {
	if len(points) == 0 {
		return min, max, false
	}
	min, max = points[0], points[0]
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			min[i] = math32.Min(min[i], p[i])
			max[i] = math32.Max(max[i], p[i])
		}
	}
	return min, max, true
}
