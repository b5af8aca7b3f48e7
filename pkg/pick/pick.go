// Package pick resolves a cursor position to the nearest mesh under it.
package pick

import (
	"github.com/chazu/kiln/pkg/geom"
	"github.com/chazu/kiln/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// Hit is the result of a successful pick.
type Hit struct {
	Node     *scene.Node
	Distance float32 // along the normalized ray, from the near plane
}

// Pick casts a ray from the cursor into the scene and returns the closest
// mesh it hits. cursor is in pixels from the top-left of a viewport of the
// given size. When two meshes hit at exactly the same distance, the one
// reached first in scene traversal wins. Pick never mutates the scene.
func Pick(s *scene.Scene, view, proj mgl32.Mat4, viewport, cursor mgl32.Vec2) (Hit, bool) {
	if s == nil {
		return Hit{}, false
	}
	ray, ok := geom.ScreenRay(view, proj, viewport, cursor)
	if !ok {
		return Hit{}, false
	}
	return PickRay(s, ray)
}

// PickRay returns the closest mesh hit by ray.
func PickRay(s *scene.Scene, ray geom.Ray) (Hit, bool) {
	var best Hit
	found := false
	for _, n := range s.Meshes() {
		if n.Mesh.IsEmpty() {
			continue
		}
		t, ok := geom.IntersectRayMesh(ray.Origin, ray.Dir, n.Mesh.Vertices, n.Mesh.Indices)
		if ok && (!found || t < best.Distance) {
			best = Hit{Node: n, Distance: t}
			found = true
		}
	}
	return best, found
}
