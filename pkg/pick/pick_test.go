package pick

import (
	"testing"

	"github.com/chazu/kiln/pkg/geom"
	"github.com/chazu/kiln/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// addQuad adds a 2x2 quad facing +Z at the given depth.
func addQuad(t *testing.T, s *scene.Scene, parent scene.NodeID, name string, z float32) *scene.Node {
	t.Helper()
	n, err := s.AddChild(parent, name, scene.Mesh)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	n.Mesh.Vertices = []mgl32.Vec3{{-1, -1, z}, {1, -1, z}, {1, 1, z}, {-1, 1, z}}
	n.Mesh.Indices = []uint32{0, 1, 2, 0, 2, 3}
	return n
}

func camera() (view, proj mgl32.Mat4) {
	view = mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj = mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 0.1, 1000)
	return view, proj
}

var (
	viewport = mgl32.Vec2{800, 600}
	center   = mgl32.Vec2{400, 300}
)

func TestPickNearest(t *testing.T) {
	s := scene.New()
	grp, _ := s.AddChild(s.Root, "Group", scene.Xform)
	addQuad(t, s, s.Root, "Back", -2)
	front := addQuad(t, s, grp.ID, "Front", 1)
	addQuad(t, s, s.Root, "Middle", 0)

	view, proj := camera()
	hit, ok := Pick(s, view, proj, viewport, center)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Node != front {
		t.Errorf("got %q, want Front", hit.Node.Name)
	}
	if d := hit.Distance - 8.9; d < -1e-3 || d > 1e-3 {
		t.Errorf("got distance %v, want 8.9", hit.Distance)
	}
}

func TestPickTieKeepsFirstInTraversal(t *testing.T) {
	s := scene.New()
	first := addQuad(t, s, s.Root, "First", 0)
	addQuad(t, s, s.Root, "Second", 0)

	view, proj := camera()
	hit, ok := Pick(s, view, proj, viewport, center)
	if !ok || hit.Node != first {
		t.Errorf("got %v, want First", hit.Node)
	}
}

func TestPickMisses(t *testing.T) {
	view, proj := camera()

	withQuad := scene.New()
	addQuad(t, withQuad, withQuad.Root, "Quad", 0)

	emptyMesh := scene.New()
	emptyMesh.AddChild(emptyMesh.Root, "Empty", scene.Mesh)

	tests := []struct {
		name     string
		s        *scene.Scene
		viewport mgl32.Vec2
		cursor   mgl32.Vec2
	}{
		{"nil scene", nil, viewport, center},
		{"empty scene", scene.New(), viewport, center},
		{"mesh without geometry", emptyMesh, viewport, center},
		{"cursor off the quad", withQuad, viewport, mgl32.Vec2{5, 5}},
		{"zero viewport", withQuad, mgl32.Vec2{0, 0}, center},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hit, ok := Pick(tt.s, view, proj, tt.viewport, tt.cursor); ok {
				t.Errorf("expected miss, got %q", hit.Node.Name)
			}
		})
	}
}

func TestPickIgnoresNonMeshNodes(t *testing.T) {
	s := scene.New()
	x, _ := s.AddChild(s.Root, "Group", scene.Xform)
	quad := addQuad(t, s, x.ID, "Quad", 0)

	view, proj := camera()
	hit, ok := Pick(s, view, proj, viewport, center)
	if !ok || hit.Node != quad {
		t.Errorf("got %v, want Quad", hit.Node)
	}
}

func TestPickRayBehindCamera(t *testing.T) {
	s := scene.New()
	addQuad(t, s, s.Root, "Behind", 20)

	ray := geom.Ray{Origin: mgl32.Vec3{0, 0, 10}, Dir: mgl32.Vec3{0, 0, -1}}
	if _, ok := PickRay(s, ray); ok {
		t.Error("geometry behind the ray origin must not be picked")
	}
}

func TestPickDoesNotMutate(t *testing.T) {
	s := scene.New()
	q := addQuad(t, s, s.Root, "Quad", 0)
	before := append([]mgl32.Vec3(nil), q.Mesh.Vertices...)

	view, proj := camera()
	Pick(s, view, proj, viewport, center)

	for i := range before {
		if q.Mesh.Vertices[i] != before[i] {
			t.Fatal("pick modified mesh data")
		}
	}
	if s.Len() != 2 {
		t.Errorf("got Len()=%d, want 2", s.Len())
	}
}
