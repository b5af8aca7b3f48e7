package geom

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b float32) bool {
	return math32.Abs(a-b) < 1e-3
}

func TestIntersectRayTriangle(t *testing.T) {
	v0 := mgl32.Vec3{0, 0, 0}
	v1 := mgl32.Vec3{1, 0, 0}
	v2 := mgl32.Vec3{0, 1, 0}

	tests := []struct {
		name   string
		origin mgl32.Vec3
		dir    mgl32.Vec3
		wantOK bool
		wantT  float32
	}{
		{"straight hit", mgl32.Vec3{0.25, 0.25, 5}, mgl32.Vec3{0, 0, -1}, true, 5},
		{"unnormalized dir", mgl32.Vec3{0.25, 0.25, 5}, mgl32.Vec3{0, 0, -2}, true, 2.5},
		{"parallel", mgl32.Vec3{0.25, 0.25, 5}, mgl32.Vec3{1, 0, 0}, false, 0},
		{"outside u", mgl32.Vec3{-0.5, 0.25, 5}, mgl32.Vec3{0, 0, -1}, false, 0},
		{"outside v", mgl32.Vec3{0.25, -0.5, 5}, mgl32.Vec3{0, 0, -1}, false, 0},
		{"outside u+v", mgl32.Vec3{0.8, 0.8, 5}, mgl32.Vec3{0, 0, -1}, false, 0},
		{"behind origin", mgl32.Vec3{0.25, 0.25, 5}, mgl32.Vec3{0, 0, 1}, false, 0},
		{"origin on plane", mgl32.Vec3{0.25, 0.25, 0}, mgl32.Vec3{0, 0, -1}, false, 0},
		{"back face", mgl32.Vec3{0.25, 0.25, -3}, mgl32.Vec3{0, 0, 1}, true, 3},
		{"vertex hit", mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, -1}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IntersectRayTriangle(tt.origin, tt.dir, v0, v1, v2)
			if ok != tt.wantOK {
				t.Fatalf("got ok=%v, want %v", ok, tt.wantOK)
			}
			if ok && !approx(got, tt.wantT) {
				t.Errorf("got t=%v, want %v", got, tt.wantT)
			}
		})
	}
}

func TestIntersectRayTriangleDegenerate(t *testing.T) {
	p := mgl32.Vec3{1, 1, 1}
	if _, ok := IntersectRayTriangle(mgl32.Vec3{1, 1, 5}, mgl32.Vec3{0, 0, -1}, p, p, p); ok {
		t.Error("degenerate triangle should never be hit")
	}
}

func TestIntersectRayMeshNearest(t *testing.T) {
	// Two stacked quads facing +Z at z=0 and z=2.
	verts := []mgl32.Vec3{
		{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0},
		{-1, -1, 2}, {1, -1, 2}, {1, 1, 2}, {-1, 1, 2},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7}

	got, ok := IntersectRayMesh(mgl32.Vec3{0.1, 0.2, 10}, mgl32.Vec3{0, 0, -1}, verts, indices)
	if !ok {
		t.Fatal("expected hit")
	}
	if !approx(got, 8) {
		t.Errorf("got t=%v, want 8", got)
	}
}

func TestIntersectRayMeshNoEarlyExit(t *testing.T) {
	// The far triangle comes first in index order.
	verts := []mgl32.Vec3{
		{-1, -1, 0}, {1, -1, 0}, {0, 1, 0},
		{-1, -1, 4}, {1, -1, 4}, {0, 1, 4},
	}
	indices := []uint32{0, 1, 2, 3, 4, 5}

	got, ok := IntersectRayMesh(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, -1}, verts, indices)
	if !ok || !approx(got, 6) {
		t.Errorf("got (%v, %v), want (6, true)", got, ok)
	}
}

func TestIntersectRayMeshSkipsBadIndices(t *testing.T) {
	verts := []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}}

	tests := []struct {
		name    string
		indices []uint32
		wantOK  bool
	}{
		{"empty", nil, false},
		{"out of range", []uint32{0, 1, 7}, false},
		{"partial trailing", []uint32{0, 1}, false},
		{"bad then good", []uint32{0, 9, 2, 0, 1, 2}, true},
		{"good then partial", []uint32{0, 1, 2, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := IntersectRayMesh(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, -1}, verts, tt.indices)
			if ok != tt.wantOK {
				t.Errorf("got ok=%v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	if _, _, ok := Bounds(nil); ok {
		t.Error("expected ok=false for no points")
	}

	min, max, ok := Bounds([]mgl32.Vec3{{1, -2, 3}, {-4, 5, 0}, {2, 2, -6}})
	if !ok {
		t.Fatal("expected ok")
	}
	if min != (mgl32.Vec3{-4, -2, -6}) {
		t.Errorf("got min %v, want [-4 -2 -6]", min)
	}
	if max != (mgl32.Vec3{2, 5, 3}) {
		t.Errorf("got max %v, want [2 5 3]", max)
	}
}

func TestRayAt(t *testing.T) {
	r := Ray{Origin: mgl32.Vec3{1, 2, 3}, Dir: mgl32.Vec3{0, 0, -1}}
	if got := r.At(2); got != (mgl32.Vec3{1, 2, 1}) {
		t.Errorf("got %v, want [1 2 1]", got)
	}
}
