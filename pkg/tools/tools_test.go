package tools

import (
	"errors"
	"testing"

	"github.com/chazu/kiln/pkg/kernel"
	"github.com/chazu/kiln/pkg/kernel/sdfx"
	"github.com/chazu/kiln/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func TestPlaneMesh(t *testing.T) {
	v, i := PlaneMesh(10)
	want := []mgl32.Vec3{{-5, 0, -5}, {5, 0, -5}, {5, 0, 5}, {-5, 0, 5}}
	if len(v) != len(want) {
		t.Fatalf("got %d vertices, want %d", len(v), len(want))
	}
	for k := range want {
		if v[k] != want[k] {
			t.Errorf("vertex %d: got %v, want %v", k, v[k], want[k])
		}
	}
	wantIdx := []uint32{0, 1, 2, 0, 2, 3}
	for k := range wantIdx {
		if i[k] != wantIdx[k] {
			t.Fatalf("got indices %v, want %v", i, wantIdx)
		}
	}
	for tri := 0; tri < 2; tri++ {
		a, b, c := v[i[3*tri]], v[i[3*tri+1]], v[i[3*tri+2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		if n != (mgl32.Vec3{0, -1, 0}) {
			t.Errorf("triangle %d normal = %v, want (0, -1, 0)", tri, n)
		}
	}
}

func TestActivatePlaneNames(t *testing.T) {
	s := scene.New()
	var names []string
	for range 3 {
		n, err := Activate(s, s.Root, nil, NewPlane())
		if err != nil {
			t.Fatalf("Activate: %v", err)
		}
		names = append(names, n.Name)
	}
	want := []string{"Plane", "Plane1", "Plane2"}
	for k := range want {
		if names[k] != want[k] {
			t.Errorf("got %v, want %v", names, want)
			break
		}
	}

	n := s.FindNodeByPath("/World/Plane")
	if n == nil || n.Type != scene.Mesh {
		t.Fatalf("plane node missing or wrong type: %+v", n)
	}
	if n.Mesh.DisplayColor != DefaultPlaneColor || !n.Mesh.Collision {
		t.Errorf("got color %v collision %v, want %v true", n.Mesh.DisplayColor, n.Mesh.Collision, DefaultPlaneColor)
	}
	if n.Mesh.TriangleCount() != 2 {
		t.Errorf("got %d triangles, want 2", n.Mesh.TriangleCount())
	}
}

func TestActivatePlanePosition(t *testing.T) {
	s := scene.New()
	p := NewPlane()
	p.Name = "Floor"
	p.Size = 2
	p.Position = mgl32.Vec3{0, -1, 0}
	n, err := Activate(s, s.Root, nil, p)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if n.Name != "Floor" {
		t.Errorf("got name %q, want Floor", n.Name)
	}
	if got := n.Mesh.Vertices[0]; got != (mgl32.Vec3{-1, -1, -1}) {
		t.Errorf("got first vertex %v, want [-1 -1 -1]", got)
	}
}

func TestActivateErrors(t *testing.T) {
	s := scene.New()
	tests := []struct {
		name   string
		parent scene.NodeID
		k      kernel.Kernel
		p      Params
		want   error
	}{
		{"missing parent", 999, nil, NewPlane(), scene.ErrNodeNotFound},
		{"solid without kernel", s.Root, nil, NewBox(), ErrNoKernel},
		{"zero plane", s.Root, nil, PlaneParams{Size: 0}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Len()
			_, err := Activate(s, tt.parent, tt.k, tt.p)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if s.Len() != before {
				t.Errorf("failed activation changed node count: %d -> %d", before, s.Len())
			}
		})
	}
}

// soupKernel returns a fixed quad as an unwelded soup.
type soupKernel struct {
	translated [3]float64
}

type soupSolid struct{}

func (soupSolid) BoundingBox() (min, max [3]float64) { return }

func (k *soupKernel) Box(x, y, z float64) (kernel.Solid, error) { return soupSolid{}, nil }
func (k *soupKernel) Sphere(r float64) (kernel.Solid, error)    { return soupSolid{}, nil }
func (k *soupKernel) Cylinder(h, r float64) (kernel.Solid, error) {
	return soupSolid{}, nil
}
func (k *soupKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	k.translated = [3]float64{x, y, z}
	return s
}
func (k *soupKernel) Rotate(s kernel.Solid, _, _, _ float64) kernel.Solid { return s }
func (k *soupKernel) ToMesh(kernel.Solid) (*kernel.Mesh, error) {
	return &kernel.Mesh{
		Vertices: []float32{
			0, 0, 0, 1, 0, 0, 1, 1, 0,
			0, 0, 0, 1, 1, 0, 0, 1, 0,
			0, 0, 0, 0, 0, 0, 1, 1, 0, // collapses after welding
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8},
	}, nil
}

func TestWeld(t *testing.T) {
	k := &soupKernel{}
	m, _ := k.ToMesh(nil)
	v, i := Weld(m)
	if len(v) != 4 {
		t.Errorf("got %d vertices, want 4", len(v))
	}
	want := []uint32{0, 1, 2, 0, 2, 3}
	if len(i) != len(want) {
		t.Fatalf("got indices %v, want %v", i, want)
	}
	for n := range want {
		if i[n] != want[n] {
			t.Fatalf("got indices %v, want %v", i, want)
		}
	}
}

func TestWeldFarFromOrigin(t *testing.T) {
	m := &kernel.Mesh{
		Vertices: []float32{30000, 0, 0, 30001, 0, 0, 30000, 1, 0},
		Indices:  []uint32{0, 1, 2},
	}
	v, i := Weld(m)
	if len(v) != 3 || len(i) != 3 {
		t.Fatalf("got %d vertices %d indices, want 3 and 3", len(v), len(i))
	}
	if v[1].X() != 30001 {
		t.Errorf("got %v, want x = 30001", v[1])
	}
}

func TestWeldNil(t *testing.T) {
	v, i := Weld(nil)
	if v != nil || i != nil {
		t.Errorf("got %v %v, want nil", v, i)
	}
}

func TestActivateSolidUsesKernel(t *testing.T) {
	s := scene.New()
	k := &soupKernel{}
	p := NewSphere()
	p.Position = mgl32.Vec3{1, 2, 3}
	n, err := Activate(s, s.Root, k, p)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if n.Name != "Sphere" {
		t.Errorf("got %q, want Sphere", n.Name)
	}
	if k.translated != [3]float64{1, 2, 3} {
		t.Errorf("got translation %v, want [1 2 3]", k.translated)
	}
	if n.Mesh.TriangleCount() != 2 || n.Mesh.VertexCount() != 4 {
		t.Errorf("got %d tris %d verts, want 2 and 4", n.Mesh.TriangleCount(), n.Mesh.VertexCount())
	}
	if issues := s.Validate(); len(issues) != 0 {
		t.Errorf("scene invalid after activation: %v", issues)
	}
}

func TestActivateBoxWithSdfx(t *testing.T) {
	s := scene.New()
	p := NewBox()
	p.Size = mgl32.Vec3{2, 2, 2}
	n, err := Activate(s, s.Root, sdfx.New(12), p)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if n.Mesh.IsEmpty() || n.Mesh.TriangleCount() == 0 {
		t.Fatal("box mesh is empty")
	}
	if n.Mesh.VertexCount() >= n.Mesh.TriangleCount()*3 {
		t.Errorf("expected welded vertices, got %d for %d triangles", n.Mesh.VertexCount(), n.Mesh.TriangleCount())
	}
	if issues := s.Validate(); len(issues) != 0 {
		t.Errorf("scene invalid after activation: %v", issues)
	}
}
