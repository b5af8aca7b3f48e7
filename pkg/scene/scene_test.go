package scene

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewSceneDefaults(t *testing.T) {
	s := New()

	if s.Name != DefaultName {
		t.Errorf("got name %q, want %q", s.Name, DefaultName)
	}
	if s.UpAxis != "Y" {
		t.Errorf("got upAxis %q, want Y", s.UpAxis)
	}
	if s.MetersPerUnit != 1 {
		t.Errorf("got metersPerUnit %v, want 1", s.MetersPerUnit)
	}
	root := s.RootNode()
	if root == nil {
		t.Fatal("expected root node")
	}
	if root.Name != "World" || root.Type != Xform {
		t.Errorf("got root %q/%s, want World/Xform", root.Name, root.Type)
	}
	if root.HasChildren() {
		t.Errorf("got %d root children, want 0", len(root.Children))
	}
	if !s.IsEmpty() || s.Len() != 1 {
		t.Errorf("got Len()=%d IsEmpty()=%v, want 1 true", s.Len(), s.IsEmpty())
	}
}

func TestAddChildAllocatesMeshData(t *testing.T) {
	s := New()

	tests := []struct {
		name     string
		typ      PrimType
		wantMesh bool
	}{
		{"Group", Xform, false},
		{"Looks", Scope, false},
		{"Cube", Mesh, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.AddChild(s.Root, tt.name, tt.typ)
			if err != nil {
				t.Fatalf("AddChild: %v", err)
			}
			if (n.Mesh != nil) != tt.wantMesh {
				t.Fatalf("got mesh=%v, want %v", n.Mesh != nil, tt.wantMesh)
			}
			if n.Parent != s.Root {
				t.Errorf("got parent %s, want %s", n.Parent, s.Root)
			}
			if tt.wantMesh && n.Mesh.DisplayColor != DefaultDisplayColor {
				t.Errorf("got color %v, want %v", n.Mesh.DisplayColor, DefaultDisplayColor)
			}
		})
	}

	names := []string{}
	for _, c := range s.Children(s.Root) {
		names = append(names, c.Name)
	}
	if len(names) != 3 || names[0] != "Group" || names[1] != "Looks" || names[2] != "Cube" {
		t.Errorf("got children %v, want insertion order [Group Looks Cube]", names)
	}
}

func TestAddChildUnknownParent(t *testing.T) {
	s := New()
	_, err := s.AddChild(NodeID(999), "X", Xform)
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("got %v, want ErrNodeNotFound", err)
	}
}

func TestAddChildAllowsDuplicateNames(t *testing.T) {
	s := New()
	a, _ := s.AddChild(s.Root, "Plane", Mesh)
	b, _ := s.AddChild(s.Root, "Plane", Mesh)
	if a.ID == b.ID {
		t.Fatal("expected distinct nodes")
	}
	if got := s.FindChild(s.Root, "Plane"); got != a {
		t.Errorf("FindChild should return the first match")
	}
}

func TestFindNodeByPath(t *testing.T) {
	s := New()
	env, _ := s.AddChild(s.Root, "Env", Xform)
	ground, _ := s.AddChild(env.ID, "Ground", Mesh)

	tests := []struct {
		path string
		want *Node
	}{
		{"/World", s.RootNode()},
		{"/World/Env", env},
		{"/World/Env/Ground", ground},
		{"World/Env/Ground", ground},
		{"//World//Env///Ground/", ground},
		{"", nil},
		{"/", nil},
		{"/Other/Env", nil},
		{"/World/Missing", nil},
		{"/World/Env/Ground/Deeper", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := s.FindNodeByPath(tt.path); got != tt.want {
				t.Errorf("FindNodeByPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPath(t *testing.T) {
	s := New()
	env, _ := s.AddChild(s.Root, "Env", Xform)
	ground, _ := s.AddChild(env.ID, "Ground", Mesh)

	if got := s.Path(ground.ID); got != "/World/Env/Ground" {
		t.Errorf("got %q, want /World/Env/Ground", got)
	}
	if got := s.Path(NodeID(12345)); got != "" {
		t.Errorf("got %q for unknown id, want empty", got)
	}
	if got := s.FindNodeByPath(s.Path(ground.ID)); got != ground {
		t.Error("Path and FindNodeByPath should round-trip")
	}
}

func TestRemoveChildCascades(t *testing.T) {
	s := New()
	env, _ := s.AddChild(s.Root, "Env", Xform)
	ground, _ := s.AddChild(env.ID, "Ground", Mesh)
	rock, _ := s.AddChild(ground.ID, "Rock", Mesh)
	other, _ := s.AddChild(s.Root, "Other", Xform)

	if !s.RemoveChild(s.Root, env.ID) {
		t.Fatal("expected removal to succeed")
	}
	for _, id := range []NodeID{env.ID, ground.ID, rock.ID} {
		if s.Node(id) != nil {
			t.Errorf("node %s should be gone", id)
		}
	}
	if s.FindNodeByPath("/World/Env/Ground") != nil {
		t.Error("path lookup should fail after removal")
	}
	if s.Node(other.ID) == nil {
		t.Error("sibling should survive")
	}
	if s.Len() != 2 {
		t.Errorf("got Len()=%d, want 2", s.Len())
	}
	if len(s.Meshes()) != 0 {
		t.Errorf("got %d meshes, want 0", len(s.Meshes()))
	}
}

func TestRemoveChildRequiresDirectChild(t *testing.T) {
	s := New()
	env, _ := s.AddChild(s.Root, "Env", Xform)
	ground, _ := s.AddChild(env.ID, "Ground", Mesh)

	if s.RemoveChild(s.Root, ground.ID) {
		t.Error("grandchild must not be removable through the root")
	}
	if s.Node(ground.ID) == nil {
		t.Error("failed removal must not mutate the scene")
	}
	if s.RemoveChild(NodeID(999), ground.ID) {
		t.Error("unknown parent must fail")
	}
}

func TestRemoveRoot(t *testing.T) {
	s := New()
	if s.Remove(s.Root) {
		t.Error("root must not be removable")
	}
	cube, _ := s.AddChild(s.Root, "Cube", Mesh)
	if !s.Remove(cube.ID) {
		t.Error("expected Remove to succeed")
	}
}

func TestClearInvalidatesIDs(t *testing.T) {
	s := New()
	cube, _ := s.AddChild(s.Root, "Cube", Mesh)
	oldRoot := s.Root
	s.Name = "level"
	s.UpAxis = "Z"

	s.Clear()

	if s.Node(cube.ID) != nil || s.Node(oldRoot) != nil {
		t.Error("old IDs should not resolve after Clear")
	}
	if s.Name != DefaultName || s.UpAxis != "Y" || !s.IsEmpty() {
		t.Errorf("got %q/%q empty=%v, want defaults", s.Name, s.UpAxis, s.IsEmpty())
	}
}

func TestWalkOrderAndSkip(t *testing.T) {
	s := New()
	a, _ := s.AddChild(s.Root, "A", Xform)
	s.AddChild(a.ID, "A1", Mesh)
	b, _ := s.AddChild(s.Root, "B", Scope)
	s.AddChild(b.ID, "B1", Mesh)

	var order []string
	s.Walk(func(n *Node, depth int) bool {
		order = append(order, n.Name)
		return n.Name != "B"
	})
	want := []string{"World", "A", "A1", "B"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}

	meshes := s.Meshes()
	if len(meshes) != 2 || meshes[0].Name != "A1" || meshes[1].Name != "B1" {
		t.Errorf("got meshes %v, want [A1 B1]", meshes)
	}
}

func TestRenameRootSyncsDefaultPrim(t *testing.T) {
	s := New()
	if err := s.Rename(s.Root, "Stage"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if s.DefaultPrim != "Stage" {
		t.Errorf("got defaultPrim %q, want Stage", s.DefaultPrim)
	}
	if s.FindNodeByPath("/Stage") == nil {
		t.Error("renamed root should resolve by path")
	}

	s.SetDefaultPrim("World")
	if s.RootNode().Name != "World" {
		t.Errorf("got root %q, want World", s.RootNode().Name)
	}
	if err := s.Rename(NodeID(999), "x"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("got %v, want ErrNodeNotFound", err)
	}
}

func TestRenameRejectsInvalidNames(t *testing.T) {
	s := New()
	n, _ := s.AddChild(s.Root, "Plane", Mesh)
	for _, name := range []string{"", "a/b", "/"} {
		for _, id := range []NodeID{s.Root, n.ID} {
			if err := s.Rename(id, name); !errors.Is(err, ErrInvalidName) {
				t.Errorf("Rename(%s, %q): got %v, want ErrInvalidName", id, name, err)
			}
		}
	}
	if s.DefaultPrim != "World" || s.RootNode().Name != "World" || n.Name != "Plane" {
		t.Errorf("names changed: %q %q %q", s.DefaultPrim, s.RootNode().Name, n.Name)
	}
}

func TestUniqueChildName(t *testing.T) {
	s := New()
	if got := s.UniqueChildName(s.Root, "Plane"); got != "Plane" {
		t.Errorf("got %q, want Plane", got)
	}
	s.AddChild(s.Root, "Plane", Mesh)
	if got := s.UniqueChildName(s.Root, "Plane"); got != "Plane1" {
		t.Errorf("got %q, want Plane1", got)
	}
	s.AddChild(s.Root, "Plane1", Mesh)
	s.AddChild(s.Root, "Plane3", Mesh)
	if got := s.UniqueChildName(s.Root, "Plane"); got != "Plane2" {
		t.Errorf("got %q, want Plane2", got)
	}
}

func TestDuplicateDeepCopies(t *testing.T) {
	s := New()
	grp, _ := s.AddChild(s.Root, "Group", Xform)
	tri, _ := s.AddChild(grp.ID, "Tri", Mesh)
	tri.Mesh.Vertices = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	tri.Mesh.Indices = []uint32{0, 1, 2}
	tri.Mesh.DisplayColor = mgl32.Vec3{1, 0, 0}
	tri.Mesh.Collision = true
	after, _ := s.AddChild(s.Root, "After", Xform)

	dup, err := s.Duplicate(grp.ID)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if dup.Name != "Group1" {
		t.Errorf("got name %q, want Group1", dup.Name)
	}
	kids := s.RootNode().Children
	if len(kids) != 3 || kids[0] != grp.ID || kids[1] != dup.ID || kids[2] != after.ID {
		t.Errorf("copy should sit right after the original, got %v", kids)
	}

	copyTri := s.FindNodeByPath("/World/Group1/Tri")
	if copyTri == nil {
		t.Fatal("expected copied child")
	}
	if copyTri.Mesh.DisplayColor != tri.Mesh.DisplayColor || !copyTri.Mesh.Collision {
		t.Errorf("attributes not copied: %+v", copyTri.Mesh)
	}
	copyTri.Mesh.Vertices[0] = mgl32.Vec3{9, 9, 9}
	copyTri.Mesh.Indices[0] = 2
	if tri.Mesh.Vertices[0] != (mgl32.Vec3{}) || tri.Mesh.Indices[0] != 0 {
		t.Error("duplicate aliases the original mesh data")
	}

	if _, err := s.Duplicate(s.Root); err == nil {
		t.Error("duplicating the root should fail")
	}
}

func TestPrimTypeString(t *testing.T) {
	tests := []struct {
		typ  PrimType
		want string
	}{
		{Xform, "Xform"},
		{Mesh, "Mesh"},
		{Scope, "Scope"},
		{PrimType(42), "PrimType(42)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
	for _, tok := range []string{"", "Camera", "SphereLight"} {
		if ParsePrimType(tok) != Xform {
			t.Errorf("ParsePrimType(%q) should default to Xform", tok)
		}
	}
	if ParsePrimType("Mesh") != Mesh || ParsePrimType("Scope") != Scope {
		t.Error("known tokens should map to their types")
	}
}
