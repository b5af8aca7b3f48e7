package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// PrimType is the closed set of node kinds a scene can hold.
type PrimType int

const (
	Xform PrimType = iota // grouping node, no geometry
	Mesh                  // carries MeshData
	Scope                 // organizational grouping
)

func (t PrimType) String() string {
	switch t {
	case Xform:
		return "Xform"
	case Mesh:
		return "Mesh"
	case Scope:
		return "Scope"
	default:
		return fmt.Sprintf("PrimType(%d)", int(t))
	}
}

// ParsePrimType maps a type token to a PrimType. Unknown tokens,
// including the empty string, map to Xform.
func ParsePrimType(token string) PrimType {
	switch token {
	case "Mesh":
		return Mesh
	case "Scope":
		return Scope
	default:
		return Xform
	}
}

// DefaultDisplayColor is the color given to meshes that do not specify one.
var DefaultDisplayColor = mgl32.Vec3{0.5, 0.5, 0.5}

// MeshData is triangle geometry plus display and physics attributes.
// Indices always come in triples and every index is < len(Vertices).
type MeshData struct {
	Vertices     []mgl32.Vec3
	Indices      []uint32
	DisplayColor mgl32.Vec3
	Collision    bool
}

// NewMeshData returns empty geometry with the default gray color.
func NewMeshData() *MeshData {
	return &MeshData{DisplayColor: DefaultDisplayColor}
}

// VertexCount returns the number of vertices.
func (m *MeshData) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *MeshData) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no vertices.
func (m *MeshData) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Triangle returns the three corners of triangle i.
func (m *MeshData) Triangle(i int) (a, b, c mgl32.Vec3) {
	return m.Vertices[m.Indices[3*i]], m.Vertices[m.Indices[3*i+1]], m.Vertices[m.Indices[3*i+2]]
}
