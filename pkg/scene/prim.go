package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Prim is a decoded prim record. Every decoder, whatever its source
// format, produces a tree of Prims and hands it to ImportStage, so the
// resulting graph does not depend on where the data came from.
type Prim struct {
	Name              string
	Kind              string // type token such as "Mesh"; "" means Xform
	Line              int
	Points            []mgl32.Vec3
	FaceVertexCounts  []int
	FaceVertexIndices []int
	DisplayColor      *mgl32.Vec3
	Collision         bool
	Children          []*Prim
}

// ImportStage adds top-level prims under the root. The first top-level
// Xform named DefaultPrim is merged into the root instead of nesting a
// second node with the same name.
func (s *Scene) ImportStage(prims []*Prim) []Issue {
	var issues []Issue
	merged := false
	for _, p := range prims {
		if !merged && p.Name == s.DefaultPrim && ParsePrimType(p.Kind) == Xform {
			merged = true
			is, _ := s.Import(s.Root, p.Children)
			issues = append(issues, is...)
			continue
		}
		is, _ := s.Import(s.Root, []*Prim{p})
		issues = append(issues, is...)
	}
	return issues
}

// Import builds nodes for prims, in order, under parent.
func (s *Scene) Import(parent NodeID, prims []*Prim) ([]Issue, error) {
	if s.nodes[parent] == nil {
		return nil, fmt.Errorf("import under %s: %w", parent, ErrNodeNotFound)
	}
	var issues []Issue
	for _, p := range prims {
		issues = append(issues, s.importPrim(parent, p)...)
	}
	return issues, nil
}

func (s *Scene) importPrim(parent NodeID, p *Prim) []Issue {
	typ := ParsePrimType(p.Kind)
	n, _ := s.AddChild(parent, p.Name, typ)

	var issues []Issue
	if typ == Mesh {
		issues = append(issues, fillMesh(n.Mesh, p, s.Path(n.ID))...)
	}
	for _, c := range p.Children {
		issues = append(issues, s.importPrim(n.ID, c)...)
	}
	return issues
}

func fillMesh(m *MeshData, p *Prim, path string) []Issue {
	m.Vertices = append([]mgl32.Vec3(nil), p.Points...)
	if p.DisplayColor != nil {
		m.DisplayColor = *p.DisplayColor
	}
	m.Collision = p.Collision

	indices, dropped := Triangulate(p.FaceVertexCounts, p.FaceVertexIndices, len(m.Vertices))
	m.Indices = indices
	if dropped > 0 {
		return []Issue{{
			Kind:    IssueIndexOutOfRange,
			Path:    path,
			Line:    p.Line,
			Message: fmt.Sprintf("dropped %d triangle(s) referencing missing vertices", dropped),
		}}
	}
	return nil
}

// Triangulate turns polygon faces into triangle indices.
//
// Each face of n >= 3 vertices is fanned from its first vertex, so a quad
// a,b,c,d yields (a,b,c) and (a,c,d). Faces with fewer than 3 vertices are
// skipped. With no counts, indices are read directly as triangle triples.
// Triangles that reference a vertex outside [0, vertexCount) are dropped
// and counted.
func Triangulate(counts, indices []int, vertexCount int) (tris []uint32, dropped int) {
	emit := func(a, b, c int) {
		if !inRange(a, vertexCount) || !inRange(b, vertexCount) || !inRange(c, vertexCount) {
			dropped++
			return
		}
		tris = append(tris, uint32(a), uint32(b), uint32(c))
	}

	if len(counts) == 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			emit(indices[i], indices[i+1], indices[i+2])
		}
		return tris, dropped
	}

	offset := 0
	for _, n := range counts {
		if n < 0 || n > len(indices)-offset {
			break
		}
		face := indices[offset : offset+n]
		offset += n
		for k := 1; k+1 < len(face); k++ {
			emit(face[0], face[k], face[k+1])
		}
	}
	return tris, dropped
}

func inRange(i, n int) bool {
	return i >= 0 && i < n
}
