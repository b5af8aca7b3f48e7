// Package tessellate walks a scene and produces flat render meshes,
// one per non-empty mesh node, with smooth per-vertex normals.
package tessellate

import (
	"fmt"

	"github.com/chazu/kiln/pkg/kernel"
	"github.com/chazu/kiln/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/samber/lo"
)

// Tessellate walks the scene in pre-order and converts every mesh node with
// geometry into a render mesh. The scene is never mutated.
func Tessellate(s *scene.Scene) ([]*kernel.Mesh, error) {
	if s == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	collected, err := walkNode(s, s.RootNode())
	if err != nil {
		return nil, err
	}
	meshes = append(meshes, collected...)
	return meshes, nil
}

// walkNode recursively traverses a node and its children, collecting meshes.
func walkNode(s *scene.Scene, n *scene.Node) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh

	if n.Type == scene.Mesh && n.Mesh != nil && !n.Mesh.IsEmpty() {
		m, err := toRenderMesh(n.Mesh)
		if err != nil {
			return nil, fmt.Errorf("tessellate: node %s: %w", s.Path(n.ID), err)
		}
		m.NodePath = s.Path(n.ID)
		meshes = append(meshes, m)
	}

	for _, child := range s.Children(n.ID) {
		collected, err := walkNode(s, child)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// toRenderMesh flattens indexed geometry and attaches smooth normals.
func toRenderMesh(md *scene.MeshData) (*kernel.Mesh, error) {
	for _, i := range md.Indices {
		if int(i) >= len(md.Vertices) {
			return nil, fmt.Errorf("index %d out of range (%d vertices)", i, len(md.Vertices))
		}
	}
	if len(md.Indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(md.Indices))
	}

	normals := SmoothNormals(md.Vertices, md.Indices)
	return &kernel.Mesh{
		Vertices: flatten(md.Vertices),
		Normals:  flatten(normals),
		Indices:  append([]uint32(nil), md.Indices...),
		Color:    md.DisplayColor,
	}, nil
}

// SmoothNormals returns one unit normal per vertex: the area-weighted sum of
// the face normals of the triangles that use it. Unused vertices and
// vertices of degenerate faces only get +Y.
func SmoothNormals(vertices []mgl32.Vec3, indices []uint32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(vertices))
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		// The cross product's length is twice the face area.
		n := vertices[b].Sub(vertices[a]).Cross(vertices[c].Sub(vertices[a]))
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}
	for i, n := range normals {
		if n.Len() < 1e-12 {
			normals[i] = mgl32.Vec3{0, 1, 0}
			continue
		}
		normals[i] = n.Normalize()
	}
	return normals
}

func flatten(vs []mgl32.Vec3) []float32 {
	return lo.FlatMap(vs, func(v mgl32.Vec3, _ int) []float32 {
		return []float32{v[0], v[1], v[2]}
	})
}
