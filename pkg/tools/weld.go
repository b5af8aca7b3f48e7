package tools

import (
	"github.com/chazu/kiln/pkg/kernel"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// weldGrid is the snapping resolution for merging coincident vertices.
const weldGrid = 1e-5

type weldKey [3]int64

func keyOf(v mgl32.Vec3) weldKey {
	return weldKey{
		int64(math32.Round(v[0] / weldGrid)),
		int64(math32.Round(v[1] / weldGrid)),
		int64(math32.Round(v[2] / weldGrid)),
	}
}

// Weld merges coincident vertices of a kernel triangle soup into an indexed
// mesh. Triangles that collapse after merging are dropped.
func Weld(m *kernel.Mesh) ([]mgl32.Vec3, []uint32) {
	if m == nil {
		return nil, nil
	}
	seen := make(map[weldKey]uint32, m.VertexCount())
	vertices := make([]mgl32.Vec3, 0, m.VertexCount()/2)
	remap := func(i uint32) uint32 {
		p := m.Vertex(int(i))
		v := mgl32.Vec3{p[0], p[1], p[2]}
		k := keyOf(v)
		if idx, ok := seen[k]; ok {
			return idx
		}
		idx := uint32(len(vertices))
		seen[k] = idx
		vertices = append(vertices, v)
		return idx
	}

	indices := make([]uint32, 0, len(m.Indices))
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := remap(m.Indices[t]), remap(m.Indices[t+1]), remap(m.Indices[t+2])
		if a == b || b == c || a == c {
			continue
		}
		indices = append(indices, a, b, c)
	}
	return vertices, indices
}
