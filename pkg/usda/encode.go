package usda

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/kiln/pkg/geom"
	"github.com/chazu/kiln/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

const indentUnit = "    "

// Encode writes s as a .usda layer. Mesh faces are written as triangles,
// and extent is recomputed from the vertices.
func Encode(w io.Writer, s *scene.Scene) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw, s: s}
	e.header()
	if root := s.RootNode(); root != nil {
		e.node(root, 0)
	}
	return bw.Flush()
}

// Marshal returns the .usda text for s.
func Marshal(s *scene.Scene) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, s)
	return buf.Bytes()
}

type encoder struct {
	w *bufio.Writer
	s *scene.Scene
}

func (e *encoder) line(indent int, parts ...string) {
	e.w.WriteString(strings.Repeat(indentUnit, indent))
	for _, p := range parts {
		e.w.WriteString(p)
	}
	e.w.WriteByte('\n')
}

func (e *encoder) header() {
	e.line(0, "#usda 1.0")
	e.line(0, "(")
	e.line(1, "defaultPrim = ", strconv.Quote(e.s.DefaultPrim))
	e.line(1, "metersPerUnit = ", strconv.FormatFloat(e.s.MetersPerUnit, 'g', -1, 64))
	e.line(1, "upAxis = ", strconv.Quote(e.s.UpAxis))
	e.line(0, ")")
	e.line(0)
}

func (e *encoder) node(n *scene.Node, indent int) {
	decl := "def " + n.Type.String() + " " + strconv.Quote(n.Name)
	collision := n.Mesh != nil && n.Mesh.Collision
	if collision {
		e.line(indent, decl, " (")
		e.line(indent+1, `prepend apiSchemas = ["PhysicsCollisionAPI"]`)
		e.line(indent, ")")
	} else {
		e.line(indent, decl)
	}
	e.line(indent, "{")

	if n.Type == scene.Mesh && n.Mesh != nil {
		e.mesh(n.Mesh, indent+1)
	}
	for _, c := range e.s.Children(n.ID) {
		e.node(c, indent+1)
	}

	e.line(indent, "}")
}

func (e *encoder) mesh(m *scene.MeshData, indent int) {
	if !m.IsEmpty() {
		min, max, _ := geom.Bounds(m.Vertices)
		e.line(indent, "float3[] extent = [", tuple(min), ", ", tuple(max), "]")

		counts := make([]string, m.TriangleCount())
		for i := range counts {
			counts[i] = "3"
		}
		e.line(indent, "int[] faceVertexCounts = [", strings.Join(counts, ", "), "]")

		idx := make([]string, len(m.Indices))
		for i, v := range m.Indices {
			idx[i] = strconv.FormatUint(uint64(v), 10)
		}
		e.line(indent, "int[] faceVertexIndices = [", strings.Join(idx, ", "), "]")

		pts := make([]string, len(m.Vertices))
		for i, v := range m.Vertices {
			pts[i] = tuple(v)
		}
		e.line(indent, "point3f[] points = [", strings.Join(pts, ", "), "]")
	}

	e.line(indent, "color3f[] primvars:displayColor = [", tuple(m.DisplayColor), "]")
	if m.Collision {
		e.line(indent, "bool physics:collisionEnabled = true")
	}
}

func tuple(v mgl32.Vec3) string {
	return "(" + formatFloat(v[0]) + ", " + formatFloat(v[1]) + ", " + formatFloat(v[2]) + ")"
}

// formatFloat writes the shortest text that reads back as the same float32.
func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
