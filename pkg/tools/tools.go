// Package tools implements the editor's creation tools. Each tool takes a
// parameter set and adds one mesh node to the scene.
package tools

import (
	"errors"
	"fmt"

	"github.com/chazu/kiln/pkg/kernel"
	"github.com/chazu/kiln/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane tool defaults.
const (
	DefaultPlaneSize = 10
	planeShade       = 0.6
)

// DefaultPlaneColor is the display color of new planes.
var DefaultPlaneColor = mgl32.Vec3{planeShade, planeShade, planeShade}

// ErrNoKernel is returned when a solid tool runs without a geometry kernel.
var ErrNoKernel = errors.New("tools: no geometry kernel")

// Common holds the fields every tool shares.
type Common struct {
	Name      string     `json:"name"` // base name; made unique among siblings
	Position  mgl32.Vec3 `json:"position"`
	Color     mgl32.Vec3 `json:"color"`
	Collision bool       `json:"collision"`
}

// Params is the closed set of tool parameter types.
type Params interface {
	common() Common
	baseName() string
}

// PlaneParams builds a flat square on the XZ plane.
type PlaneParams struct {
	Common
	Size float32 `json:"size"`
}

// BoxParams builds an axis-aligned box.
type BoxParams struct {
	Common
	Size mgl32.Vec3 `json:"size"`
}

// SphereParams builds a sphere.
type SphereParams struct {
	Common
	Radius float32 `json:"radius"`
}

// CylinderParams builds a Y-up cylinder.
type CylinderParams struct {
	Common
	Radius float32 `json:"radius"`
	Height float32 `json:"height"`
}

func (p PlaneParams) common() Common    { return p.Common }
func (p BoxParams) common() Common      { return p.Common }
func (p SphereParams) common() Common   { return p.Common }
func (p CylinderParams) common() Common { return p.Common }

func (PlaneParams) baseName() string    { return "Plane" }
func (BoxParams) baseName() string      { return "Box" }
func (SphereParams) baseName() string   { return "Sphere" }
func (CylinderParams) baseName() string { return "Cylinder" }

// NewPlane returns plane parameters with the tool defaults.
func NewPlane() PlaneParams {
	return PlaneParams{
		Common: Common{Color: DefaultPlaneColor, Collision: true},
		Size:   DefaultPlaneSize,
	}
}

// NewBox returns unit box parameters.
func NewBox() BoxParams {
	return BoxParams{
		Common: Common{Color: scene.DefaultDisplayColor},
		Size:   mgl32.Vec3{1, 1, 1},
	}
}

// NewSphere returns unit-radius sphere parameters.
func NewSphere() SphereParams {
	return SphereParams{
		Common: Common{Color: scene.DefaultDisplayColor},
		Radius: 1,
	}
}

// NewCylinder returns parameters for a cylinder of radius 0.5 and height 1.
func NewCylinder() CylinderParams {
	return CylinderParams{
		Common: Common{Color: scene.DefaultDisplayColor},
		Radius: 0.5,
		Height: 1,
	}
}

// Activate runs the tool described by p and adds the resulting mesh under
// parent. The node name is p's name (or the tool's base name) made unique
// among the parent's children. Only planes may run with a nil kernel.
func Activate(s *scene.Scene, parent scene.NodeID, k kernel.Kernel, p Params) (*scene.Node, error) {
	if s.Node(parent) == nil {
		return nil, fmt.Errorf("tools: parent %s: %w", parent, scene.ErrNodeNotFound)
	}

	vertices, indices, err := Geometry(k, p)
	if err != nil {
		return nil, err
	}

	c := p.common()
	base := c.Name
	if base == "" {
		base = p.baseName()
	}
	n, err := s.AddChild(parent, s.UniqueChildName(parent, base), scene.Mesh)
	if err != nil {
		return nil, err
	}
	n.Mesh.Vertices = vertices
	n.Mesh.Indices = indices
	n.Mesh.DisplayColor = c.Color
	n.Mesh.Collision = c.Collision
	return n, nil
}

// Geometry produces indexed geometry for p, offset by its position.
func Geometry(k kernel.Kernel, p Params) ([]mgl32.Vec3, []uint32, error) {
	if pp, ok := p.(PlaneParams); ok {
		if pp.Size <= 0 {
			return nil, nil, fmt.Errorf("tools: plane size must be positive, got %g", pp.Size)
		}
		v, i := PlaneMesh(pp.Size)
		return offset(v, pp.Position), i, nil
	}

	if k == nil {
		return nil, nil, ErrNoKernel
	}

	var (
		solid kernel.Solid
		err   error
	)
	switch p := p.(type) {
	case BoxParams:
		solid, err = k.Box(float64(p.Size.X()), float64(p.Size.Y()), float64(p.Size.Z()))
	case SphereParams:
		solid, err = k.Sphere(float64(p.Radius))
	case CylinderParams:
		solid, err = k.Cylinder(float64(p.Height), float64(p.Radius))
	default:
		return nil, nil, fmt.Errorf("tools: unsupported params %T", p)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("tools: %s: %w", p.baseName(), err)
	}

	if pos := p.common().Position; pos != (mgl32.Vec3{}) {
		solid = k.Translate(solid, float64(pos.X()), float64(pos.Y()), float64(pos.Z()))
	}
	m, err := k.ToMesh(solid)
	if err != nil {
		return nil, nil, fmt.Errorf("tools: %s: %w", p.baseName(), err)
	}
	v, i := Weld(m)
	return v, i, nil
}

// PlaneMesh returns a size x size square on the XZ plane centered on the
// origin: four corners and two triangles. The winding gives geometric
// normals pointing -Y.
func PlaneMesh(size float32) ([]mgl32.Vec3, []uint32) {
	h := size / 2
	return []mgl32.Vec3{
			{-h, 0, -h},
			{h, 0, -h},
			{h, 0, h},
			{-h, 0, h},
		},
		[]uint32{0, 1, 2, 0, 2, 3}
}

func offset(vs []mgl32.Vec3, by mgl32.Vec3) []mgl32.Vec3 {
	if by == (mgl32.Vec3{}) {
		return vs
	}
	for i := range vs {
		vs[i] = vs[i].Add(by)
	}
	return vs
}
