package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/kiln/pkg/kernel"
	"github.com/chazu/kiln/pkg/scene"
	"github.com/chazu/kiln/pkg/tools"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/samber/lo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms console source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: ground-plane -> ground_plane
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or size.
type sexpVec3 struct {
	vec mgl32.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X(), v.vec.Y(), v.vec.Z())
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpColor wraps a display color.
type sexpColor struct {
	rgb mgl32.Vec3
}

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(rgb %g %g %g)", c.rgb.X(), c.rgb.Y(), c.rgb.Z())
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

// sexpPrim wraps a prim built by one of the prim builtins so it can be
// nested under xform and scope.
type sexpPrim struct {
	prim *scene.Prim
}

func (p *sexpPrim) SexpString(ps *zygo.PrintState) string {
	kind := p.prim.Kind
	if kind == "" {
		kind = scene.Xform.String()
	}
	return fmt.Sprintf("(%s %q)", strings.ToLower(kind), p.prim.Name)
}
func (p *sexpPrim) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value is a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toFloat32(s zygo.Sexp) (float32, error) {
	f, err := toFloat64(s)
	return float32(f), err
}

// toInt extracts a whole number.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true/false; a bare trailing keyword counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl32.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toColor accepts (rgb ...) or (vec3 ...).
func toColor(s zygo.Sexp) (mgl32.Vec3, error) {
	switch v := s.(type) {
	case *sexpColor:
		return v.rgb, nil
	case *sexpVec3:
		return v.vec, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("expected color, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Prim builder
// ---------------------------------------------------------------------------

// builder records the prims a script creates. Prims adopted by xform or
// scope are consumed; the rest are the script's top-level result.
type builder struct {
	kernel   kernel.Kernel
	created  []*scene.Prim
	consumed map[*scene.Prim]bool
}

func newBuilder(k kernel.Kernel) *builder {
	return &builder{kernel: k, consumed: make(map[*scene.Prim]bool)}
}

func (b *builder) add(p *scene.Prim) *sexpPrim {
	b.created = append(b.created, p)
	return &sexpPrim{prim: p}
}

// adopt attaches children to parent. Each prim may have only one parent.
func (b *builder) adopt(parent *scene.Prim, args []zygo.Sexp) error {
	for _, a := range args {
		if ps, ok := a.(*sexpPrim); ok {
			if b.consumed[ps.prim] {
				return fmt.Errorf("prim %q already has a parent", ps.prim.Name)
			}
			b.consumed[ps.prim] = true
			parent.Children = append(parent.Children, ps.prim)
			continue
		}
		items, err := sexpListToSlice(a)
		if err != nil {
			return fmt.Errorf("expected prim, got %T (%s)", a, a.SexpString(nil))
		}
		if err := b.adopt(parent, items); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) roots() []*scene.Prim {
	return lo.Filter(b.created, func(p *scene.Prim, _ int) bool {
		return !b.consumed[p]
	})
}

// primName returns the first positional string, or fallback.
func primName(pa kwArgs, fallback string) (string, error) {
	if len(pa.positional) == 0 {
		return fallback, nil
	}
	return toString(pa.positional[0])
}

// applyCommon reads :at, :color and :collision into c.
func applyCommon(fn string, pa kwArgs, c *tools.Common) error {
	if v, ok := pa.kw["at"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return fmt.Errorf("%s: at: %w", fn, err)
		}
		c.Position = vec
	}
	if v, ok := pa.kw["color"]; ok {
		col, err := toColor(v)
		if err != nil {
			return fmt.Errorf("%s: color: %w", fn, err)
		}
		c.Color = col
	}
	if v, ok := pa.kw["collision"]; ok {
		on, err := toBool(v)
		if err != nil {
			return fmt.Errorf("%s: collision: %w", fn, err)
		}
		c.Collision = on
	}
	return nil
}

// meshPrim turns tool output into a triangulated Mesh prim.
func meshPrim(name string, vertices []mgl32.Vec3, indices []uint32, c tools.Common) *scene.Prim {
	color := c.Color
	return &scene.Prim{
		Name:              name,
		Kind:              scene.Mesh.String(),
		Points:            vertices,
		FaceVertexCounts:  lo.Times(len(indices)/3, func(int) int { return 3 }),
		FaceVertexIndices: lo.Map(indices, func(i uint32, _ int) int { return int(i) }),
		DisplayColor:      &color,
		Collision:         c.Collision,
	}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene DSL builtins into a zygomys
// environment. Prims are recorded on b as they are built.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := threeFloats("vec3", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (rgb 0.8 0.2 0.2)
	// -----------------------------------------------------------------------
	env.AddFunction("rgb", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := threeFloats("rgb", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpColor{rgb: v}, nil
	})

	// -----------------------------------------------------------------------
	// (mesh "tri" :points [(vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0)]
	//             :counts [3] :indices [0 1 2] :color (rgb 1 0 0) :collision true)
	// -----------------------------------------------------------------------
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		n, err := primName(pa, "Mesh")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: name: %w", err)
		}
		p := &scene.Prim{Name: n, Kind: scene.Mesh.String()}

		if v, ok := pa.kw["points"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mesh: points: %w", err)
			}
			for _, item := range items {
				pt, err := toVec3(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("mesh: points: %w", err)
				}
				p.Points = append(p.Points, pt)
			}
		}
		for _, key := range []string{"counts", "indices"} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mesh: %s: %w", key, err)
			}
			ints := make([]int, 0, len(items))
			for _, item := range items {
				i, err := toInt(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("mesh: %s: %w", key, err)
				}
				ints = append(ints, i)
			}
			if key == "counts" {
				p.FaceVertexCounts = ints
			} else {
				p.FaceVertexIndices = ints
			}
		}

		var c tools.Common
		c.Color = scene.DefaultDisplayColor
		if err := applyCommon("mesh", pa, &c); err != nil {
			return zygo.SexpNull, err
		}
		if _, ok := pa.kw["at"]; ok {
			for i := range p.Points {
				p.Points[i] = p.Points[i].Add(c.Position)
			}
		}
		color := c.Color
		p.DisplayColor = &color
		p.Collision = c.Collision

		return b.add(p), nil
	})

	// -----------------------------------------------------------------------
	// (plane "floor" :size 20 :at (vec3 0 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p := tools.NewPlane()
		if v, ok := pa.kw["size"]; ok {
			f, err := toFloat32(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: size: %w", err)
			}
			p.Size = f
		}
		if err := applyCommon("plane", pa, &p.Common); err != nil {
			return zygo.SexpNull, err
		}
		return b.solid("plane", "Plane", pa, p, p.Common)
	})

	// -----------------------------------------------------------------------
	// (box "crate" :size (vec3 1 2 1))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p := tools.NewBox()
		if v, ok := pa.kw["size"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			p.Size = vec
		}
		if err := applyCommon("box", pa, &p.Common); err != nil {
			return zygo.SexpNull, err
		}
		return b.solid("box", "Box", pa, p, p.Common)
	})

	// -----------------------------------------------------------------------
	// (sphere "ball" :radius 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p := tools.NewSphere()
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat32(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
			}
			p.Radius = f
		}
		if err := applyCommon("sphere", pa, &p.Common); err != nil {
			return zygo.SexpNull, err
		}
		return b.solid("sphere", "Sphere", pa, p, p.Common)
	})

	// -----------------------------------------------------------------------
	// (cylinder "post" :radius 0.2 :height 3)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p := tools.NewCylinder()
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat32(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
			}
			p.Radius = f
		}
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat32(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
			}
			p.Height = f
		}
		if err := applyCommon("cylinder", pa, &p.Common); err != nil {
			return zygo.SexpNull, err
		}
		return b.solid("cylinder", "Cylinder", pa, p, p.Common)
	})

	// -----------------------------------------------------------------------
	// (xform "group" (box ...) (sphere ...) ...)
	// (scope "props" ...)
	// -----------------------------------------------------------------------
	for _, typ := range []scene.PrimType{scene.Xform, scene.Scope} {
		fn := strings.ToLower(typ.String())
		kind := typ.String()
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a name argument", fn)
			}
			n, err := toString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
			}
			p := &scene.Prim{Name: n, Kind: kind}
			if err := b.adopt(p, args[1:]); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %q: %w", fn, n, err)
			}
			return b.add(p), nil
		})
	}
}

// solid builds p with the creation tools and records it as a Mesh prim.
func (b *builder) solid(fn, fallback string, pa kwArgs, p tools.Params, c tools.Common) (zygo.Sexp, error) {
	n, err := primName(pa, fallback)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
	}
	vertices, indices, err := tools.Geometry(b.kernel, p)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s %q: %w", fn, n, err)
	}
	return b.add(meshPrim(n, vertices, indices, c)), nil
}

func threeFloats(fn string, args []zygo.Sexp) (mgl32.Vec3, error) {
	if len(args) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("%s requires exactly 3 arguments, got %d", fn, len(args))
	}
	var v mgl32.Vec3
	for i, axis := range []string{"x", "y", "z"} {
		f, err := toFloat32(args[i])
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("%s: %s: %w", fn, axis, err)
		}
		v[i] = f
	}
	return v, nil
}
