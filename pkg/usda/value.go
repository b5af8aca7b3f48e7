package usda

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// valueKind classifies a parsed attribute or metadata value.
type valueKind int

const (
	valNumber valueKind = iota
	valString
	valIdent
	valTuple // ( ... )
	valList  // [ ... ]
	valPath  // < ... >
	valAsset // @ ... @
	valDict  // { ... }, contents discarded
)

type value struct {
	kind  valueKind
	text  string
	num   float64
	items []value
	line  int
}

// contains reports whether s appears as a string or identifier anywhere
// inside v.
func (v value) contains(s string) bool {
	if (v.kind == valString || v.kind == valIdent) && v.text == s {
		return true
	}
	for _, it := range v.items {
		if it.contains(s) {
			return true
		}
	}
	return false
}

func (v value) asBool() (bool, error) {
	switch {
	case v.kind == valIdent && v.text == "true":
		return true, nil
	case v.kind == valIdent && v.text == "false":
		return false, nil
	case v.kind == valNumber:
		return v.num != 0, nil
	}
	return false, fmt.Errorf("expected bool, got %q", v.text)
}

func (v value) asVec3() (mgl32.Vec3, error) {
	if v.kind != valTuple || len(v.items) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("expected (x, y, z) tuple")
	}
	var out mgl32.Vec3
	for i, it := range v.items {
		if it.kind != valNumber {
			return mgl32.Vec3{}, fmt.Errorf("tuple component %d is not a number", i)
		}
		out[i] = float32(it.num)
	}
	return out, nil
}

func (v value) asVec3List() ([]mgl32.Vec3, error) {
	if v.kind != valList {
		return nil, fmt.Errorf("expected array")
	}
	out := make([]mgl32.Vec3, 0, len(v.items))
	for i, it := range v.items {
		p, err := it.asVec3()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (v value) asIntList() ([]int, error) {
	if v.kind != valList {
		return nil, fmt.Errorf("expected array")
	}
	out := make([]int, 0, len(v.items))
	for i, it := range v.items {
		if it.kind != valNumber || it.num != float64(int(it.num)) {
			return nil, fmt.Errorf("element %d is not an integer", i)
		}
		out = append(out, int(it.num))
	}
	return out, nil
}

// asColor accepts either a bare (r, g, b) tuple or an array whose first
// element is one.
func (v value) asColor() (mgl32.Vec3, error) {
	if v.kind == valList {
		if len(v.items) == 0 {
			return mgl32.Vec3{}, fmt.Errorf("empty color array")
		}
		return v.items[0].asVec3()
	}
	return v.asVec3()
}
