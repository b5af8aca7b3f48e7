package usda

import "github.com/chazu/kiln/pkg/scene"

// Decode parses src and replaces the contents of s with it. Scene.Name is
// left at its cleared default; LoadFile sets it from the file name.
func Decode(s *scene.Scene, src string) []scene.Issue {
	return Parse(src).Apply(s)
}

// Apply clears s and builds the document's prims into it. A top-level
// Xform named after defaultPrim becomes the root itself.
func (d *Document) Apply(s *scene.Scene) []scene.Issue {
	s.Clear()
	s.UpAxis = d.UpAxis
	s.MetersPerUnit = d.MetersPerUnit
	s.SetDefaultPrim(d.DefaultPrim)

	issues := append([]scene.Issue(nil), d.Issues...)
	return append(issues, s.ImportStage(d.Prims)...)
}
