package scene

import "fmt"

// Validate checks structural invariants: the root matches DefaultPrim,
// mesh nodes carry well-formed MeshData, and sibling names are unique.
// It never mutates the scene. An empty result means the scene is valid.
func (s *Scene) Validate() []Issue {
	var issues []Issue
	if r := s.RootNode(); r == nil {
		issues = append(issues, Issue{Kind: IssueRootMismatch, Message: "scene has no root"})
		return issues
	} else if r.Name != s.DefaultPrim {
		issues = append(issues, Issue{
			Kind:    IssueRootMismatch,
			Path:    s.Path(r.ID),
			Message: fmt.Sprintf("root name %q differs from defaultPrim %q", r.Name, s.DefaultPrim),
		})
	}

	s.Walk(func(n *Node, _ int) bool {
		issues = append(issues, validateMesh(s, n)...)
		issues = append(issues, validateSiblings(s, n)...)
		return true
	})
	return issues
}

func validateMesh(s *Scene, n *Node) []Issue {
	path := s.Path(n.ID)
	switch {
	case n.Type == Mesh && n.Mesh == nil:
		return []Issue{{Kind: IssueInvalidMesh, Path: path, Message: "mesh node has no mesh data"}}
	case n.Type != Mesh && n.Mesh != nil:
		return []Issue{{Kind: IssueInvalidMesh, Path: path, Message: fmt.Sprintf("%s node carries mesh data", n.Type)}}
	case n.Mesh == nil:
		return nil
	}

	var issues []Issue
	if len(n.Mesh.Indices)%3 != 0 {
		issues = append(issues, Issue{
			Kind:    IssueInvalidMesh,
			Path:    path,
			Message: fmt.Sprintf("index count %d is not a multiple of 3", len(n.Mesh.Indices)),
		})
	}
	for _, idx := range n.Mesh.Indices {
		if int(idx) >= len(n.Mesh.Vertices) {
			issues = append(issues, Issue{
				Kind:    IssueIndexOutOfRange,
				Path:    path,
				Message: fmt.Sprintf("index %d exceeds vertex count %d", idx, len(n.Mesh.Vertices)),
			})
			break
		}
	}
	return issues
}

func validateSiblings(s *Scene, n *Node) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(n.Children))
	for _, c := range s.Children(n.ID) {
		if seen[c.Name] {
			issues = append(issues, Issue{
				Kind:    IssueDuplicateName,
				Path:    s.Path(c.ID),
				Message: fmt.Sprintf("name %q is used by more than one child", c.Name),
			})
			continue
		}
		seen[c.Name] = true
	}
	return issues
}
