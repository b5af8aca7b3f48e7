package scene

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// Duplicate copies the subtree rooted at id and inserts the copy right
// after the original under a fresh sibling name. Mesh data is deep copied
// so edits to either subtree never alias.
func (s *Scene) Duplicate(id NodeID) (*Node, error) {
	src := s.nodes[id]
	if src == nil {
		return nil, fmt.Errorf("duplicate %s: %w", id, ErrNodeNotFound)
	}
	if id == s.Root {
		return nil, fmt.Errorf("duplicate %s: cannot duplicate the root", id)
	}

	parent := s.nodes[src.Parent]
	name := s.UniqueChildName(parent.ID, src.Name)
	dup, err := s.copySubtree(src, parent.ID, name)
	if err != nil {
		return nil, err
	}

	// AddChild appended the copy; move it next to the original.
	kids := parent.Children[:len(parent.Children)-1]
	at := 0
	for i, cid := range kids {
		if cid == id {
			at = i + 1
			break
		}
	}
	reordered := make([]NodeID, 0, len(parent.Children))
	reordered = append(reordered, kids[:at]...)
	reordered = append(reordered, dup.ID)
	reordered = append(reordered, kids[at:]...)
	parent.Children = reordered
	return dup, nil
}

func (s *Scene) copySubtree(src *Node, parent NodeID, name string) (*Node, error) {
	n, err := s.AddChild(parent, name, src.Type)
	if err != nil {
		return nil, err
	}
	if src.Mesh != nil {
		if err := copier.CopyWithOption(n.Mesh, src.Mesh, copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("duplicate %s: copy mesh: %w", src.ID, err)
		}
	}
	for _, cid := range append([]NodeID(nil), src.Children...) {
		c := s.nodes[cid]
		if c == nil {
			continue
		}
		if _, err := s.copySubtree(c, n.ID, c.Name); err != nil {
			return nil, err
		}
	}
	return n, nil
}
