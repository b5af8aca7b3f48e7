package scene

import "fmt"

// NodeID identifies a node within one Scene. IDs are never reused, so an
// ID held across a removal simply stops resolving.
type NodeID uint64

// ZeroID is the "no node" sentinel, used as the root's parent.
const ZeroID NodeID = 0

// IsZero reports whether id is the sentinel.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

func (id NodeID) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

// Node is a single prim in the scene. Mesh is non-nil exactly when
// Type == Mesh.
type Node struct {
	ID       NodeID
	Name     string
	Type     PrimType
	Mesh     *MeshData
	Parent   NodeID
	Children []NodeID
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}
