package scene

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Scene defaults applied by New and Clear.
const (
	DefaultName          = "Untitled"
	DefaultUpAxis        = "Y"
	DefaultMetersPerUnit = 1.0
	DefaultPrimName      = "World"
)

// ErrNodeNotFound is returned when an operation names an ID that does not
// resolve to a live node.
var ErrNodeNotFound = errors.New("scene: node not found")

// ErrInvalidName is returned by Rename for empty names and names that
// contain a path separator.
var ErrInvalidName = errors.New("scene: invalid node name")

// Scene is the editable document: stage metadata plus an arena of nodes.
// The root node always exists and is named DefaultPrim.
type Scene struct {
	Name          string
	UpAxis        string
	MetersPerUnit float64
	DefaultPrim   string
	Root          NodeID

	nodes  map[NodeID]*Node
	nextID NodeID
}

// New creates a scene holding only the default root Xform.
func New() *Scene {
	s := &Scene{}
	s.Clear()
	return s
}

// Clear resets the scene to the state returned by New. Every previously
// issued NodeID stops resolving.
func (s *Scene) Clear() {
	s.Name = DefaultName
	s.UpAxis = DefaultUpAxis
	s.MetersPerUnit = DefaultMetersPerUnit
	s.DefaultPrim = DefaultPrimName
	s.nodes = make(map[NodeID]*Node)
	s.Root = s.alloc(DefaultPrimName, Xform, ZeroID).ID
}

// alloc creates a node in the arena without linking it to a parent.
func (s *Scene) alloc(name string, typ PrimType, parent NodeID) *Node {
	s.nextID++
	n := &Node{ID: s.nextID, Name: name, Type: typ, Parent: parent}
	if typ == Mesh {
		n.Mesh = NewMeshData()
	}
	s.nodes[n.ID] = n
	return n
}

// Node returns the node with the given ID, or nil.
func (s *Scene) Node(id NodeID) *Node {
	return s.nodes[id]
}

// RootNode returns the root node.
func (s *Scene) RootNode() *Node {
	return s.nodes[s.Root]
}

// Len returns the number of live nodes, including the root.
func (s *Scene) Len() int {
	return len(s.nodes)
}

// AddChild creates a node under parent and returns it. Mesh nodes get fresh
// MeshData. Names are not checked for uniqueness; see UniqueChildName.
func (s *Scene) AddChild(parent NodeID, name string, typ PrimType) (*Node, error) {
	p := s.nodes[parent]
	if p == nil {
		return nil, fmt.Errorf("add %q under %s: %w", name, parent, ErrNodeNotFound)
	}
	n := s.alloc(name, typ, parent)
	p.Children = append(p.Children, n.ID)
	return n, nil
}

// Children returns the live child nodes of id in order.
func (s *Scene) Children(id NodeID) []*Node {
	n := s.nodes[id]
	if n == nil {
		return nil
	}
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := s.nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// FindChild returns the first immediate child of parent named name.
func (s *Scene) FindChild(parent NodeID, name string) *Node {
	p := s.nodes[parent]
	if p == nil {
		return nil
	}
	for _, cid := range p.Children {
		if c := s.nodes[cid]; c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

// RemoveChild detaches child from parent and drops its whole subtree from
// the arena. It returns false if child is not a direct child of parent.
func (s *Scene) RemoveChild(parent, child NodeID) bool {
	p := s.nodes[parent]
	if p == nil {
		return false
	}
	i := lo.IndexOf(p.Children, child)
	if i < 0 {
		return false
	}
	p.Children = append(p.Children[:i], p.Children[i+1:]...)
	s.drop(child)
	return true
}

// Remove detaches a non-root node from its parent.
func (s *Scene) Remove(id NodeID) bool {
	n := s.nodes[id]
	if n == nil || id == s.Root {
		return false
	}
	return s.RemoveChild(n.Parent, id)
}

// drop deletes id and its descendants from the arena.
func (s *Scene) drop(id NodeID) {
	n := s.nodes[id]
	if n == nil {
		return
	}
	for _, cid := range n.Children {
		s.drop(cid)
	}
	delete(s.nodes, id)
}

// FindNodeByPath resolves an absolute path such as "/World/Cube". Empty
// segments are ignored and the first segment must name the root.
func (s *Scene) FindNodeByPath(path string) *Node {
	segments := lo.Compact(strings.Split(path, "/"))
	if len(segments) == 0 {
		return nil
	}
	cur := s.RootNode()
	if cur == nil || cur.Name != segments[0] {
		return nil
	}
	for _, seg := range segments[1:] {
		cur = s.FindChild(cur.ID, seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Path returns the absolute path of id, or "" if it does not resolve.
func (s *Scene) Path(id NodeID) string {
	var names []string
	for n := s.nodes[id]; n != nil; n = s.nodes[n.Parent] {
		names = append(names, n.Name)
	}
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(names[i])
	}
	return b.String()
}

// Walk visits every node pre-order in child order, starting at the root.
// Returning false from fn skips that node's descendants.
func (s *Scene) Walk(fn func(n *Node, depth int) bool) {
	s.walk(s.Root, 0, fn)
}

func (s *Scene) walk(id NodeID, depth int, fn func(n *Node, depth int) bool) {
	n := s.nodes[id]
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, cid := range n.Children {
		s.walk(cid, depth+1, fn)
	}
}

// Nodes returns every node in traversal order.
func (s *Scene) Nodes() []*Node {
	nodes := make([]*Node, 0, len(s.nodes))
	s.Walk(func(n *Node, _ int) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// Meshes returns the Mesh nodes in traversal order.
func (s *Scene) Meshes() []*Node {
	return lo.Filter(s.Nodes(), func(n *Node, _ int) bool {
		return n.Type == Mesh && n.Mesh != nil
	})
}

// Rename changes a node's name. Renaming the root also updates
// DefaultPrim so the two stay equal.
func (s *Scene) Rename(id NodeID, name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("rename %s to %q: %w", id, name, ErrInvalidName)
	}
	n := s.nodes[id]
	if n == nil {
		return fmt.Errorf("rename %s: %w", id, ErrNodeNotFound)
	}
	n.Name = name
	if id == s.Root {
		s.DefaultPrim = name
	}
	return nil
}

// SetDefaultPrim sets the stage default prim, renaming the root to match.
func (s *Scene) SetDefaultPrim(name string) {
	s.DefaultPrim = name
	if r := s.RootNode(); r != nil {
		r.Name = name
	}
}

// UniqueChildName returns base if no child of parent uses it, otherwise
// the first free name of the form base1, base2, ...
func (s *Scene) UniqueChildName(parent NodeID, base string) string {
	if s.FindChild(parent, base) == nil {
		return base
	}
	for i := 1; ; i++ {
		name := base + strconv.Itoa(i)
		if s.FindChild(parent, name) == nil {
			return name
		}
	}
}

// IsEmpty reports whether the root has no children.
func (s *Scene) IsEmpty() bool {
	r := s.RootNode()
	return r == nil || len(r.Children) == 0
}
