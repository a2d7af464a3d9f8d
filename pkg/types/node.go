package types

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the exact runtime type of a Node.
type Kind string

// Node is an element of the configuration tree.
type Node interface {
	// Kind returns the exact type key used for validator dispatch.
	Kind() Kind
	// NodeName is unique among the node's siblings.
	NodeName() string
	// Children returns declared children in a stable order: declaration
	// order for fixed fields, insertion order for collections.
	Children() []Node
	// Child looks up a direct child by name.
	Child(name string) (Node, bool)
	// Parent returns the owning node, nil for the document root and
	// deployments.
	Parent() Node

	setParent(parent Node)
}

// Collection is a node holding named, ordered children of one type.
type Collection interface {
	Node
	Items() []Node
	Add(n Node) error
	Remove(name string) (Node, error)
}

// Replacer is a node whose direct children can be replaced by name.
type Replacer interface {
	Node
	Replace(name string, n Node) error
	// DecodeChild decodes a YAML value into a new node of the type stored
	// under name (for collections, the item type).
	DecodeChild(name string, value *yaml.Node) (Node, error)
}

// SecretField describes a field whose value may be an encrypted token.
type SecretField struct {
	Name  string
	Value *string
	// File marks encrypted-file references that decrypt to a temp file.
	File bool
}

// SecretHolder is implemented by nodes carrying secret fields.
type SecretHolder interface {
	Secrets() []SecretField
}

// LocalFileHolder is implemented by nodes whose fields name files that
// travel with the configuration.
type LocalFileHolder interface {
	LocalFiles() []*string
}

type nodeBase struct {
	parent Node
}

func (b *nodeBase) Parent() Node {
	return b.parent
}

func (b *nodeBase) setParent(parent Node) {
	b.parent = parent
}

// leaf is embedded by nodes without children.
type leaf struct {
	nodeBase
}

func (*leaf) Children() []Node { return nil }

func (*leaf) Child(string) (Node, bool) { return nil, false }

// slot is a fixed child field of a container node.
type slot struct {
	name   string
	get    func() Node
	set    func(Node) error
	fresh  func() Node
	decode func(*yaml.Node) (Node, error)
}

type slotted interface {
	slots() []slot
}

// bind declares a fixed child stored in *field.
func bind[T any, PT interface {
	*T
	Node
}](name string, field *PT) slot {
	return slot{
		name: name,
		get: func() Node {
			if *field == nil {
				return nil
			}
			return *field
		},
		set: func(n Node) error {
			v, ok := n.(PT)
			if !ok || v == nil {
				var zero PT
				return IllegalArgumentf("%s expects a %s node", name, zero.Kind())
			}
			*field = v
			return nil
		},
		fresh: func() Node { return PT(new(T)) },
		decode: func(value *yaml.Node) (Node, error) {
			v := PT(new(T))
			if err := value.Decode(v); err != nil {
				return nil, IllegalArgumentf("decode %s: %v", name, err)
			}
			return v, nil
		},
	}
}

func slotChildren(slots []slot) []Node {
	children := make([]Node, 0, len(slots))
	for _, s := range slots {
		if n := s.get(); n != nil {
			children = append(children, n)
		}
	}
	return children
}

func slotChild(slots []slot, name string) (Node, bool) {
	for _, s := range slots {
		if s.name == name {
			n := s.get()
			return n, n != nil
		}
	}
	return nil, false
}

func findSlot(owner Node, slots []slot, name string) (slot, error) {
	for _, s := range slots {
		if s.name == name {
			return s, nil
		}
	}
	return slot{}, NotFoundf("%s has no field %q", PathOf(owner), name)
}

func slotReplace(owner Node, slots []slot, name string, n Node) error {
	s, err := findSlot(owner, slots, name)
	if err != nil {
		return err
	}
	if err := s.set(n); err != nil {
		return err
	}
	attach(owner, name, n)
	return nil
}

func slotDecode(owner Node, slots []slot, name string, value *yaml.Node) (Node, error) {
	s, err := findSlot(owner, slots, name)
	if err != nil {
		return nil, err
	}
	return s.decode(value)
}

// attach makes parent own n and links n's subtree.
func attach(parent Node, name string, n Node) {
	if named, ok := n.(interface{ setName(string) }); ok {
		named.setName(name)
	}
	n.setParent(parent)
	link(n)
}

// link sets parent pointers below n and allocates missing fixed children.
func link(n Node) {
	if s, ok := n.(slotted); ok {
		for _, sl := range s.slots() {
			child := sl.get()
			if child == nil {
				child = sl.fresh()
				_ = sl.set(child)
			}
			attach(n, sl.name, child)
		}
		return
	}
	for _, child := range n.Children() {
		child.setParent(n)
		link(child)
	}
}

// PathOf returns the slash-separated path of n from its deployment.
func PathOf(n Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		if _, root := cur.(*Config); root {
			break
		}
		parts = append(parts, cur.NodeName())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// FindParent returns the closest ancestor of n with type T.
func FindParent[T Node](n Node) (T, bool) {
	var zero T
	if n == nil {
		return zero, false
	}
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if t, ok := cur.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// DeploymentOf returns the deployment owning n, or n itself when it is one.
func DeploymentOf(n Node) (*DeploymentConfiguration, bool) {
	if d, ok := n.(*DeploymentConfiguration); ok {
		return d, true
	}
	return FindParent[*DeploymentConfiguration](n)
}

// Walk visits n and its descendants in pre-order.
func Walk(n Node, fn func(Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}
