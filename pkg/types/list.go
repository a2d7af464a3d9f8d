package types

import (
	"gopkg.in/yaml.v3"
)

// NodeList is an ordered collection of uniquely named nodes. It marshals
// as a plain YAML sequence.
type NodeList[T Node] struct {
	nodeBase
	name  string
	items []T
}

// NewNodeList creates a list holding the given items.
func NewNodeList[T Node](items ...T) *NodeList[T] {
	l := &NodeList[T]{}
	for _, item := range items {
		l.items = append(l.items, item)
		item.setParent(l)
	}
	return l
}

// Kind derives from the item kind, so lists of different types dispatch
// separately.
func (l *NodeList[T]) Kind() Kind {
	var zero T
	return "list:" + zero.Kind()
}

func (l *NodeList[T]) NodeName() string { return l.name }

func (l *NodeList[T]) setName(name string) { l.name = name }

// Len returns the number of items.
func (l *NodeList[T]) Len() int { return len(l.items) }

// All returns the typed items in insertion order.
func (l *NodeList[T]) All() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Get returns the typed item with the given name.
func (l *NodeList[T]) Get(name string) (T, bool) {
	for _, item := range l.items {
		if item.NodeName() == name {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (l *NodeList[T]) Children() []Node {
	return l.Items()
}

func (l *NodeList[T]) Items() []Node {
	out := make([]Node, len(l.items))
	for i, item := range l.items {
		out[i] = item
	}
	return out
}

func (l *NodeList[T]) Child(name string) (Node, bool) {
	item, ok := l.Get(name)
	if !ok {
		return nil, false
	}
	return item, true
}

// Add appends n. An existing item with the same name is never replaced.
func (l *NodeList[T]) Add(n Node) error {
	item, err := l.typed(n)
	if err != nil {
		return err
	}
	if _, exists := l.Get(item.NodeName()); exists {
		return Duplicatef("%s already contains %q", l.describe(), item.NodeName())
	}
	l.items = append(l.items, item)
	attach(l, item.NodeName(), item)
	return nil
}

// Remove detaches and returns the named item.
func (l *NodeList[T]) Remove(name string) (Node, error) {
	for i, item := range l.items {
		if item.NodeName() == name {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			item.setParent(nil)
			return item, nil
		}
	}
	return nil, NotFoundf("%s has no item %q", l.describe(), name)
}

// Replace swaps the named item for n, keeping its position. n must carry
// the same name.
func (l *NodeList[T]) Replace(name string, n Node) error {
	item, err := l.typed(n)
	if err != nil {
		return err
	}
	if item.NodeName() != name {
		return IllegalArgumentf("cannot store %q under name %q", item.NodeName(), name)
	}
	for i, existing := range l.items {
		if existing.NodeName() == name {
			existing.setParent(nil)
			l.items[i] = item
			attach(l, name, item)
			return nil
		}
	}
	return NotFoundf("%s has no item %q", l.describe(), name)
}

// DecodeChild decodes a YAML value into a new item.
func (l *NodeList[T]) DecodeChild(_ string, value *yaml.Node) (Node, error) {
	if value == nil || value.Kind != yaml.MappingNode {
		return nil, IllegalArgumentf("%s items must be YAML mappings", l.describe())
	}
	var item T
	if err := value.Decode(&item); err != nil {
		return nil, IllegalArgumentf("decode %s item: %v", l.describe(), err)
	}
	return item, nil
}

func (l *NodeList[T]) typed(n Node) (T, error) {
	var zero T
	if n == nil {
		return zero, IllegalArgumentf("%s cannot hold a nil node", l.describe())
	}
	item, ok := n.(T)
	if !ok {
		return zero, IllegalArgumentf("%s only accepts %s nodes", l.describe(), zero.Kind())
	}
	if item.NodeName() == "" {
		return zero, IllegalArgumentf("%s items require a name", l.describe())
	}
	return item, nil
}

func (l *NodeList[T]) describe() string {
	if p := PathOf(l); p != "" {
		return p
	}
	return string(l.Kind())
}

// MarshalYAML encodes the list as a sequence.
func (l *NodeList[T]) MarshalYAML() (interface{}, error) {
	if l.items == nil {
		return []T{}, nil
	}
	return l.items, nil
}

// UnmarshalYAML decodes a sequence, replacing any existing items.
func (l *NodeList[T]) UnmarshalYAML(value *yaml.Node) error {
	var items []T
	if err := value.Decode(&items); err != nil {
		return err
	}
	l.items = items
	return nil
}
