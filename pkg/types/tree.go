package types

import (
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// SplitPath splits a slash-separated node path into segments.
func SplitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// JoinPath joins segments into a node path.
func JoinPath(segments ...string) string {
	return strings.Trim(path.Join(segments...), "/")
}

// Get resolves a path below root.
func Get(root Node, p string) (Node, error) {
	cur := root
	for i, seg := range SplitPath(p) {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, NotFoundf("no node at %q (missing %q)", JoinPath(SplitPath(p)[:i+1]...), seg)
		}
		cur = next
	}
	return cur, nil
}

// Set replaces the node at p with n. The parent of p must accept
// replacement and n must have the same type as the slot it fills.
func Set(root Node, p string, n Node) error {
	segments := SplitPath(p)
	if len(segments) == 0 {
		return IllegalArgumentf("cannot replace the document root")
	}
	if n == nil {
		return IllegalArgumentf("cannot set %q to nil", p)
	}
	parent, err := Get(root, JoinPath(segments[:len(segments)-1]...))
	if err != nil {
		return err
	}
	name := segments[len(segments)-1]
	r, ok := parent.(Replacer)
	if !ok {
		return IllegalArgumentf("%q does not support replacing children", JoinPath(segments[:len(segments)-1]...))
	}
	return r.Replace(name, n)
}

// Add inserts n into the collection at collectionPath.
func Add(root Node, collectionPath string, n Node) error {
	c, err := collectionAt(root, collectionPath)
	if err != nil {
		return err
	}
	return c.Add(n)
}

// Remove deletes the named item from the collection at collectionPath.
func Remove(root Node, collectionPath, name string) (Node, error) {
	c, err := collectionAt(root, collectionPath)
	if err != nil {
		return nil, err
	}
	return c.Remove(name)
}

func collectionAt(root Node, p string) (Collection, error) {
	n, err := Get(root, p)
	if err != nil {
		return nil, err
	}
	c, ok := n.(Collection)
	if !ok {
		return nil, IllegalArgumentf("%q is not a collection", p)
	}
	return c, nil
}

// Decode builds a node suitable for Set(p) or, when asItem is true, for
// Add into the collection at p.
func Decode(root Node, p string, asItem bool, value *yaml.Node) (Node, error) {
	target := p
	name := ""
	if !asItem {
		segments := SplitPath(p)
		if len(segments) == 0 {
			return nil, IllegalArgumentf("cannot decode the document root")
		}
		target = JoinPath(segments[:len(segments)-1]...)
		name = segments[len(segments)-1]
	}
	parent, err := Get(root, target)
	if err != nil {
		return nil, err
	}
	r, ok := parent.(Replacer)
	if !ok {
		return nil, IllegalArgumentf("%q does not accept new children", target)
	}
	return r.DecodeChild(name, value)
}

// CloneNode deep-copies n into a fresh node of the type Decode would build
// for p, so the result shares no pointers with the caller's value.
func CloneNode(root Node, p string, asItem bool, n Node) (Node, error) {
	if n == nil {
		return nil, IllegalArgumentf("cannot use a nil node at %q", p)
	}
	var value yaml.Node
	if err := value.Encode(n); err != nil {
		return nil, Fatalf(err, "copy %s node", n.Kind())
	}
	out, err := Decode(root, p, asItem, &value)
	if err != nil {
		return nil, err
	}
	if out.Kind() != n.Kind() {
		return nil, IllegalArgumentf("%q only accepts %s nodes, got %s", p, out.Kind(), n.Kind())
	}
	return out, nil
}
