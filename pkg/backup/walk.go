// Package backup archives and restores the configuration directory tree.
package backup

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Entry is one path visited by Walk.
type Entry struct {
	// Rel is the slash-separated path relative to the walk root.
	Rel  string
	Path string
	Info fs.FileInfo
}

// DefaultExcludes are transient directories never archived.
var DefaultExcludes = []string{"staging", "logs", ".revisions"}

// Walk lists root's contents in lexical order with every directory
// listed before its contents. Any path element named in excludes is
// skipped along with everything below it. The root itself is not listed.
func Walk(root string, excludes []string) ([]Entry, error) {
	skip := make(map[string]bool, len(excludes))
	for _, e := range excludes {
		skip[e] = true
	}
	var entries []Entry
	if err := walkDir(root, "", skip, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func walkDir(dir, rel string, skip map[string]bool, out *[]Entry) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })

	for _, c := range children {
		if skip[c.Name()] {
			continue
		}
		info, err := c.Info()
		if err != nil {
			return err
		}
		childRel := c.Name()
		if rel != "" {
			childRel = rel + "/" + c.Name()
		}
		path := filepath.Join(dir, c.Name())
		*out = append(*out, Entry{Rel: childRel, Path: path, Info: info})
		if c.IsDir() {
			if err := walkDir(path, childRel, skip, out); err != nil {
				return err
			}
		}
	}
	return nil
}
