package store

import (
	"path/filepath"
	"strings"

	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/types"
)

// localFileFields returns a pointer to every non-empty, non-encrypted
// local-file field in the tree.
func localFileFields(root types.Node) []*string {
	var fields []*string
	_ = types.Walk(root, func(n types.Node) error {
		holder, ok := n.(types.LocalFileHolder)
		if !ok {
			return nil
		}
		for _, f := range holder.LocalFiles() {
			if *f == "" || secrets.IsEncrypted(*f) {
				continue
			}
			fields = append(fields, f)
		}
		return nil
	})
	return fields
}

// absolutize resolves relative local-file fields against dir.
func absolutize(root types.Node, dir string) {
	for _, f := range localFileFields(root) {
		if !filepath.IsAbs(*f) {
			*f = filepath.Join(dir, *f)
		}
	}
}

// relativize rewrites local-file fields under dir relative to it. Paths
// outside dir stay absolute.
func relativize(root types.Node, dir string) {
	for _, f := range localFileFields(root) {
		if !filepath.IsAbs(*f) {
			continue
		}
		rel, err := filepath.Rel(dir, *f)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		*f = rel
	}
}

// requiredFileName flattens an absolute path into a single file name so
// every local file gets a distinct slot in the backup.
func requiredFileName(path string) string {
	clean := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
	return strings.ReplaceAll(clean, "/", "_")
}
