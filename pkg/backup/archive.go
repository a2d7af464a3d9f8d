package backup

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/rzbill/keel/pkg/types"
)

// Create writes a gzip-compressed tar of root to w. Symbolic links and
// other special files are skipped.
func Create(ctx context.Context, root string, w io.Writer, excludes []string) (int, error) {
	entries, err := Walk(root, excludes)
	if err != nil {
		return 0, types.Fatalf(err, "walk %s", root)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	written := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		mode := e.Info.Mode()
		if !mode.IsDir() && !mode.IsRegular() {
			continue
		}
		hdr, err := tar.FileInfoHeader(e.Info, "")
		if err != nil {
			return written, types.Fatalf(err, "archive header for %s", e.Rel)
		}
		hdr.Name = e.Rel
		if mode.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return written, types.Fatalf(err, "archive %s", e.Rel)
		}
		if mode.IsRegular() {
			if err := copyInto(tw, e.Path); err != nil {
				return written, types.Fatalf(err, "archive %s", e.Rel)
			}
		}
		written++
	}
	if err := tw.Close(); err != nil {
		return written, types.Fatalf(err, "close archive")
	}
	if err := gz.Close(); err != nil {
		return written, types.Fatalf(err, "close archive")
	}
	return written, nil
}

func copyInto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Restore extracts an archive produced by Create into root. Directories are
// created before the files in them and existing files are overwritten.
// Entries that would land outside root are rejected.
func Restore(ctx context.Context, r io.Reader, root string) (int, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, types.IllegalArgumentf("not a gzip archive: %v", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(root, 0700); err != nil {
		return 0, types.Fatalf(err, "create %s", root)
	}
	tr := tar.NewReader(gz)
	restored := 0
	for {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return restored, nil
		}
		if err != nil {
			return restored, types.IllegalArgumentf("read archive: %v", err)
		}
		target, err := safeJoin(root, hdr.Name)
		if err != nil {
			return restored, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(hdr)); err != nil {
				return restored, types.Fatalf(err, "create %s", target)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
				return restored, types.Fatalf(err, "create %s", filepath.Dir(target))
			}
			if err := writeEntry(tr, target, os.FileMode(hdr.Mode).Perm()); err != nil {
				return restored, types.Fatalf(err, "restore %s", hdr.Name)
			}
		default:
			continue
		}
		restored++
	}
}

func dirMode(hdr *tar.Header) os.FileMode {
	if perm := os.FileMode(hdr.Mode).Perm(); perm != 0 {
		return perm
	}
	return 0700
}

func writeEntry(r io.Reader, target string, perm os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(target, perm)
}

func safeJoin(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", types.IllegalArgumentf("archive entry %q escapes the target directory", name)
	}
	return filepath.Join(root, clean), nil
}

// CreateFile writes an archive of root to path.
func CreateFile(ctx context.Context, root, path string, excludes []string) (int, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return 0, types.Fatalf(err, "create %s", path)
	}
	n, err := Create(ctx, root, f, excludes)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = types.Fatalf(cerr, "close %s", path)
	}
	if err != nil {
		_ = os.Remove(path)
		return n, err
	}
	return n, nil
}

// RestoreFile extracts the archive at path into root.
func RestoreFile(ctx context.Context, path, root string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, types.NotFoundf("archive %s not found", path)
		}
		return 0, types.Fatalf(err, "open %s", path)
	}
	defer f.Close()
	n, err := Restore(ctx, f, root)
	if err != nil {
		return n, fmt.Errorf("restore %s: %w", path, err)
	}
	return n, nil
}
