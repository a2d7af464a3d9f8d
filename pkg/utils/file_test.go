package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.yml")

	require.NoError(t, WriteFileAtomic(path, []byte("a: 1\n"), 0600))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, WriteFileAtomic(path, []byte("a: 2\n"), 0644))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a: 2\n", string(data))

	// No temp files are left behind.
	files, err := ListFiles(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.yml"}, files)
}

func TestCopyFileAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0600))

	dst := filepath.Join(dir, "out", "run.sh")
	require.NoError(t, CopyFileAtomic(src, dst, 0755))
	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	assert.Error(t, CopyFileAtomic(filepath.Join(dir, "missing"), dst, 0600))
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), nil, 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0700))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml", "b.yml"}, files)

	files, err = ListFiles(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Nil(t, files)
}
