package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskWriteReadRemove(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, disk.WriteFile("barcodes/FUR-001.png", []byte("png")))

	data, err := disk.ReadFile("barcodes/FUR-001.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	ok, err := disk.Exists("barcodes/FUR-001.png")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, disk.Remove("barcodes/FUR-001.png"))
	ok, err = disk.Exists("barcodes/FUR-001.png")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, disk.Remove("barcodes/FUR-001.png"), "removing a missing file is not an error")
}

func TestDiskWriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	disk, err := NewDisk(root)
	require.NoError(t, err)

	require.NoError(t, disk.WriteFile("barcodes/a.png", []byte("one")))
	require.NoError(t, disk.WriteFile("barcodes/a.png", []byte("two")))

	entries, err := os.ReadDir(filepath.Join(root, "barcodes"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.png", entries[0].Name())

	data, err := disk.ReadFile("barcodes/a.png")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestDiskLeadingSlashStaysInsideRoot(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, disk.WriteFile("/barcodes/x.png", []byte("x")))
	ok, err := disk.Exists("barcodes/x.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDiskTraversalIsClampedToRoot(t *testing.T) {
	root := t.TempDir()
	disk, err := NewDisk(filepath.Join(root, "uploads"))
	require.NoError(t, err)

	require.NoError(t, disk.WriteFile("../../escape.png", []byte("x")))

	_, err = os.Stat(filepath.Join(root, "escape.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "uploads", "escape.png"))
	assert.NoError(t, err)
}

func TestDiskRejectsEmptyPath(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, disk.WriteFile("  ", []byte("x")))
	assert.Error(t, disk.Remove("/"))
}
