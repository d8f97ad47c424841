package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Disk stores files below a single root directory. Relative paths are
// slash-separated and may never resolve outside the root.
type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Disk{root: filepath.Clean(abs)}, nil
}

func (d *Disk) Root() string {
	return d.root
}

func (d *Disk) resolve(relPath string) (string, error) {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return "", fmt.Errorf("empty storage path")
	}

	cleanRel := strings.TrimPrefix(path.Clean("/"+trimmed), "/")
	if cleanRel == "" {
		return "", fmt.Errorf("refusing storage root as file path: %s", relPath)
	}

	target := filepath.Clean(filepath.Join(d.root, filepath.FromSlash(cleanRel)))
	if !strings.HasPrefix(target, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("refusing path outside storage root: %s", relPath)
	}
	return target, nil
}

func (d *Disk) EnsureDir(relDir string) error {
	target, err := d.resolve(relDir)
	if err != nil {
		return err
	}
	return os.MkdirAll(target, 0o755)
}

// WriteFile writes through a temp file and a rename so readers never see a
// partially written file, even with concurrent writers of the same path.
func (d *Disk) WriteFile(relPath string, data []byte) error {
	target, err := d.resolve(relPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (d *Disk) ReadFile(relPath string) ([]byte, error) {
	target, err := d.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(target)
}

func (d *Disk) Exists(relPath string) (bool, error) {
	target, err := d.resolve(relPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// Remove deletes a file; a missing file is not an error.
func (d *Disk) Remove(relPath string) error {
	target, err := d.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
