package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/navgate/internal/apperr"
	"github.com/starford/navgate/internal/checksum"
	"github.com/starford/navgate/internal/models"
)

// MaxPolicySize bounds a single policy document. Larger files are not
// listed and cannot be read or written, so they never grant anything.
const MaxPolicySize = 64 << 10

// IsPolicyFile reports whether name is a visible file with a policy
// extension (.yaml or .yml, any case).
func IsPolicyFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// FS implements Provider over a directory of policy files.
type FS struct {
	root string // absolute
}

// NewFS creates a new FS provider rooted at an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string {
	return f.root
}

// resolve maps a root-relative path to an absolute one inside root.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute path %q: %w", rel, apperr.ErrInvalid)
	}
	abs := filepath.Join(f.root, filepath.Clean(rel))
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path %q escapes root: %w", rel, apperr.ErrInvalid)
	}
	return abs, nil
}

// policyPath is resolve restricted to policy files.
func (f *FS) policyPath(rel string) (string, error) {
	if !IsPolicyFile(rel) {
		return "", fmt.Errorf("storage: %q is not a policy file: %w", rel, apperr.ErrInvalid)
	}
	return f.resolve(rel)
}

// List walks dir and returns metadata for every policy file in path order.
// Hidden files (including in-flight temp files) and oversized files are
// skipped.
func (f *FS) List(dir string) ([]models.PolicyMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var out []models.PolicyMetadata
	walk := func(p string, d fs.DirEntry, walkErr error) error {
		switch {
		case walkErr != nil:
			return walkErr
		case d.IsDir(), !IsPolicyFile(d.Name()):
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > MaxPolicySize {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		out = append(out, models.PolicyMetadata{
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	}
	if err := filepath.WalkDir(base, walk); err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a policy file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.policyPath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	if info.Size() > MaxPolicySize {
		return nil, fmt.Errorf("storage: %s exceeds %d bytes: %w", path, MaxPolicySize, apperr.ErrInvalid)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces a policy file atomically. Readers, the watcher included,
// see either the old or the new document, never a partial one.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.policyPath(path)
	if err != nil {
		return err
	}
	if len(content) > MaxPolicySize {
		return fmt.Errorf("storage: %s exceeds %d bytes: %w", path, MaxPolicySize, apperr.ErrInvalid)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	return replaceFile(abs, content)
}

// replaceFile writes content next to abs under a hidden name, syncs it
// and renames it into place.
func replaceFile(abs string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".navgate-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// Delete removes a policy file.
func (f *FS) Delete(path string) error {
	abs, err := f.policyPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}
