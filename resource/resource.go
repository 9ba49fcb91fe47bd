// Package resource resolves the on-disk location of resource files
// (signature databases, model data) the pipeline needs at runtime: a
// "share/..." directory relative to the executing binary,
// redirectable via a sibling ".path" file.
package resource

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver locates resource files under a search root.
type Resolver struct {
	root string
}

// NewResolver builds a Resolver rooted at the directory containing the
// running executable, consulting a sibling "share.path" redirection
// file if present.
func NewResolver() (*Resolver, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(exe)
	return NewResolverAt(dir), nil
}

// NewResolverAt builds a Resolver rooted at dir directly, bypassing
// os.Executable (used by tests and by callers embedding the pipeline
// in a larger binary with a known install layout).
func NewResolverAt(dir string) *Resolver {
	root := filepath.Join(dir, "share")
	if redirect, err := os.ReadFile(filepath.Join(dir, "share.path")); err == nil {
		if trimmed := strings.TrimSpace(string(redirect)); trimmed != "" {
			if filepath.IsAbs(trimmed) {
				root = trimmed
			} else {
				root = filepath.Join(dir, trimmed)
			}
		}
	}
	return &Resolver{root: root}
}

// Root returns the resolved share directory.
func (r *Resolver) Root() string {
	return r.root
}

// Path resolves a resource file by name relative to the share
// directory.
func (r *Resolver) Path(name string) string {
	return filepath.Join(r.root, name)
}

// Exists reports whether the named resource file is present.
func (r *Resolver) Exists(name string) bool {
	_, err := os.Stat(r.Path(name))
	return err == nil
}
