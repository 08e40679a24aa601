// Package fspath resolves tool-call target paths against the protected root.
package fspath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrResolve is returned when a path cannot be canonicalized.
var ErrResolve = errors.New("fspath: cannot resolve path")

// Resolved describes one canonicalized target path.
type Resolved struct {
	// Canonical is the absolute path with `.`/`..` segments collapsed and
	// symlinks resolved, so patterns cannot be bypassed via indirection.
	Canonical string

	// Rel is the slash-separated path relative to the reference root,
	// or "" when the target lies outside it.
	Rel string

	// Exists reports whether the target is present on disk.
	Exists bool
}

// Resolve canonicalizes a raw path against the reference root. Relative paths
// are resolved against the root, never the process working directory. The root
// must already be canonical (see [Canonicalize]).
func Resolve(raw, root string) (*Resolved, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrResolve)
	}

	p := raw
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)

	canonical, exists, err := canonicalize(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrResolve, raw, err)
	}

	res := &Resolved{Canonical: canonical, Exists: exists}
	if rel, err := filepath.Rel(root, canonical); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		res.Rel = filepath.ToSlash(rel)
	}
	return res, nil
}

// Canonicalize resolves a directory to its canonical form, following
// symlinks. Intended for the reference root at engine construction.
func Canonicalize(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrResolve, dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrResolve, dir, err)
	}
	return resolved, nil
}

// canonicalize resolves symlinks along p. When p does not exist, the deepest
// existing ancestor is resolved and the missing suffix re-attached, so a path
// about to be created still canonicalizes consistently.
func canonicalize(p string) (string, bool, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, true, nil
	}
	if !os.IsNotExist(err) {
		return "", false, err
	}

	parent := filepath.Dir(p)
	if parent == p {
		return p, false, nil
	}
	cp, _, err := canonicalize(parent)
	if err != nil {
		return "", false, err
	}
	return filepath.Join(cp, filepath.Base(p)), false, nil
}
