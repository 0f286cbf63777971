// Package sandbox confines filesystem-touching tools to a single project
// root, resolving symlinks before the confinement check so a link inside
// the root cannot be used to escape it (spec.md §4.3, §9).
package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot indicates the resolved path falls outside the sandbox root.
var ErrOutsideRoot = errors.New("path outside project root")

// Sandbox confines path resolution to a single root directory.
type Sandbox struct {
	root string
}

// New builds a Sandbox rooted at root. root is made absolute immediately;
// callers should pass the project directory, not a relative path that may
// change meaning if the process's working directory changes later.
func New(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the sandbox's absolute root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// ResolvePath validates path and returns its normalized absolute form.
// When requireExisting is true, the path (and any symlinks in it) must
// already exist; this is used for reads and for edits that require the
// file to already be present. When false, only the path's existing parent
// directories are resolved through symlinks — the final component is
// allowed to be new, matching write_file's create-or-overwrite semantics.
func (s *Sandbox) ResolvePath(path string, requireExisting bool) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}

	var abs string
	if filepath.IsAbs(path) {
		abs = path
	} else {
		abs = filepath.Join(s.root, path)
	}
	clean := filepath.Clean(abs)

	resolved := clean
	if _, err := os.Lstat(clean); err == nil {
		real, err := filepath.EvalSymlinks(clean)
		if err != nil {
			return "", err
		}
		resolved = real
	} else if requireExisting {
		return "", err
	} else {
		// The final component doesn't exist yet; resolve symlinks in its
		// nearest existing ancestor so a symlinked parent directory can't
		// smuggle the new file outside the root.
		parent := filepath.Dir(clean)
		rest := filepath.Base(clean)
		realParent, err := filepath.EvalSymlinks(parent)
		for os.IsNotExist(err) && parent != filepath.Dir(parent) {
			rest = filepath.Join(filepath.Base(parent), rest)
			parent = filepath.Dir(parent)
			realParent, err = filepath.EvalSymlinks(parent)
		}
		if err != nil {
			return "", err
		}
		resolved = filepath.Join(realParent, rest)
	}

	if !s.isSubpath(resolved) {
		return "", ErrOutsideRoot
	}
	return resolved, nil
}

func (s *Sandbox) isSubpath(target string) bool {
	rel, err := filepath.Rel(s.root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != ".."
}
