package sandbox

import (
	"os"
	"path/filepath"
	"strings"
)

// Validator authorizes file-system paths against a sandbox policy.
//
// Authorization always resolves symlinks first and validates the final
// canonical target, immediately before the caller performs I/O. Results
// are deliberately never cached: a symlink swapped in between two calls
// must be re-validated, not trusted from an earlier check.
type Validator struct {
	policy *Policy
}

// NewValidator creates a validator for the given policy.
func NewValidator(policy *Policy) *Validator {
	return &Validator{policy: policy}
}

// Policy returns the policy this validator enforces.
func (v *Validator) Policy() *Policy { return v.policy }

// CanonicaliseRoot makes root absolute, resolves symlinks, and verifies
// it is an existing directory.
func CanonicaliseRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &RootError{Root: root, Cause: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &RootError{Root: abs, Cause: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", &RootError{Root: resolved, Cause: err}
	}
	if !info.IsDir() {
		return "", &RootError{Root: resolved, Cause: ErrNotADirectory}
	}
	return resolved, nil
}

// Authorize resolves path to its canonical absolute form and verifies it
// stays inside the sandbox root and carries an allowed extension. The
// target does not have to exist; nonexistent trailing segments are
// resolved against their deepest existing ancestor so a symlinked parent
// cannot smuggle a write outside the root.
func (v *Validator) Authorize(path string) (string, error) {
	if v.policy == nil || v.policy.Root == "" {
		return "", ErrRootNotSet
	}

	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(v.policy.Root, path))
	}

	canonical, err := resolveExisting(abs)
	if err != nil {
		return "", &Violation{Path: path, Err: err}
	}

	if !strings.HasPrefix(canonical, v.policy.Root+string(filepath.Separator)) && canonical != v.policy.Root {
		return "", &Violation{Path: path, Err: ErrPathEscape}
	}

	if !v.policy.ExtensionAllowed(canonical) {
		return "", &Violation{Path: path, Err: ErrDeniedExtension}
	}

	return canonical, nil
}

// AuthorizeRead authorizes path for reading: it must exist, be a regular
// file, and fit the size cap.
func (v *Validator) AuthorizeRead(path string) (string, error) {
	canonical, err := v.Authorize(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(canonical)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &Violation{Path: path, Err: ErrNotFound}
		}
		return "", err
	}
	if v.policy.MaxFileSize > 0 && info.Size() > v.policy.MaxFileSize {
		return "", &Violation{Path: path, Err: ErrTooLarge}
	}
	return canonical, nil
}

// AuthorizeWrite authorizes path for writing size bytes. The target may
// not exist yet; the size cap applies to the content about to land.
func (v *Validator) AuthorizeWrite(path string, size int64) (string, error) {
	canonical, err := v.Authorize(path)
	if err != nil {
		return "", err
	}
	if v.policy.MaxFileSize > 0 && size > v.policy.MaxFileSize {
		return "", &Violation{Path: path, Err: ErrTooLarge}
	}
	return canonical, nil
}

// Rel returns path relative to the sandbox root, for display.
func (v *Validator) Rel(canonical string) string {
	rel, err := filepath.Rel(v.policy.Root, canonical)
	if err != nil {
		return canonical
	}
	return filepath.ToSlash(rel)
}

// resolveExisting resolves symlinks for the deepest existing ancestor of
// path and re-joins the nonexistent remainder onto the resolved prefix.
func resolveExisting(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir := abs
	var tail []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return abs, nil
}
