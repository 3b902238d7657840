// Package gitutil filters sandbox listings and searches through the
// workspace's .gitignore, using go-git's matcher implementation.
package gitutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreReadError is returned when .gitignore exists but cannot be read.
type IgnoreReadError struct {
	Path  string
	Cause error
}

func (e *IgnoreReadError) Error() string {
	return fmt.Sprintf("failed to read .gitignore at %s: %v", e.Path, e.Cause)
}
func (e *IgnoreReadError) Unwrap() error { return e.Cause }

// IgnoreMatcher matches workspace-relative paths against the root
// .gitignore. A missing .gitignore produces a matcher that never ignores.
type IgnoreMatcher struct {
	matcher gitignore.Matcher
}

// NewIgnoreMatcher loads .gitignore from the workspace root.
func NewIgnoreMatcher(root string) (*IgnoreMatcher, error) {
	path := filepath.Join(root, ".gitignore")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &IgnoreMatcher{}, nil
		}
		return nil, &IgnoreReadError{Path: path, Cause: err}
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if err := scanner.Err(); err != nil {
		return nil, &IgnoreReadError{Path: path, Cause: err}
	}

	return &IgnoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ShouldIgnore reports whether the workspace-relative path is ignored.
// The .git directory itself is always ignored.
func (m *IgnoreMatcher) ShouldIgnore(rel string, isDir bool) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 0 && parts[0] == ".git" {
		return true
	}
	if m.matcher == nil {
		return false
	}
	return m.matcher.Match(parts, isDir)
}
