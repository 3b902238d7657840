package sandbox

import (
	"path/filepath"
	"strings"
)

// Policy is the immutable sandbox configuration shared read-only by every
// tool handler. Construct it once via NewPolicy and never mutate it.
type Policy struct {
	// Root is the canonical directory outside of which no tool may read
	// or write.
	Root string

	// MaxFileSize caps both reads and writes, in bytes.
	MaxFileSize int64

	// AllowedExtensions, when non-empty, restricts file access to the
	// listed extensions (".go", ".md", ...). Empty means no filtering.
	AllowedExtensions []string

	// AllowedCommands, when non-empty, is the closed set of executables
	// the run_command tool may spawn. Empty disables the tool entirely.
	AllowedCommands []string
}

// NewPolicy canonicalises root and returns the policy. The root must
// exist and be a directory.
func NewPolicy(root string, maxFileSize int64, allowedExtensions, allowedCommands []string) (*Policy, error) {
	canonical, err := CanonicaliseRoot(root)
	if err != nil {
		return nil, err
	}
	return &Policy{
		Root:              canonical,
		MaxFileSize:       maxFileSize,
		AllowedExtensions: allowedExtensions,
		AllowedCommands:   allowedCommands,
	}, nil
}

// ExtensionAllowed reports whether the policy permits the path's
// extension. Paths without an extension are always permitted so that
// Makefiles, LICENSE files and the like stay reachable.
func (p *Policy) ExtensionAllowed(path string) bool {
	if len(p.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return true
	}
	for _, allowed := range p.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// CommandAllowed reports whether the policy permits spawning the named
// executable.
func (p *Policy) CommandAllowed(name string) bool {
	for _, allowed := range p.AllowedCommands {
		if allowed == name {
			return true
		}
	}
	return false
}
