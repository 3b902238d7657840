package directory

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/sandbox"
	"github.com/Cyclone1070/aide/internal/tool"
	"github.com/Cyclone1070/aide/internal/tool/gitutil"
)

// Entry is one listed file or directory.
type Entry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// ListRequest enumerates files under a sandboxed directory.
type ListRequest struct {
	Path    string `json:"path,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// ListResponse is the bounded listing.
type ListResponse struct {
	Entries   []Entry `json:"entries"`
	Truncated bool    `json:"truncated"`
}

// NewListTool creates the list_files tool. Listings are gitignore-aware,
// never follow symlinks out of the sandbox, and are capped at maxResults
// to keep responses bounded.
func NewListTool(validator *sandbox.Validator, ignore *gitutil.IgnoreMatcher, maxResults int) tool.Tool {
	return tool.NewBaseTool(
		"list_files",
		"Lists files under a workspace directory, optionally filtered by a glob pattern",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"path": {
					Type:        "string",
					Description: "Directory to list, relative to the workspace root (default: the root)",
				},
				"pattern": {
					Type:        "string",
					Description: "Optional glob pattern applied to file names, e.g. '*.go'",
				},
			},
		},
		func(ctx context.Context, req ListRequest) (ListResponse, error) {
			return listFiles(ctx, validator, ignore, maxResults, req)
		},
	)
}

func listFiles(ctx context.Context, validator *sandbox.Validator, ignore *gitutil.IgnoreMatcher, maxResults int, req ListRequest) (ListResponse, error) {
	base := req.Path
	if base == "" {
		base = "."
	}
	abs, err := validator.Authorize(base)
	if err != nil {
		return ListResponse{}, err
	}

	if req.Pattern != "" {
		if _, err := filepath.Match(req.Pattern, ""); err != nil {
			return ListResponse{}, fmt.Errorf("%w: %v", tool.ErrInvalidPattern, err)
		}
	}

	var resp ListResponse
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == abs {
			return nil
		}

		rel := validator.Rel(path)
		if ignore != nil && ignore.ShouldIgnore(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// WalkDir does not follow symlinks, so a link pointing outside
		// the sandbox is listed as a plain entry, never traversed.
		if req.Pattern != "" {
			matched, _ := filepath.Match(req.Pattern, d.Name())
			if !matched {
				return nil
			}
		}

		if len(resp.Entries) >= maxResults {
			resp.Truncated = true
			return filepath.SkipAll
		}

		entry := Entry{Path: rel, IsDir: d.IsDir()}
		if info, err := d.Info(); err == nil && !d.IsDir() {
			entry.Size = info.Size()
		}
		resp.Entries = append(resp.Entries, entry)
		return nil
	})
	if err != nil {
		return ListResponse{}, err
	}

	if resp.Entries == nil {
		resp.Entries = []Entry{}
	}
	return resp, nil
}
