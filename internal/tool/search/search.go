package search

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/sandbox"
	"github.com/Cyclone1070/aide/internal/tool"
	"github.com/Cyclone1070/aide/internal/tool/fsutil"
	"github.com/Cyclone1070/aide/internal/tool/gitutil"
)

// maxLineLength drops pathological lines instead of echoing them back to
// the model in full.
const maxLineLength = 2000

// Match is one matching line.
type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Request is a regex search over the sandbox subtree.
type Request struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// Response is the bounded match list.
type Response struct {
	Matches   []Match `json:"matches"`
	Truncated bool    `json:"truncated"`
}

// NewSearchTool creates the search_code tool. A pattern that fails to
// compile is reported as an invalid-pattern error, distinct from a
// search that runs and fails.
func NewSearchTool(validator *sandbox.Validator, ignore *gitutil.IgnoreMatcher, maxResults int) tool.Tool {
	return tool.NewBaseTool(
		"search_code",
		"Searches file contents in the workspace with a regular expression",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"pattern": {
					Type:        "string",
					Description: "Regular expression to search for",
				},
				"path": {
					Type:        "string",
					Description: "Directory to search under, relative to the workspace root (default: the root)",
				},
			},
			Required: []string{"pattern"},
		},
		func(ctx context.Context, req Request) (Response, error) {
			return searchCode(ctx, validator, ignore, maxResults, req)
		},
	)
}

func searchCode(ctx context.Context, validator *sandbox.Validator, ignore *gitutil.IgnoreMatcher, maxResults int, req Request) (Response, error) {
	re, err := regexp.Compile(req.Pattern)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", tool.ErrInvalidPattern, err)
	}

	base := req.Path
	if base == "" {
		base = "."
	}
	abs, err := validator.Authorize(base)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel := validator.Rel(path)
		if ignore != nil && ignore.ShouldIgnore(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if binary, err := fsutil.IsBinaryFile(path); err != nil || binary {
			return nil
		}

		if done := searchFile(path, rel, re, maxResults, &resp); done {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}

	if resp.Matches == nil {
		resp.Matches = []Match{}
	}
	return resp, nil
}

// searchFile scans one file and reports true once the result cap is hit.
func searchFile(path, rel string, re *regexp.Regexp, maxResults int, resp *Response) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if len(text) > maxLineLength || !re.MatchString(text) {
			continue
		}
		if len(resp.Matches) >= maxResults {
			resp.Truncated = true
			return true
		}
		resp.Matches = append(resp.Matches, Match{Path: rel, Line: line, Text: text})
	}
	return false
}
