package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/sandbox"
	"github.com/Cyclone1070/aide/internal/tool"
	"github.com/Cyclone1070/aide/internal/tool/fsutil"
)

// NewWriteTool creates the write_file tool. Overwrites go through a temp
// file and atomic rename, with the previous content snapshotted to a
// .bak sibling first.
func NewWriteTool(validator *sandbox.Validator) tool.Tool {
	return tool.NewBaseTool(
		"write_file",
		"Writes content to a file inside the workspace, overwriting or appending",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"path": {
					Type:        "string",
					Description: "Path to the file, relative to the workspace root",
				},
				"content": {
					Type:        "string",
					Description: "Content to write",
				},
				"mode": {
					Type:        "string",
					Description: "overwrite (default) or append",
					Enum:        []string{ModeOverwrite, ModeAppend},
				},
			},
			Required: []string{"path", "content"},
		},
		func(ctx context.Context, req WriteRequest) (WriteResponse, error) {
			return writeFile(validator, req)
		},
	)
}

func writeFile(validator *sandbox.Validator, req WriteRequest) (WriteResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeOverwrite
	}

	content := []byte(req.Content)
	if fsutil.IsBinaryContent(content) {
		return WriteResponse{}, fmt.Errorf("%w: refusing to write binary content", tool.ErrBinaryFile)
	}

	size := int64(len(content))
	if mode == ModeAppend {
		// The cap applies to the resulting file, not just the delta.
		if abs, err := validator.Authorize(req.Path); err == nil {
			if info, err := os.Stat(abs); err == nil {
				size += info.Size()
			}
		}
	}

	abs, err := validator.AuthorizeWrite(req.Path, size)
	if err != nil {
		return WriteResponse{}, err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return WriteResponse{}, fmt.Errorf("failed to create parent directories: %w", err)
	}

	switch mode {
	case ModeAppend:
		f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return WriteResponse{}, fmt.Errorf("failed to open file for append: %w", err)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			return WriteResponse{}, fmt.Errorf("failed to append: %w", err)
		}
		if err := f.Close(); err != nil {
			return WriteResponse{}, fmt.Errorf("failed to close file: %w", err)
		}

	default:
		if err := fsutil.SnapshotBackup(abs); err != nil {
			return WriteResponse{}, fmt.Errorf("failed to snapshot previous content: %w", err)
		}
		if err := fsutil.WriteFileAtomic(abs, content, 0o644); err != nil {
			return WriteResponse{}, err
		}
	}

	return WriteResponse{
		Path:         validator.Rel(abs),
		BytesWritten: len(content),
		Mode:         mode,
	}, nil
}
