package file

import (
	"context"
	"fmt"
	"os"

	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/sandbox"
	"github.com/Cyclone1070/aide/internal/tool"
	"github.com/Cyclone1070/aide/internal/tool/fsutil"
)

// NewReadTool creates the read_file tool bound to a sandbox validator.
func NewReadTool(validator *sandbox.Validator) tool.Tool {
	return tool.NewBaseTool(
		"read_file",
		"Reads the contents of a text file inside the workspace",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"path": {
					Type:        "string",
					Description: "Path to the file, relative to the workspace root",
				},
			},
			Required: []string{"path"},
		},
		func(ctx context.Context, req ReadRequest) (ReadResponse, error) {
			return readFile(validator, req)
		},
	)
}

func readFile(validator *sandbox.Validator, req ReadRequest) (ReadResponse, error) {
	// Authorization runs immediately before the read and is never
	// cached across calls.
	abs, err := validator.AuthorizeRead(req.Path)
	if err != nil {
		return ReadResponse{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return ReadResponse{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return ReadResponse{}, fmt.Errorf("%s is a directory, not a file", req.Path)
	}

	binary, err := fsutil.IsBinaryFile(abs)
	if err != nil {
		return ReadResponse{}, fmt.Errorf("failed to inspect file: %w", err)
	}
	if binary {
		return ReadResponse{}, fmt.Errorf("%w: %s", tool.ErrBinaryFile, req.Path)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return ReadResponse{}, fmt.Errorf("failed to read file: %w", err)
	}

	return ReadResponse{
		Path:    validator.Rel(abs),
		Size:    info.Size(),
		Content: string(content),
	}, nil
}
