package file

import (
	"fmt"
)

// Write modes accepted by the write_file tool.
const (
	ModeOverwrite = "overwrite"
	ModeAppend    = "append"
)

// ReadRequest asks for the contents of one sandboxed file.
type ReadRequest struct {
	Path string `json:"path"`
}

// ReadResponse carries the file contents back to the model.
type ReadResponse struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

// WriteRequest replaces or extends one sandboxed file.
type WriteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
}

// Validate normalizes and checks the write mode.
func (r WriteRequest) Validate() error {
	switch r.Mode {
	case "", ModeOverwrite, ModeAppend:
		return nil
	}
	return fmt.Errorf("mode must be %q or %q, got %q", ModeOverwrite, ModeAppend, r.Mode)
}

// WriteResponse reports what landed on disk.
type WriteResponse struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
	Mode         string `json:"mode"`
}
