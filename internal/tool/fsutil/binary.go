package fsutil

import (
	"io"
	"os"
)

// BinaryDetectionSampleSize is how many leading bytes the NUL-byte
// heuristic inspects.
const BinaryDetectionSampleSize = 4096

// IsBinaryFile reports whether the file at path looks binary, by
// scanning its leading bytes for NUL.
func IsBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, BinaryDetectionSampleSize)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	return containsNUL(buf[:n]), nil
}

// IsBinaryContent reports whether content looks binary. UTF-16/32 BOMs
// are treated as text even though they contain NUL bytes.
func IsBinaryContent(content []byte) bool {
	if len(content) >= 2 {
		if (content[0] == 0xFF && content[1] == 0xFE) ||
			(content[0] == 0xFE && content[1] == 0xFF) {
			return false
		}
	}
	sample := content
	if len(sample) > BinaryDetectionSampleSize {
		sample = sample[:BinaryDetectionSampleSize]
	}
	return containsNUL(sample)
}

func containsNUL(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}
