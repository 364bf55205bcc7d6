package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// MaxBinarySampleSize is the upper bound on bytes read by IsBinary.
const MaxBinarySampleSize = 8192

// IsBinary reports whether the first sampleSize bytes of the file contain a
// NUL byte. A file that no longer exists is reported as not binary.
func IsBinary(path string, sampleSize int) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open %s for binary check: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, clampSampleSize(sampleSize))
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, fmt.Errorf("failed to read %s for binary check: %w", path, err)
	}

	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}

func clampSampleSize(n int) int {
	if n <= 0 || n > MaxBinarySampleSize {
		return MaxBinarySampleSize
	}
	return n
}
