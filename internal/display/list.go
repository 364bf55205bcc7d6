package display

import (
	"fmt"
	"io"

	"github.com/harrison/codeview/internal/fileutil"
	"github.com/harrison/codeview/internal/models"
)

// WriteFileList prints one file per line, relative to root unless absolute
// is set. It returns how many paths were written.
func WriteFileList(w io.Writer, root string, entries []models.Entry, absolute bool) (int, error) {
	for i, e := range entries {
		path := e.Path
		if !absolute {
			if key, ok := fileutil.RelativeKey(root, e.Path); ok {
				path = key
			}
		}
		if _, err := fmt.Fprintln(w, path); err != nil {
			return i, fmt.Errorf("write file list: %w", err)
		}
	}
	return len(entries), nil
}
