package metadata

import (
	"path/filepath"
	"strings"

	"github.com/hhatto/gocloc"
)

// markdownLanguage is counted from the goldmark AST instead of gocloc.
const markdownLanguage = "Markdown"

// languageName resolves a gocloc language name from a file's extension, or
// from its name for extensionless build files such as Makefile.
func languageName(path string) (string, bool) {
	base := strings.ToLower(filepath.Base(path))
	if ext := strings.TrimPrefix(filepath.Ext(base), "."); ext != "" {
		if name, ok := gocloc.Exts[ext]; ok {
			return name, true
		}
	}
	name, ok := gocloc.Exts[base]
	return name, ok
}
