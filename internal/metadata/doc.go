// Package metadata turns filesystem paths into models.Entry records.
//
// The walker calls an Extractor for every visited path on its worker
// goroutines, so implementations must be safe for concurrent use. Line
// statistics are optional and provided by a LineStatsProvider; the default
// counter classifies lines with gocloc and parses Markdown with goldmark so
// fenced and indented code blocks count as code.
package metadata
