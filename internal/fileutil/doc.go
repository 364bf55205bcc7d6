// Package fileutil provides the path helpers shared by the scanner, the tree
// assembler and selection persistence.
//
// # Path identity
//
// Every entry is identified by its absolute, cleaned path. The walker builds
// child paths by joining the scan root with directory entry names, so the
// tree can find a node's parent with ParentPath alone, without touching the
// filesystem.
//
// # Selection keys
//
// Saved selections use root-relative keys with "/" separators on every
// platform (RelativeKey, FromKey). The root itself never has a key.
//
// # Repository discovery
//
// FindRepoRoot walks upwards from a directory until it finds one containing
// a .git entry; the ignore package uses it to bound ancestor ignore files.
package fileutil
