// Package pathutil converts between the absolute paths used internally and
// the root-relative paths shown to users.
//
// Files are loaded, keyed and compared by absolute path. Output (diagnostic
// locations, diff headers, glob matching) uses paths relative to the project
// root with forward slashes so results look the same on every platform.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails, the path lies outside
// the root or is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/Orders.cs", "/home/user/project") → "src/Orders.cs"
//   - ToRelative("/other/location/Orders.cs", "/home/user/project") → "/other/location/Orders.cs"
//   - ToRelative("src/Orders.cs", "/home/user/project") → "src/Orders.cs"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// e.g. different drives on Windows
		return absPath
	}
	if escapesRoot(relPath) {
		return absPath
	}
	return relPath
}

// ToSlashRelative is ToRelative with forward slashes, the form used for
// display and glob matching.
func ToSlashRelative(absPath, rootDir string) string {
	return filepath.ToSlash(ToRelative(absPath, rootDir))
}

// ToAbsolute resolves path against rootDir. Absolute paths are only cleaned;
// an empty path means the root itself.
func ToAbsolute(path, rootDir string) string {
	if path == "" {
		return filepath.Clean(rootDir)
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(rootDir, path)
}

// IsWithin reports whether absPath is rootDir or lies below it.
func IsWithin(absPath, rootDir string) bool {
	relPath, err := filepath.Rel(filepath.Clean(rootDir), filepath.Clean(absPath))
	return err == nil && !escapesRoot(relPath)
}

// escapesRoot rejects "..", "../x" but keeps names like "..cache".
func escapesRoot(relPath string) bool {
	return relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator))
}
