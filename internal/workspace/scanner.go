// Package workspace runs the detector and repair engine over files on disk.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/ila/internal/config"
	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/pkg/pathutil"
)

// FileScanner selects the source files a run covers.
type FileScanner struct {
	cfg *config.Config
}

// NewFileScanner creates a scanner over cfg's include and exclude globs,
// which are matched against paths relative to the project root.
func NewFileScanner(cfg *config.Config) *FileScanner {
	return &FileScanner{cfg: cfg}
}

// Scan walks roots and returns the matching files, sorted and deduplicated.
// A root that is a file is taken as is when it is a C# file, so explicitly
// named files bypass the globs.
func (sc *FileScanner) Scan(roots ...string) ([]string, error) {
	if len(roots) == 0 {
		roots = []string{sc.cfg.Project.Root}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if isSourceFile(root) {
				add(root)
			}
			continue
		}

		visited := make(map[string]bool)
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && sc.ShouldIgnoreDirectory(path) {
					return filepath.SkipDir
				}
				real, err := filepath.EvalSymlinks(path)
				if err != nil || visited[real] {
					return filepath.SkipDir
				}
				visited[real] = true
				return nil
			}
			if d.Type()&os.ModeSymlink != 0 && !sc.cfg.Index.FollowSymlinks {
				return nil
			}
			if sc.ShouldProcessFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	debug.Log(debug.ComponentWorkspace, "scanned %d roots, %d files\n", len(roots), len(files))
	return files, nil
}

// ShouldProcessFile reports whether path is a C# file matched by an include
// glob and by no exclude glob.
func (sc *FileScanner) ShouldProcessFile(path string) bool {
	if !isSourceFile(path) {
		return false
	}
	rel := sc.relative(path)
	for _, pattern := range sc.cfg.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}
	if len(sc.cfg.Include) == 0 {
		return true
	}
	for _, pattern := range sc.cfg.Include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// ShouldIgnoreDirectory reports whether an exclude glob covers the whole
// directory, e.g. "**/obj/**" for "src/App/obj".
func (sc *FileScanner) ShouldIgnoreDirectory(path string) bool {
	rel := sc.relative(path)
	for _, pattern := range sc.cfg.Exclude {
		if !strings.HasSuffix(pattern, "/**") {
			continue
		}
		if matched, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); matched {
			return true
		}
	}
	return false
}

func (sc *FileScanner) relative(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return pathutil.ToSlashRelative(path, sc.cfg.Project.Root)
}

func isSourceFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cs")
}
