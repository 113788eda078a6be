package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignoreParser reads a root .gitignore and turns it into exclusion globs.
// Negated patterns are kept for ShouldIgnore but cannot be expressed as
// exclusions.
type GitignoreParser struct {
	patterns []GitignorePattern
}

type GitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool
}

// NewGitignoreParser creates a new gitignore parser
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{}
}

// LoadGitignore loads patterns from rootPath/.gitignore. A missing file is
// not an error.
func (gp *GitignoreParser) LoadGitignore(rootPath string) error {
	file, err := os.Open(filepath.Join(rootPath, ".gitignore"))
	if err != nil {
		return nil
	}
	defer file.Close()
	return gp.scanAndParsePatterns(file)
}

func (gp *GitignoreParser) scanAndParsePatterns(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		gp.AddPattern(line)
	}
	return scanner.Err()
}

// AddPattern adds a single gitignore line.
func (gp *GitignoreParser) AddPattern(line string) {
	p := GitignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.Absolute = true
		line = line[1:]
	} else if strings.Contains(line, "/") {
		// A slash in the middle anchors the pattern as well.
		p.Absolute = true
	}
	if line == "" {
		return
	}
	p.Pattern = line
	gp.patterns = append(gp.patterns, p)
}

// globs returns the doublestar patterns matching p and everything below it.
func (p GitignorePattern) globs() []string {
	base := p.Pattern
	if !p.Absolute && !strings.HasPrefix(base, "**/") {
		base = "**/" + base
	}
	if p.Directory {
		return []string{base + "/**"}
	}
	return []string{base, base + "/**"}
}

// ShouldIgnore reports whether the slash-separated relative path is ignored;
// the last matching pattern wins.
func (gp *GitignoreParser) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	ignored := false
	for _, p := range gp.patterns {
		if p.Directory && !isDir && !matchesUnder(p, path) {
			continue
		}
		for _, g := range p.globs() {
			if ok, _ := doublestar.Match(g, path); ok {
				ignored = !p.Negate
				break
			}
		}
	}
	return ignored
}

// matchesUnder reports whether a file path lies below a directory pattern.
func matchesUnder(p GitignorePattern, path string) bool {
	for _, g := range p.globs() {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}

// GetExclusionPatterns converts the non-negated patterns to exclusions.
func (gp *GitignoreParser) GetExclusionPatterns() []string {
	var out []string
	for _, p := range gp.patterns {
		if p.Negate {
			continue
		}
		out = append(out, p.globs()...)
	}
	return DeduplicatePatterns(out)
}
