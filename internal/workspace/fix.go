package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/edit"
	"github.com/standardbeagle/ila/internal/errors"
	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/repair"
	"github.com/standardbeagle/ila/internal/syntax"
	"github.com/standardbeagle/ila/pkg/pathutil"
)

// FixOptions controls Fix.
type FixOptions struct {
	// DryRun computes diffs without writing.
	DryRun bool
}

// FileFix is the outcome of fixing one file.
type FileFix struct {
	Path    string           `json:"path"`
	Applied int              `json:"applied"`
	Skipped []repair.Skipped `json:"-"`
	Diff    string           `json:"diff,omitempty"`
	Written bool             `json:"written"`
	// Fingerprint identifies the content the fix was computed from.
	Fingerprint uint64 `json:"fingerprint"`
	After       []byte `json:"-"`
}

// FixResult is the outcome of Fix.
type FixResult struct {
	Files  []*FileFix
	Errors []error
}

// Applied sums the fixes applied across files.
func (r *FixResult) Applied() int {
	n := 0
	for _, f := range r.Files {
		n += f.Applied
	}
	return n
}

// Fix applies key to every eligible finding of files. Files are fixed one
// after another on a shared compilation so later files see earlier edits.
// Unless DryRun is set, a file is written back only when its content on
// disk still matches the snapshot the fix was computed from.
func (r *Runner) Fix(ctx context.Context, files []string, key repair.ActionKey, opts FixOptions) (*FixResult, error) {
	comp, fileErrs, err := r.Load(ctx, files)
	if err != nil {
		return nil, err
	}
	originals := comp.Documents()
	defer closeAll(originals)

	res := &FixResult{Errors: fileErrs}
	for _, doc := range originals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		all, err := r.engine.FixAll(comp, doc, key)
		if err != nil {
			return nil, err
		}
		ff := &FileFix{Path: doc.Path, Applied: all.Applied, Skipped: all.Skipped, Fingerprint: edit.Fingerprint(doc.Source)}
		if all.Changed() {
			comp = all.Compilation
			ff.After = all.Document.Source
			ff.Diff = UnifiedDiff(r.displayPath(doc.Path), doc.Source, ff.After)
			if !doc.HasErrors() && all.Document.HasErrors() {
				pos, _ := all.Document.FirstError()
				res.Errors = append(res.Errors, errors.NewFixError(string(key), doc.Path, 0, fmt.Errorf("%w at %s", errors.ErrBrokenOutput, pos)))
			} else if !opts.DryRun {
				if err := WriteIfUnchanged(doc.Path, ff.Fingerprint, ff.After); err != nil {
					res.Errors = append(res.Errors, err)
				} else {
					ff.Written = true
				}
			}
			defer all.Document.Close()
		}
		res.Files = append(res.Files, ff)
	}

	debug.Log(debug.ComponentWorkspace, "fix %s: %d fixes in %d files (dry run: %v)\n", key, res.Applied(), len(res.Files), opts.DryRun)
	return res, nil
}

// FixAt computes key for the field at offset in path without writing.
// files supplies the rest of the compilation, e.g. for base classes
// declared elsewhere.
func (r *Runner) FixAt(ctx context.Context, files []string, path string, offset int, key repair.ActionKey) (*FileFix, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if !contains(files, path) {
		files = append(append([]string{}, files...), path)
	}

	comp, _, err := r.Load(ctx, files)
	if err != nil {
		return nil, err
	}
	defer Release(comp)

	doc := comp.Document(path)
	if doc == nil {
		// Load skipped it; reloading reports why.
		if _, err := r.loadFile(path); err != nil {
			return nil, err
		}
		return nil, errors.NewFileError("load", path, os.ErrNotExist)
	}
	return r.fixAt(comp, doc, offset, key)
}

// FixSourceAt is FixAt for an in-memory source.
func (r *Runner) FixSourceAt(path string, src []byte, offset int, key repair.ActionKey) (*FileFix, error) {
	doc, err := syntax.Parse(path, src)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	comp := model.NewCompilation([]*syntax.Document{doc}, model.WithExternTypes(r.externs...))
	return r.fixAt(comp, doc, offset, key)
}

func (r *Runner) fixAt(comp *model.Compilation, doc *syntax.Document, offset int, key repair.ActionKey) (*FileFix, error) {
	out, err := r.engine.ApplyAt(comp, doc, offset, key)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	return &FileFix{
		Path:        doc.Path,
		Applied:     1,
		Diff:        UnifiedDiff(r.displayPath(doc.Path), doc.Source, out.Source),
		Fingerprint: edit.Fingerprint(doc.Source),
		After:       out.Source,
	}, nil
}

// WriteIfUnchanged replaces path with content when the file's current
// fingerprint equals want. The write goes through a temporary file in the
// same directory and keeps the file mode.
func WriteIfUnchanged(path string, want uint64, content []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewFileError("stat", path, err)
	}
	current, err := os.ReadFile(path)
	if err != nil {
		return errors.NewFileError("read", path, err)
	}
	if edit.Fingerprint(current) != want {
		return errors.NewFileError("write", path, errors.ErrStaleSnapshot)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".ila-*")
	if err != nil {
		return errors.NewFileError("write", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.NewFileError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewFileError("write", path, err)
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return errors.NewFileError("chmod", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewFileError("rename", path, err)
	}
	return nil
}

// UnifiedDiff renders a git-style diff of one file.
func UnifiedDiff(name string, before, after []byte) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("diff %s: %v\n", name, err)
	}
	return text
}

func (r *Runner) displayPath(path string) string {
	return pathutil.ToSlashRelative(path, r.cfg.Project.Root)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
