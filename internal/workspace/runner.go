package workspace

import (
	"context"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/ila/internal/config"
	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/detect"
	"github.com/standardbeagle/ila/internal/diag"
	"github.com/standardbeagle/ila/internal/errors"
	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/repair"
	"github.com/standardbeagle/ila/internal/syntax"
)

// Runner checks and fixes sets of files under one configuration.
type Runner struct {
	cfg      *config.Config
	detector *detect.Detector
	engine   *repair.Engine
	externs  []model.ExternType
}

// NewRunner builds the detector and engine described by cfg.
func NewRunner(cfg *config.Config) (*Runner, error) {
	rules, err := cfg.RuleTable()
	if err != nil {
		return nil, errors.NewConfigError("rules", "", err)
	}
	externs, err := cfg.ExternTypes()
	if err != nil {
		return nil, errors.NewConfigError("model.extern_types", "", err)
	}

	detector := detect.New(detect.Options{
		LoggerNamespace: cfg.Logger.Namespace,
		LoggerInterface: cfg.Logger.Interface,
		Rules:           rules,
	})
	engine := repair.New(detector, repair.Options{
		BaseParameterName: cfg.Fix.BaseParameterName,
		RetypeTitle:       cfg.Fix.RetypeTitle,
		SplitTitle:        cfg.Fix.SplitTitle,
	})
	return &Runner{cfg: cfg, detector: detector, engine: engine, externs: externs}, nil
}

func (r *Runner) Config() *config.Config     { return r.cfg }
func (r *Runner) Detector() *detect.Detector { return r.detector }
func (r *Runner) Engine() *repair.Engine     { return r.engine }

// Scan selects files under roots using the runner's configuration.
func (r *Runner) Scan(roots ...string) ([]string, error) {
	return NewFileScanner(r.cfg).Scan(roots...)
}

// Finding is a diagnostic with the fixes offered for it.
type Finding struct {
	Diagnostic diag.Diagnostic `json:"diagnostic"`
	// Owner is the display name of the class declaring the field.
	Owner   string          `json:"owner"`
	Actions []repair.Action `json:"actions,omitempty"`
}

// CheckResult is the outcome of Check.
type CheckResult struct {
	Files    int
	Findings []Finding
	// Errors holds per-file read and parse failures; those files were
	// skipped.
	Errors []error
}

// Diagnostics returns the diagnostics of all findings.
func (c *CheckResult) Diagnostics() []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(c.Findings))
	for _, f := range c.Findings {
		out = append(out, f.Diagnostic)
	}
	return out
}

// Load reads and parses files concurrently and builds one compilation.
// Files that cannot be read or are too large are reported and skipped.
// The caller closes the compilation's documents via Release.
func (r *Runner) Load(ctx context.Context, files []string) (*model.Compilation, []error, error) {
	docs := make([]*syntax.Document, len(files))
	fileErrs := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := r.loadFile(path)
			if err != nil {
				fileErrs[i] = err
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closeAll(docs)
		return nil, nil, err
	}

	loaded := make([]*syntax.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			loaded = append(loaded, d)
		}
	}
	comp := model.NewCompilation(loaded, model.WithExternTypes(r.externs...))
	return comp, errors.NewMultiError(fileErrs).Errors, nil
}

func (r *Runner) loadFile(path string) (*syntax.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewFileError("stat", path, err)
	}
	if limit := r.cfg.Index.MaxFileSize; limit > 0 && info.Size() > limit {
		return nil, errors.NewFileTooLargeError(path, info.Size(), limit)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileError("read", path, err)
	}
	return syntax.Parse(path, src)
}

// Release closes every document of comp.
func Release(comp *model.Compilation) {
	if comp != nil {
		closeAll(comp.Documents())
	}
}

func closeAll(docs []*syntax.Document) {
	for _, d := range docs {
		d.Close()
	}
}

func (r *Runner) workers() int {
	if n := r.cfg.Performance.MaxGoroutines; n > 0 {
		return n
	}
	return 1
}

// Check analyzes files and returns their findings sorted by file and offset.
func (r *Runner) Check(ctx context.Context, files []string) (*CheckResult, error) {
	comp, fileErrs, err := r.Load(ctx, files)
	if err != nil {
		return nil, err
	}
	defer Release(comp)

	res, err := r.Analyze(ctx, comp)
	if err != nil {
		return nil, err
	}
	res.Errors = append(fileErrs, res.Errors...)
	return res, nil
}

// Analyze runs the detector over every document of comp concurrently.
func (r *Runner) Analyze(ctx context.Context, comp *model.Compilation) (*CheckResult, error) {
	docs := comp.Documents()
	res := &CheckResult{Files: len(docs)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for _, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found := r.AnalyzeDocument(comp, doc)
			mu.Lock()
			res.Findings = append(res.Findings, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortFindings(res.Findings)
	debug.Log(debug.ComponentWorkspace, "checked %d files, %d findings\n", res.Files, len(res.Findings))
	return res, nil
}

// AnalyzeDocument returns the findings of one document of comp.
func (r *Runner) AnalyzeDocument(comp *model.Compilation, doc *syntax.Document) []Finding {
	m := comp.Model(doc)
	var out []Finding
	for _, f := range r.detector.AnalyzeDocument(m) {
		out = append(out, Finding{Diagnostic: f.Diagnostic, Owner: f.OwnerDisplayName, Actions: r.engine.Actions(f)})
	}
	return out
}

// AnalyzeSource checks a single in-memory source as its own compilation.
func (r *Runner) AnalyzeSource(path string, src []byte) ([]Finding, error) {
	doc, err := syntax.Parse(path, src)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	comp := model.NewCompilation([]*syntax.Document{doc}, model.WithExternTypes(r.externs...))
	found := r.AnalyzeDocument(comp, doc)
	sortFindings(found)
	return found, nil
}

func sortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i].Diagnostic.Location, fs[j].Diagnostic.Location
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Span.Start < b.Span.Start
	})
}
