// Package display renders check and fix results as text, a tree or JSON.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/standardbeagle/ila/internal/diag"
	"github.com/standardbeagle/ila/internal/repair"
	"github.com/standardbeagle/ila/internal/version"
	"github.com/standardbeagle/ila/internal/workspace"
	"github.com/standardbeagle/ila/pkg/pathutil"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures rendering.
type Options struct {
	Format string
	Color  bool
	// Root makes paths relative when set.
	Root string
}

// Report is the JSON shape shared by `check --format json` and the MCP
// analyze tool.
type Report struct {
	Version  string              `json:"version"`
	Files    int                 `json:"files"`
	Findings []workspace.Finding `json:"findings"`
	Errors   []string            `json:"errors,omitempty"`
	Summary  Summary             `json:"summary"`
}

// Summary counts findings by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// NewReport builds a report from a check result.
func NewReport(res *workspace.CheckResult) *Report {
	r := &Report{
		Version:  version.Info(),
		Files:    res.Files,
		Findings: res.Findings,
	}
	if r.Findings == nil {
		r.Findings = []workspace.Finding{}
	}
	for _, err := range res.Errors {
		r.Errors = append(r.Errors, err.Error())
	}
	for _, f := range res.Findings {
		switch f.Diagnostic.Severity {
		case diag.SevError:
			r.Summary.Errors++
		case diag.SevWarning:
			r.Summary.Warnings++
		default:
			r.Summary.Infos++
		}
	}
	return r
}

type palette struct {
	err, warn, info, path, code, dim, added, removed *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan),
		path:    color.New(color.Bold),
		code:    color.New(color.FgMagenta),
		dim:     color.New(color.Faint),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.path, p.code, p.dim, p.added, p.removed} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) string {
	name := strings.ToLower(s.String())
	switch s {
	case diag.SevError:
		return p.err.Sprint(name)
	case diag.SevWarning:
		return p.warn.Sprint(name)
	}
	return p.info.Sprint(name)
}

// WriteReport renders a check report.
func WriteReport(w io.Writer, r *Report, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatTree:
		return writeTree(w, r, opts)
	}

	p := newPalette(opts.Color)
	for _, f := range r.Findings {
		d := f.Diagnostic
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.path.Sprintf("%s:%s", relPath(opts.Root, d.Location.Path), d.Location.Span.StartPos),
			p.severity(d.Severity), p.code.Sprint(d.Code), d.Message)
		if len(f.Actions) > 0 {
			fmt.Fprintf(w, "    %s %s\n", p.dim.Sprint("fixes:"), actionKeys(f.Actions))
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "%s %s\n", p.err.Sprint("error:"), e)
	}

	total := len(r.Findings)
	_, err := fmt.Fprintf(w, "%d %s in %d files\n", total, plural(total, "finding"), r.Files)
	return err
}

// WriteFixes renders a fix result: diffs for dry runs, a line per file
// otherwise.
func WriteFixes(w io.Writer, res *workspace.FixResult, key repair.ActionKey, dryRun bool, opts Options) error {
	if opts.Format == FormatJSON {
		return writeJSON(w, fixReport(res, key, dryRun, opts))
	}

	p := newPalette(opts.Color)
	for _, f := range res.Files {
		if f.Applied > 0 {
			if dryRun {
				writeDiff(w, p, f.Diff)
			} else if f.Written {
				fmt.Fprintf(w, "%s %s (%d)\n", p.added.Sprint("fixed"), relPath(opts.Root, f.Path), f.Applied)
			}
		}
		for _, s := range f.Skipped {
			fmt.Fprintf(w, "%s %s:%s %s: %v\n", p.dim.Sprint("skipped"),
				relPath(opts.Root, s.Diagnostic.Location.Path), s.Diagnostic.Location.Span.StartPos, s.Diagnostic.Code, s.Reason)
		}
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "%s %v\n", p.err.Sprint("error:"), e)
	}
	verb := "applied"
	if dryRun {
		verb = "would apply"
	}
	_, err := fmt.Fprintf(w, "%s %s %d times\n", key, verb, res.Applied())
	return err
}

type fixFile struct {
	Path    string        `json:"path"`
	Applied int           `json:"applied"`
	Written bool          `json:"written"`
	Diff    string        `json:"diff,omitempty"`
	Skipped []skippedJSON `json:"skipped,omitempty"`
}

type skippedJSON struct {
	Diagnostic diag.Diagnostic `json:"diagnostic"`
	Reason     string          `json:"reason"`
}

type fixJSON struct {
	Version string    `json:"version"`
	Action  string    `json:"action"`
	DryRun  bool      `json:"dry_run"`
	Applied int       `json:"applied"`
	Files   []fixFile `json:"files"`
	Errors  []string  `json:"errors,omitempty"`
}

func fixReport(res *workspace.FixResult, key repair.ActionKey, dryRun bool, opts Options) fixJSON {
	out := fixJSON{Version: version.Info(), Action: string(key), DryRun: dryRun, Applied: res.Applied(), Files: []fixFile{}}
	for _, f := range res.Files {
		if f.Applied == 0 && len(f.Skipped) == 0 {
			continue
		}
		ff := fixFile{Path: relPath(opts.Root, f.Path), Applied: f.Applied, Written: f.Written, Diff: f.Diff}
		for _, s := range f.Skipped {
			ff.Skipped = append(ff.Skipped, skippedJSON{Diagnostic: s.Diagnostic, Reason: s.Reason.Error()})
		}
		out.Files = append(out.Files, ff)
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	return out
}

func writeDiff(w io.Writer, p palette, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(w, p.path.Sprint(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprint(w, p.added.Sprint(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprint(w, p.removed.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprint(w, p.info.Sprint(line))
		default:
			fmt.Fprint(w, line)
		}
	}
}

// WriteRules lists the rule table.
func WriteRules(w io.Writer, rules diag.RuleTable, opts Options) error {
	sorted := rules.Sorted()
	if opts.Format == FormatJSON {
		return writeJSON(w, sorted)
	}

	p := newPalette(opts.Color)
	for _, r := range sorted {
		state := ""
		if !r.Enabled {
			state = p.dim.Sprint(" (disabled)")
		}
		fmt.Fprintf(w, "%s %s %s%s\n    %s\n", p.code.Sprint(r.Code), r.ID, p.severity(r.Severity), state, r.Title)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func actionKeys(actions []repair.Action) string {
	keys := make([]string, 0, len(actions))
	for _, a := range actions {
		keys = append(keys, string(a.Key))
	}
	return strings.Join(keys, ", ")
}

func relPath(root, path string) string {
	return pathutil.ToSlashRelative(path, root)
}
