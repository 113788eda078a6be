package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	ilalog "github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/display"
	"github.com/standardbeagle/ila/internal/repair"
	"github.com/standardbeagle/ila/internal/version"
	"github.com/standardbeagle/ila/internal/workspace"
	"github.com/standardbeagle/ila/pkg/pathutil"
)

// inlinePath names in-memory sources in diagnostics.
const inlinePath = "inline.cs"

// SourceParams selects what a tool works on.
type SourceParams struct {
	Path   string `json:"path,omitempty"`
	Source string `json:"source,omitempty"`
}

// FixParams locates a field and names the fix for it.
type FixParams struct {
	SourceParams
	Offset *int   `json:"offset,omitempty"`
	Action string `json:"action,omitempty"`
}

// ApplyParams is FixParams plus the preview token alternative.
type ApplyParams struct {
	FixParams
	Token string `json:"token,omitempty"`
}

// PreviewResponse is returned by preview_fix.
type PreviewResponse struct {
	Token       string `json:"token"`
	Path        string `json:"path"`
	Action      string `json:"action"`
	Diff        string `json:"diff"`
	Fingerprint uint64 `json:"fingerprint"`
}

// ApplyResponse is returned by apply_fix. Source is set instead of a write
// when the fix was previewed on inline source.
type ApplyResponse struct {
	Path    string `json:"path"`
	Action  string `json:"action"`
	Written bool   `json:"written"`
	Diff    string `json:"diff,omitempty"`
	Source  string `json:"source,omitempty"`
}

// FixesResponse is returned by list_fixes.
type FixesResponse struct {
	Finding *workspace.Finding `json:"finding,omitempty"`
	Actions []repair.Action    `json:"actions"`
}

func decodeParams(req *mcp.CallToolRequest, v interface{}) error {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// resolve makes a tool path absolute against the project root.
func (s *Server) resolve(path string) string {
	return pathutil.ToAbsolute(path, s.root)
}

// projectFiles are loaded alongside a target so base classes declared in
// other files resolve. A failing scan only costs that context.
func (s *Server) projectFiles() []string {
	files, err := s.runner.Scan()
	if err != nil {
		ilalog.LogMCP("project scan failed: %v\n", err)
		return nil
	}
	return files
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("analyze", func() (*mcp.CallToolResult, error) {
		var p SourceParams
		if err := decodeParams(req, &p); err != nil {
			return createErrorResponse("analyze", err)
		}

		if p.Source != "" {
			findings, err := s.runner.AnalyzeSource(inlineName(p.Path), []byte(p.Source))
			if err != nil {
				return createErrorResponse("analyze", err)
			}
			return createJSONResponse(display.NewReport(&workspace.CheckResult{Files: 1, Findings: findings}))
		}

		target := s.resolve(p.Path)
		files, err := s.runner.Scan(target)
		if err != nil {
			return createSmartErrorResponse("analyze", err, map[string]interface{}{"path": target})
		}
		res, err := s.runner.Check(ctx, files)
		if err != nil {
			return createErrorResponse("analyze", err)
		}
		ilalog.LogMCP("analyze %s: %d files, %d findings\n", target, res.Files, len(res.Findings))
		return createJSONResponse(display.NewReport(res))
	})
}

func (s *Server) handleListFixes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("list_fixes", func() (*mcp.CallToolResult, error) {
		var p FixParams
		if err := decodeParams(req, &p); err != nil {
			return createErrorResponse("list_fixes", err)
		}
		if p.Offset == nil {
			return createErrorResponse("list_fixes", fmt.Errorf("offset is required"))
		}

		var findings []workspace.Finding
		if p.Source != "" {
			found, err := s.runner.AnalyzeSource(inlineName(p.Path), []byte(p.Source))
			if err != nil {
				return createErrorResponse("list_fixes", err)
			}
			findings = found
		} else {
			path := s.resolve(p.Path)
			res, err := s.runner.Check(ctx, withFile(s.projectFiles(), path))
			if err != nil {
				return createErrorResponse("list_fixes", err)
			}
			findings = res.Findings
			p.Path = path
		}

		out := FixesResponse{Actions: []repair.Action{}}
		for i, f := range findings {
			span := f.Diagnostic.Location.Span
			if p.Source == "" && f.Diagnostic.Location.Path != p.Path {
				continue
			}
			if *p.Offset >= span.Start && *p.Offset <= span.End {
				out.Finding = &findings[i]
				if f.Actions != nil {
					out.Actions = f.Actions
				}
				break
			}
		}
		return createJSONResponse(out)
	})
}

func (s *Server) handlePreviewFix(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("preview_fix", func() (*mcp.CallToolResult, error) {
		var p FixParams
		if err := decodeParams(req, &p); err != nil {
			return createErrorResponse("preview_fix", err)
		}
		key, fix, errResult := s.computeFix(ctx, "preview_fix", p)
		if errResult != nil {
			return errResult, nil
		}

		token := s.previews.put(&preview{fix: fix, action: key, inline: p.Source != ""})
		return createJSONResponse(PreviewResponse{
			Token:       token,
			Path:        fix.Path,
			Action:      string(key),
			Diff:        fix.Diff,
			Fingerprint: fix.Fingerprint,
		})
	})
}

func (s *Server) handleApplyFix(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("apply_fix", func() (*mcp.CallToolResult, error) {
		var p ApplyParams
		if err := decodeParams(req, &p); err != nil {
			return createErrorResponse("apply_fix", err)
		}

		var pv *preview
		if p.Token != "" {
			taken, err := s.previews.take(p.Token)
			if err != nil {
				return createErrorResponse("apply_fix", err)
			}
			pv = taken
		} else {
			if p.Source != "" {
				return createErrorResponse("apply_fix", fmt.Errorf("inline source cannot be written; use preview_fix and apply its token"))
			}
			key, fix, errResult := s.computeFix(ctx, "apply_fix", p.FixParams)
			if errResult != nil {
				return errResult, nil
			}
			pv = &preview{fix: fix, action: key}
		}

		out := ApplyResponse{Path: pv.fix.Path, Action: string(pv.action), Diff: pv.fix.Diff}
		if pv.inline {
			out.Source = string(pv.fix.After)
			return createJSONResponse(out)
		}
		if err := workspace.WriteIfUnchanged(pv.fix.Path, pv.fix.Fingerprint, pv.fix.After); err != nil {
			return createSmartErrorResponse("apply_fix", err, map[string]interface{}{"path": pv.fix.Path})
		}
		out.Written = true
		ilalog.LogMCP("applied %s to %s\n", pv.action, pv.fix.Path)
		return createJSONResponse(out)
	})
}

// computeFix validates p and computes the fix. Failures come back as a
// ready error result.
func (s *Server) computeFix(ctx context.Context, operation string, p FixParams) (repair.ActionKey, *workspace.FileFix, *mcp.CallToolResult) {
	fail := func(err error, details map[string]interface{}) (repair.ActionKey, *workspace.FileFix, *mcp.CallToolResult) {
		res, marshalErr := createSmartErrorResponse(operation, err, details)
		if marshalErr != nil {
			res = &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}}}
		}
		return "", nil, res
	}

	if p.Offset == nil {
		return fail(fmt.Errorf("offset is required"), nil)
	}
	key, err := repair.ParseActionKey(p.Action)
	if err != nil {
		return fail(err, map[string]interface{}{"action": p.Action})
	}

	var fix *workspace.FileFix
	if p.Source != "" {
		fix, err = s.runner.FixSourceAt(inlineName(p.Path), []byte(p.Source), *p.Offset, key)
	} else {
		if p.Path == "" {
			return fail(fmt.Errorf("path or source is required"), nil)
		}
		path := s.resolve(p.Path)
		if _, statErr := os.Stat(path); statErr != nil {
			return fail(statErr, map[string]interface{}{"path": path})
		}
		fix, err = s.runner.FixAt(ctx, s.projectFiles(), path, *p.Offset, key)
	}
	if err != nil {
		return fail(err, map[string]interface{}{"action": string(key), "offset": *p.Offset})
	}
	return key, fix, nil
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules, err := s.runner.Config().RuleTable()
	if err != nil {
		return createErrorResponse("info", err)
	}
	return createJSONResponse(map[string]interface{}{
		"server_name":    "ila-mcp-server",
		"server_version": version.FullInfo(),
		"go_version":     runtime.Version(),
		"platform":       runtime.GOOS + "/" + runtime.GOARCH,
		"project_root":   s.root,
		"actions":        repair.ActionKeys,
		"rules":          rules.Sorted(),
	})
}

func inlineName(path string) string {
	if path == "" || !strings.HasSuffix(path, ".cs") {
		return inlinePath
	}
	return path
}

func withFile(files []string, path string) []string {
	for _, f := range files {
		if f == path {
			return files
		}
	}
	return append(files, path)
}
