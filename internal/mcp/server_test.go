package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ila/internal/config"
	"github.com/standardbeagle/ila/internal/display"
	"github.com/standardbeagle/ila/internal/version"
	"github.com/standardbeagle/ila/internal/workspace"
)

const baseSource = `using Microsoft.Extensions.Logging;

namespace Shop
{
    public class ServiceBase
    {
        protected ServiceBase(ILogger<ServiceBase> logger) { }
    }
}
`

const orderSource = `using Microsoft.Extensions.Logging;

namespace Shop
{
    public class OrderService : ServiceBase
    {
        private readonly ILogger<ServiceBase> _logger;

        public OrderService(ILogger<ServiceBase> logger) : base(logger)
        {
            _logger = logger;
        }
    }
}
`

var fieldOffset = strings.Index(orderSource, "ILogger<ServiceBase> _logger")

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ServiceBase.cs"), []byte(baseSource), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "OrderService.cs"), []byte(orderSource), 0644))

	cfg := config.Default()
	cfg.Project.Root = dir
	runner, err := workspace.NewRunner(cfg)
	require.NoError(t, err)
	s, err := NewServer(runner)
	require.NoError(t, err)
	return s, dir
}

func call(t *testing.T, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := handler(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}})
	require.NoError(t, err, "tool failures must be reported in the result")
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func decode(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), v))
}

func TestNewServerRequiresRunner(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestAnalyzeProject(t *testing.T) {
	s, dir := newTestServer(t)

	var report display.Report
	decode(t, call(t, s.handleAnalyze, map[string]interface{}{}), &report)

	assert.Equal(t, 2, report.Files)
	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.Equal(t, filepath.Join(dir, "OrderService.cs"), f.Diagnostic.Location.Path)
	assert.Equal(t, "ILA1001", f.Diagnostic.Code)
	assert.Equal(t, fieldOffset, f.Diagnostic.Location.Span.Start)
	require.Len(t, f.Actions, 2)
	assert.EqualValues(t, "RetypeFix", f.Actions[0].Key)
	assert.EqualValues(t, "SplitBaseClassFix", f.Actions[1].Key)
	assert.Equal(t, 1, report.Summary.Warnings)
}

func TestAnalyzeInlineSource(t *testing.T) {
	s, _ := newTestServer(t)

	var report display.Report
	decode(t, call(t, s.handleAnalyze, map[string]interface{}{"source": orderSource}), &report)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, inlinePath, report.Findings[0].Diagnostic.Location.Path)
}

func TestAnalyzeMissingPath(t *testing.T) {
	s, _ := newTestServer(t)
	res := call(t, s.handleAnalyze, map[string]interface{}{"path": "nope"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"operation":"analyze"`)
}

func TestListFixes(t *testing.T) {
	s, _ := newTestServer(t)

	var out FixesResponse
	decode(t, call(t, s.handleListFixes, map[string]interface{}{"path": "OrderService.cs", "offset": fieldOffset + 3}), &out)
	require.NotNil(t, out.Finding)
	require.Len(t, out.Actions, 2)
	assert.Contains(t, out.Actions[0].Title, "ILogger<OrderService>")

	var none FixesResponse
	decode(t, call(t, s.handleListFixes, map[string]interface{}{"path": "OrderService.cs", "offset": 0}), &none)
	assert.Nil(t, none.Finding)
	assert.Empty(t, none.Actions)

	res := call(t, s.handleListFixes, map[string]interface{}{"path": "OrderService.cs"})
	assert.True(t, res.IsError)
}

func TestPreviewThenApply(t *testing.T) {
	s, dir := newTestServer(t)
	path := filepath.Join(dir, "OrderService.cs")

	var pv PreviewResponse
	decode(t, call(t, s.handlePreviewFix, map[string]interface{}{
		"path": "OrderService.cs", "offset": fieldOffset, "action": "RetypeFix",
	}), &pv)
	assert.True(t, strings.HasPrefix(pv.Token, version.BuildID()+"-"))
	assert.Contains(t, pv.Diff, "+        private readonly ILogger<OrderService> _logger;")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, orderSource, string(data), "preview must not write")

	var applied ApplyResponse
	decode(t, call(t, s.handleApplyFix, map[string]interface{}{"token": pv.Token}), &applied)
	assert.True(t, applied.Written)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "private readonly ILogger<OrderService> _logger;")
	assert.Contains(t, string(data), "public OrderService(ILogger<OrderService> logger)")

	res := call(t, s.handleApplyFix, map[string]interface{}{"token": pv.Token})
	assert.True(t, res.IsError, "tokens are single use")
	assert.Contains(t, resultText(t, res), "call preview_fix again")
}

func TestApplyRejectsStalePreview(t *testing.T) {
	s, dir := newTestServer(t)
	path := filepath.Join(dir, "OrderService.cs")

	var pv PreviewResponse
	decode(t, call(t, s.handlePreviewFix, map[string]interface{}{
		"path": "OrderService.cs", "offset": fieldOffset, "action": "SplitBaseClassFix",
	}), &pv)

	edited := strings.Replace(orderSource, "_logger = logger;", "_logger = logger; // edited", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0644))

	res := call(t, s.handleApplyFix, map[string]interface{}{"token": pv.Token})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "file changed since the fix was computed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, edited, string(data))
}

func TestApplyDirect(t *testing.T) {
	s, dir := newTestServer(t)

	var applied ApplyResponse
	decode(t, call(t, s.handleApplyFix, map[string]interface{}{
		"path": "OrderService.cs", "offset": fieldOffset, "action": "SplitBaseClassFix",
	}), &applied)
	assert.True(t, applied.Written)

	data, err := os.ReadFile(filepath.Join(dir, "OrderService.cs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "public OrderService(ILogger<OrderService> logger, ILogger<ServiceBase> baseLogger) : base(baseLogger)")
}

func TestApplyInlineRequiresToken(t *testing.T) {
	s, _ := newTestServer(t)
	res := call(t, s.handleApplyFix, map[string]interface{}{
		"source": orderSource, "offset": fieldOffset, "action": "RetypeFix",
	})
	assert.True(t, res.IsError)
}

func TestPreviewInlineApplyReturnsSource(t *testing.T) {
	s, _ := newTestServer(t)

	var pv PreviewResponse
	decode(t, call(t, s.handlePreviewFix, map[string]interface{}{
		"source": orderSource, "offset": fieldOffset, "action": "RetypeFix",
	}), &pv)

	var applied ApplyResponse
	decode(t, call(t, s.handleApplyFix, map[string]interface{}{"token": pv.Token}), &applied)
	assert.False(t, applied.Written)
	assert.Contains(t, applied.Source, "private readonly ILogger<OrderService> _logger;")
}

func TestPreviewErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"unknown action", map[string]interface{}{"path": "OrderService.cs", "offset": fieldOffset, "action": "retype"}, `did you mean \"RetypeFix\"?`},
		{"missing offset", map[string]interface{}{"path": "OrderService.cs", "action": "RetypeFix"}, "offset is required"},
		{"no field", map[string]interface{}{"path": "OrderService.cs", "offset": 0, "action": "RetypeFix"}, "offset must point inside a field declaration"},
		{"missing file", map[string]interface{}{"path": "Gone.cs", "offset": 0, "action": "RetypeFix"}, "Gone.cs"},
		{"no target", map[string]interface{}{"offset": 0, "action": "RetypeFix"}, "path or source is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, s.handlePreviewFix, tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
		})
	}
	assert.Zero(t, s.previews.len())
}

func TestInfo(t *testing.T) {
	s, _ := newTestServer(t)
	text := resultText(t, call(t, s.handleInfo, nil))
	assert.Contains(t, text, "ILA1001")
	assert.Contains(t, text, "SplitBaseClassFix")
	assert.Contains(t, text, version.Version)
}

func TestRecoverFromPanic(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.recoverFromPanic("boom", func() (*mcp.CallToolResult, error) {
		panic("unexpected")
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "internal error: unexpected")
}

func TestPreviewStore(t *testing.T) {
	ps := newPreviewStore()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ps.now = func() time.Time { return clock }

	token := ps.put(&preview{fix: &workspace.FileFix{Path: "a.cs"}})
	_, err := ps.take("other-build-" + strings.TrimPrefix(token, version.BuildID()+"-"))
	assert.ErrorIs(t, err, errPreviewNotFound)

	p, err := ps.take(token)
	require.NoError(t, err)
	assert.Equal(t, "a.cs", p.fix.Path)

	expired := ps.put(&preview{fix: &workspace.FileFix{}})
	clock = clock.Add(previewTTL + time.Second)
	_, err = ps.take(expired)
	assert.ErrorIs(t, err, errPreviewNotFound)
}

func TestPreviewStoreEvictsOldest(t *testing.T) {
	ps := newPreviewStore()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ps.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}

	first := ps.put(&preview{fix: &workspace.FileFix{}})
	for i := 0; i < maxStoredPreviews; i++ {
		ps.put(&preview{fix: &workspace.FileFix{}})
	}
	assert.Equal(t, maxStoredPreviews, ps.len())
	_, err := ps.take(first)
	assert.ErrorIs(t, err, errPreviewNotFound)
}
