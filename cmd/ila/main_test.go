package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/ila/internal/display"
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

// setupTestProject writes a two-file project and isolates the global config.
func setupTestProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ServiceBase.cs"), []byte(baseSource), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "OrderService.cs"), []byte(orderSource), 0644))
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"ila", "--no-color"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestCheckText(t *testing.T) {
	dir := setupTestProject(t)

	out, _, err := run(t, "--root", dir, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "OrderService.cs:7:26: warning ILA1001: ILogger<Shop.ServiceBase> is used in 'Shop.OrderService'")
	assert.Contains(t, out, "fixes: RetypeFix, SplitBaseClassFix")
	assert.Contains(t, out, "1 finding in 2 files")
}

func TestCheckFailOnFindings(t *testing.T) {
	dir := setupTestProject(t)

	_, _, err := run(t, "--root", dir, "check", "--fail-on-findings")
	require.Error(t, err)
	var ec cli.ExitCoder
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, exitFindings, ec.ExitCode())

	require.NoError(t, os.Remove(filepath.Join(dir, "OrderService.cs")))
	_, _, err = run(t, "--root", dir, "check", "--fail-on-findings")
	assert.NoError(t, err)
}

func TestCheckJSON(t *testing.T) {
	dir := setupTestProject(t)

	out, _, err := run(t, "--root", dir, "check", "--format", "json")
	require.NoError(t, err)

	var report display.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Files)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "ILA1001", report.Findings[0].Diagnostic.Code)
}

func TestCheckExplicitPath(t *testing.T) {
	dir := setupTestProject(t)

	out, _, err := run(t, "--root", dir, "check", filepath.Join(dir, "ServiceBase.cs"))
	require.NoError(t, err)
	assert.Contains(t, out, "0 findings in 1 files")
}

func TestCheckInvalidFormat(t *testing.T) {
	dir := setupTestProject(t)
	_, _, err := run(t, "--root", dir, "check", "--format", "yaml")
	assert.Error(t, err)
}

func TestFixDryRun(t *testing.T) {
	dir := setupTestProject(t)

	out, _, err := run(t, "--root", dir, "fix", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "+        private readonly ILogger<OrderService> _logger;")
	assert.Contains(t, out, "RetypeFix would apply 1 times")

	data, err := os.ReadFile(filepath.Join(dir, "OrderService.cs"))
	require.NoError(t, err)
	assert.Equal(t, orderSource, string(data))
}

func TestFixWrites(t *testing.T) {
	dir := setupTestProject(t)

	out, _, err := run(t, "--root", dir, "fix", "-a", "SplitBaseClassFix")
	require.NoError(t, err)
	assert.Contains(t, out, "fixed OrderService.cs (1)")

	data, err := os.ReadFile(filepath.Join(dir, "OrderService.cs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "private readonly ILogger<OrderService> _logger;")
	assert.Contains(t, string(data), ": base(baseLogger)")

	out, _, err = run(t, "--root", dir, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "0 findings in 2 files")
}

func TestFixUnknownAction(t *testing.T) {
	dir := setupTestProject(t)

	_, _, err := run(t, "--root", dir, "fix", "--action", "split")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean SplitBaseClassFix?")
}

func TestRules(t *testing.T) {
	dir := setupTestProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ila.kdl"), []byte(`rules {
    MISMATCH_STATIC {
        enabled false
    }
}
`), 0644))

	out, _, err := run(t, "--root", dir, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "ILA1001 MISMATCH warning")
	assert.Contains(t, out, "ILA1002 MISMATCH_STATIC warning (disabled)")
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, exitFindings, exitCode(&buf, cli.Exit("", exitFindings)))
	assert.Empty(t, buf.String())

	assert.Equal(t, exitFailure, exitCode(&buf, assert.AnError))
	assert.Contains(t, buf.String(), "error: "+assert.AnError.Error())
}
