package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ila/internal/config"
	"github.com/standardbeagle/ila/internal/edit"
	"github.com/standardbeagle/ila/internal/errors"
	"github.com/standardbeagle/ila/internal/repair"
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

const cleanSource = `using Microsoft.Extensions.Logging;

namespace Shop
{
    public class CartService
    {
        private readonly ILogger<CartService> _logger;
    }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func setupProject(t *testing.T) (*Runner, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/ServiceBase.cs", baseSource)
	writeFile(t, root, "src/OrderService.cs", orderSource)
	writeFile(t, root, "src/CartService.cs", cleanSource)
	writeFile(t, root, "src/obj/Debug/Generated.cs", orderSource)
	writeFile(t, root, "README.md", "# shop")

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Performance.MaxGoroutines = 2
	require.NoError(t, config.ValidateConfig(cfg))

	r, err := NewRunner(cfg)
	require.NoError(t, err)
	return r, root
}

func TestScan(t *testing.T) {
	r, root := setupProject(t)

	files, err := r.Scan()
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		p, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(p))
	}
	assert.Equal(t, []string{"src/CartService.cs", "src/OrderService.cs", "src/ServiceBase.cs"}, rel)
}

func TestScanExplicitFile(t *testing.T) {
	r, root := setupProject(t)

	generated := filepath.Join(root, "src", "obj", "Debug", "Generated.cs")
	files, err := r.Scan(generated, filepath.Join(root, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, []string{generated}, files, "named files bypass the globs")

	_, err = r.Scan(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestCheckAcrossFiles(t *testing.T) {
	r, _ := setupProject(t)
	files, err := r.Scan()
	require.NoError(t, err)

	res, err := r.Check(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.Files)

	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Equal(t, "ILA1001", f.Diagnostic.Code)
	assert.True(t, strings.HasSuffix(f.Diagnostic.Location.Path, "OrderService.cs"))
	assert.Equal(t, []string{"Shop.ServiceBase", "Shop.OrderService"}, f.Diagnostic.Args)

	require.Len(t, f.Actions, 2, "base class declared in another file still offers split")
	assert.Equal(t, repair.SplitBaseClassFix, f.Actions[1].Key)
}

func TestCheckReportsUnreadableFiles(t *testing.T) {
	r, root := setupProject(t)
	r.cfg.Index.MaxFileSize = int64(len(orderSource) - 1)

	big := filepath.Join(root, "src", "OrderService.cs")
	res, err := r.Check(context.Background(), []string{big, filepath.Join(root, "src", "Nope.cs")})
	require.NoError(t, err)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, 0, res.Files)
}

func TestCheckCancelled(t *testing.T) {
	r, _ := setupProject(t)
	files, err := r.Scan()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Check(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFixDryRun(t *testing.T) {
	r, root := setupProject(t)
	files, err := r.Scan()
	require.NoError(t, err)

	res, err := r.Fix(context.Background(), files, repair.SplitBaseClassFix, FixOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied())

	var changed *FileFix
	for _, f := range res.Files {
		if f.Applied > 0 {
			changed = f
		}
		assert.False(t, f.Written)
	}
	require.NotNil(t, changed)
	assert.Contains(t, changed.Diff, "--- a/src/OrderService.cs")
	assert.Contains(t, changed.Diff, "+        public OrderService(ILogger<OrderService> logger, ILogger<ServiceBase> baseLogger) : base(baseLogger)")

	onDisk, err := os.ReadFile(filepath.Join(root, "src", "OrderService.cs"))
	require.NoError(t, err)
	assert.Equal(t, orderSource, string(onDisk), "dry run never writes")
}

func TestFixWritesAndConverges(t *testing.T) {
	r, root := setupProject(t)
	files, err := r.Scan()
	require.NoError(t, err)

	res, err := r.Fix(context.Background(), files, repair.RetypeFix, FixOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Applied())

	onDisk, err := os.ReadFile(filepath.Join(root, "src", "OrderService.cs"))
	require.NoError(t, err)
	assert.Contains(t, string(onDisk), "private readonly ILogger<OrderService> _logger;")
	assert.Contains(t, string(onDisk), ": base(logger)")

	check, err := r.Check(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, check.Findings)
}

func TestFixAt(t *testing.T) {
	r, root := setupProject(t)
	path := filepath.Join(root, "src", "OrderService.cs")

	ff, err := r.FixAt(context.Background(), []string{filepath.Join(root, "src", "ServiceBase.cs")}, path,
		strings.Index(orderSource, "_logger;"), repair.SplitBaseClassFix)
	require.NoError(t, err)
	assert.Equal(t, edit.Fingerprint([]byte(orderSource)), ff.Fingerprint)
	assert.Contains(t, string(ff.After), "ILogger<ServiceBase> baseLogger")

	_, err = r.FixAt(context.Background(), nil, path, 0, repair.SplitBaseClassFix)
	assert.ErrorIs(t, err, errors.ErrFieldNotFound)

	_, err = r.FixAt(context.Background(), nil, filepath.Join(root, "src", "Missing.cs"), 0, repair.RetypeFix)
	assert.Error(t, err)
}

func TestFixSourceAt(t *testing.T) {
	r, _ := setupProject(t)
	src := orderSource + "\n" + baseSource

	ff, err := r.FixSourceAt("inline.cs", []byte(src), strings.Index(src, "_logger;"), repair.RetypeFix)
	require.NoError(t, err)
	assert.Contains(t, ff.Diff, "+        private readonly ILogger<OrderService> _logger;")
}

func TestWriteIfUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.cs", "class A {}")
	fp := edit.Fingerprint([]byte("class A {}"))

	require.NoError(t, os.WriteFile(path, []byte("class A { int x; }"), 0644))
	err := WriteIfUnchanged(path, fp, []byte("class B {}"))
	assert.ErrorIs(t, err, errors.ErrStaleSnapshot)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "class A { int x; }", string(current), "stale files are not overwritten")

	require.NoError(t, WriteIfUnchanged(path, edit.Fingerprint(current), []byte("class B {}")))
	current, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "class B {}", string(current))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestAnalyzeSource(t *testing.T) {
	r, _ := setupProject(t)

	found, err := r.AnalyzeSource("inline.cs", []byte(orderSource+baseSource))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "inline.cs", found[0].Diagnostic.Location.Path)
}

func TestUnifiedDiff(t *testing.T) {
	diff := UnifiedDiff("A.cs", []byte("a\nb\nc\n"), []byte("a\nB\nc\n"))
	assert.Contains(t, diff, "--- a/A.cs")
	assert.Contains(t, diff, "+++ b/A.cs")
	assert.Contains(t, diff, "-b")
	assert.Contains(t, diff, "+B")
}
