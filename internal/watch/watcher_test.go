package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/ila/internal/config"
	"github.com/standardbeagle/ila/internal/workspace"
)

const mismatched = `using Microsoft.Extensions.Logging;
namespace Shop
{
    class OrderService
    {
        private readonly ILogger<CartService> _logger;
    }
    class CartService { }
}
`

func newRunner(t *testing.T, root string) *workspace.Runner {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Watch.DebounceMs = 20
	require.NoError(t, config.ValidateConfig(cfg))
	r, err := workspace.NewRunner(cfg)
	require.NoError(t, err)
	return r
}

func waitBatch(t *testing.T, batches <-chan Batch) Batch {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a re-check")
		return Batch{}
	}
}

func TestWatcherRechecksOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	path := filepath.Join(root, "OrderService.cs")
	require.NoError(t, os.WriteFile(path, []byte(mismatched), 0644))

	batches := make(chan Batch, 8)
	w, err := New(newRunner(t, root), nil, func(b Batch) { batches <- b })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	initial := waitBatch(t, batches)
	require.NoError(t, initial.Err)
	assert.Len(t, initial.Result.Findings, 1)

	fixed := strings.Replace(mismatched, "ILogger<CartService>", "ILogger<OrderService>", 1)
	require.NoError(t, os.WriteFile(path, []byte(fixed), 0644))

	b := waitBatch(t, batches)
	require.NoError(t, b.Err)
	assert.Contains(t, b.Changed, path)
	assert.Empty(t, b.Result.Findings)
	assert.GreaterOrEqual(t, w.Stats().Batches, int64(2))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherIgnoresExcludedAndForeignFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "obj"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.cs"), []byte("class A { }"), 0644))

	batches := make(chan Batch, 8)
	w, err := New(newRunner(t, root), nil, func(b Batch) { batches <- b })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	waitBatch(t, batches)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "obj", "Gen.cs"), []byte(mismatched), 0644))

	select {
	case b := <-batches:
		t.Fatalf("unexpected re-check for %v", b.Changed)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherMissingRoot(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	w, err := New(newRunner(t, root), []string{filepath.Join(root, "missing")}, nil)
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}
