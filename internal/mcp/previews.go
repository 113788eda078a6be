package mcp

import (
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/standardbeagle/ila/internal/repair"
	"github.com/standardbeagle/ila/internal/version"
	"github.com/standardbeagle/ila/internal/workspace"
)

const (
	previewTTL        = 10 * time.Minute
	maxStoredPreviews = 64
)

var errPreviewNotFound = stderrors.New("unknown or expired preview token")

// preview is a computed but not yet written fix.
type preview struct {
	fix     *workspace.FileFix
	action  repair.ActionKey
	inline  bool
	created time.Time
}

// previewStore hands out single-use tokens for previews. Tokens carry the
// build id so a token from another server build is rejected.
type previewStore struct {
	mu      sync.Mutex
	entries map[string]*preview
	now     func() time.Time
}

func newPreviewStore() *previewStore {
	return &previewStore{entries: make(map[string]*preview), now: time.Now}
}

func (ps *previewStore) put(p *preview) string {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	p.created = ps.now()
	ps.expireLocked()
	if len(ps.entries) >= maxStoredPreviews {
		ps.evictOldestLocked()
	}

	token := version.BuildID() + "-" + uuid.NewString()
	ps.entries[token] = p
	return token
}

// take removes and returns the preview for token.
func (ps *previewStore) take(token string) (*preview, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !strings.HasPrefix(token, version.BuildID()+"-") {
		return nil, errPreviewNotFound
	}
	ps.expireLocked()
	p, ok := ps.entries[token]
	if !ok {
		return nil, errPreviewNotFound
	}
	delete(ps.entries, token)
	return p, nil
}

func (ps *previewStore) len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.entries)
}

func (ps *previewStore) expireLocked() {
	cutoff := ps.now().Add(-previewTTL)
	for token, p := range ps.entries {
		if p.created.Before(cutoff) {
			delete(ps.entries, token)
		}
	}
}

func (ps *previewStore) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for token, p := range ps.entries {
		if oldest == "" || p.created.Before(oldestAt) {
			oldest, oldestAt = token, p.created
		}
	}
	delete(ps.entries, oldest)
}
