package render

import (
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// AckWindow is how long a block shows its "copied" acknowledgement.
const AckWindow = 2 * time.Second

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes through atotto/clipboard (xclip, xsel, wl-copy,
// pbcopy or the Windows API, whichever is available).
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// CopyTracker performs block copies and remembers which blocks were copied
// recently.
type CopyTracker struct {
	mu    sync.Mutex
	clip  Clipboard
	log   *zap.Logger
	now   func() time.Time
	acked map[Key]time.Time
}

// NewCopyTracker returns a tracker writing to clip. A nil logger discards
// failures.
func NewCopyTracker(clip Clipboard, log *zap.Logger) *CopyTracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &CopyTracker{
		clip:  clip,
		log:   log,
		now:   time.Now,
		acked: make(map[Key]time.Time),
	}
}

// Copy puts text on the clipboard and acknowledges key for AckWindow. It
// reports whether the write succeeded; a failed write is logged and leaves
// the acknowledgement state untouched.
func (t *CopyTracker) Copy(key Key, text string) bool {
	if err := t.clip.WriteAll(text); err != nil {
		t.log.Warn("copy to clipboard failed", zap.String("block", string(key)), zap.Error(err))
		return false
	}
	t.mu.Lock()
	t.acked[key] = t.now().Add(AckWindow)
	t.mu.Unlock()
	return true
}

// Copied reports whether key is inside its acknowledgement window.
func (t *CopyTracker) Copied(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	exp, ok := t.acked[key]
	if !ok {
		return false
	}
	if !t.now().Before(exp) {
		delete(t.acked, key)
		return false
	}
	return true
}

// Prune drops expired acknowledgements.
func (t *CopyTracker) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for k, exp := range t.acked {
		if !now.Before(exp) {
			delete(t.acked, k)
		}
	}
}

// Reset forgets every acknowledgement, e.g. when switching sessions.
func (t *CopyTracker) Reset() {
	t.mu.Lock()
	clear(t.acked)
	t.mu.Unlock()
}
