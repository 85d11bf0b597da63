package labelstore

import (
	"sync"
	"time"

	"labeltool/internal/logging"
	"labeltool/internal/scene"
)

// Notifier saves a scene's labels after its root list changes. Changes
// arriving within the save delay of each other are written once.
//
// The header is encoded on the goroutine that reports the change, so the
// scene is never read from the timer goroutine.
type Notifier struct {
	store     *Store
	imagePath string
	delay     time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending []byte
	dirty   bool
	lastErr error
	saves   int
}

// NewNotifier creates a notifier writing to store. A delay of zero or less
// saves synchronously on every change.
func NewNotifier(store *Store, imagePath string, delay time.Duration) *Notifier {
	return &Notifier{store: store, imagePath: imagePath, delay: delay}
}

// Attach subscribes the notifier to the scene's root-list changes.
func (n *Notifier) Attach(s *scene.Scene) {
	s.On(scene.EventRootListChanged, n.RootListChanged)
}

// RootListChanged snapshots the scene's header and schedules a save.
func (n *Notifier) RootListChanged(s *scene.Scene) {
	data, err := Encode(n.imagePath, s.Header())
	if err != nil {
		logging.For("labelstore").Warn("labels not encoded", "image", n.imagePath, "error", err)
		n.mu.Lock()
		n.lastErr = err
		n.mu.Unlock()
		return
	}

	n.mu.Lock()
	n.pending = data
	n.dirty = true
	if n.delay <= 0 {
		n.mu.Unlock()
		n.flush()
		return
	}
	if n.timer == nil {
		n.timer = time.AfterFunc(n.delay, n.flush)
	} else {
		n.timer.Reset(n.delay)
	}
	n.mu.Unlock()
}

// Flush writes any pending change immediately and returns the last save
// error, if any.
func (n *Notifier) Flush() error {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.mu.Unlock()

	n.flush()

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// Saves returns the number of writes performed.
func (n *Notifier) Saves() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.saves
}

func (n *Notifier) flush() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.dirty {
		return
	}
	n.dirty = false

	if err := n.store.write(n.imagePath, n.pending); err != nil {
		logging.For("labelstore").Warn("labels not saved", "image", n.imagePath, "error", err)
		n.lastErr = err
		return
	}
	n.lastErr = nil
	n.saves++
}
