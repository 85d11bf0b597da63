package assist

import (
	"sync"
	"time"
)

// Scheduler calls a function periodically until stopped.
type Scheduler interface {
	// Start begins calling tick every interval. Starting a running
	// scheduler does nothing.
	Start(interval time.Duration, tick func())

	// Stop ends the ticks. Stopping an idle scheduler does nothing.
	Stop()

	// Running reports whether ticks are being delivered.
	Running() bool
}

// TickerScheduler delivers ticks from a background goroutine. The tick
// function is called on that goroutine.
type TickerScheduler struct {
	mu     sync.Mutex
	stopCh chan struct{}
}

// NewTickerScheduler creates an idle scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

func (t *TickerScheduler) Start(interval time.Duration, tick func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh != nil {
		return
	}
	t.stopCh = make(chan struct{})
	go t.loop(interval, tick, t.stopCh)
}

// Stop signals the loop to exit. It does not wait, so it may be called from
// within a tick.
func (t *TickerScheduler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh == nil {
		return
	}
	close(t.stopCh)
	t.stopCh = nil
}

func (t *TickerScheduler) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCh != nil
}

func (t *TickerScheduler) loop(interval time.Duration, tick func(), stopCh chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			tick()
		}
	}
}
