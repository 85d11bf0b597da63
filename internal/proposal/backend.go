package proposal

import (
	"context"
	"sync"

	"labeltool/internal/assist"
	"labeltool/internal/logging"
)

// Backend implements assist.Transport with an in-process segmenter. Requests
// are segmented by a pool of worker goroutines; finished results are held
// until a poll asks for them and then handed to the receiver through the
// dispatch function, which should run them on the UI loop.
type Backend struct {
	segmenter Segmenter
	workers   int
	queueSize int
	dispatch  func(func())

	jobs   chan assist.Request
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	finished map[int64]assist.Result
	receiver func([]assist.Result)
}

// Option configures a Backend.
type Option func(*Backend)

// WithWorkers sets the number of segmenting goroutines.
func WithWorkers(n int) Option {
	return func(b *Backend) { b.workers = n }
}

// WithQueueSize sets how many requests may wait for a worker.
func WithQueueSize(n int) Option {
	return func(b *Backend) { b.queueSize = n }
}

// WithDispatch sets the function used to deliver results. The default
// calls the receiver directly on whichever goroutine called SendPoll.
func WithDispatch(dispatch func(func())) Option {
	return func(b *Backend) { b.dispatch = dispatch }
}

// NewBackend starts the workers.
//
// Polled results reach the receiver through the dispatch function. An
// assist.Service polls from its scheduler goroutine, and its OnSuccess
// changes the scene, so a backend feeding a Service with a poll interval
// must be given WithDispatch handing the call to the goroutine that owns
// the scene. The default suits only callers that poll from that goroutine
// themselves, as with Service.PollNow.
func NewBackend(seg Segmenter, opts ...Option) *Backend {
	b := &Backend{
		segmenter: seg,
		workers:   1,
		queueSize: 16,
		dispatch:  func(fn func()) { fn() },
		finished:  make(map[int64]assist.Result),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}

	b.jobs = make(chan assist.Request, b.queueSize)
	b.ctx, b.cancel = context.WithCancel(context.Background())
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	return b
}

// SetReceiver sets the function receiving polled results, usually
// assist.Service.OnSuccess.
func (b *Backend) SetReceiver(fn func([]assist.Result)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiver = fn
}

// SendRequest queues a request. It reports false when the backend is closed
// or the queue is full.
func (b *Backend) SendRequest(req assist.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	select {
	case b.jobs <- req:
		return true
	default:
		logging.For("proposal").Warn("proposal queue full", "request", req.RequestID)
		return false
	}
}

// SendPoll delivers the finished results among the polled ids. Results not
// yet finished are delivered by a later poll.
func (b *Backend) SendPoll(poll assist.Poll) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	var ready []assist.Result
	for _, id := range poll.RequestIDs {
		if r, ok := b.finished[id]; ok {
			ready = append(ready, r)
			delete(b.finished, id)
		}
	}
	receiver := b.receiver
	b.mu.Unlock()

	if len(ready) > 0 && receiver != nil {
		b.dispatch(func() { receiver(ready) })
	}
	return true
}

// Pending returns the number of finished results not yet polled.
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.finished)
}

// Close stops the workers and waits for them to exit. Queued requests are
// dropped.
func (b *Backend) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.jobs)
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
}

func (b *Backend) work() {
	defer b.wg.Done()
	log := logging.For("proposal")

	for req := range b.jobs {
		if b.ctx.Err() != nil {
			continue
		}

		regions, err := b.segmenter.Segment(b.ctx, req.ImageID, req.Points)
		if err != nil {
			// A failed proposal resolves the request with no regions.
			log.Warn("segmentation failed", "request", req.RequestID, "error", err)
			regions = nil
		}

		b.mu.Lock()
		b.finished[req.RequestID] = assist.Result{
			ImageID:   req.ImageID,
			RequestID: req.RequestID,
			Regions:   regions,
		}
		b.mu.Unlock()
	}
}
