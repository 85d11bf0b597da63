// Package assist implements assisted region labelling: the user clicks four
// extreme points of an object, a request is sent to an external segmenter,
// and the proposed regions come back asynchronously as a new polygon label.
package assist

import (
	"sort"
	"sync"
	"time"

	"labeltool/internal/labels"
	"labeltool/internal/logging"
	"labeltool/internal/scene"
	"labeltool/pkg/geometry"
)

// Request asks for a region proposal from four extreme points.
type Request struct {
	ImageID   string             `json:"image_id"`
	RequestID int64              `json:"dextr_id"`
	Points    []geometry.Point2D `json:"dextr_points"`
}

// Poll asks for the results of open requests.
type Poll struct {
	RequestIDs []int64 `json:"dextr_ids"`
}

// Result is a reply to a request. Empty regions mean no proposal was found.
type Result struct {
	ImageID   string               `json:"image_id"`
	RequestID int64                `json:"dextr_id"`
	Regions   [][]geometry.Point2D `json:"regions"`
}

// Transport carries requests and polls to the segmenter. Each method
// reports whether the message was accepted for sending. Results come back
// through Service.OnSuccess.
type Transport interface {
	SendRequest(req Request) bool
	SendPoll(poll Poll) bool
}

// Completion outcomes recorded in metrics.
const (
	outcomeApplied = "applied"
	outcomeEmpty   = "empty"
	outcomeStale   = "stale"
	outcomeUnknown = "unknown"
)

type openRequest struct {
	req         Request
	scene       *scene.Scene
	placeholder *scene.Placeholder
	labelClass  labels.ClassID
}

// Service tracks every open request of the process. Request ids come from
// one counter and are never reused. While requests are open and a poll
// interval is set, a single scheduler polls the transport for all of them.
//
// Submit and OnSuccess touch the scene and must run on the UI loop. The
// open-request table is safe to poll from the scheduler goroutine.
type Service struct {
	transport Transport
	scheduler Scheduler
	interval  time.Duration
	metrics   *Metrics

	mu     sync.Mutex
	nextID int64
	open   map[int64]*openRequest
}

// Option configures a Service.
type Option func(*Service)

// WithPollInterval enables polling at the given interval. Zero disables
// polling.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// WithScheduler replaces the default ticker scheduler.
func WithScheduler(sch Scheduler) Option {
	return func(s *Service) { s.scheduler = sch }
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a request service sending through t, which may be nil
// when no segmenter is attached.
func NewService(t Transport, opts ...Option) *Service {
	s := &Service{
		transport: t,
		nextID:    1,
		open:      make(map[int64]*openRequest),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scheduler == nil {
		s.scheduler = NewTickerScheduler()
	}
	return s
}

// Submit sends a request for the four points of a finished gesture whose
// outline is shown by placeholder. It returns the request id and whether
// the request was sent. An unsent request is forgotten and its placeholder
// detached at once.
func (s *Service) Submit(sc *scene.Scene, placeholder *scene.Placeholder, points []geometry.Point2D, cls labels.ClassID) (int64, bool) {
	log := logging.For("assist")

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	req := Request{
		ImageID:   sc.CurrentImageID(),
		RequestID: id,
		Points:    append([]geometry.Point2D(nil), points...),
	}
	// Register before sending so a transport replying synchronously finds
	// the request.
	s.open[id] = &openRequest{req: req, scene: sc, placeholder: placeholder, labelClass: cls}
	s.mu.Unlock()

	sent := s.transport != nil && s.transport.SendRequest(req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !sent {
		delete(s.open, id)
		s.metrics.recordRequest("failed")
		log.Warn("assisted region request not sent", "request", id, "image", req.ImageID)
		placeholder.Detach()
		return id, false
	}

	s.metrics.recordRequest("sent")
	s.metrics.setOpen(len(s.open))
	log.Debug("assisted region request sent", "request", id, "image", req.ImageID)

	if _, ok := s.open[id]; ok && s.interval > 0 && !s.scheduler.Running() {
		s.scheduler.Start(s.interval, s.poll)
		log.Info("assisted region polling started", "interval", s.interval)
	}
	return id, true
}

// poll asks the transport about every open request.
func (s *Service) poll() {
	ids := s.OpenRequests()
	if len(ids) == 0 || s.transport == nil {
		return
	}
	s.metrics.recordPoll()
	if !s.transport.SendPoll(Poll{RequestIDs: ids}) {
		logging.For("assist").Warn("assisted region poll not sent", "open", len(ids))
	}
}

// PollNow polls the transport once for all open requests.
func (s *Service) PollNow() {
	s.poll()
}

// OnSuccess applies results. A result for a request that is not open is
// ignored. A result whose gesture placeholder was detached, or whose image
// is no longer shown, is dropped. Otherwise non-empty regions become a new
// selected polygon label.
func (s *Service) OnSuccess(results []Result) {
	log := logging.For("assist")
	for _, r := range results {
		p := s.take(r.RequestID)
		if p == nil {
			s.metrics.recordCompletion(outcomeUnknown)
			log.Debug("ignoring reply for unknown request", "request", r.RequestID)
			continue
		}

		switch {
		case !p.placeholder.Attached() || p.scene.CurrentImageID() != r.ImageID:
			s.metrics.recordCompletion(outcomeStale)
			log.Debug("ignoring stale reply", "request", r.RequestID, "image", r.ImageID)
		case len(r.Regions) == 0:
			s.metrics.recordCompletion(outcomeEmpty)
		default:
			model := labels.NewPolygon(r.Regions, p.labelClass, labels.SourceDextr)
			e := p.scene.GetOrCreate(model)
			p.scene.AddRoot(e)
			p.scene.Select(e, false, false)
			s.metrics.recordCompletion(outcomeApplied)
		}
		p.placeholder.Detach()
	}
}

// take removes a request from the open table, stopping the scheduler when
// the table empties.
func (s *Service) take(id int64) *openRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.open[id]
	if !ok {
		return nil
	}
	delete(s.open, id)
	s.metrics.setOpen(len(s.open))
	if len(s.open) == 0 && s.scheduler.Running() {
		s.scheduler.Stop()
		logging.For("assist").Info("assisted region polling stopped")
	}
	return p
}

// OpenRequests returns the ids of open requests in increasing order.
func (s *Service) OpenRequests() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Polling reports whether the scheduler is running.
func (s *Service) Polling() bool {
	return s.scheduler.Running()
}

// Shutdown forgets every open request, detaches their placeholders and
// stops polling. Like Submit it must run on the UI loop.
func (s *Service) Shutdown() {
	s.mu.Lock()
	dropped := s.open
	s.open = make(map[int64]*openRequest)
	s.metrics.setOpen(0)
	s.scheduler.Stop()
	s.mu.Unlock()

	for _, p := range dropped {
		p.placeholder.Detach()
	}
	if len(dropped) > 0 {
		logging.For("assist").Info("assisted region requests dropped", "open", len(dropped))
	}
}
