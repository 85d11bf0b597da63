package proposal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"labeltool/internal/assist"
	"labeltool/internal/labels"
	"labeltool/internal/regions"
	"labeltool/internal/scene"
	"labeltool/pkg/geometry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

var diamond = []geometry.Point2D{pt(50, 10), pt(10, 50), pt(50, 90), pt(90, 50)}

func triangleSegmenter() Segmenter {
	return SegmenterFunc(func(_ context.Context, _ string, points []geometry.Point2D) ([][]geometry.Point2D, error) {
		return [][]geometry.Point2D{points[:3]}, nil
	})
}

func waitPending(t *testing.T, b *Backend, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return b.Pending() == n }, time.Second, time.Millisecond)
}

func TestBoxSegmenter(t *testing.T) {
	got, err := BoxSegmenter{Margin: 2}.Segment(context.Background(), "img", diamond)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.InDelta(t, 3200.0, regions.Area(got), 250, "diamond area within rasterisation error")
	assert.True(t, regions.Contains(got, pt(50, 50)))
	assert.False(t, regions.Contains(got, pt(15, 15)))

	_, err = BoxSegmenter{}.Segment(context.Background(), "img", diamond[:2])
	assert.ErrorIs(t, err, ErrTooFewPoints)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = BoxSegmenter{}.Segment(ctx, "img", diamond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackendDeliversOnPoll(t *testing.T) {
	b := NewBackend(triangleSegmenter())
	defer b.Close()

	var got []assist.Result
	b.SetReceiver(func(rs []assist.Result) { got = append(got, rs...) })

	require.True(t, b.SendRequest(assist.Request{ImageID: "img", RequestID: 7, Points: diamond}))
	waitPending(t, b, 1)
	assert.Empty(t, got, "nothing is delivered before a poll")

	assert.True(t, b.SendPoll(assist.Poll{RequestIDs: []int64{3}}))
	assert.Empty(t, got, "unpolled ids stay buffered")

	assert.True(t, b.SendPoll(assist.Poll{RequestIDs: []int64{7}}))
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].RequestID)
	assert.Equal(t, "img", got[0].ImageID)
	assert.Equal(t, [][]geometry.Point2D{diamond[:3]}, got[0].Regions)
	assert.Equal(t, 0, b.Pending())
}

func TestBackendFailedSegmentationResolvesEmpty(t *testing.T) {
	b := NewBackend(SegmenterFunc(func(context.Context, string, []geometry.Point2D) ([][]geometry.Point2D, error) {
		return nil, errors.New("model unavailable")
	}))
	defer b.Close()

	var got []assist.Result
	b.SetReceiver(func(rs []assist.Result) { got = rs })
	b.SendRequest(assist.Request{RequestID: 1, Points: diamond})
	waitPending(t, b, 1)
	b.SendPoll(assist.Poll{RequestIDs: []int64{1}})

	require.Len(t, got, 1)
	assert.Empty(t, got[0].Regions)
}

func TestBackendQueueFull(t *testing.T) {
	release := make(chan struct{})
	b := NewBackend(SegmenterFunc(func(ctx context.Context, _ string, _ []geometry.Point2D) ([][]geometry.Point2D, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	}), WithQueueSize(1))

	// One request occupies the worker, one waits in the queue.
	require.True(t, b.SendRequest(assist.Request{RequestID: 1}))
	require.Eventually(t, func() bool { return b.SendRequest(assist.Request{RequestID: 2}) }, time.Second, time.Millisecond)
	assert.False(t, b.SendRequest(assist.Request{RequestID: 3}))

	close(release)
	b.Close()
	assert.False(t, b.SendRequest(assist.Request{RequestID: 4}), "closed backend refuses requests")
	assert.False(t, b.SendPoll(assist.Poll{}))
	b.Close()
}

func TestEndToEndWithService(t *testing.T) {
	// Results are queued and applied on the test goroutine, standing in for
	// the UI loop.
	loop := make(chan func(), 8)
	b := NewBackend(BoxSegmenter{Margin: 1}, WithWorkers(2), WithDispatch(func(fn func()) { loop <- fn }))
	defer b.Close()

	svc := assist.NewService(b, assist.WithPollInterval(time.Millisecond))
	defer svc.Shutdown()
	b.SetReceiver(svc.OnSuccess)

	s := scene.New(nil)
	s.SetModel(&labels.Header{ImageID: "img", Labels: []labels.Model{}})
	placeholder := s.AddPlaceholder(diamond)

	id, sent := svc.Submit(s, placeholder, diamond, "cell")
	require.True(t, sent)
	assert.True(t, svc.Polling())

	select {
	case fn := <-loop:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
	}

	assert.NotContains(t, svc.OpenRequests(), id)
	assert.False(t, svc.Polling())
	require.Len(t, s.Roots(), 1)
	e := s.Roots()[0].(*scene.PolygonEntity)
	assert.Equal(t, labels.SourceDextr, e.Polygon().Source)
	assert.True(t, e.Contains(pt(50, 50)))
	assert.False(t, placeholder.Attached())
}

func TestDefaultDispatchWithManualPolling(t *testing.T) {
	// Without a dispatch function results are applied by the goroutine that
	// polls, here the one owning the scene.
	b := NewBackend(triangleSegmenter())
	defer b.Close()

	svc := assist.NewService(b)
	defer svc.Shutdown()
	b.SetReceiver(svc.OnSuccess)

	s := scene.New(nil)
	s.SetModel(&labels.Header{ImageID: "img", Labels: []labels.Model{}})
	placeholder := s.AddPlaceholder(diamond)
	_, sent := svc.Submit(s, placeholder, diamond, "cell")
	require.True(t, sent)
	assert.False(t, svc.Polling(), "no interval, no scheduler")

	waitPending(t, b, 1)
	svc.PollNow()

	require.Len(t, s.Roots(), 1, "applied before PollNow returns")
	assert.False(t, placeholder.Attached())
	assert.Empty(t, svc.OpenRequests())
}
