// Package proposal runs region proposals in process and serves them to the
// assisted region service as its transport.
package proposal

import (
	"context"
	"errors"
	"math"

	"labeltool/internal/maskregions"
	"labeltool/pkg/geometry"
)

// ErrTooFewPoints is returned when a request carries fewer than three
// distinct points.
var ErrTooFewPoints = errors.New("proposal: need at least three points")

// Segmenter proposes the regions of the object marked by extreme points.
type Segmenter interface {
	Segment(ctx context.Context, imageID string, points []geometry.Point2D) ([][]geometry.Point2D, error)
}

// SegmenterFunc adapts a function to the Segmenter interface.
type SegmenterFunc func(ctx context.Context, imageID string, points []geometry.Point2D) ([][]geometry.Point2D, error)

func (f SegmenterFunc) Segment(ctx context.Context, imageID string, points []geometry.Point2D) ([][]geometry.Point2D, error) {
	return f(ctx, imageID, points)
}

// BoxSegmenter proposes the quadrilateral through the extreme points,
// traced back from a rasterised mask so the result has the same pixel
// geometry as a learned segmenter's output.
type BoxSegmenter struct {
	// Margin is the number of empty pixels kept around the shape.
	Margin int
}

func (b BoxSegmenter) Segment(ctx context.Context, _ string, points []geometry.Point2D) ([][]geometry.Point2D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}

	margin := b.Margin
	if margin < 1 {
		margin = 1
	}
	box := geometry.BoundingBox(points)
	origin := geometry.Point2D{X: math.Floor(box.X) - float64(margin), Y: math.Floor(box.Y) - float64(margin)}
	cols := int(math.Ceil(box.Width)) + 2*margin + 1
	rows := int(math.Ceil(box.Height)) + 2*margin + 1

	local := make([]geometry.Point2D, len(points))
	for i, p := range points {
		local[i] = p.Sub(origin)
	}

	mask := maskregions.Rasterize([][]geometry.Point2D{local}, rows, cols)
	defer mask.Close()

	traced := maskregions.FromMask(mask)
	for _, region := range traced {
		for i := range region {
			region[i] = region[i].Add(origin)
		}
	}
	return traced, nil
}
