package maskregions

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labeltool/internal/regions"
	"labeltool/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

// fill sets the pixels of r in img.
func fill(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name string
		in   []geometry.Point2D
		want []geometry.Point2D
	}{
		{
			name: "square with midpoints",
			in:   []geometry.Point2D{pt(0, 0), pt(5, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(0, 5)},
			want: []geometry.Point2D{pt(10, 0), pt(10, 10), pt(0, 10), pt(0, 0)},
		},
		{
			name: "repeated vertices",
			in:   []geometry.Point2D{pt(0, 0), pt(0, 0), pt(4, 0), pt(4, 4), pt(4, 4), pt(0, 0)},
			want: []geometry.Point2D{pt(4, 0), pt(4, 4), pt(0, 0)},
		},
		{
			name: "single point",
			in:   []geometry.Point2D{pt(1, 1), pt(1, 1)},
			want: []geometry.Point2D{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simplify(tt.in)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestFromImageSortsByArea(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	fill(img, image.Rect(4, 4, 14, 14), 255)
	fill(img, image.Rect(20, 20, 60, 60), 255)

	got, err := FromImage(img)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Greater(t, regions.Area(got[:1]), regions.Area(got[1:]))
	assert.True(t, regions.Contains(got, pt(40, 40)))
	assert.True(t, regions.Contains(got, pt(8.5, 8.5)))
	assert.False(t, regions.Contains(got, pt(16, 16)))
	for _, r := range got {
		assert.Len(t, r, 4, "axis-aligned blocks trace to four corners")
	}
}

func TestFromImageKeepsHoles(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	fill(img, image.Rect(5, 5, 35, 35), 255)
	fill(img, image.Rect(15, 15, 25, 25), 0)

	got, err := FromImage(img)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, regions.Contains(got, pt(20, 20)), "hole centre")
	assert.True(t, regions.Contains(got, pt(8.5, 8.5)))
}

func TestFromImageEmpty(t *testing.T) {
	got, err := FromImage(image.NewGray(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRasterizeRoundTrip(t *testing.T) {
	square := [][]geometry.Point2D{{pt(10, 10), pt(30, 10), pt(30, 30), pt(10, 30)}}
	mask := Rasterize(square, 40, 40)
	defer mask.Close()

	assert.Equal(t, uint8(255), mask.GetUCharAt(20, 20))
	assert.Equal(t, uint8(0), mask.GetUCharAt(5, 5))

	back := FromMask(mask)
	require.Len(t, back, 1)
	assert.InDelta(t, 400.0, regions.Area(back), 1e-6)
}

func TestRasterizeEvenOdd(t *testing.T) {
	holed := [][]geometry.Point2D{
		{pt(0, 0), pt(30, 0), pt(30, 30), pt(0, 30)},
		{pt(10, 10), pt(20, 10), pt(20, 20), pt(10, 20)},
	}
	mask := Rasterize(holed, 32, 32)
	defer mask.Close()

	assert.Equal(t, uint8(0), mask.GetUCharAt(15, 15))
	assert.Equal(t, uint8(255), mask.GetUCharAt(5, 5))
}

func TestLoad(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	fill(img, image.Rect(2, 2, 10, 10), 255)

	path := filepath.Join(t.TempDir(), "mask.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	loaded, err := Load(path)
	require.NoError(t, err)
	got, err := FromImage(loaded)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
