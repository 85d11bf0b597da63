// Package maskregions converts binary masks into polygon regions and back.
package maskregions

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sort"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"

	"labeltool/pkg/geometry"
)

// collinearTolerance is how close to 1 the cosine between consecutive edge
// directions must be for the shared vertex to be dropped.
const collinearTolerance = 1e-6

// FromMask traces the boundaries of the nonzero pixels of a single-channel
// 8-bit mask. Outer boundaries and hole boundaries are returned alike, so
// the even-odd rule recovers the mask. Regions are sorted by decreasing
// area; boundaries that simplify to fewer than three vertices are dropped.
func FromMask(mask gocv.Mat) [][]geometry.Point2D {
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(mask, &binary, 0, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(binary, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	type traced struct {
		area   float64
		region []geometry.Point2D
	}
	var found []traced
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		region := make([]geometry.Point2D, 0, contour.Size())
		for j := 0; j < contour.Size(); j++ {
			pt := contour.At(j)
			region = append(region, geometry.Point2D{X: float64(pt.X), Y: float64(pt.Y)})
		}

		region = Simplify(region)
		if len(region) < 3 {
			continue
		}
		found = append(found, traced{area: math.Abs(geometry.SignedArea(region)), region: region})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].area > found[j].area })

	regions := make([][]geometry.Point2D, len(found))
	for i, f := range found {
		regions[i] = f.region
	}
	return regions
}

// FromImage thresholds img at half intensity and traces the result.
func FromImage(img image.Image) ([][]geometry.Point2D, error) {
	mask, err := imageToMask(img)
	if err != nil {
		return nil, err
	}
	defer mask.Close()
	return FromMask(mask), nil
}

// Load reads a mask image (TIFF, PNG or JPEG) from disk.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask: %w", err)
	}
	return img, nil
}

// imageToMask converts img to an 8-bit mask where pixels brighter than
// half intensity are set.
func imageToMask(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)

	mat, err := gocv.NewMatFromBytes(gray.Rect.Dy(), gray.Rect.Dx(), gocv.MatTypeCV8U, gray.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create mask: %w", err)
	}
	defer mat.Close()

	mask := gocv.NewMat()
	gocv.Threshold(mat, &mask, 127, 255, gocv.ThresholdBinary)
	return mask, nil
}

// Rasterize fills the given regions into a new rows x cols mask with the
// even-odd rule.
func Rasterize(regions [][]geometry.Point2D, rows, cols int) gocv.Mat {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
	for _, region := range regions {
		if len(region) < 3 {
			continue
		}
		layer := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
		pts := make([]image.Point, len(region))
		for i, p := range region {
			pts[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		gocv.DrawContours(&layer, pv, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
		pv.Close()

		gocv.BitwiseXor(mask, layer, &mask)
		layer.Close()
	}
	return mask
}

// Simplify removes repeated vertices and vertices lying on a straight run
// between their neighbours.
func Simplify(region []geometry.Point2D) []geometry.Point2D {
	out := append([]geometry.Point2D(nil), region...)

	for {
		n := len(out)
		kept := out[:0:0]
		for i := 0; i < n; i++ {
			if out[i] != out[(i+1)%n] {
				kept = append(kept, out[i])
			}
		}
		if len(kept) == n {
			break
		}
		out = kept
	}

	n := len(out)
	if n < 3 {
		return out
	}
	kept := make([]geometry.Point2D, 0, n)
	for i := 0; i < n; i++ {
		prev, cur, next := out[(i+n-1)%n], out[i], out[(i+1)%n]
		in := cur.Sub(prev)
		outDir := next.Sub(cur)
		cos := in.Dot(outDir) / (math.Hypot(in.X, in.Y) * math.Hypot(outDir.X, outDir.Y))
		if cos > 1-collinearTolerance {
			continue
		}
		kept = append(kept, cur)
	}
	return kept
}
