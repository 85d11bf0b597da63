// Command maskregions traces the regions of a binary mask image and prints
// them, optionally writing them as a polygon label for an image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"labeltool/internal/labels"
	"labeltool/internal/labelstore"
	"labeltool/internal/maskregions"
	"labeltool/internal/regions"
	"labeltool/pkg/geometry"
)

func main() {
	maskPath := flag.String("mask", "", "Path to mask image (TIFF, PNG, or JPEG)")
	imagePath := flag.String("image", "", "Write the regions as a label of this image")
	labelsDir := flag.String("labels-dir", "", "Directory for labels files (default: beside the image)")
	class := flag.String("class", "", "Label class of the written label")
	verbose := flag.Bool("v", false, "Print every vertex")
	flag.Parse()

	if *maskPath == "" {
		fmt.Println("Usage: maskregions -mask <path> [-image <path> [-labels-dir <dir>] [-class <name>]] [-v]")
		os.Exit(1)
	}

	img, err := maskregions.Load(*maskPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	bounds := img.Bounds()
	fmt.Printf("Loaded mask: %dx%d pixels\n", bounds.Dx(), bounds.Dy())

	rs, err := maskregions.FromImage(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tracing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nTraced %d regions:\n", len(rs))
	fmt.Printf("%-6s %8s %10s %10s %10s %10s\n", "Index", "Vertices", "Area", "Winding", "CentreX", "CentreY")
	fmt.Println(strings.Repeat("-", 60))
	for i, r := range rs {
		signed := geometry.SignedArea(r)
		winding := "ccw"
		if signed < 0 {
			winding = "cw"
		}
		c := geometry.Centroid(r)
		fmt.Printf("%-6d %8d %10.1f %10s %10.1f %10.1f\n", i, len(r), math.Abs(signed), winding, c.X, c.Y)
		if *verbose {
			for _, p := range r {
				fmt.Printf("         (%.0f, %.0f)\n", p.X, p.Y)
			}
		}
	}
	fmt.Printf("\nFilled area (even-odd): %.1f\n", regions.Area(rs))

	if *imagePath == "" {
		return
	}
	if len(rs) == 0 {
		fmt.Fprintln(os.Stderr, "Mask has no foreground; nothing written")
		os.Exit(1)
	}

	store := labelstore.New(*labelsDir)
	h, err := store.Load(*imagePath)
	if errors.Is(err, labelstore.ErrNoLabels) {
		h = labels.NewHeader(*imagePath)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	h.Labels = append(h.Labels, labels.NewPolygon(rs, labels.ClassID(*class), "import:mask"))
	if err := store.Save(*imagePath, h); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d labels)\n", store.Path(*imagePath), len(h.Labels))
}
