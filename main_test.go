package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"labeltool/internal/labels"
	"labeltool/internal/labelstore"
	"labeltool/internal/logging"
	"labeltool/internal/regions"
	"labeltool/pkg/geometry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// workspace runs the test in an empty directory with no config file.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Cleanup(func() { logging.SetLogger(nil) })
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := rootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), "labeltool %v", args)
	return out.String()
}

func loadLabels(t *testing.T, image string) *labels.Header {
	t.Helper()
	h, err := labelstore.New("").Load(image)
	require.NoError(t, err)
	return h
}

func TestDrawInspectMerge(t *testing.T) {
	dir := workspace(t)
	img := filepath.Join(dir, "field.png")

	execute(t, "draw", img, "0,0", "10,0", "10,10", "0,10", "--class", "tree", "--id-prefix", "t")
	execute(t, "draw", img, "20,0", "30,0", "30,10", "20,10", "--class", "tree", "--id-prefix", "t")

	out := execute(t, "inspect", img, "--id-prefix", "t")
	assert.Contains(t, out, "field.png: 2 labels")
	assert.Contains(t, out, "t__1")
	assert.Contains(t, out, "t__2")

	execute(t, "draw", img, "5,0", "25,0", "25,10", "5,10", "--mode", "add", "--target", "t__1", "--id-prefix", "t")
	h := loadLabels(t, img)
	require.Len(t, h.Labels, 2)
	assert.InDelta(t, 250.0, regions.Area(h.Labels[0].(*labels.Polygon).Regions), 1e-6)

	out = execute(t, "merge", img, "t__1", "t__2", "--id-prefix", "t")
	assert.Contains(t, out, "merged into")

	h = loadLabels(t, img)
	require.Len(t, h.Labels, 1)
	merged := h.Labels[0].(*labels.Polygon)
	assert.Equal(t, labels.ClassID("tree"), merged.LabelClass)
	assert.InDelta(t, 300.0, regions.Area(merged.Regions), 1e-6)
}

func TestDrawRejectsBadInput(t *testing.T) {
	dir := workspace(t)
	img := filepath.Join(dir, "a.png")

	for _, args := range [][]string{
		{"draw", img, "0,0", "1,0", "1,1", "--mode", "sideways"},
		{"draw", img, "0,0", "1;0", "1,1"},
		{"draw", img, "0,0", "1,0", "1,1", "--target", "nope"},
		{"merge", img, "a", "b"},
	} {
		cmd := rootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), "%v", args)
	}
}

func TestFromMaskAndPropose(t *testing.T) {
	dir := workspace(t)
	img := filepath.Join(dir, "cells.png")

	mask := image.NewGray(image.Rect(0, 0, 40, 40))
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	maskPath := filepath.Join(dir, "mask.png")
	f, err := os.Create(maskPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, mask))
	require.NoError(t, f.Close())

	out := execute(t, "from-mask", img, maskPath, "--class", "cell")
	assert.Contains(t, out, "added")

	out = execute(t, "propose", img, "50,10", "10,50", "50,90", "90,50", "--class", "cell", "--metrics")
	assert.Contains(t, out, "proposed")
	assert.Contains(t, out, "assist_requests_total{status=sent} 1")
	assert.Contains(t, out, "assist_completions_total{outcome=applied} 1")
	assert.Contains(t, out, "assist_open_requests{} 0")

	h := loadLabels(t, img)
	require.Len(t, h.Labels, 2)
	traced := h.Labels[0].(*labels.Polygon)
	assert.Equal(t, sourceMask, traced.Source)
	assert.InDelta(t, 361.0, regions.Area(traced.Regions), 1e-6)

	proposed := h.Labels[1].(*labels.Polygon)
	assert.Equal(t, labels.SourceDextr, proposed.Source)
	assert.Equal(t, labels.ClassID("cell"), proposed.LabelClass)
	assert.True(t, regions.Contains(proposed.Regions, geometry.Point2D{X: 50, Y: 50}))
}

func TestVersion(t *testing.T) {
	workspace(t)
	out := execute(t, "--version")
	assert.Contains(t, out, "0.1.0")
}
