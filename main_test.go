package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xfmoulet/qoi"
	xbmp "golang.org/x/image/bmp"

	"github.com/anas-shakeel/go-dib/internal/bmp"
)

func writeTestBitmap(t *testing.T, w, h int) (string, *image.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 60), B: uint8(x*y + 7), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := xbmp.Encode(&buf, img); err != nil {
		t.Fatalf("bmp encode failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.bmp")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, img
}

func TestRunWritesQOI(t *testing.T) {
	path, img := writeTestBitmap(t, 6, 4)
	out := filepath.Join(t.TempDir(), "out.qoi")

	var stdout bytes.Buffer
	if err := run(path, options{qoiPath: out}, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec, err := qoi.Decode(f)
	if err != nil {
		t.Fatalf("qoi decode failed: %v", err)
	}
	if dec.Bounds() != img.Bounds() {
		t.Fatalf("bounds = %v, want %v", dec.Bounds(), img.Bounds())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			gr, gg, gb, ga := dec.At(x, y).RGBA()
			wr, wg, wb, wa := img.At(x, y).RGBA()
			if gr != wr || gg != wg || gb != wb || ga != wa {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, dec.At(x, y), img.At(x, y))
			}
		}
	}
}

func TestRunPrintsMetadata(t *testing.T) {
	path, _ := writeTestBitmap(t, 3, 2)

	var stdout bytes.Buffer
	if err := run(path, options{}, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "BITMAPINFOHEADER") {
		t.Fatalf("metadata output %q", stdout.String())
	}

	stdout.Reset()
	if err := run(path, options{print: true, crop: "0,0,2,1"}, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.Count(stdout.String(), "\n"); got != 1 {
		t.Fatalf("printed %d rows, want 1", got)
	}
}

func TestApplyEdits(t *testing.T) {
	grid := bmp.NewPixelGrid(3, 2)
	for row := range grid {
		for col := range grid[row] {
			grid[row][col] = bmp.NewPixel(0xFF, byte(10*row+col), 0, 0)
		}
	}

	edited, err := applyEdits(grid.Clone(), options{crop: "1,0,2,2", flip: "v", filter: "invert"})
	if err != nil {
		t.Fatalf("applyEdits: %v", err)
	}
	if edited.Width() != 2 || edited.Height() != 2 {
		t.Fatalf("edited grid is %dx%d", edited.Width(), edited.Height())
	}
	// Row 1 col 1 of the source, flipped to the top and inverted
	if edited[0][0] != bmp.NewPixel(0xFF, 255-11, 255, 255) {
		t.Fatalf("pixel = %#08x", edited[0][0])
	}

	for _, bad := range []options{
		{crop: "1,2,3"},
		{crop: "a,b,c,d"},
		{crop: "0,0,9,9"},
		{flip: "d"},
		{filter: "sepia"},
	} {
		if _, err := applyEdits(grid.Clone(), bad); err == nil {
			t.Fatalf("applyEdits(%+v) should fail", bad)
		}
	}
}

func TestParseCrop(t *testing.T) {
	x, y, w, h, err := parseCrop("1, 2,3 ,4")
	if err != nil {
		t.Fatalf("parseCrop: %v", err)
	}
	if x != 1 || y != 2 || w != 3 || h != 4 {
		t.Fatalf("parseCrop = %d,%d,%d,%d", x, y, w, h)
	}
}
