package bmp

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	xbmp "golang.org/x/image/bmp"
)

func makeTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x * 17) ^ (y * 31)),
				G: uint8((x * 43) + (y * 13)),
				B: uint8((x * 7) ^ (y * 11)),
				A: 255,
			})
		}
	}
	return img
}

func makePalettedImage(w, h int) *image.Paletted {
	palette := make(color.Palette, 256)
	for i := range palette {
		palette[i] = color.RGBA{R: uint8(i), G: uint8(255 - i), B: uint8(i * 3), A: 255}
	}
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetColorIndex(x, y, uint8(x*7+y*29))
		}
	}
	return img
}

func encodeBMP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := xbmp.Encode(&buf, img); err != nil {
		t.Fatalf("bmp encode failed: %v", err)
	}
	return buf.Bytes()
}

func assertSameImage(t *testing.T, got, want image.Image) {
	t.Helper()
	if got.Bounds() != want.Bounds() {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), want.Bounds())
	}
	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gr, gg, gb, ga := got.At(x, y).RGBA()
			wr, wg, wb, wa := want.At(x, y).RGBA()
			if gr != wr || gg != wg || gb != wb || ga != wa {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got.At(x, y), want.At(x, y))
			}
		}
	}
}

func TestDecodeMatchesReferenceDecoder(t *testing.T) {
	for _, tc := range []struct {
		name string
		img  image.Image
	}{
		{"24bpp", makeTestImage(37, 21)},
		{"8bpp paletted", makePalettedImage(13, 9)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := encodeBMP(t, tc.img)

			b := mustBitmap(t, data)
			grid, err := b.Decode()
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if grid.Width() != b.Width() || grid.Height() != b.Height() {
				t.Fatalf("grid is %dx%d, header says %dx%d", grid.Width(), grid.Height(), b.Width(), b.Height())
			}

			ref, err := xbmp.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("reference decode failed: %v", err)
			}

			assertSameImage(t, grid, tc.img)
			assertSameImage(t, grid, ref)
		})
	}
}

func TestReadBitmap(t *testing.T) {
	data := encodeBMP(t, makeTestImage(8, 5))
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.bmp")
	if err := os.WriteFile(plain, data, 0o644); err != nil {
		t.Fatal(err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	compressed := filepath.Join(dir, "packed.bmp.zst")
	if err := os.WriteFile(compressed, enc.EncodeAll(data, nil), 0o644); err != nil {
		t.Fatal(err)
	}
	enc.Close()

	want, err := mustBitmap(t, data).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			b, err := ReadBitmap(path)
			if err != nil {
				t.Fatalf("ReadBitmap: %v", err)
			}
			if b.Filename != path {
				t.Fatalf("Filename = %q, want %q", b.Filename, path)
			}
			if !bytes.Equal(b.RawBytes(), data) {
				t.Fatal("RawBytes differ from the bitmap contents")
			}
			grid, err := b.Decode()
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !grid.Equal(want) {
				t.Fatal("decoded grid differs from in-memory decode")
			}
		})
	}

	if _, err := ReadBitmap(filepath.Join(dir, "missing.bmp")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ReadBitmap error = %v, want os.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.bmp")
	if err := os.WriteFile(bad, []byte("PNG not really a bitmap file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadBitmap(bad); !errors.Is(err, ErrMalformedMagicNumber) || !strings.Contains(err.Error(), bad) {
		t.Fatalf("ReadBitmap error = %v, want ErrMalformedMagicNumber naming the file", err)
	}
}

func TestBitmapOwnsItsBuffer(t *testing.T) {
	data := fixture{width: 1, height: 1, bpp: 24, pixels: rows(4, []byte{0, 0, 0xFF})}.build()
	b := mustBitmap(t, data)

	data[54] = 0xFF
	raw := b.RawBytes()
	raw[55] = 0xFF

	grid, err := b.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if grid[0][0] != 0xFFFF0000 {
		t.Fatalf("pixel = %#08x, caller mutations leaked into the bitmap", grid[0][0])
	}
	if b.RawBytes()[55] != 0 {
		t.Fatal("RawBytes did not return a copy")
	}
}

func TestPixelGridImage(t *testing.T) {
	grid := NewPixelGrid(3, 2)
	grid[1][2] = 0x80FF0000

	if grid.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("Bounds() = %v", grid.Bounds())
	}
	if got := grid.At(2, 1); got != (color.NRGBA{R: 0xFF, A: 0x80}) {
		t.Fatalf("At(2, 1) = %v", got)
	}
	if got := grid.At(5, 5); got != (color.NRGBA{}) {
		t.Fatalf("At outside bounds = %v", got)
	}
	if grid.ARGB(2, 1) != 0x80FF0000 {
		t.Fatalf("ARGB(2, 1) = %#08x", grid.ARGB(2, 1))
	}
	if !grid.HasAlpha() {
		t.Fatal("HasAlpha() = false")
	}
	if PixelGrid(nil).Width() != 0 || PixelGrid(nil).Bounds() != image.Rect(0, 0, 0, 0) {
		t.Fatal("empty grid should have empty bounds")
	}
}

func TestPrintMetadata(t *testing.T) {
	b := mustBitmap(t, fixture{headerSize: 124, width: 2, height: 2, bpp: 24, profileSize: 99, pixels: make([]byte, 16)}.build())

	var out bytes.Buffer
	b.PrintMetadata(&out)
	for _, want := range []string{"BITMAPV5HEADER", "BI_RGB", "ICCProfile: \t99 bytes", "Stride: \t8 bytes"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("metadata %q does not mention %q", out.String(), want)
		}
	}

	out.Reset()
	if err := b.PrintBitmap(&out); err != nil {
		t.Fatalf("PrintBitmap: %v", err)
	}
	if got := strings.Count(out.String(), "\n"); got != 2 {
		t.Fatalf("PrintBitmap printed %d rows, want 2", got)
	}
}
