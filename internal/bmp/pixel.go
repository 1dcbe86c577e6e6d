package bmp

import (
	"image"
	"image/color"
)

// Pixel is a packed ARGB colour, 0xAARRGGBB. Alpha is not premultiplied.
type Pixel uint32

const opaque = 0xFF

func NewPixel(a, r, g, b byte) Pixel {
	return Pixel(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (p Pixel) A() byte { return byte(p >> 24) }
func (p Pixel) R() byte { return byte(p >> 16) }
func (p Pixel) G() byte { return byte(p >> 8) }
func (p Pixel) B() byte { return byte(p) }

// Returns the pixel with its colour channels replaced, keeping alpha.
func (p Pixel) WithRGB(r, g, b byte) Pixel {
	return NewPixel(p.A(), r, g, b)
}

func (p Pixel) NRGBA() color.NRGBA {
	return color.NRGBA{R: p.R(), G: p.G(), B: p.B(), A: p.A()}
}

// PixelGrid is a height-by-width matrix of pixels. Row 0 is the top row
// of the image as displayed, whatever the storage order in the file.
type PixelGrid [][]Pixel

// Allocates a zeroed grid.
func NewPixelGrid(width, height int) PixelGrid {
	pixels := make([]Pixel, width*height)
	grid := make(PixelGrid, height)
	for row := 0; row < height; row++ {
		grid[row] = pixels[row*width : (row+1)*width : (row+1)*width]
	}
	return grid
}

func (g PixelGrid) Height() int {
	return len(g)
}

func (g PixelGrid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Returns the packed ARGB value at column x, row y.
func (g PixelGrid) ARGB(x, y int) uint32 {
	return uint32(g[y][x])
}

// Returns a deep copy of the grid.
func (g PixelGrid) Clone() PixelGrid {
	dup := NewPixelGrid(g.Width(), g.Height())
	for row := range g {
		copy(dup[row], g[row])
	}
	return dup
}

// Reports whether both grids have the same dimensions and pixels.
func (g PixelGrid) Equal(other PixelGrid) bool {
	if g.Height() != other.Height() || g.Width() != other.Width() {
		return false
	}
	for row := range g {
		for col := range g[row] {
			if g[row][col] != other[row][col] {
				return false
			}
		}
	}
	return true
}

// Reports whether any pixel is not fully opaque.
func (g PixelGrid) HasAlpha() bool {
	for _, row := range g {
		for _, p := range row {
			if p.A() != opaque {
				return true
			}
		}
	}
	return false
}

// PixelGrid implements image.Image so that decoded bitmaps can be handed
// to any image encoder.

func (g PixelGrid) ColorModel() color.Model {
	return color.NRGBAModel
}

func (g PixelGrid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width(), g.Height())
}

func (g PixelGrid) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(g.Bounds())) {
		return color.NRGBA{}
	}
	return g[y][x].NRGBA()
}
