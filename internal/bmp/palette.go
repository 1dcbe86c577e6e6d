package bmp

import (
	"fmt"
)

// ColourPalette is the colour table of an indexed (<= 8bpp) bitmap,
// stored as ARGB in palette-index order.
type ColourPalette struct {
	colours  []Pixel
	hasAlpha bool
}

// Number of palette entries declared by the header: biClrUsed when it is
// set and does not exceed biClrImportant, otherwise 2^bpp.
func paletteEntryCount(h *BitmapInfoHeader) int {
	if h.ColorsUsed == 0 || h.ColorsUsed > h.ColorsImportant {
		return 1 << h.BitCount
	}
	return int(h.ColorsUsed)
}

// RGBTRIPLE for core headers, RGBQUAD otherwise.
func paletteEntrySize(h *BitmapInfoHeader) int {
	if h.Type == CoreHeader {
		return 3
	}
	return 4
}

// Size in bytes of the BI_BITFIELDS masks stored after a BITMAPINFOHEADER.
// Later headers carry the masks inside the header itself.
func trailingMaskSize(h *BitmapInfoHeader) int {
	if h.Type != InfoHeader {
		return 0
	}
	switch h.Compression {
	case BI_BITFIELDS:
		return 12
	case BI_ALPHABITFIELDS:
		return 16
	}
	return 0
}

// Offset of the first palette entry in the file.
func paletteOffset(h *BitmapInfoHeader) int {
	return FileHeaderSize + int(h.Size) + trailingMaskSize(h)
}

func newColourPalette(data []byte, h *BitmapInfoHeader) (*ColourPalette, error) {
	count := paletteEntryCount(h)
	entrySize := paletteEntrySize(h)
	start := paletteOffset(h)

	// Check the whole table up front; count can be as large as biClrUsed.
	if end := start + count*entrySize; end > len(data) {
		lastFull := 0
		if len(data) > start {
			lastFull = (len(data) - start) / entrySize
		}
		return nil, fmt.Errorf("%w: entry %d at offset %d (%d entries, file is %d bytes)",
			ErrPaletteTruncated, lastFull, start+lastFull*entrySize, count, len(data))
	}

	p := &ColourPalette{colours: make([]Pixel, count)}
	if alphaMask, err := h.AlphaMask(); err == nil && alphaMask != 0 {
		p.hasAlpha = true
	}

	for i := 0; i < count; i++ {
		entry := data[start+i*entrySize:]

		// Stored as Blue, Green, Red (, Reserved)
		alpha := byte(0xFF)
		if entrySize == 4 && entry[3] != 0 {
			alpha = entry[3]
		}
		if alpha != 0xFF {
			p.hasAlpha = true
		}

		p.colours[i] = NewPixel(alpha, entry[2], entry[1], entry[0])
	}

	return p, nil
}

// Number of entries in the palette.
func (p *ColourPalette) Len() int {
	return len(p.colours)
}

// Returns the colour at index.
func (p *ColourPalette) Colour(index int) (Pixel, error) {
	if index < 0 || index >= len(p.colours) {
		return 0, fmt.Errorf("%w: index %d, palette has %d entries",
			ErrPaletteIndexOutOfRange, index, len(p.colours))
	}
	return p.colours[index], nil
}

// Returns a copy of the palette entries.
func (p *ColourPalette) Colours() []Pixel {
	return append([]Pixel(nil), p.colours...)
}

// Reports whether the header declares an alpha mask or any entry is
// not fully opaque.
func (p *ColourPalette) HasAlphaChannel() bool {
	return p.hasAlpha
}
