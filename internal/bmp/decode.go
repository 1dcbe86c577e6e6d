package bmp

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/apex/log"

	"github.com/anas-shakeel/go-dib/internal/utils"
)

// Upper bound on width*height; larger headers are treated as corrupt
// rather than allocated.
const maxGridPixels = 1 << 28

// Default BI_BITFIELDS masks when neither the header nor the file supplies any.
var (
	rgb555Masks = ChannelMasks{Red: 0x7C00, Green: 0x03E0, Blue: 0x001F}
	rgb565Masks = ChannelMasks{Red: 0xF800, Green: 0x07E0, Blue: 0x001F}
	rgb888Masks = ChannelMasks{Red: 0x00FF0000, Green: 0x0000FF00, Blue: 0x000000FF, Alpha: 0xFF000000}
)

// decoder turns the pixel array of a parsed bitmap into a PixelGrid.
// It only reads from data.
type decoder struct {
	data    []byte
	header  *BitmapInfoHeader
	palette *ColourPalette
	log     log.Interface

	offset        int // Resolved file offset of the pixel array
	width, height int // Display dimensions

	// File row i is display row rowOffset + i*rowStep.
	rowStep, rowOffset int
}

func newDecoder(data []byte, fh *BitmapFileHeader, h *BitmapInfoHeader, p *ColourPalette, logger log.Interface) *decoder {
	d := &decoder{
		data:    data,
		header:  h,
		palette: p,
		log:     logger,
		width:   h.AbsWidth(),
		height:  h.AbsHeight(),
	}

	if d.height == 0 {
		d.height = 1
	}

	// Bottom-up: file row 0 is the last display row
	if h.TopDown() {
		d.rowStep, d.rowOffset = 1, 0
	} else {
		d.rowStep, d.rowOffset = -1, d.height-1
	}

	d.offset = resolvePixelOffset(len(data), fh, h, p)
	if d.offset != int(int32(fh.OffBits)) {
		d.log.WithFields(log.Fields{
			"declared": int32(fh.OffBits),
			"computed": d.offset,
		}).Debug("pixel data offset recomputed from header geometry")
	}

	return d
}

// Returns the declared pixel-array offset, or the offset implied by the
// header, masks and palette when the declared one is unusable.
func resolvePixelOffset(dataLen int, fh *BitmapFileHeader, h *BitmapInfoHeader, p *ColourPalette) int {
	declared := int(int32(fh.OffBits))
	if declared > 0 && declared < dataLen {
		return declared
	}

	offset := FileHeaderSize + int(h.Size) + trailingMaskSize(h)
	if p != nil {
		offset += p.Len() * paletteEntrySize(h)
	}
	return offset
}

func (d *decoder) displayRow(fileRow int) int {
	return d.rowOffset + fileRow*d.rowStep
}

// Decodes the pixel array. For a corrupted RLE8 stream both the grid
// decoded so far and an ErrCorruptedImage are returned; every other
// error comes with a nil grid.
func (d *decoder) decode() (PixelGrid, error) {
	bpp := int(d.header.BitCount)

	var decodeFn func(PixelGrid) error
	switch d.header.Compression {
	case BI_RGB:
		switch bpp {
		case 1, 4, 8:
			decodeFn = d.readIndexed
		case 16, 24, 32:
			decodeFn = d.readDirect
		default:
			return nil, fmt.Errorf("%w: %d bpp for BI_RGB", ErrUnsupportedBitDepth, bpp)
		}
	case BI_RLE8:
		if bpp != 8 {
			return nil, fmt.Errorf("%w: %d bpp for BI_RLE8", ErrUnsupportedBitDepth, bpp)
		}
		return d.readRLE8()
	case BI_BITFIELDS, BI_ALPHABITFIELDS:
		if bpp != 16 && bpp != 32 {
			return nil, fmt.Errorf("%w: %d bpp for BI_BITFIELDS", ErrUnsupportedBitDepth, bpp)
		}
		decodeFn = d.readBitfields
	case BI_RLE4:
		return nil, fmt.Errorf("%w: BI_RLE4", ErrUnsupportedCompression)
	case BI_JPEG, BI_PNG:
		return nil, fmt.Errorf("%w: embedded JPEG/PNG (%d)", ErrUnsupportedCompression, d.header.Compression)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, d.header.Compression)
	}

	if err := d.checkUncompressedSize(bpp); err != nil {
		return nil, err
	}

	grid := NewPixelGrid(d.width, d.height)
	if err := decodeFn(grid); err != nil {
		return nil, err
	}
	return grid, nil
}

func (d *decoder) checkDimensions() error {
	if int64(max(d.width, 1))*int64(d.height) > maxGridPixels {
		return fmt.Errorf("%w: image dimensions %dx%d too large", ErrCorruptedImage, d.width, d.height)
	}
	return nil
}

// Makes sure every stored row lies inside the buffer, so the per-pixel
// reads below need no bounds checks.
func (d *decoder) checkUncompressedSize(bpp int) error {
	if err := d.checkDimensions(); err != nil {
		return err
	}

	stride := ScanlineSize(d.width, bpp)
	rowBytes := (d.width*bpp + 7) / 8
	last := d.offset + stride*(d.height-1)
	if !utils.Available(d.data, last, rowBytes) {
		return fmt.Errorf("%w: pixel data needs %d bytes from offset %d, file is %d bytes",
			ErrCorruptedImage, stride*(d.height-1)+rowBytes, d.offset, len(d.data))
	}
	return nil
}

// Reads 1, 4 and 8 bpp palette indexes.
func (d *decoder) readIndexed(grid PixelGrid) error {
	bpp := int(d.header.BitCount)
	stride := ScanlineSize(d.width, bpp)

	for i := 0; i < d.height; i++ {
		scanline := d.data[d.offset+i*stride:]
		row := grid[d.displayRow(i)]

		for x := 0; x < d.width; x++ {
			colour, err := d.palette.Colour(paletteIndex(scanline, x, bpp))
			if err != nil {
				return fmt.Errorf("pixel (%d, %d): %w", x, i, err)
			}
			row[x] = colour
		}
	}
	return nil
}

// Extracts the palette index of pixel x from a packed scanline.
// Sub-byte pixels are packed most significant bits first.
func paletteIndex(scanline []byte, x, bpp int) int {
	switch bpp {
	case 8:
		return int(scanline[x])
	case 4:
		b := scanline[x/2]
		if x%2 == 0 {
			return int(b >> 4)
		}
		return int(b & 0x0F)
	default:
		b := scanline[x/8]
		return int(b>>(7-x%8)) & 0x01
	}
}

// Reads 16, 24 and 32 bpp BI_RGB pixels.
// 16bpp is RGB555. The fourth byte of a 32bpp pixel is taken as alpha.
func (d *decoder) readDirect(grid PixelGrid) error {
	bpp := int(d.header.BitCount)
	stride := ScanlineSize(d.width, bpp)
	bytesPerPixel := bpp / 8

	for i := 0; i < d.height; i++ {
		scanline := d.data[d.offset+i*stride:]
		row := grid[d.displayRow(i)]

		for x := 0; x < d.width; x++ {
			p := scanline[x*bytesPerPixel:]

			switch bpp {
			case 16:
				v := uint32(binary.LittleEndian.Uint16(p))
				row[x] = NewPixel(opaque,
					extractComponent(v, rgb555Masks.Red),
					extractComponent(v, rgb555Masks.Green),
					extractComponent(v, rgb555Masks.Blue))
			case 24:
				row[x] = NewPixel(opaque, p[2], p[1], p[0])
			case 32:
				row[x] = NewPixel(p[3], p[2], p[1], p[0])
			}
		}
	}
	return nil
}

// Reads 16 and 32 bpp BI_BITFIELDS / BI_ALPHABITFIELDS pixels.
func (d *decoder) readBitfields(grid PixelGrid) error {
	bpp := int(d.header.BitCount)
	stride := ScanlineSize(d.width, bpp)
	bytesPerPixel := bpp / 8
	masks := d.bitfieldMasks()

	for i := 0; i < d.height; i++ {
		scanline := d.data[d.offset+i*stride:]
		row := grid[d.displayRow(i)]

		for x := 0; x < d.width; x++ {
			p := scanline[x*bytesPerPixel:]

			var v uint32
			if bpp == 16 {
				v = uint32(binary.LittleEndian.Uint16(p))
			} else {
				v = binary.LittleEndian.Uint32(p)
			}

			alpha := byte(opaque)
			if masks.Alpha != 0 {
				alpha = extractComponent(v, masks.Alpha)
			}
			row[x] = NewPixel(alpha,
				extractComponent(v, masks.Red),
				extractComponent(v, masks.Green),
				extractComponent(v, masks.Blue))
		}
	}
	return nil
}

// Picks the channel masks for a bitfield image: the header's own masks,
// then masks stored after a BITMAPINFOHEADER, then the format defaults.
func (d *decoder) bitfieldMasks() ChannelMasks {
	if m, err := d.header.Masks(); err == nil && m.Red|m.Green|m.Blue != 0 {
		return m
	}

	if m, ok := d.trailingMasks(); ok {
		return m
	}

	if d.header.BitCount == 16 {
		return rgb565Masks
	}

	m := rgb888Masks
	if d.header.Type == InfoHeader {
		m.Alpha = 0
	}
	return m
}

// Reads the masks that follow a BITMAPINFOHEADER. They are only used when
// the pixel array starts after them.
func (d *decoder) trailingMasks() (ChannelMasks, bool) {
	size := trailingMaskSize(d.header)
	start := FileHeaderSize + int(d.header.Size)
	if size == 0 || d.offset < start+size || !utils.Available(d.data, start, size) {
		return ChannelMasks{}, false
	}

	m := ChannelMasks{
		Red:   binary.LittleEndian.Uint32(d.data[start:]),
		Green: binary.LittleEndian.Uint32(d.data[start+4:]),
		Blue:  binary.LittleEndian.Uint32(d.data[start+8:]),
	}
	if size == 16 {
		m.Alpha = binary.LittleEndian.Uint32(d.data[start+12:])
	}
	if m.Red|m.Green|m.Blue == 0 {
		return ChannelMasks{}, false
	}

	d.log.WithFields(log.Fields{
		"red":   fmt.Sprintf("%#08x", m.Red),
		"green": fmt.Sprintf("%#08x", m.Green),
		"blue":  fmt.Sprintf("%#08x", m.Blue),
		"alpha": fmt.Sprintf("%#08x", m.Alpha),
	}).Debug("using bitfield masks stored after the info header")

	return m, true
}

// Extracts the channel selected by mask from v and scales it to 8 bits.
// Narrow channels are scaled linearly with rounding; wide channels keep
// their top 8 bits.
func extractComponent(v, mask uint32) byte {
	if mask == 0 {
		return 0
	}

	c := (v & mask) >> bits.TrailingZeros32(mask)
	n := bits.OnesCount32(mask)

	switch {
	case n < 8:
		maxValue := uint32(1)<<n - 1
		c = (min(c, maxValue)*255*2 + maxValue) / (2 * maxValue)
	case n > 8:
		c >>= n - 8
	}

	// Non-contiguous masks can still overflow a byte
	if c > 0xFF {
		return 0xFF
	}
	return byte(c)
}
