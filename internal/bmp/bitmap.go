// bmp package implements a bitmap (BMP/DIB) reader
package bmp

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/apex/log"
	"github.com/klauspost/compress/zstd"

	"github.com/anas-shakeel/go-dib/internal/utils"
)

// Smallest file that can hold a file header and a core header.
const minBitmapSize = FileHeaderSize + 12

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// BitmapImage is a parsed bitmap file. Headers and palette are parsed at
// construction; pixels are decoded on demand. The input buffer is never
// modified, so a BitmapImage is safe for concurrent use.
type BitmapImage struct {
	Filename string
	BFHeader *BitmapFileHeader
	BIHeader *BitmapInfoHeader

	palette *ColourPalette
	data    []byte
	log     log.Interface

	cache bool
	once  sync.Once
	grid  PixelGrid
	err   error
}

// Option configures a BitmapImage.
type Option func(*BitmapImage)

// Sets the logger used for decode diagnostics. Defaults to log.Log.
func WithLogger(logger log.Interface) Option {
	return func(b *BitmapImage) {
		b.log = logger
	}
}

// Disables memoization of the decoded pixel grid.
func WithoutCache() Option {
	return func(b *BitmapImage) {
		b.cache = false
	}
}

// Reads a Bitmap file. Files compressed with zstd are decompressed first.
func ReadBitmap(filename string, opts ...Option) (*BitmapImage, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(data, zstdMagic) {
		if data, err = decompress(data); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}

	b, err := newBitmap(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	b.Filename = filename
	return b, nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

// Parses a bitmap held in memory. data is copied.
func NewBitmap(data []byte, opts ...Option) (*BitmapImage, error) {
	return newBitmap(bytes.Clone(data), opts)
}

// Takes ownership of data.
func newBitmap(data []byte, opts []Option) (*BitmapImage, error) {
	if len(data) < minBitmapSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTooShort, len(data), minBitmapSize)
	}

	b := &BitmapImage{
		data:  data,
		log:   log.Log,
		cache: true,
	}
	for _, opt := range opts {
		opt(b)
	}

	var err error
	if b.BFHeader, err = parseFileHeader(data); err != nil {
		return nil, err
	}
	if b.BIHeader, err = parseDIBHeader(data); err != nil {
		return nil, err
	}

	if b.HasColourPalette() {
		if b.palette, err = newColourPalette(data, b.BIHeader); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Decodes the pixel array into a grid whose row 0 is the top of the image.
// A corrupted RLE8 stream yields the pixels decoded before the corruption
// and a nil error; the problem is logged. Use DecodeStrict to see it.
func (b *BitmapImage) Decode() (PixelGrid, error) {
	grid, err := b.DecodeStrict()
	if err != nil && grid != nil {
		return grid, nil
	}
	return grid, err
}

// Like Decode, but a partial RLE8 result is returned together with an
// error wrapping ErrCorruptedImage.
func (b *BitmapImage) DecodeStrict() (PixelGrid, error) {
	grid, err := b.decoded()
	if grid == nil {
		return nil, err
	}
	return grid.Clone(), err
}

// Returns the shared decode result. Callers must not modify the grid.
func (b *BitmapImage) decoded() (PixelGrid, error) {
	if !b.cache {
		return newDecoder(b.data, b.BFHeader, b.BIHeader, b.palette, b.log).decode()
	}

	b.once.Do(func() {
		b.grid, b.err = newDecoder(b.data, b.BFHeader, b.BIHeader, b.palette, b.log).decode()
		if b.grid != nil {
			b.log.WithFields(log.Fields{
				"width":  b.grid.Width(),
				"height": b.grid.Height(),
			}).Debug("decoded pixel grid cached")
		}
	})
	return b.grid, b.err
}

// Returns a copy of the file's bytes.
func (b *BitmapImage) RawBytes() []byte {
	return bytes.Clone(b.data)
}

// The file type, "BM".
func (b *BitmapImage) Type() string {
	return string(b.BFHeader.Type[:])
}

// The file size declared in the file header.
func (b *BitmapImage) Size() uint32 {
	return b.BFHeader.Size
}

// The pixel-array offset declared in the file header.
func (b *BitmapImage) Offset() uint32 {
	return b.BFHeader.OffBits
}

// The offset pixel data is actually read from.
func (b *BitmapImage) PixelDataOffset() int {
	return resolvePixelOffset(len(b.data), b.BFHeader, b.BIHeader, b.palette)
}

func (b *BitmapImage) HeaderType() HeaderType { return b.BIHeader.Type }
func (b *BitmapImage) HeaderSize() uint32     { return b.BIHeader.Size }
func (b *BitmapImage) Width() int             { return b.BIHeader.AbsWidth() }
func (b *BitmapImage) Height() int            { return b.BIHeader.AbsHeight() }
func (b *BitmapImage) ColourPlanes() uint16   { return b.BIHeader.Planes }
func (b *BitmapImage) BitsPerPixel() int      { return int(b.BIHeader.BitCount) }
func (b *BitmapImage) Compression() uint32    { return b.BIHeader.Compression }
func (b *BitmapImage) ImageDataSize() uint32  { return b.BIHeader.SizeImage }
func (b *BitmapImage) NColours() uint32       { return b.BIHeader.ColorsUsed }
func (b *BitmapImage) ImportantColours() uint32 {
	return b.BIHeader.ColorsImportant
}
func (b *BitmapImage) XResolution() int32 { return b.BIHeader.XPixelsPerM }
func (b *BitmapImage) YResolution() int32 { return b.BIHeader.YPixelsPerM }

// Channel masks; BITMAPV2INFOHEADER and later.
func (b *BitmapImage) Masks() (ChannelMasks, error) {
	return b.BIHeader.Masks()
}

// BITMAPV3INFOHEADER and later.
func (b *BitmapImage) AlphaMask() (uint32, error) {
	return b.BIHeader.AlphaMask()
}

// BITMAPV4HEADER and later.
func (b *BitmapImage) ColourSpace() (ColourSpace, error) {
	return b.BIHeader.ColourSpace()
}

// BITMAPV5HEADER only.
func (b *BitmapImage) Profile() (ICCProfile, error) {
	return b.BIHeader.Profile()
}

// Size of the embedded ICC profile; BITMAPV5HEADER only.
func (b *BitmapImage) ProfileSize() (uint32, error) {
	p, err := b.BIHeader.Profile()
	return p.Size, err
}

// Indexed images (8 bpp or less) carry a colour palette.
func (b *BitmapImage) HasColourPalette() bool {
	return b.BIHeader.BitCount <= 8
}

// The colour palette, or nil if the image has none.
func (b *BitmapImage) Palette() *ColourPalette {
	return b.palette
}

// Reports whether the image carries transparency: from the palette if
// there is one, else from the header's alpha mask, else by scanning the
// decoded pixels.
func (b *BitmapImage) HasAlphaChannel() bool {
	if b.palette != nil {
		return b.palette.HasAlphaChannel()
	}
	if mask, err := b.BIHeader.AlphaMask(); err == nil {
		return mask != 0
	}

	grid, _ := b.decoded()
	return grid != nil && grid.HasAlpha()
}

// Print the bitmap in terminal. Use for small images only
func (b *BitmapImage) PrintBitmap(w io.Writer) error {
	grid, err := b.Decode()
	if err != nil {
		return err
	}
	return PrintGrid(w, grid)
}

// Prints a pixel grid as coloured terminal blocks.
func PrintGrid(w io.Writer, grid PixelGrid) error {
	for _, row := range grid {
		for _, pixel := range row {
			if _, err := fmt.Fprint(w, utils.ColoredBlock("  ", int(pixel.R()), int(pixel.G()), int(pixel.B()))); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// Print the Metadata bitmap in terminal. (in human-readable format)
func (b *BitmapImage) PrintMetadata(w io.Writer) {
	fmt.Fprintf(w, "Filename: \t%v\n", b.Filename)
	fmt.Fprintf(w, "Filesize: \t%v bytes\n", b.Size())
	fmt.Fprintf(w, "Header: \t%v (%v bytes)\n", b.HeaderType(), b.HeaderSize())
	fmt.Fprintf(w, "Width: \t\t%v px\n", b.Width())
	fmt.Fprintf(w, "Height: \t%v px\n", b.Height())
	fmt.Fprintf(w, "BitCount: \t%vbits\n", b.BitsPerPixel())
	fmt.Fprintf(w, "Compression: \t%v\n", CompressionName(b.Compression()))
	fmt.Fprintf(w, "PixelOffset: \t%v bytes\n", b.PixelDataOffset())
	fmt.Fprintf(w, "ImageSize: \t%v bytes\n", b.ImageDataSize())
	fmt.Fprintf(w, "Resolution: \t%vx%v px/m\n", b.XResolution(), b.YResolution())
	fmt.Fprintf(w, "Stride: \t%v bytes\n", ScanlineSize(b.Width(), b.BitsPerPixel()))
	if b.palette != nil {
		fmt.Fprintf(w, "Palette: \t%v colours\n", b.palette.Len())
	}
	if size, err := b.ProfileSize(); err == nil {
		fmt.Fprintf(w, "ICCProfile: \t%v bytes\n", size)
	}
	fmt.Fprintf(w, "Alpha: \t\t%v\n", b.HasAlphaChannel())
}

// Returns the name of a compression method.
func CompressionName(c uint32) string {
	switch c {
	case BI_RGB:
		return "BI_RGB"
	case BI_RLE8:
		return "BI_RLE8"
	case BI_RLE4:
		return "BI_RLE4"
	case BI_BITFIELDS:
		return "BI_BITFIELDS"
	case BI_JPEG:
		return "BI_JPEG"
	case BI_PNG:
		return "BI_PNG"
	case BI_ALPHABITFIELDS:
		return "BI_ALPHABITFIELDS"
	}
	return fmt.Sprintf("unknown (%d)", c)
}
