// BMP-specific structs and types
package bmp

import (
	"fmt"

	"github.com/anas-shakeel/go-dib/internal/utils"
)

const (
	FileHeaderSize = 14

	fileSizeOffset = 2
	offBitsOffset  = 10
)

// Compression methods (biCompression)
const (
	BI_RGB            = 0
	BI_RLE8           = 1
	BI_RLE4           = 2
	BI_BITFIELDS      = 3
	BI_JPEG           = 4
	BI_PNG            = 5
	BI_ALPHABITFIELDS = 6
)

// The BitmapFileHeader structure contains information about the type, size,
// and layout of a file that contains a DIB [device-independent bitmap].
// https://learn.microsoft.com/en-us/windows/win32/api/wingdi/ns-wingdi-bitmapfileheader
type BitmapFileHeader struct {
	Type    [2]byte // The file type: must be 0x4d42 (ASCII string "BM").
	Size    uint32  // The size, in bytes, of the bitmap file.
	OffBits uint32  // Bitmap File Offset (In bytes) to Pixel Arrays
}

// Parses the 14-byte file header at the start of data.
// Only the magic number is validated; OffBits is checked at decode time.
func parseFileHeader(data []byte) (*BitmapFileHeader, error) {
	if len(data) < FileHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(data))
	}
	if data[0] != 'B' || data[1] != 'M' {
		return nil, fmt.Errorf("%w: %#02x %#02x", ErrMalformedMagicNumber, data[0], data[1])
	}

	size, err := utils.ReadUint32(data, fileSizeOffset)
	if err != nil {
		return nil, err
	}
	offBits, err := utils.ReadUint32(data, offBitsOffset)
	if err != nil {
		return nil, err
	}

	return &BitmapFileHeader{
		Type:    [2]byte{data[0], data[1]},
		Size:    size,
		OffBits: offBits,
	}, nil
}

// Number of bytes in one stored row, padded to a 4-byte boundary.
func ScanlineSize(width, bitsPerPixel int) int {
	bytesPerRow := (width*bitsPerPixel + 7) / 8
	return ((bytesPerRow + 3) / 4) * 4
}
