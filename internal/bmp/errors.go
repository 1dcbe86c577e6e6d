package bmp

import "errors"

// Construction errors.
var (
	ErrTooShort             = errors.New("bmp: data too short to be a bitmap")
	ErrMalformedMagicNumber = errors.New("bmp: malformed magic number")
	ErrUnknownHeaderSize    = errors.New("bmp: unknown DIB header size")
	ErrTruncatedHeader      = errors.New("bmp: truncated DIB header")
	ErrPaletteTruncated     = errors.New("bmp: colour palette truncated")
)

// Decode errors.
var (
	ErrPaletteIndexOutOfRange = errors.New("bmp: palette index out of range")
	ErrUnsupportedCompression = errors.New("bmp: unsupported compression")
	ErrUnsupportedBitDepth    = errors.New("bmp: unsupported bit depth")
	ErrCorruptedImage         = errors.New("bmp: corrupted image data")
)

// ErrUnsupportedForHeaderType is returned by accessors for fields that the
// active DIB header variant does not define.
var ErrUnsupportedForHeaderType = errors.New("bmp: field not defined for header type")
