package bmp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/anas-shakeel/go-dib/internal/utils"
)

// HeaderType identifies which DIB header structure a file carries.
// Each type is a strict extension of the one before it.
type HeaderType int

const (
	CoreHeader   HeaderType = iota // BITMAPCOREHEADER, 12 bytes
	InfoHeader                     // BITMAPINFOHEADER, 40 bytes
	V2InfoHeader                   // BITMAPV2INFOHEADER, 52 bytes
	V3InfoHeader                   // BITMAPV3INFOHEADER, 56 bytes
	V4Header                       // BITMAPV4HEADER, 108 bytes
	V5Header                       // BITMAPV5HEADER, 124 bytes
)

var headerSizes = [...]uint32{12, 40, 52, 56, 108, 124}

var headerNames = [...]string{
	"BITMAPCOREHEADER",
	"BITMAPINFOHEADER",
	"BITMAPV2INFOHEADER",
	"BITMAPV3INFOHEADER",
	"BITMAPV4HEADER",
	"BITMAPV5HEADER",
}

// Returns the header type with the given on-disk size.
func HeaderTypeFromSize(size uint32) (HeaderType, bool) {
	for t, s := range headerSizes {
		if s == size {
			return HeaderType(t), true
		}
	}
	return 0, false
}

// Size of the header structure in bytes.
func (t HeaderType) Size() uint32 {
	return headerSizes[t]
}

func (t HeaderType) String() string {
	if t < CoreHeader || t > V5Header {
		return fmt.Sprintf("HeaderType(%d)", int(t))
	}
	return headerNames[t]
}

// ChannelMasks are the bit masks that select each colour channel from a
// raw pixel value.
type ChannelMasks struct {
	Red, Green, Blue, Alpha uint32
}

// CIEXYZ holds one endpoint as FXPT2DOT30 fixed-point components.
type CIEXYZ struct {
	X, Y, Z int32
}

// CIEXYZTriple holds the red, green and blue endpoints of a colour space.
type CIEXYZTriple struct {
	Red, Green, Blue CIEXYZ
}

// ColourSpace is the colour-space block introduced by BITMAPV4HEADER.
type ColourSpace struct {
	Type       uint32 // bV4CSType
	Endpoints  CIEXYZTriple
	GammaRed   uint32
	GammaGreen uint32
	GammaBlue  uint32
}

// ICCProfile is the rendering-intent and profile block of BITMAPV5HEADER.
type ICCProfile struct {
	Intent   uint32
	Data     uint32 // Offset of the profile data from the start of the DIB header.
	Size     uint32
	Reserved uint32
}

// The BitmapInfoHeader structure contains information about the
// dimensions and color format of DIB [device-independent bitmap].
// A single struct covers every header variant; blocks that a variant
// does not define stay nil and their accessors return
// ErrUnsupportedForHeaderType.
type BitmapInfoHeader struct {
	Type            HeaderType
	Size            uint32 // The number of bytes required by the structure.
	Width           int32  // The width of the bitmap, in pixels.
	Height          int32  // The height of the bitmap, in pixels. Negative means top-down.
	Planes          uint16 // The number of planes for the target device.
	BitCount        uint16 // The number of bits-per-pixel.
	Compression     uint32 // The type of compression
	SizeImage       uint32 // The size of the image (in bytes).
	XPixelsPerM     int32  // The horizontal resolution, in pixels-per-meter.
	YPixelsPerM     int32  // The vertical resolution, in pixels-per-meter.
	ColorsUsed      uint32 // Number of color indexes that are actually used by bitmap.
	ColorsImportant uint32 // Number of color indexes required for displaying the bitmap.

	masks       *ChannelMasks // V2 and later; Alpha only from V3
	colourSpace *ColourSpace  // V4 and later
	profile     *ICCProfile   // V5
}

// On-disk layouts, read in order with binary.Read.
type (
	rawCoreHeader struct {
		Size     uint32
		Width    uint16
		Height   int16
		Planes   uint16
		BitCount uint16
	}

	rawInfoHeader struct {
		Size            uint32
		Width           int32
		Height          int32
		Planes          uint16
		BitCount        uint16
		Compression     uint32
		SizeImage       uint32
		XPixelsPerM     int32
		YPixelsPerM     int32
		ColorsUsed      uint32
		ColorsImportant uint32
	}

	rawColourSpace struct {
		Type       uint32
		Endpoints  [9]int32
		GammaRed   uint32
		GammaGreen uint32
		GammaBlue  uint32
	}
)

// Parses the DIB header that follows the file header. The header size
// selects the variant; each variant reads its parent's fields first.
func parseDIBHeader(data []byte) (*BitmapInfoHeader, error) {
	size, err := utils.ReadUint32(data, FileHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTooShort, err)
	}

	headerType, ok := HeaderTypeFromSize(size)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHeaderSize, size)
	}
	if len(data) < FileHeaderSize+int(size) {
		return nil, fmt.Errorf("%w: %s needs %d bytes, have %d",
			ErrTruncatedHeader, headerType, FileHeaderSize+int(size), len(data))
	}

	r := bytes.NewReader(data[FileHeaderSize : FileHeaderSize+int(size)])
	h := &BitmapInfoHeader{Type: headerType}

	if headerType == CoreHeader {
		var core rawCoreHeader
		if err := binary.Read(r, binary.LittleEndian, &core); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
		}
		h.Size = core.Size
		h.Width = int32(core.Width)
		h.Height = int32(core.Height)
		h.Planes = core.Planes
		h.BitCount = core.BitCount
		return h, nil
	}

	var info rawInfoHeader
	if err := binary.Read(r, binary.LittleEndian, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}
	h.Size = info.Size
	h.Width = info.Width
	h.Height = info.Height
	h.Planes = info.Planes
	h.BitCount = info.BitCount
	h.Compression = info.Compression
	h.SizeImage = info.SizeImage
	h.XPixelsPerM = info.XPixelsPerM
	h.YPixelsPerM = info.YPixelsPerM
	h.ColorsUsed = info.ColorsUsed
	h.ColorsImportant = info.ColorsImportant

	// Uncompressed images may leave biSizeImage as 0
	if h.SizeImage == 0 && h.Compression == BI_RGB {
		h.SizeImage = uint32(ScanlineSize(h.AbsWidth(), int(h.BitCount)) * h.AbsHeight())
	}

	if headerType >= V2InfoHeader {
		var rgb [3]uint32
		if err := binary.Read(r, binary.LittleEndian, &rgb); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
		}
		h.masks = &ChannelMasks{Red: rgb[0], Green: rgb[1], Blue: rgb[2]}
	}

	if headerType >= V3InfoHeader {
		if err := binary.Read(r, binary.LittleEndian, &h.masks.Alpha); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
		}
	}

	if headerType >= V4Header {
		var cs rawColourSpace
		if err := binary.Read(r, binary.LittleEndian, &cs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
		}
		e := cs.Endpoints
		h.colourSpace = &ColourSpace{
			Type: cs.Type,
			Endpoints: CIEXYZTriple{
				Red:   CIEXYZ{e[0], e[1], e[2]},
				Green: CIEXYZ{e[3], e[4], e[5]},
				Blue:  CIEXYZ{e[6], e[7], e[8]},
			},
			GammaRed:   cs.GammaRed,
			GammaGreen: cs.GammaGreen,
			GammaBlue:  cs.GammaBlue,
		}
	}

	if headerType >= V5Header {
		var p ICCProfile
		if err := binary.Read(r, binary.LittleEndian, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
		}
		h.profile = &p
	}

	return h, nil
}

// Width as a non-negative magnitude.
func (h *BitmapInfoHeader) AbsWidth() int {
	if h.Width < 0 {
		return -int(h.Width)
	}
	return int(h.Width)
}

// Height as a non-negative magnitude.
func (h *BitmapInfoHeader) AbsHeight() int {
	if h.Height < 0 {
		return -int(h.Height)
	}
	return int(h.Height)
}

// Reports whether file row 0 is the top display row.
func (h *BitmapInfoHeader) TopDown() bool {
	return h.Height <= 0
}

// Returns the red, green and blue masks (V2 and later) and the alpha mask
// (V3 and later; zero for V2).
func (h *BitmapInfoHeader) Masks() (ChannelMasks, error) {
	if h.masks == nil {
		return ChannelMasks{}, fmt.Errorf("%w: no channel masks in %s", ErrUnsupportedForHeaderType, h.Type)
	}
	return *h.masks, nil
}

func (h *BitmapInfoHeader) AlphaMask() (uint32, error) {
	if h.Type < V3InfoHeader {
		return 0, fmt.Errorf("%w: no alpha mask in %s", ErrUnsupportedForHeaderType, h.Type)
	}
	return h.masks.Alpha, nil
}

func (h *BitmapInfoHeader) ColourSpace() (ColourSpace, error) {
	if h.colourSpace == nil {
		return ColourSpace{}, fmt.Errorf("%w: no colour space in %s", ErrUnsupportedForHeaderType, h.Type)
	}
	return *h.colourSpace, nil
}

func (h *BitmapInfoHeader) Profile() (ICCProfile, error) {
	if h.profile == nil {
		return ICCProfile{}, fmt.Errorf("%w: no ICC profile in %s", ErrUnsupportedForHeaderType, h.Type)
	}
	return *h.profile, nil
}
