package bmp

import (
	"bytes"
	"encoding/binary"
)

// fixture describes a bitmap file to be assembled for a test.
type fixture struct {
	headerSize   uint32
	width        int32
	height       int32
	bpp          uint16
	compression  uint32
	sizeImage    uint32
	clrUsed      uint32
	clrImportant uint32
	masks        ChannelMasks // written by V2 headers and later
	csType       uint32
	profileSize  uint32
	trailing     []byte  // bytes between the header and the palette
	palette      []byte  // raw palette entries
	pixels       []byte  // pixel array
	offBits      *uint32 // overrides the computed pixel offset
}

func le(buf *bytes.Buffer, v any) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func (f fixture) build() []byte {
	if f.headerSize == 0 {
		f.headerSize = 40
	}

	offBits := FileHeaderSize + f.headerSize + uint32(len(f.trailing)+len(f.palette))
	if f.offBits != nil {
		offBits = *f.offBits
	}

	var dib bytes.Buffer
	le(&dib, f.headerSize)
	if f.headerSize == 12 {
		le(&dib, uint16(f.width))
		le(&dib, int16(f.height))
		le(&dib, uint16(1))
		le(&dib, f.bpp)
	} else {
		le(&dib, f.width)
		le(&dib, f.height)
		le(&dib, uint16(1))
		le(&dib, f.bpp)
		le(&dib, f.compression)
		le(&dib, f.sizeImage)
		le(&dib, int32(2835))
		le(&dib, int32(2835))
		le(&dib, f.clrUsed)
		le(&dib, f.clrImportant)
	}
	if f.headerSize >= 52 {
		le(&dib, [3]uint32{f.masks.Red, f.masks.Green, f.masks.Blue})
	}
	if f.headerSize >= 56 {
		le(&dib, f.masks.Alpha)
	}
	if f.headerSize >= 108 {
		le(&dib, f.csType)
		for i := 0; i < 9; i++ {
			le(&dib, int32(i+1))
		}
		le(&dib, [3]uint32{10, 20, 30})
	}
	if f.headerSize >= 124 {
		le(&dib, uint32(4)) // LCS_GM_IMAGES
		le(&dib, uint32(0))
		le(&dib, f.profileSize)
		le(&dib, uint32(0))
	}

	var out bytes.Buffer
	out.WriteString("BM")
	fileSize := FileHeaderSize + uint32(dib.Len()+len(f.trailing)+len(f.palette)+len(f.pixels))
	le(&out, fileSize)
	le(&out, uint32(0))
	le(&out, offBits)
	out.Write(dib.Bytes())
	out.Write(f.trailing)
	out.Write(f.palette)
	out.Write(f.pixels)
	return out.Bytes()
}

// Concatenates rows, padding each to stride bytes.
func rows(stride int, rs ...[]byte) []byte {
	var out []byte
	for _, r := range rs {
		row := make([]byte, stride)
		copy(row, r)
		out = append(out, row...)
	}
	return out
}

// Builds an RGBQUAD palette from ARGB colours.
func quads(colours ...Pixel) []byte {
	var out []byte
	for _, c := range colours {
		a := c.A()
		if a == opaque {
			a = 0
		}
		out = append(out, c.B(), c.G(), c.R(), a)
	}
	return out
}

// A 256-entry grey ramp palette.
func greyRamp() []byte {
	colours := make([]Pixel, 256)
	for i := range colours {
		colours[i] = NewPixel(opaque, byte(i), byte(i), byte(i))
	}
	return quads(colours...)
}

func u32(v uint32) *uint32 { return &v }

func mustBitmap(tb interface {
	Helper()
	Fatalf(string, ...any)
}, data []byte, opts ...Option) *BitmapImage {
	tb.Helper()
	b, err := NewBitmap(data, opts...)
	if err != nil {
		tb.Fatalf("NewBitmap: %v", err)
	}
	return b
}
