package bmp

import (
	"errors"
	"fmt"

	"github.com/apex/log"
)

// rleState is what the last RLE8 command asked the decoder to do.
type rleState int

const (
	rleRunning     rleState = iota // Encoded run: count copies of one index
	rleEndOfLine                   // 00 00
	rleEndOfBitmap                 // 00 01
	rleDelta                       // 00 02 dx dy
	rleAbsoluteRun                 // 00 n, then n indexes (word aligned)
)

// Escape codes following a zero count byte
const (
	rleEscEndOfLine   = 0x00
	rleEscEndOfBitmap = 0x01
	rleEscDelta       = 0x02
)

// rleCursor tracks the read position in the stream and the write
// position in the image (x, y in file-row order).
type rleCursor struct {
	pos  int
	x, y int
}

// Decodes a BI_RLE8 stream. Writes outside the image are dropped. A
// truncated stream stops decoding and the grid decoded so far is returned
// together with ErrCorruptedImage.
func (d *decoder) readRLE8() (PixelGrid, error) {
	if err := d.checkDimensions(); err != nil {
		return nil, err
	}

	grid := NewPixelGrid(d.width, d.height)
	cur := rleCursor{pos: d.offset}

	for {
		// Every command is at least two bytes
		if cur.pos+1 >= len(d.data) {
			return grid, nil
		}

		count := int(d.data[cur.pos])
		value := int(d.data[cur.pos+1])
		cur.pos += 2

		state := rleRunning
		if count == 0 {
			switch value {
			case rleEscEndOfLine:
				state = rleEndOfLine
			case rleEscEndOfBitmap:
				state = rleEndOfBitmap
			case rleEscDelta:
				state = rleDelta
			default:
				state = rleAbsoluteRun
			}
		}

		switch state {
		case rleRunning:
			colour, err := d.palette.Colour(value)
			if err != nil {
				return nil, fmt.Errorf("RLE8 run at offset %d: %w", cur.pos-2, err)
			}
			for n := 0; n < count; n++ {
				d.putPixel(grid, cur.x, cur.y, colour)
				cur.x++
			}

		case rleEndOfLine:
			cur.x = 0
			cur.y++

		case rleEndOfBitmap:
			return grid, nil

		case rleDelta:
			if cur.pos+2 > len(d.data) {
				return grid, d.corrupted(cur, errors.New("missing delta offsets"))
			}
			cur.x += int(d.data[cur.pos])
			cur.y += int(d.data[cur.pos+1])
			cur.pos += 2

		case rleAbsoluteRun:
			n := value
			if cur.pos+n > len(d.data) {
				return grid, d.corrupted(cur, fmt.Errorf("absolute run of %d pixels truncated", n))
			}
			for _, index := range d.data[cur.pos : cur.pos+n] {
				if d.inBounds(cur.x, cur.y) {
					colour, err := d.palette.Colour(int(index))
					if err != nil {
						return nil, fmt.Errorf("RLE8 absolute run at offset %d: %w", cur.pos, err)
					}
					d.putPixel(grid, cur.x, cur.y, colour)
				}
				cur.x++
			}
			cur.pos += n

			// Absolute runs are padded to a 16-bit boundary
			if n%2 != 0 {
				cur.pos++
			}
		}
	}
}

func (d *decoder) inBounds(x, y int) bool {
	if x < 0 || x >= d.width || y < 0 || y >= d.height {
		return false
	}
	row := d.displayRow(y)
	return row >= 0 && row < d.height
}

// Writes one pixel at file position (x, y); out-of-range writes are dropped.
func (d *decoder) putPixel(grid PixelGrid, x, y int, colour Pixel) {
	if d.inBounds(x, y) {
		grid[d.displayRow(y)][x] = colour
	}
}

func (d *decoder) corrupted(cur rleCursor, cause error) error {
	d.log.WithFields(log.Fields{
		"offset": cur.pos,
		"x":      cur.x,
		"y":      cur.y,
	}).WithError(cause).Warn("RLE8 stream corrupted, returning partial image")

	return fmt.Errorf("%w: RLE8 at offset %d: %v", ErrCorruptedImage, cur.pos, cause)
}
