// Adjusts image dimensions, orientation, or structure.
package adjustments

import (
	"errors"
	"slices"

	"github.com/anas-shakeel/go-dib/internal/bmp"
)

// Crops a region of the pixel grid (0,0 is at the top-left of the image)
func Crop(grid bmp.PixelGrid, x, y, width, height int) (bmp.PixelGrid, error) {
	// Validate bounds
	if x < 0 || y < 0 || width < 0 || height < 0 {
		return nil, errors.New("invalid bounds: negative crop region")
	} else if width+x > grid.Width() {
		return nil, errors.New("invalid bounds: width out of bounds")
	} else if height+y > grid.Height() {
		return nil, errors.New("invalid bounds: height out of bounds")
	}

	cropped := bmp.NewPixelGrid(width, height)
	for row := 0; row < height; row++ {
		copy(cropped[row], grid[row+y][x:x+width])
	}

	return cropped, nil
}

// Mirrors the grid left-to-right in place
func FlipHorizontal(grid bmp.PixelGrid) {
	for _, row := range grid {
		slices.Reverse(row)
	}
}

// Mirrors the grid top-to-bottom in place
func FlipVertical(grid bmp.PixelGrid) {
	slices.Reverse(grid)
}
