// Filters perform color manipulation and per-pixel operations on decoded
// pixel grids. Alpha is left untouched.
package filters

import (
	"errors"

	"github.com/anas-shakeel/go-dib/internal/bmp"
	"github.com/anas-shakeel/go-dib/internal/utils"
)

// Inverts (negates) the pixel grid
func Invert(grid bmp.PixelGrid) {
	for _, row := range grid {
		for col, p := range row {
			row[col] = p.WithRGB(255-p.R(), 255-p.G(), 255-p.B())
		}
	}
}

// Converts a pixel grid to Black-and-White
func Grayscale(grid bmp.PixelGrid) {
	for _, row := range grid {
		for col, p := range row {
			avg := byte(utils.Average(int(p.R()), int(p.G()), int(p.B())))
			row[col] = p.WithRGB(avg, avg, avg)
		}
	}
}

// Converts a pixel grid to Black-and-White (with ITU-R 601-2 Luma Transform)
func GrayscaleLuma(grid bmp.PixelGrid) {
	for _, row := range grid {
		for col, p := range row {
			L := byte(int(p.R())*299/1000 + int(p.G())*587/1000 + int(p.B())*114/1000)
			row[col] = p.WithRGB(L, L, L)
		}
	}
}

// Adjusts the Brightness of a pixel grid in-place.
//
// method can be "add" (adds value to each channel) or "multiply" (multiplies each channel by value).
// Pixel values are clipped to [0, 255].
func Brightness(grid bmp.PixelGrid, factor float64, method string) error {
	var operation func(x float64) float64

	switch method {
	case "add":
		operation = func(x float64) float64 { return x + factor }
	case "multiply":
		operation = func(x float64) float64 { return x * factor }
	default:
		return errors.New("invalid method: method must be add or multiply")
	}

	for _, row := range grid {
		for col, p := range row {
			row[col] = p.WithRGB(
				utils.Clamp(operation(float64(p.R()))),
				utils.Clamp(operation(float64(p.G()))),
				utils.Clamp(operation(float64(p.B()))),
			)
		}
	}
	return nil
}

// Adjusts the Contrast of a pixel grid in-place.
// factor > 1.0 increases Contrast, factor < 1.0 decreases it.
func Contrast(grid bmp.PixelGrid, factor float64) {
	totalPixels := grid.Width() * grid.Height()
	if totalPixels == 0 {
		return
	}

	// Compute mean for each channel
	var sumR, sumG, sumB int
	for _, row := range grid {
		for _, p := range row {
			sumR += int(p.R())
			sumG += int(p.G())
			sumB += int(p.B())
		}
	}
	meanR := float64(sumR / totalPixels)
	meanG := float64(sumG / totalPixels)
	meanB := float64(sumB / totalPixels)

	for _, row := range grid {
		for col, p := range row {
			row[col] = p.WithRGB(
				utils.Clamp(float64(p.R())*factor+(1-factor)*meanR),
				utils.Clamp(float64(p.G())*factor+(1-factor)*meanG),
				utils.Clamp(float64(p.B())*factor+(1-factor)*meanB),
			)
		}
	}
}
