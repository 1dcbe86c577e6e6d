// go-dib reads BMP/DIB files, prints their metadata and pixels, and can
// export the decoded image as QOI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/xfmoulet/qoi"

	"github.com/anas-shakeel/go-dib/internal/adjustments"
	"github.com/anas-shakeel/go-dib/internal/bmp"
	"github.com/anas-shakeel/go-dib/internal/filters"
)

type options struct {
	meta       bool
	print      bool
	filter     string
	brightness float64
	contrast   float64
	crop       string
	flip       string
	qoiPath    string
}

func main() {
	var opts options
	var verbose bool

	flag.BoolVar(&opts.meta, "meta", false, "print header metadata")
	flag.BoolVar(&opts.print, "print", false, "print the image as coloured blocks (small images only)")
	flag.StringVar(&opts.filter, "filter", "", "colour filter: invert, grayscale or luma")
	flag.Float64Var(&opts.brightness, "brightness", 0, "add to every colour channel")
	flag.Float64Var(&opts.contrast, "contrast", 0, "contrast factor (>1 increases, <1 decreases)")
	flag.StringVar(&opts.crop, "crop", "", "crop region as x,y,width,height")
	flag.StringVar(&opts.flip, "flip", "", "mirror the image: h or v")
	flag.StringVar(&opts.qoiPath, "qoi", "", "write the decoded image to this QOI file")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  go-dib [flags] <image.bmp | image.bmp.zst>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetHandler(cli.Default)
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), opts, os.Stdout); err != nil {
		log.WithError(err).Fatal("go-dib")
	}
}

func run(path string, opts options, w io.Writer) error {
	bitmap, err := bmp.ReadBitmap(path)
	if err != nil {
		return err
	}

	if opts.meta || (!opts.print && opts.qoiPath == "") {
		bitmap.PrintMetadata(w)
	}
	if !opts.print && opts.qoiPath == "" {
		return nil
	}

	grid, err := bitmap.Decode()
	if err != nil {
		return err
	}
	if grid, err = applyEdits(grid, opts); err != nil {
		return err
	}

	if opts.print {
		if err := bmp.PrintGrid(w, grid); err != nil {
			return err
		}
	}

	if opts.qoiPath != "" {
		if err := writeQOI(opts.qoiPath, grid); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"path":   opts.qoiPath,
			"width":  grid.Width(),
			"height": grid.Height(),
		}).Info("wrote QOI image")
	}
	return nil
}

// Applies the crop, flip and colour edits, in that order.
func applyEdits(grid bmp.PixelGrid, opts options) (bmp.PixelGrid, error) {
	if opts.crop != "" {
		x, y, width, height, err := parseCrop(opts.crop)
		if err != nil {
			return nil, err
		}
		if grid, err = adjustments.Crop(grid, x, y, width, height); err != nil {
			return nil, err
		}
	}

	switch opts.flip {
	case "":
	case "h":
		adjustments.FlipHorizontal(grid)
	case "v":
		adjustments.FlipVertical(grid)
	default:
		return nil, fmt.Errorf("invalid flip %q: must be h or v", opts.flip)
	}

	switch opts.filter {
	case "":
	case "invert":
		filters.Invert(grid)
	case "grayscale":
		filters.Grayscale(grid)
	case "luma":
		filters.GrayscaleLuma(grid)
	default:
		return nil, fmt.Errorf("invalid filter %q: must be invert, grayscale or luma", opts.filter)
	}

	if opts.brightness != 0 {
		if err := filters.Brightness(grid, opts.brightness, "add"); err != nil {
			return nil, err
		}
	}
	if opts.contrast != 0 {
		filters.Contrast(grid, opts.contrast)
	}

	return grid, nil
}

// Parses "x,y,width,height".
func parseCrop(s string) (x, y, width, height int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, errors.New("crop must be x,y,width,height")
	}

	var v [4]int
	for i, p := range parts {
		if v[i], err = strconv.Atoi(strings.TrimSpace(p)); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("crop: %w", err)
		}
	}
	return v[0], v[1], v[2], v[3], nil
}

func writeQOI(path string, grid bmp.PixelGrid) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := qoi.Encode(out, grid); err != nil {
		return fmt.Errorf("qoi encode: %w", err)
	}
	return out.Close()
}
