// Package testimage renders synthetic symbol captures for tests.
package testimage

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// Matrix renders a module matrix (true = dark) at the given pixels per
// module with a light quiet zone of quiet modules on every side.
func Matrix(modules [][]bool, px, quiet int) *image.Gray {
	rows := len(modules)
	cols := 0
	if rows > 0 {
		cols = len(modules[0])
	}
	w := (cols + 2*quiet) * px
	h := (rows + 2*quiet) * px
	img := image.NewGray(image.Rect(0, 0, w, h))
	fill(img, 255)
	for r, row := range modules {
		for c, dark := range row {
			if !dark {
				continue
			}
			rect(img, (c+quiet)*px, (r+quiet)*px, px, px, 0)
		}
	}
	return img
}

// Linear renders a row of modules (true = bar) as a barcode of the given
// height, with quiet modules of space on both sides and margin pixels of
// space above and below.
func Linear(modules []bool, px, height, quiet, margin int) *image.Gray {
	w := (len(modules) + 2*quiet) * px
	h := height + 2*margin
	img := image.NewGray(image.Rect(0, 0, w, h))
	fill(img, 255)
	for i, bar := range modules {
		if bar {
			rect(img, (i+quiet)*px, margin, px, height, 0)
		}
	}
	return img
}

// Uniform returns a single-level image.
func Uniform(w, h int, level uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	fill(img, level)
	return img
}

// Embed pastes src onto a white w×h canvas with its top-left corner at (x, y).
func Embed(src *image.Gray, w, h, x, y int) *image.Gray {
	dst := Uniform(w, h, 255)
	draw.Draw(dst, src.Bounds().Add(image.Pt(x, y)), src, src.Bounds().Min, draw.Src)
	return dst
}

// Rule draws a black horizontal line from x0 to x1 inclusive, thick pixels
// high, starting at row y.
func Rule(img *image.Gray, x0, x1, y, thick int) {
	rect(img, x0, y, x1-x0+1, thick, 0)
}

// Rotate90 rotates an image a quarter turn clockwise.
func Rotate90(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetGray(b.Dy()-1-y, x, src.GrayAt(x, y))
		}
	}
	return dst
}

// Shade multiplies every pixel by a horizontal illumination ramp running
// from lo at the left edge to hi at the right edge.
func Shade(src *image.Gray, lo, hi float64) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			f := lo + (hi-lo)*float64(x)/float64(max(b.Dx()-1, 1))
			dst.SetGray(x, y, color.Gray{Y: uint8(float64(src.GrayAt(x, y).Y) * f)})
		}
	}
	return dst
}

// PNG encodes an image.
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func fill(img *image.Gray, level uint8) {
	for i := range img.Pix {
		img.Pix[i] = level
	}
}

func rect(img *image.Gray, x0, y0, w, h int, level uint8) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
}
