// Package reflectance turns an encoded image into a calibrated reflectance grid.
package reflectance

import "math"

// Grid holds one reflectance value in [0,1] per pixel, row-major. A Grid is
// never modified after Normalize returns it.
type Grid struct {
	Width  int
	Height int
	Pix    []float64
	// Pitch is the physical size of one pixel in the calibration's unit.
	Pitch float64
	// Offset is the calibration offset that was applied to every value.
	Offset float64
}

// NewGrid allocates a grid of the given size filled with v.
func NewGrid(w, h int, v float64) *Grid {
	pix := make([]float64, w*h)
	for i := range pix {
		pix[i] = v
	}
	return &Grid{Width: w, Height: h, Pix: pix, Pitch: 1}
}

// At returns the reflectance at integer pixel coordinates. Callers must
// bounds-check with Contains first.
func (g *Grid) At(x, y int) float64 {
	return g.Pix[y*g.Width+x]
}

// Set writes a value. Only used while a grid is being built.
func (g *Grid) Set(x, y int, v float64) {
	g.Pix[y*g.Width+x] = v
}

// Contains reports whether integer pixel coordinates are inside the grid.
func (g *Grid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// ContainsDisc reports whether a disc of radius r centred on (cx, cy) lies
// fully inside the grid. Pixel centres sit at integer coordinates.
func (g *Grid) ContainsDisc(cx, cy, r float64) bool {
	return cx-r >= -0.5 && cy-r >= -0.5 && cx+r <= float64(g.Width)-0.5 && cy+r <= float64(g.Height)-0.5
}

// Nearest reads the pixel closest to a real-valued position.
func (g *Grid) Nearest(x, y float64) (float64, bool) {
	ix, iy := int(math.Round(x)), int(math.Round(y))
	if !g.Contains(ix, iy) {
		return 0, false
	}
	return g.At(ix, iy), true
}

// DiscMean averages every pixel whose centre lies within r of (cx, cy). A
// radius below half a pixel degrades to the nearest pixel.
func (g *Grid) DiscMean(cx, cy, r float64) (float64, bool) {
	if r < 0.5 {
		return g.Nearest(cx, cy)
	}
	if !g.ContainsDisc(cx, cy, r) {
		return 0, false
	}
	x0, x1 := int(math.Ceil(cx-r)), int(math.Floor(cx+r))
	y0, y1 := int(math.Ceil(cy-r)), int(math.Floor(cy+r))
	r2 := r * r
	var sum float64
	var n int
	for y := y0; y <= y1; y++ {
		dy := float64(y) - cy
		for x := x0; x <= x1; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy > r2 {
				continue
			}
			sum += g.At(x, y)
			n++
		}
	}
	if n == 0 {
		return g.Nearest(cx, cy)
	}
	return sum / float64(n), true
}

// Range returns the minimum and maximum reflectance in the grid.
func (g *Grid) Range() (lo, hi float64) {
	lo, hi = 1, 0
	for _, v := range g.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
