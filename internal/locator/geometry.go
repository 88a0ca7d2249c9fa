// Package locator finds a symbol in a reflectance grid and measures its geometry.
package locator

import (
	"image"

	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
)

// Kind distinguishes matrix symbols from linear ones.
type Kind int

const (
	KindMatrix Kind = iota
	KindLinear
)

func (k Kind) String() string {
	if k == KindLinear {
		return "linear"
	}
	return "matrix"
}

// Point is a position in pixel-centre coordinates: pixel (i, j) is centred on (i, j).
type Point struct {
	X, Y float64
}

// Band is the sampling path across a linear symbol.
type Band struct {
	Start     Point
	Direction Point
	Length    float64
	// ModuleWidth is the measured narrow element width in pixels.
	ModuleWidth float64
	// SymbolStart and SymbolEnd are distances along the band bounding the
	// first and last bar of the symbol.
	SymbolStart float64
	SymbolEnd   float64
	// QuietLeft and QuietRight are the measured quiet zones in modules.
	QuietLeft  float64
	QuietRight float64
}

// At returns the point at distance d along the band.
func (b Band) At(d float64) Point {
	return Point{X: b.Start.X + d*b.Direction.X, Y: b.Start.Y + d*b.Direction.Y}
}

// Geometry describes a located symbol. It is immutable once returned.
type Geometry struct {
	Symbology symbology.Symbology
	Kind      Kind
	// Threshold and Attempt record which binarisation found the symbol.
	Threshold float64
	Attempt   int

	// Matrix symbols.
	Origin     Point
	ModuleSize float64
	Rows, Cols int
	// Rotation is the clockwise turn, in degrees, that carries the upright
	// symbol (solid finder on the left and bottom) to the captured one.
	Rotation    int
	ColumnEdges []float64
	RowEdges    []float64

	// Linear symbols.
	Band Band

	// Bounds is the pixel rectangle covered by the symbol: the finder box for
	// matrix symbols, the bars for linear ones. Quiet zones are excluded.
	Bounds image.Rectangle
}

// ModuleCenter returns the measured centre of module (r, c) in image orientation.
func (g *Geometry) ModuleCenter(r, c int) Point {
	return Point{
		X: (g.ColumnEdges[c] + g.ColumnEdges[c+1]) / 2,
		Y: (g.RowEdges[r] + g.RowEdges[r+1]) / 2,
	}
}

// NominalCenter returns where module (r, c) would sit on a perfectly uniform grid.
func (g *Geometry) NominalCenter(r, c int) Point {
	w := (g.ColumnEdges[g.Cols] - g.ColumnEdges[0]) / float64(g.Cols)
	h := (g.RowEdges[g.Rows] - g.RowEdges[0]) / float64(g.Rows)
	return Point{
		X: g.ColumnEdges[0] + (float64(c)+0.5)*w,
		Y: g.RowEdges[0] + (float64(r)+0.5)*h,
	}
}

// Upright maps module (r, c) in image orientation to its position in the
// upright symbol.
func (g *Geometry) Upright(r, c int) (int, int) {
	n := g.Rows
	switch g.Rotation {
	case 90:
		return n - 1 - c, r
	case 180:
		return n - 1 - r, n - 1 - c
	case 270:
		return c, n - 1 - r
	default:
		return r, c
	}
}
