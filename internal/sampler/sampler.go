// Package sampler reads reflectance through a synthetic measuring aperture
// at the positions a located symbol defines.
package sampler

import (
	"fmt"
	"math"

	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/internal/reflectance"
)

const stage = "sample"

// Policy is how the aperture integrates pixels.
type Policy int

const (
	// PolicyDisc averages every pixel inside the aperture disc.
	PolicyDisc Policy = iota
	// PolicyPoint reads the single nearest pixel.
	PolicyPoint
)

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "disc", "":
		return PolicyDisc, nil
	case "point":
		return PolicyPoint, nil
	}
	return PolicyDisc, fmt.Errorf("unknown aperture policy %q", s)
}

// Aperture is the synthetic measuring aperture, in pixels.
type Aperture struct {
	Diameter float64
	Policy   Policy
}

// Radius is half the diameter.
func (a Aperture) Radius() float64 {
	return a.Diameter / 2
}

// TracePoint is one sample of a scan profile.
type TracePoint struct {
	Position    float64
	Reflectance float64
}

// Samples are the reflectance measurements of one symbol. They are shared
// read-only by the metric engine and the decoder.
type Samples struct {
	Kind     locator.Kind
	Aperture Aperture

	// Matrix symbols: Modules holds Rows×Cols module-centre reflectances in
	// image orientation, row-major.
	Rows, Cols int
	Modules    []float64
	// Quiet holds the ring one module outside the symbol. QuietOutside counts
	// ring positions whose aperture left the grid.
	Quiet        []float64
	QuietOutside int

	// Trace is a unit-step profile: along the band for linear symbols, along
	// the middle module row for matrix symbols.
	Trace []TracePoint
}

// Module returns the reflectance of module (r, c) in image orientation.
func (s *Samples) Module(r, c int) float64 {
	return s.Modules[r*s.Cols+c]
}

// Sampler measures symbols with a fixed aperture.
type Sampler struct {
	aperture Aperture
}

// New returns a sampler that reads through aperture.
func New(aperture Aperture) *Sampler {
	return &Sampler{aperture: aperture}
}

// Sample measures every module (or band position) of geom.
func (s *Sampler) Sample(g *reflectance.Grid, geom *locator.Geometry) (*Samples, error) {
	if geom.Kind == locator.KindLinear {
		return s.sampleLinear(g, geom)
	}
	return s.sampleMatrix(g, geom)
}

func (s *Sampler) read(g *reflectance.Grid, p locator.Point) (float64, bool) {
	if s.aperture.Policy == PolicyPoint {
		return g.Nearest(p.X, p.Y)
	}
	return g.DiscMean(p.X, p.Y, s.aperture.Radius())
}

func (s *Sampler) sampleMatrix(g *reflectance.Grid, geom *locator.Geometry) (*Samples, error) {
	out := &Samples{
		Kind:     locator.KindMatrix,
		Aperture: s.aperture,
		Rows:     geom.Rows,
		Cols:     geom.Cols,
		Modules:  make([]float64, geom.Rows*geom.Cols),
	}
	for r := 0; r < geom.Rows; r++ {
		for c := 0; c < geom.Cols; c++ {
			p := geom.ModuleCenter(r, c)
			v, ok := s.read(g, p)
			if !ok {
				return nil, outOfBounds(fmt.Sprintf("module (%d,%d) at (%.1f,%.1f)", r, c, p.X, p.Y))
			}
			out.Modules[r*geom.Cols+c] = v
		}
	}

	for _, p := range quietRing(geom) {
		if v, ok := s.read(g, p); ok {
			out.Quiet = append(out.Quiet, v)
		} else {
			out.QuietOutside++
		}
	}

	mid := geom.Rows / 2
	y := (geom.RowEdges[mid] + geom.RowEdges[mid+1]) / 2
	x0 := geom.ColumnEdges[0] + 0.5
	x1 := geom.ColumnEdges[geom.Cols] - 0.5
	// The trace is diagnostic; positions whose aperture leaves the grid are skipped.
	for x := x0; x <= x1; x++ {
		v, ok := s.read(g, locator.Point{X: x, Y: y})
		if !ok {
			continue
		}
		out.Trace = append(out.Trace, TracePoint{Position: x - x0, Reflectance: v})
	}
	return out, nil
}

// quietRing lists the module positions one module outside the symbol.
func quietRing(geom *locator.Geometry) []locator.Point {
	m := geom.ModuleSize
	left := geom.ColumnEdges[0] - m/2
	right := geom.ColumnEdges[geom.Cols] + m/2
	top := geom.RowEdges[0] - m/2
	bottom := geom.RowEdges[geom.Rows] + m/2

	ring := make([]locator.Point, 0, 2*(geom.Rows+geom.Cols)+4)
	for c := -1; c <= geom.Cols; c++ {
		x := colCenter(geom, c, left, right)
		ring = append(ring, locator.Point{X: x, Y: top}, locator.Point{X: x, Y: bottom})
	}
	for r := 0; r < geom.Rows; r++ {
		y := (geom.RowEdges[r] + geom.RowEdges[r+1]) / 2
		ring = append(ring, locator.Point{X: left, Y: y}, locator.Point{X: right, Y: y})
	}
	return ring
}

func colCenter(geom *locator.Geometry, c int, left, right float64) float64 {
	switch {
	case c < 0:
		return left
	case c >= geom.Cols:
		return right
	default:
		return (geom.ColumnEdges[c] + geom.ColumnEdges[c+1]) / 2
	}
}

func (s *Sampler) sampleLinear(g *reflectance.Grid, geom *locator.Geometry) (*Samples, error) {
	band := geom.Band
	n := int(math.Floor(band.Length)) + 1
	out := &Samples{
		Kind:     locator.KindLinear,
		Aperture: s.aperture,
		Trace:    make([]TracePoint, 0, n),
	}
	for i := 0; i < n; i++ {
		d := float64(i)
		p := band.At(d)
		v, ok := s.read(g, p)
		if !ok {
			return nil, outOfBounds(fmt.Sprintf("band position %.0f at (%.1f,%.1f)", d, p.X, p.Y))
		}
		out.Trace = append(out.Trace, TracePoint{Position: d, Reflectance: v})
	}
	return out, nil
}

func outOfBounds(reason string) error {
	return apperrors.NewPipelineError(apperrors.KindSamplingOutOfBounds, stage, reason, nil)
}
