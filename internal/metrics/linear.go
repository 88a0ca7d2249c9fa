package metrics

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/internal/sampler"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

const (
	// eanElements is the number of bars and spaces in an EAN-13 symbol.
	eanElements = 59
	eanModules  = 95
	eanQuietL   = 11
	eanQuietR   = 7

	// minEdgeContrast is the ISO 15416 pass threshold for ECmin.
	minEdgeContrast = 0.15
	// maxRminRatio is the largest Rmin/Rmax ratio that passes.
	maxRminRatio = 0.5
)

// Element is one bar or space of a scan profile.
type Element struct {
	Dark bool
	// First and Last are trace indices, inclusive.
	First, Last int
	// Extreme is the darkest reflectance of a bar or the lightest of a space.
	Extreme float64
	// ERN is the element reflectance non-uniformity.
	ERN float64
}

// Segment splits a trace into elements at the global threshold gt.
func Segment(trace []sampler.TracePoint, gt float64) []Element {
	var out []Element
	for i := 0; i < len(trace); {
		dark := trace[i].Reflectance < gt
		j := i
		for j+1 < len(trace) && (trace[j+1].Reflectance < gt) == dark {
			j++
		}
		out = append(out, Element{Dark: dark, First: i, Last: j})
		i = j + 1
	}
	return out
}

// Crossings returns sub-sample positions where the trace crosses gt.
func Crossings(trace []sampler.TracePoint, gt float64) []float64 {
	var out []float64
	for i := 0; i+1 < len(trace); i++ {
		a, b := trace[i], trace[i+1]
		if (a.Reflectance < gt) == (b.Reflectance < gt) {
			continue
		}
		t := (gt - a.Reflectance) / (b.Reflectance - a.Reflectance)
		out = append(out, a.Position+t*(b.Position-a.Position))
	}
	return out
}

func measureLinear(ctx context.Context, pool *WorkerPool, s *sampler.Samples, geom *locator.Geometry) ([]models.MetricResult, error) {
	values := make([]float64, len(s.Trace))
	for i, p := range s.Trace {
		values[i] = p.Reflectance
	}
	if len(values) == 0 {
		return nil, nil
	}
	rmin, rmax := floats.Min(values), floats.Max(values)
	sc := rmax - rmin
	gt := (rmax + rmin) / 2

	elements := Segment(s.Trace, gt)
	trim := int(s.Aperture.Radius())
	err := runJobs(ctx, pool, len(elements), func(i int) {
		e := &elements[i]
		span := values[e.First : e.Last+1]
		if e.Dark {
			e.Extreme = floats.Min(span)
		} else {
			e.Extreme = floats.Max(span)
		}
		// The aperture blurs each edge, so the interior excludes a radius of samples per side.
		lo, hi := e.First+trim, e.Last-trim
		if lo > hi {
			mid := (e.First + e.Last) / 2
			lo, hi = mid, mid
		}
		inner := values[lo : hi+1]
		e.ERN = floats.Max(inner) - floats.Min(inner)
	})
	if err != nil {
		return nil, err
	}

	ecMin := math.Inf(1)
	ernMax := 0.0
	for i, e := range elements {
		ernMax = math.Max(ernMax, e.ERN)
		if i > 0 {
			ecMin = math.Min(ecMin, math.Abs(e.Extreme-elements[i-1].Extreme))
		}
	}
	if math.IsInf(ecMin, 1) {
		ecMin = 0
	}

	rminRatio := 1.0
	if rmax > 0 {
		rminRatio = rmin / rmax
	}
	modulation, defects := 0.0, 1.0
	if sc > 0 {
		modulation = ecMin / sc
		defects = ernMax / sc
	}

	return []models.MetricResult{
		passFail(models.MetricMinReflectance, rminRatio, rmin <= maxRminRatio*rmax),
		higherIsBetter(models.MetricSymbolContrast, sc),
		passFail(models.MetricEdgeContrast, ecMin, ecMin >= minEdgeContrast),
		higherIsBetter(models.MetricModulation, modulation),
		lowerIsBetter(models.MetricDefects, defects),
		higherIsBetter(models.MetricDecodability, decodability(s.Trace, gt, geom.Band)),
		higherIsBetter(models.MetricQuietZone, math.Min(1, math.Min(geom.Band.QuietLeft/eanQuietL, geom.Band.QuietRight/eanQuietR))),
	}, nil
}

// decodability measures how far the measured element widths stray from whole
// modules. A deviation of half a module or more leaves no margin.
func decodability(trace []sampler.TracePoint, gt float64, band locator.Band) float64 {
	widths := SymbolWidths(trace, gt, band)
	if len(widths) != eanElements {
		return 0
	}
	module := floats.Sum(widths) / eanModules
	if module <= 0 {
		return 0
	}
	maxDev := 0.0
	for _, w := range widths {
		m := w / module
		nominal := math.Min(4, math.Max(1, math.Round(m)))
		maxDev = math.Max(maxDev, math.Abs(m-nominal))
	}
	return 1 - maxDev/0.5
}

// SymbolWidths returns the sub-sample widths of the elements between the
// quiet zones, from the first bar to the last.
func SymbolWidths(trace []sampler.TracePoint, gt float64, band locator.Band) []float64 {
	var inside []float64
	margin := band.ModuleWidth / 2
	for _, x := range Crossings(trace, gt) {
		if x >= band.SymbolStart-margin && x <= band.SymbolEnd+margin {
			inside = append(inside, x)
		}
	}
	if len(inside) < 2 {
		return nil
	}
	widths := make([]float64, len(inside)-1)
	for i := range widths {
		widths[i] = inside[i+1] - inside[i]
	}
	return widths
}
