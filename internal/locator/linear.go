package locator

import (
	"image"
	"math"
	"sort"

	"github.com/Suryanandx/2d-code-verifier/internal/reflectance"
	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
)

const (
	eanElements = 59
	eanModules  = 95
	// minQuietModules is the smallest quiet zone accepted while searching;
	// the quiet zone metric grades the actual width.
	minQuietModules = 3
	eanQuietLeft    = 11
	eanQuietRight   = 7
)

// eanGuards lists the element indices of the start, centre and end guards.
var eanGuards = [...]int{0, 1, 2, 27, 28, 29, 30, 31, 56, 57, 58}

type lineCandidate struct {
	line       int
	start, end int // first and last pixel of the symbol
	module     float64
	score      float64
	quietLeft  float64
	quietRight float64
}

// locateLinear scans rows, then columns, for the EAN-13 bar/space structure.
func (l *Locator) locateLinear(g *reflectance.Grid, dark []bool) (*Geometry, bool) {
	for _, vertical := range []bool{false, true} {
		if c, ok := l.bestLine(g, dark, vertical); ok {
			return l.linearGeometry(g, dark, c, vertical), true
		}
	}
	return nil, false
}

func (l *Locator) bestLine(g *reflectance.Grid, dark []bool, vertical bool) (lineCandidate, bool) {
	lines, length := g.Height, g.Width
	if vertical {
		lines, length = g.Width, g.Height
	}
	step := max(1, lines/l.opts.LinearScanLines)

	var found []lineCandidate
	for line := 0; line < lines; line += step {
		at := func(i int) bool { return dark[line*g.Width+i] }
		if vertical {
			at = func(i int) bool { return dark[i*g.Width+line] }
		}
		if c, ok := matchEAN(runsOf(length, at)); ok {
			c.line = line
			found = append(found, c)
		}
	}
	if len(found) == 0 {
		return lineCandidate{}, false
	}

	best := found[0]
	for _, c := range found[1:] {
		if c.score < best.score {
			best = c
		}
	}
	// Sample through the middle of the bars rather than at their ends.
	var same []lineCandidate
	for _, c := range found {
		if math.Abs(float64(c.start-best.start)) <= best.module && c.score <= best.score+0.1 {
			same = append(same, c)
		}
	}
	sort.Slice(same, func(i, j int) bool { return same[i].line < same[j].line })
	return same[len(same)/2], true
}

// matchEAN returns the best-scoring EAN-13 element sequence among the runs.
func matchEAN(runs []run) (lineCandidate, bool) {
	var best lineCandidate
	found := false
	for i := 1; i+eanElements < len(runs); i++ {
		if !runs[i].dark || runs[i-1].dark {
			continue
		}
		c, ok := scoreEAN(runs, i)
		if ok && (!found || c.score < best.score) {
			best, found = c, true
		}
	}
	return best, found
}

// scoreEAN checks the 59 elements starting at runs[i] and scores them by the
// worst deviation of an element width from a whole number of modules.
func scoreEAN(runs []run, i int) (lineCandidate, bool) {
	elems := runs[i : i+eanElements]
	total := 0
	for _, r := range elems {
		total += r.length
	}
	m := float64(total) / eanModules
	if m < 1 {
		return lineCandidate{}, false
	}

	widths := make([]int, eanElements)
	var worst float64
	for k, r := range elems {
		w := float64(r.length) / m
		n := math.Round(w)
		if n < 1 || n > 4 {
			return lineCandidate{}, false
		}
		widths[k] = int(n)
		worst = math.Max(worst, math.Abs(w-n))
	}
	for _, k := range eanGuards {
		if widths[k] != 1 {
			return lineCandidate{}, false
		}
	}
	for d := 0; d < 12; d++ {
		first := 3 + 4*d
		if d >= 6 {
			first += 5
		}
		if widths[first]+widths[first+1]+widths[first+2]+widths[first+3] != 7 {
			return lineCandidate{}, false
		}
	}

	before, after := runs[i-1], runs[i+eanElements]
	ql, qr := float64(before.length)/m, float64(after.length)/m
	if ql < minQuietModules || qr < minQuietModules {
		return lineCandidate{}, false
	}
	return lineCandidate{
		start:      elems[0].start,
		end:        elems[eanElements-1].end(),
		module:     m,
		score:      worst,
		quietLeft:  ql,
		quietRight: qr,
	}, true
}

// linearGeometry builds the sampling band: the symbol plus as much of the
// nominal quiet zones as the grid and aperture allow.
func (l *Locator) linearGeometry(g *reflectance.Grid, dark []bool, c lineCandidate, vertical bool) *Geometry {
	length := g.Width
	if vertical {
		length = g.Height
	}
	lo := float64(c.start) - math.Min(c.quietLeft, eanQuietLeft)*c.module
	hi := float64(c.end) + math.Min(c.quietRight, eanQuietRight)*c.module
	lo = math.Max(lo, math.Ceil(l.opts.Margin))
	hi = math.Min(hi, float64(length-1)-math.Ceil(l.opts.Margin))

	band := Band{
		Start:       Point{X: lo, Y: float64(c.line)},
		Direction:   Point{X: 1},
		Length:      hi - lo,
		ModuleWidth: c.module,
		SymbolStart: float64(c.start) - 0.5 - lo,
		SymbolEnd:   float64(c.end) + 0.5 - lo,
		QuietLeft:   c.quietLeft,
		QuietRight:  c.quietRight,
	}
	if vertical {
		band.Start = Point{X: float64(c.line), Y: lo}
		band.Direction = Point{Y: 1}
	}
	// The outer guard bars are the tallest, so they bound the bar height.
	half := int(c.module / 2)
	lo1, hi1 := barExtent(g, dark, c.line, c.start+half, vertical)
	lo2, hi2 := barExtent(g, dark, c.line, c.end-half, vertical)
	across0, across1 := min(lo1, lo2), max(hi1, hi2)

	rotation := 0
	bounds := image.Rect(c.start, across0, c.end+1, across1+1)
	if vertical {
		rotation = 90
		bounds = image.Rect(across0, c.start, across1+1, c.end+1)
	}
	return &Geometry{
		Symbology:  symbology.EAN13,
		Kind:       KindLinear,
		Origin:     band.Start,
		ModuleSize: c.module,
		Rotation:   rotation,
		Band:       band,
		Bounds:     bounds,
	}
}

// barExtent follows the bar at position pos along the scan line outward in
// both directions across the band and returns the first and last dark line.
func barExtent(g *reflectance.Grid, dark []bool, line, pos int, vertical bool) (int, int) {
	limit := g.Height
	at := func(l int) bool { return dark[l*g.Width+pos] }
	if vertical {
		limit = g.Width
		at = func(l int) bool { return dark[pos*g.Width+l] }
	}
	lo, hi := line, line
	for lo > 0 && at(lo-1) {
		lo--
	}
	for hi < limit-1 && at(hi+1) {
		hi++
	}
	return lo, hi
}
