package locator

import (
	"image"
	"math"
	"sort"

	"github.com/Suryanandx/2d-code-verifier/internal/reflectance"
	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
)

const (
	minMatrixModules = 10
	maxMatrixModules = 26
	// solidCoverage is the dark fraction above which a side counts as a finder leg.
	solidCoverage = 0.9
	// maxAspectSkew bounds how far from square the finder legs may be.
	maxAspectSkew = 0.1
	// cornerTolerance is how far, in pixels, one leg's end may sit from the
	// other leg when they meet at the finder corner.
	cornerTolerance = 2
	// maxFinderCandidates bounds the leg pairings checked per threshold.
	maxFinderCandidates = 64
)

type side int

const (
	sideTop side = iota
	sideRight
	sideBottom
	sideLeft
)

// box is an inclusive pixel rectangle.
type box struct {
	left, top, right, bottom int
}

func (b box) width() int  { return b.right - b.left + 1 }
func (b box) height() int { return b.bottom - b.top + 1 }
func (b box) area() int   { return b.width() * b.height() }

// leg is a long dark run: the row (or column) it lies on and its extent.
type leg struct {
	line, start, end int
}

func near(a, b int) bool {
	return a-b <= cornerTolerance && b-a <= cornerTolerance
}

// locateMatrix looks for an ECC200 finder: two solid legs meeting at a corner
// and two alternating timing sides. Every corner-sharing pair of long dark runs
// is a candidate, largest first, so unrelated lines and borders in the frame
// are skipped rather than mistaken for the finder.
func (l *Locator) locateMatrix(g *reflectance.Grid, dark []bool) (*Geometry, bool) {
	for _, bx := range l.finderBoxes(g, dark) {
		if geom, ok := l.matrixAt(g, dark, bx); ok {
			return geom, true
		}
	}
	return nil, false
}

// matrixAt checks the finder and timing pattern inside one candidate box.
func (l *Locator) matrixAt(g *reflectance.Grid, dark []bool, bx box) (*Geometry, bool) {
	var solid [4]bool
	for s := sideTop; s <= sideLeft; s++ {
		solid[s] = coverage(sideRuns(g, dark, bx, s, 1)) >= solidCoverage
	}
	rotation, ok := rotationFor(solid)
	if !ok {
		return nil, false
	}

	legSide := sideBottom
	switch rotation {
	case 90, 180:
		legSide = sideTop
	}
	inset := legThickness(g, dark, bx, legSide) / 2

	hSide, vSide := sideTop, sideRight
	if solid[sideTop] {
		hSide = sideBottom
	}
	if solid[sideRight] {
		vSide = sideLeft
	}
	hRuns := sideRuns(g, dark, bx, hSide, inset)
	vRuns := sideRuns(g, dark, bx, vSide, inset)
	n := len(hRuns)
	if n != len(vRuns) || n%2 != 0 || n < minMatrixModules || n > maxMatrixModules {
		return nil, false
	}
	if !regularRuns(hRuns, l.opts.MaxModuleDeviation) || !regularRuns(vRuns, l.opts.MaxModuleDeviation) {
		return nil, false
	}

	cols := runEdges(hRuns, bx.left)
	rows := runEdges(vRuns, bx.top)
	return &Geometry{
		Symbology:   symbology.DataMatrix,
		Kind:        KindMatrix,
		Origin:      Point{X: cols[0], Y: rows[0]},
		ModuleSize:  (cols[n] - cols[0] + rows[n] - rows[0]) / float64(2*n),
		Rows:        n,
		Cols:        n,
		Rotation:    rotation,
		ColumnEdges: cols,
		RowEdges:    rows,
		Bounds:      image.Rect(bx.left, bx.top, bx.right+1, bx.bottom+1),
	}, true
}

// finderBoxes pairs long horizontal and vertical dark runs that meet at a
// corner and returns the boxes they span, largest first. Runs crossing the
// whole image leave no room for a quiet zone and are ignored.
func (l *Locator) finderBoxes(g *reflectance.Grid, dark []bool) []box {
	minLen := l.opts.MinSymbolPixels

	var hLegs []leg
	for y := 0; y < g.Height; y++ {
		row := dark[y*g.Width : (y+1)*g.Width]
		for _, r := range runsOf(g.Width, func(i int) bool { return row[i] }) {
			if r.dark && r.length >= minLen && r.length < g.Width {
				hLegs = append(hLegs, leg{line: y, start: r.start, end: r.end()})
			}
		}
	}
	vLegs := make(map[int][]leg)
	for x := 0; x < g.Width; x++ {
		for _, r := range runsOf(g.Height, func(i int) bool { return dark[i*g.Width+x] }) {
			if r.dark && r.length >= minLen && r.length < g.Height {
				vLegs[x] = append(vLegs[x], leg{line: x, start: r.start, end: r.end()})
			}
		}
	}

	seen := make(map[box]bool)
	var out []box
	for _, h := range hLegs {
		for _, x := range [2]int{h.start, h.end} {
			for cx := x - cornerTolerance; cx <= x+cornerTolerance; cx++ {
				for _, v := range vLegs[cx] {
					if !near(h.line, v.start) && !near(h.line, v.end) {
						continue
					}
					b := box{left: h.start, top: v.start, right: h.end, bottom: v.end}
					w, ht := b.width(), b.height()
					if math.Abs(float64(w-ht)) > maxAspectSkew*float64(max(w, ht)) || seen[b] {
						continue
					}
					seen[b] = true
					out = append(out, b)
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].area() != out[j].area() {
			return out[i].area() > out[j].area()
		}
		if out[i].top != out[j].top {
			return out[i].top < out[j].top
		}
		return out[i].left < out[j].left
	})
	if len(out) > maxFinderCandidates {
		out = out[:maxFinderCandidates]
	}
	return out
}

// rotationFor maps the pair of solid sides to the symbol's rotation.
func rotationFor(solid [4]bool) (int, bool) {
	count := 0
	for _, s := range solid {
		if s {
			count++
		}
	}
	if count != 2 {
		return 0, false
	}
	switch {
	case solid[sideLeft] && solid[sideBottom]:
		return 0, true
	case solid[sideTop] && solid[sideLeft]:
		return 90, true
	case solid[sideTop] && solid[sideRight]:
		return 180, true
	case solid[sideRight] && solid[sideBottom]:
		return 270, true
	}
	return 0, false
}

// sideRuns run-length encodes the line running inset pixels inside a side of the box.
func sideRuns(g *reflectance.Grid, dark []bool, b box, s side, inset int) []run {
	if inset < 0 {
		inset = 0
	}
	switch s {
	case sideTop, sideBottom:
		y := b.top + inset
		if s == sideBottom {
			y = b.bottom - inset
		}
		y = clampInt(y, b.top, b.bottom)
		return runsOf(b.width(), func(i int) bool { return dark[y*g.Width+b.left+i] })
	default:
		x := b.left + inset
		if s == sideRight {
			x = b.right - inset
		}
		x = clampInt(x, b.left, b.right)
		return runsOf(b.height(), func(i int) bool { return dark[(b.top+i)*g.Width+x] })
	}
}

// legThickness is the thinnest dark extent measured inward from a solid side.
func legThickness(g *reflectance.Grid, dark []bool, b box, s side) int {
	best := max(b.width(), b.height())
	for x := b.left; x <= b.right; x++ {
		n := 0
		for i := 0; i < b.height(); i++ {
			y := b.top + i
			if s == sideBottom {
				y = b.bottom - i
			}
			if !dark[y*g.Width+x] {
				break
			}
			n++
		}
		if n > 0 && n < best {
			best = n
		}
	}
	return best
}

func coverage(runs []run) float64 {
	var total, d int
	for _, r := range runs {
		total += r.length
		if r.dark {
			d += r.length
		}
	}
	if total == 0 {
		return 0
	}
	return float64(d) / float64(total)
}

// regularRuns reports whether every run is within maxDev (relative) of the mean run length.
func regularRuns(runs []run, maxDev float64) bool {
	var sum int
	for _, r := range runs {
		sum += r.length
	}
	mean := float64(sum) / float64(len(runs))
	for _, r := range runs {
		if math.Abs(float64(r.length)-mean) > maxDev*mean {
			return false
		}
	}
	return true
}

// runEdges converts runs along a side into module boundaries in pixel-centre
// coordinates. The result has len(runs)+1 entries.
func runEdges(runs []run, origin int) []float64 {
	edges := make([]float64, 0, len(runs)+1)
	for _, r := range runs {
		edges = append(edges, float64(origin+r.start)-0.5)
	}
	last := runs[len(runs)-1]
	return append(edges, float64(origin+last.end())+0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
