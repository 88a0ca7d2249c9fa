package locator

import "github.com/Suryanandx/2d-code-verifier/internal/reflectance"

const histogramBins = 256

// thresholdScales is the bounded family tried after the Otsu estimate.
var thresholdScales = [...]float64{1.0, 0.9, 1.1, 0.8, 1.2}

// MaxAttempts is the size of the threshold family.
const MaxAttempts = len(thresholdScales)

// Otsu returns the threshold that maximises between-class variance. When
// several bins tie, the middle of the plateau is used. A single-level grid
// returns its level, so nothing is classified dark.
func Otsu(g *reflectance.Grid) float64 {
	var hist [histogramBins]float64
	step := 1
	if len(g.Pix) > 1<<20 {
		step = len(g.Pix) >> 20
	}
	var total, sum float64
	for i := 0; i < len(g.Pix); i += step {
		b := bin(g.Pix[i])
		hist[b]++
		total++
		sum += float64(b)
	}
	if total == 0 {
		return 0.5
	}

	var w0, sum0, best float64
	first, last := -1, -1
	for k := 0; k < histogramBins-1; k++ {
		w0 += hist[k]
		sum0 += float64(k) * hist[k]
		w1 := total - w0
		if w0 == 0 || w1 == 0 {
			continue
		}
		m0 := sum0 / w0
		m1 := (sum - sum0) / w1
		v := w0 * w1 * (m0 - m1) * (m0 - m1)
		switch {
		case v > best*(1+1e-12):
			best, first, last = v, k, k
		case v >= best*(1-1e-12) && first >= 0:
			last = k
		}
	}
	if first < 0 {
		return sum / total / (histogramBins - 1)
	}
	return float64((first+last)/2+1) / histogramBins
}

func bin(v float64) int {
	b := int(v * (histogramBins - 1))
	if b < 0 {
		return 0
	}
	if b >= histogramBins {
		return histogramBins - 1
	}
	return b
}

// Thresholds returns the first n members of the retry family for base.
func Thresholds(base float64, n int) []float64 {
	if n < 1 {
		n = 1
	}
	if n > MaxAttempts {
		n = MaxAttempts
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = base * thresholdScales[i]
	}
	return out
}

// binarize marks every pixel strictly below t as dark.
func binarize(g *reflectance.Grid, t float64) []bool {
	dark := make([]bool, len(g.Pix))
	for i, v := range g.Pix {
		dark[i] = v < t
	}
	return dark
}

type run struct {
	start, length int
	dark          bool
}

func (r run) end() int { return r.start + r.length - 1 }

// runsOf run-length encodes n positions.
func runsOf(n int, dark func(i int) bool) []run {
	if n == 0 {
		return nil
	}
	runs := make([]run, 0, 32)
	cur := run{start: 0, length: 1, dark: dark(0)}
	for i := 1; i < n; i++ {
		d := dark(i)
		if d == cur.dark {
			cur.length++
			continue
		}
		runs = append(runs, cur)
		cur = run{start: i, length: 1, dark: d}
	}
	return append(runs, cur)
}
