// Package decoder recovers the payload of a sampled symbol. Decode failures
// are reported in the result, never as errors.
package decoder

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/Suryanandx/2d-code-verifier/internal/datamatrix"
	"github.com/Suryanandx/2d-code-verifier/internal/ean13"
	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/metrics"
	"github.com/Suryanandx/2d-code-verifier/internal/sampler"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

const stage = "decode"

var (
	ErrNoSamples    = errors.New("no samples to decode")
	ErrElementCount = errors.New("wrong number of elements")
	ErrModuleCount  = errors.New("element widths do not add up to the symbol width")
)

// Decoder reads payloads from samples.
type Decoder struct {
	attempts int
}

// New returns a decoder that tries the full threshold family.
func New() *Decoder {
	return &Decoder{attempts: locator.MaxAttempts}
}

// Decode binarises the samples at each member of the threshold family around
// the locator's threshold, then around the samples' own midpoint, and returns
// the first successful read. When every threshold fails, the error from the
// first one tried is reported.
func (d *Decoder) Decode(s *sampler.Samples, geom *locator.Geometry) models.DecodeResult {
	res := models.DecodeResult{Symbology: geom.Symbology.String()}
	log := logger.ForStage(stage)

	values := s.Modules
	if s.Kind == locator.KindLinear {
		values = make([]float64, len(s.Trace))
		for i, p := range s.Trace {
			values[i] = p.Reflectance
		}
	}
	if len(values) == 0 {
		res.Error = ErrNoSamples.Error()
		return res
	}
	mid := (floats.Min(values) + floats.Max(values)) / 2

	var first error
	for attempt, t := range d.thresholds(geom.Threshold, mid) {
		var (
			payload   string
			corrected int
			capacity  int
			err       error
		)
		switch s.Kind {
		case locator.KindLinear:
			payload, err = decodeEAN(s.Trace, t, geom.Band)
		default:
			var r datamatrix.Result
			r, err = datamatrix.Decode(UprightModules(s, geom, t))
			payload, corrected, capacity = r.Payload, r.Corrected, r.Capacity
		}
		log.WithFields(logrus.Fields{
			"attempt":   attempt + 1,
			"threshold": t,
			"ok":        err == nil,
		}).Debug("decode attempt")

		res.Capacity = capacity
		if err == nil {
			res.Succeeded = true
			res.Payload = &payload
			res.Corrected = corrected
			res.Error = ""
			return res
		}
		if first == nil {
			first = err
		}
	}
	res.Error = first.Error()
	return res
}

// thresholds lists the locator family followed by the midpoint family,
// without repeats.
func (d *Decoder) thresholds(located, mid float64) []float64 {
	var out []float64
	add := func(family []float64) {
		for _, t := range family {
			if !slices.ContainsFunc(out, func(u float64) bool { return math.Abs(u-t) < 1e-9 }) {
				out = append(out, t)
			}
		}
	}
	if located > 0 {
		add(locator.Thresholds(located, d.attempts))
	}
	add(locator.Thresholds(mid, d.attempts))
	return out
}

// UprightModules binarises matrix samples at t and undoes the captured rotation.
func UprightModules(s *sampler.Samples, geom *locator.Geometry, t float64) [][]bool {
	out := make([][]bool, s.Rows)
	for r := range out {
		out[r] = make([]bool, s.Cols)
	}
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			ur, uc := geom.Upright(r, c)
			out[ur][uc] = s.Module(r, c) < t
		}
	}
	return out
}

// decodeEAN walks the threshold crossings inside the symbol, quantises each
// element to whole modules and reads the result as EAN-13.
func decodeEAN(trace []sampler.TracePoint, t float64, band locator.Band) (string, error) {
	widths := metrics.SymbolWidths(trace, t, band)
	if len(widths) != 59 {
		return "", fmt.Errorf("%w: got %d, want 59", ErrElementCount, len(widths))
	}
	module := floats.Sum(widths) / ean13.Modules
	modules := make([]bool, 0, ean13.Modules)
	for i, w := range widths {
		n := int(math.Min(4, math.Max(1, math.Round(w/module))))
		for k := 0; k < n; k++ {
			modules = append(modules, i%2 == 0)
		}
	}
	if len(modules) != ean13.Modules {
		return "", fmt.Errorf("%w: %d modules", ErrModuleCount, len(modules))
	}
	return ean13.Decode(modules)
}
