package locator

import (
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/reflectance"
	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
)

const stage = "locate"

// Options configure a Locator.
type Options struct {
	// Attempts is how many members of the threshold family are tried.
	Attempts int
	// Margin keeps linear sampling bands this many pixels away from the grid
	// edge, normally the aperture radius.
	Margin float64
	// MinSymbolPixels is the shortest finder leg accepted.
	MinSymbolPixels int
	// MaxModuleDeviation bounds the relative spread of timing module widths.
	MaxModuleDeviation float64
	// LinearScanLines is roughly how many rows (or columns) are scanned for
	// linear symbols.
	LinearScanLines int
}

// DefaultOptions returns the options used by the verification pipeline.
func DefaultOptions() Options {
	return Options{
		Attempts:           3,
		MinSymbolPixels:    20,
		MaxModuleDeviation: 0.5,
		LinearScanLines:    64,
	}
}

// Locator finds matrix and linear symbols in a reflectance grid.
type Locator struct {
	opts Options
}

// New returns a locator, filling unset options from DefaultOptions.
func New(opts Options) *Locator {
	def := DefaultOptions()
	if opts.Attempts <= 0 {
		opts.Attempts = def.Attempts
	}
	if opts.MinSymbolPixels <= 0 {
		opts.MinSymbolPixels = def.MinSymbolPixels
	}
	if opts.MaxModuleDeviation <= 0 {
		opts.MaxModuleDeviation = def.MaxModuleDeviation
	}
	if opts.LinearScanLines <= 0 {
		opts.LinearScanLines = def.LinearScanLines
	}
	return &Locator{opts: opts}
}

// Locate finds a symbol of the hinted symbology. Each member of the threshold
// family is tried in order; SymbolNotFoundError is returned once all fail.
func (l *Locator) Locate(g *reflectance.Grid, hint symbology.Symbology) (*Geometry, error) {
	base := Otsu(g)
	thresholds := Thresholds(base, l.opts.Attempts)
	log := logger.ForStage(stage)

	for attempt, t := range thresholds {
		dark := binarize(g, t)
		geom, ok := l.search(g, dark, hint)
		log.WithFields(logrus.Fields{
			"attempt":   attempt + 1,
			"threshold": t,
			"found":     ok,
		}).Debug("locator attempt")
		if ok {
			geom.Threshold = t
			geom.Attempt = attempt + 1
			return geom, nil
		}
	}
	return nil, apperrors.NewPipelineError(apperrors.KindSymbolNotFound, stage,
		fmt.Sprintf("no %s symbol after %d attempts", hint, len(thresholds)), nil)
}

func (l *Locator) search(g *reflectance.Grid, dark []bool, hint symbology.Symbology) (*Geometry, bool) {
	switch hint {
	case symbology.DataMatrix:
		return l.locateMatrix(g, dark)
	case symbology.EAN13:
		return l.locateLinear(g, dark)
	default:
		if geom, ok := l.locateMatrix(g, dark); ok {
			return geom, true
		}
		return l.locateLinear(g, dark)
	}
}
