// Package report packages the outcome of a verification run.
package report

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/Suryanandx/2d-code-verifier/internal/config"
	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/sampler"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
	"github.com/Suryanandx/2d-code-verifier/pkg/validation"
)

const stage = "report"

// Input is everything a report is built from.
type Input struct {
	Image       []byte
	ImageSize   models.ImageSize
	Calibration config.Calibration
	Geometry    *locator.Geometry
	Samples     *sampler.Samples
	// Metrics must already be graded.
	Metrics []models.MetricResult
	Overall models.Grade
	Decode  models.DecodeResult
}

// Assembler builds reports.
type Assembler struct {
	validator *validation.CaptureValidator
}

// NewAssembler returns an assembler with the default capture thresholds.
func NewAssembler() *Assembler {
	return &Assembler{validator: validation.NewCaptureValidator()}
}

// Assemble builds the report. The result shares no memory with in.
func (a *Assembler) Assemble(in Input) *models.SymbolReport {
	sym := in.Geometry.Symbology
	rep := &models.SymbolReport{
		Checksum:     Checksum(in.Image, in.Calibration),
		Symbology:    sym.String(),
		Standard:     string(sym.Standard()),
		OverallGrade: in.Overall,
		Metrics:      append([]models.MetricResult(nil), in.Metrics...),
		Decode:       in.Decode,
		ScanLine:     make([]models.ScanLinePoint, len(in.Samples.Trace)),
		Image:        in.ImageSize,
		Bounds:       boundsOf(in.Geometry),
		ModuleSize:   in.Geometry.ModuleSize,
		Rotation:     in.Geometry.Rotation,
	}
	if in.Decode.Payload != nil {
		payload := *in.Decode.Payload
		rep.Decode.Payload = &payload
		rep.DecodedData = &payload
	}
	for i, p := range in.Samples.Trace {
		rep.ScanLine[i] = models.ScanLinePoint{Position: p.Position, Value: p.Reflectance}
	}

	sc := 0.0
	if m, ok := rep.Metric(models.MetricSymbolContrast); ok {
		sc = m.RawValue
	}
	issues := a.validator.Validate(validation.CaptureMetrics{
		Width:            in.ImageSize.Width,
		Height:           in.ImageSize.Height,
		ModuleSize:       in.Geometry.ModuleSize,
		ApertureDiameter: in.Samples.Aperture.Diameter,
		SymbolContrast:   sc,
		ThresholdAttempt: in.Geometry.Attempt,
		QuietOutside:     in.Samples.QuietOutside,
		Rotation:         in.Geometry.Rotation,
	})
	rep.Warnings = a.validator.ConvertIssuesToMessages(issues)
	if a.validator.HasCriticalIssues(issues) {
		logger.ForStage(stage).WithField("warnings", rep.Warnings).Warn("capture outside verification conditions")
	}
	return rep
}

func boundsOf(g *locator.Geometry) models.Bounds {
	return models.Bounds{X: g.Bounds.Min.X, Y: g.Bounds.Min.Y, Width: g.Bounds.Dx(), Height: g.Bounds.Dy()}
}

// Checksum identifies a run by its inputs: the image bytes and the calibration.
func Checksum(image []byte, cal config.Calibration) string {
	h := sha256.New()
	h.Write(image)
	h.Write([]byte(cal.Fingerprint()))
	return hex.EncodeToString(h.Sum(nil))
}
