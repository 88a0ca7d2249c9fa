// Package verifier runs the verification pipeline: normalize, locate, sample,
// measure and decode, grade, report.
package verifier

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Suryanandx/2d-code-verifier/internal/config"
	"github.com/Suryanandx/2d-code-verifier/internal/decoder"
	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/grading"
	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/metrics"
	"github.com/Suryanandx/2d-code-verifier/internal/reflectance"
	"github.com/Suryanandx/2d-code-verifier/internal/report"
	"github.com/Suryanandx/2d-code-verifier/internal/sampler"
	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// Verifier holds the stage implementations configured from one calibration.
// It keeps no per-run state and is safe for concurrent use.
type Verifier struct {
	cal        config.Calibration
	normalizer *reflectance.Normalizer
	locator    *locator.Locator
	sampler    *sampler.Sampler
	engine     *metrics.Engine
	decoder    *decoder.Decoder
	grader     *grading.Grader
	assembler  *report.Assembler
}

// New validates cal and builds a Verifier from it.
func New(cal config.Calibration) (*Verifier, error) {
	if err := cal.Validate(); err != nil {
		return nil, apperrors.NewPipelineError(apperrors.KindInternal, "configure", "invalid calibration", err)
	}
	policy, err := sampler.ParsePolicy(cal.AperturePolicy)
	if err != nil {
		return nil, apperrors.NewPipelineError(apperrors.KindInternal, "configure", "invalid calibration", err)
	}
	aperture := sampler.Aperture{Diameter: cal.ApertureDiameter, Policy: policy}

	locOpts := locator.DefaultOptions()
	locOpts.Attempts = cal.LocatorAttempts
	locOpts.Margin = aperture.Radius()

	return &Verifier{
		cal: cal,
		normalizer: reflectance.NewNormalizer(reflectance.Options{
			MaxPixels:    cal.MaxPixels,
			MaxDimension: cal.MaxDimension,
			Offset:       cal.ReflectanceOffset,
			Pitch:        cal.PixelPitch,
			Flatten:      true,
		}),
		locator:   locator.New(locOpts),
		sampler:   sampler.New(aperture),
		engine:    metrics.NewEngine(cal.MetricWorkers),
		decoder:   decoder.New(),
		grader:    grading.New(cal.Grades),
		assembler: report.NewAssembler(),
	}, nil
}

// Stats reports the metric worker pool counters across every Verify call.
func (v *Verifier) Stats() metrics.EngineStats {
	return v.engine.Stats()
}

// Run verifies one image with a freshly built Verifier.
func Run(ctx context.Context, image []byte, hint symbology.Symbology, cal config.Calibration) (*models.SymbolReport, error) {
	v, err := New(cal)
	if err != nil {
		return nil, err
	}
	return v.Verify(ctx, image, hint)
}

// Verify runs the pipeline over image. The context is checked between stages;
// a cancelled run returns an InternalError and no report.
func (v *Verifier) Verify(ctx context.Context, image []byte, hint symbology.Symbology) (*models.SymbolReport, error) {
	start := time.Now()
	log := logger.WithFields(logrus.Fields{"hint": hint.String(), "bytes": len(image)})

	if err := checkpoint(ctx, "normalize"); err != nil {
		return nil, err
	}
	grid, err := v.normalizer.Normalize(image)
	if err != nil {
		return nil, err
	}

	if err := checkpoint(ctx, "locate"); err != nil {
		return nil, err
	}
	geom, err := v.locator.Locate(grid, hint)
	if err != nil {
		return nil, err
	}

	if err := checkpoint(ctx, "sample"); err != nil {
		return nil, err
	}
	samples, err := v.sampler.Sample(grid, geom)
	if err != nil {
		return nil, err
	}

	if err := checkpoint(ctx, "measure"); err != nil {
		return nil, err
	}
	var (
		wg      sync.WaitGroup
		decoded models.DecodeResult
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		decoded = v.decoder.Decode(samples, geom)
	}()
	raw, err := v.engine.Measure(ctx, samples, geom)
	wg.Wait()
	if err != nil {
		return nil, err
	}

	if err := checkpoint(ctx, "grade"); err != nil {
		return nil, err
	}
	graded, overall := v.grader.Grade(metrics.WithDecode(raw, geom.Kind, decoded))

	if err := checkpoint(ctx, "report"); err != nil {
		return nil, err
	}
	rep := v.assembler.Assemble(report.Input{
		Image:       image,
		ImageSize:   models.ImageSize{Width: grid.Width, Height: grid.Height},
		Calibration: v.cal,
		Geometry:    geom,
		Samples:     samples,
		Metrics:     graded,
		Overall:     overall,
		Decode:      decoded,
	})

	log.WithFields(logrus.Fields{
		"symbology": rep.Symbology,
		"grade":     rep.OverallGrade,
		"decoded":   rep.Decode.Succeeded,
		"checksum":  rep.Checksum,
		"duration":  time.Since(start).String(),
	}).Info("verification complete")
	return rep, nil
}

func checkpoint(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Cancelled(stage, err)
	}
	return nil
}
