package metrics

import (
	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// WithDecode appends the metrics that depend on the decode outcome: unused
// error correction for matrix symbols and the decode pass/fail for all.
// The input slice is not modified.
func WithDecode(results []models.MetricResult, kind locator.Kind, d models.DecodeResult) []models.MetricResult {
	out := make([]models.MetricResult, 0, len(results)+2)
	out = append(out, results...)
	if kind == locator.KindMatrix {
		uec := 0.0
		if d.Succeeded && d.Capacity > 0 {
			uec = 1 - float64(d.Corrected)/float64(d.Capacity)
		}
		out = append(out, higherIsBetter(models.MetricUnusedErrorCorrection, uec))
	}
	raw := 0.0
	if d.Succeeded {
		raw = 1
	}
	return append(out, passFail(models.MetricDecode, raw, d.Succeeded))
}
