package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

func sampleReport() *models.SymbolReport {
	return &models.SymbolReport{
		Symbology:    "ean13",
		Standard:     "ISO/IEC 15416",
		OverallGrade: models.GradeB,
		Metrics: []models.MetricResult{
			{Name: models.MetricSymbolContrast, Score: 0.85, Grade: models.GradeB},
			{Name: models.MetricDecode, Score: 1, Grade: models.GradeA, PassFail: true},
		},
		ScanLine: []models.ScanLinePoint{
			{Position: 0, Value: 0.9}, {Position: 1, Value: 0.1}, {Position: 2, Value: 0.85}, {Position: 3, Value: 0.12},
		},
	}
}

func TestScanLinePNG(t *testing.T) {
	data, err := ScanLinePNG(sampleReport())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestScoresHTML(t *testing.T) {
	html, err := ScoresHTML(sampleReport(), "id 123")
	require.NoError(t, err)

	s := string(html)
	assert.Contains(t, s, "echarts")
	assert.Contains(t, s, models.MetricSymbolContrast)
	assert.Contains(t, s, "overall grade B")
	assert.Contains(t, s, "id 123")
}

func TestEmptyReports(t *testing.T) {
	_, err := ScanLinePNG(&models.SymbolReport{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = ScoresHTML(&models.SymbolReport{}, "")
	assert.ErrorIs(t, err, ErrNoData)
	_, err = ScanLinePNG(nil)
	assert.ErrorIs(t, err, ErrNoData)
}
