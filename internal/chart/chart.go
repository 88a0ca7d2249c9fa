// Package chart renders report visualisations: the scan-line reflectance
// profile as a PNG and the per-metric scores as an HTML bar chart.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// ErrNoData is returned when a report has nothing to plot.
var ErrNoData = errors.New("chart: report has no data to plot")

var (
	traceColor     = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	thresholdColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// ScanLinePNG plots the reflectance trace of rep with its midpoint threshold.
func ScanLinePNG(rep *models.SymbolReport) ([]byte, error) {
	if rep == nil || len(rep.ScanLine) == 0 {
		return nil, ErrNoData
	}

	pts := make(plotter.XYs, len(rep.ScanLine))
	values := make([]float64, len(rep.ScanLine))
	for i, p := range rep.ScanLine {
		pts[i] = plotter.XY{X: p.Position, Y: p.Value}
		values[i] = p.Value
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s scan reflectance profile (grade %s)", rep.Symbology, rep.OverallGrade)
	p.X.Label.Text = "Position (px)"
	p.Y.Label.Text = "Reflectance"
	p.Y.Min = 0
	p.Y.Max = 1

	trace, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("scan line: %w", err)
	}
	trace.Width = vg.Points(1)
	trace.Color = traceColor

	mid := (floats.Min(values) + floats.Max(values)) / 2
	threshold, err := plotter.NewLine(plotter.XYs{
		{X: pts[0].X, Y: mid},
		{X: pts[len(pts)-1].X, Y: mid},
	})
	if err != nil {
		return nil, fmt.Errorf("threshold line: %w", err)
	}
	threshold.Width = vg.Points(1)
	threshold.Color = thresholdColor
	threshold.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(trace, threshold)
	p.Legend.Add("reflectance", trace)
	p.Legend.Add("threshold", threshold)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("png writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return buf.Bytes(), nil
}

// ScoresHTML renders the metric scores of rep on a 0..100 scale.
func ScoresHTML(rep *models.SymbolReport, subtitle string) ([]byte, error) {
	if rep == nil || len(rep.Metrics) == 0 {
		return nil, ErrNoData
	}

	names := make([]string, len(rep.Metrics))
	data := make([]opts.BarData, len(rep.Metrics))
	for i, m := range rep.Metrics {
		names[i] = m.Name
		data[i] = opts.BarData{
			Name:  string(m.Grade),
			Value: float64(int(m.Score*1000+0.5)) / 10,
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Verification scores", Width: "100%", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s: overall grade %s", rep.Symbology, rep.Standard, rep.OverallGrade),
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "Score"}),
	)
	bar.SetXAxis(names).
		AddSeries("score", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
