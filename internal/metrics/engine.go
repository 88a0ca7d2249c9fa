// Package metrics computes ISO/IEC 15415 and 15416 quality parameters from
// aperture samples.
package metrics

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/sampler"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

const stage = "metrics"

// Engine measures raw metric values. Results carry a Score but no Grade;
// grading is a separate step.
type Engine struct {
	workers int

	measurements  atomic.Int64
	jobs          atomic.Int64
	completedJobs atomic.Int64
}

// EngineStats totals the worker pool counters of every measurement so far.
type EngineStats struct {
	Measurements  int64 `json:"measurements"`
	Jobs          int64 `json:"jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
}

// NewEngine returns an engine that spreads each measurement over workers
// goroutines, or one per CPU when workers is not positive.
func NewEngine(workers int) *Engine {
	return &Engine{workers: workers}
}

// Stats returns the accumulated pool counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Measurements:  e.measurements.Load(),
		Jobs:          e.jobs.Load(),
		CompletedJobs: e.completedJobs.Load(),
	}
}

func (e *Engine) record(pool *WorkerPool) {
	pool.Wait()
	st := pool.GetStats()
	e.measurements.Add(1)
	e.jobs.Add(st.TotalJobs)
	e.completedJobs.Add(st.CompletedJobs)
}

// Measure computes every metric applicable to the sampled symbol, in a fixed order.
func (e *Engine) Measure(ctx context.Context, s *sampler.Samples, geom *locator.Geometry) ([]models.MetricResult, error) {
	pool := NewWorkerPool(e.workers)
	pool.Start()
	defer pool.Close()
	defer e.record(pool)

	var (
		results []models.MetricResult
		err     error
	)
	if s.Kind == locator.KindLinear {
		results, err = measureLinear(ctx, pool, s, geom)
	} else {
		results, err = measureMatrix(ctx, pool, s, geom)
	}
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{}
	for _, r := range results {
		fields[r.Name] = r.RawValue
	}
	logger.ForStage(stage).WithFields(fields).Debug("metrics measured")
	return results, nil
}

// runJobs submits one job per index and waits, stopping early on cancellation.
func runJobs(ctx context.Context, pool *WorkerPool, n int, job func(i int)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			pool.Wait()
			return apperrors.Cancelled(stage, err)
		}
		i := i
		pool.Submit(func() { job(i) })
	}
	pool.Wait()
	if err := ctx.Err(); err != nil {
		return apperrors.Cancelled(stage, err)
	}
	return nil
}

// higherIsBetter builds a result whose score is the raw value.
func higherIsBetter(name string, raw float64) models.MetricResult {
	raw = clamp01(raw)
	return models.MetricResult{Name: name, RawValue: raw, Score: raw}
}

// lowerIsBetter builds a result for damage-type metrics.
func lowerIsBetter(name string, raw float64) models.MetricResult {
	raw = clamp01(raw)
	return models.MetricResult{Name: name, RawValue: raw, Score: 1 - raw}
}

// passFail builds a result that only grades A or F.
func passFail(name string, raw float64, pass bool) models.MetricResult {
	score := 0.0
	if pass {
		score = 1
	}
	return models.MetricResult{Name: name, RawValue: clamp01(raw), Score: score, PassFail: true}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
