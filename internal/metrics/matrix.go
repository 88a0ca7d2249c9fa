package metrics

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Suryanandx/2d-code-verifier/internal/datamatrix"
	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/internal/sampler"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// rowStats is the per-row partial result of a matrix pass.
type rowStats struct {
	min, max   float64
	modulation float64
	fixed, bad int
	gridDev    float64
}

func measureMatrix(ctx context.Context, pool *WorkerPool, s *sampler.Samples, geom *locator.Geometry) ([]models.MetricResult, error) {
	rows := make([]rowStats, s.Rows)

	// Pass 1: extremes per row.
	err := runJobs(ctx, pool, s.Rows, func(r int) {
		row := s.Modules[r*s.Cols : (r+1)*s.Cols]
		rows[r].min = floats.Min(row)
		rows[r].max = floats.Max(row)
	})
	if err != nil {
		return nil, err
	}

	rmin, rmax := math.Inf(1), math.Inf(-1)
	for _, st := range rows {
		rmin = math.Min(rmin, st.min)
		rmax = math.Max(rmax, st.max)
	}
	if len(s.Quiet) > 0 {
		rmin = math.Min(rmin, floats.Min(s.Quiet))
		rmax = math.Max(rmax, floats.Max(s.Quiet))
	}
	sc := rmax - rmin
	gt := (rmax + rmin) / 2

	// Pass 2: modulation, finder damage and grid deviation per row.
	n := s.Rows
	err = runJobs(ctx, pool, s.Rows, func(r int) {
		st := &rows[r]
		st.modulation = math.Inf(1)
		for c := 0; c < s.Cols; c++ {
			v := s.Module(r, c)
			if sc > 0 {
				st.modulation = math.Min(st.modulation, 2*math.Abs(v-gt)/sc)
			} else {
				st.modulation = 0
			}

			ur, uc := geom.Upright(r, c)
			if want, fixed := datamatrix.FinderModule(n, ur, uc); fixed {
				st.fixed++
				if (v < gt) != want {
					st.bad++
				}
			}

			got := geom.ModuleCenter(r, c)
			nom := geom.NominalCenter(r, c)
			st.gridDev = math.Max(st.gridDev, math.Hypot(got.X-nom.X, got.Y-nom.Y))
		}
	})
	if err != nil {
		return nil, err
	}

	modulation := math.Inf(1)
	var fixed, bad int
	var gridDev float64
	for _, st := range rows {
		modulation = math.Min(modulation, st.modulation)
		fixed += st.fixed
		bad += st.bad
		gridDev = math.Max(gridDev, st.gridDev)
	}

	fpd := 1.0
	if fixed > 0 {
		fpd = float64(bad) / float64(fixed)
	}

	return []models.MetricResult{
		higherIsBetter(models.MetricSymbolContrast, sc),
		higherIsBetter(models.MetricModulation, modulation),
		lowerIsBetter(models.MetricFixedPatternDamage, fpd),
		lowerIsBetter(models.MetricAxialNonUniformity, axialNonUniformity(geom)),
		lowerIsBetter(models.MetricGridNonUniformity, gridNonUniformity(gridDev, geom.ModuleSize)),
		lowerIsBetter(models.MetricQuietZone, quietZoneDamage(s, gt)),
	}, nil
}

// axialNonUniformity compares the mean module pitch along the two axes.
func axialNonUniformity(geom *locator.Geometry) float64 {
	x := (geom.ColumnEdges[geom.Cols] - geom.ColumnEdges[0]) / float64(geom.Cols)
	y := (geom.RowEdges[geom.Rows] - geom.RowEdges[0]) / float64(geom.Rows)
	if x+y == 0 {
		return 1
	}
	return math.Abs(x-y) / ((x + y) / 2)
}

func gridNonUniformity(maxDev, moduleSize float64) float64 {
	if moduleSize <= 0 {
		return 1
	}
	return maxDev / moduleSize
}

// quietZoneDamage is the fraction of the surrounding ring that is dark or
// could not be measured.
func quietZoneDamage(s *sampler.Samples, gt float64) float64 {
	total := len(s.Quiet) + s.QuietOutside
	if total == 0 {
		return 1
	}
	bad := s.QuietOutside
	for _, v := range s.Quiet {
		if v < gt {
			bad++
		}
	}
	return float64(bad) / float64(total)
}
