package sampler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suryanandx/2d-code-verifier/internal/datamatrix"
	"github.com/Suryanandx/2d-code-verifier/internal/ean13"
	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/locator"
	"github.com/Suryanandx/2d-code-verifier/internal/reflectance"
	"github.com/Suryanandx/2d-code-verifier/internal/sampler"
	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
	"github.com/Suryanandx/2d-code-verifier/internal/testimage"
)

func locate(t *testing.T, data []byte, hint symbology.Symbology) (*reflectance.Grid, *locator.Geometry) {
	t.Helper()
	grid, err := reflectance.NewNormalizer(reflectance.Options{MaxPixels: 1 << 22, MaxDimension: 4096}).Normalize(data)
	require.NoError(t, err)
	opts := locator.DefaultOptions()
	opts.Margin = 2.5
	geom, err := locator.New(opts).Locate(grid, hint)
	require.NoError(t, err)
	return grid, geom
}

func TestSampleMatrix(t *testing.T) {
	modules, err := datamatrix.Encode("123456")
	require.NoError(t, err)
	grid, geom := locate(t, testimage.PNG(testimage.Matrix(modules, 8, 2)), symbology.DataMatrix)

	for _, policy := range []sampler.Policy{sampler.PolicyDisc, sampler.PolicyPoint} {
		s, err := sampler.New(sampler.Aperture{Diameter: 5, Policy: policy}).Sample(grid, geom)
		require.NoError(t, err)

		require.Len(t, s.Modules, 100)
		for r := 0; r < 10; r++ {
			for c := 0; c < 10; c++ {
				want := 1.0
				if modules[r][c] {
					want = 0
				}
				assert.InDelta(t, want, s.Module(r, c), 1e-9, "module (%d,%d)", r, c)
			}
		}
		assert.Len(t, s.Quiet, 44)
		assert.Zero(t, s.QuietOutside)
		for _, v := range s.Quiet {
			assert.InDelta(t, 1.0, v, 1e-9)
		}
		assert.Len(t, s.Trace, 80)
		assert.Equal(t, 0.0, s.Trace[0].Position)
	}
}

func TestSampleLinear(t *testing.T) {
	bars, _, err := ean13.Encode("400638133393")
	require.NoError(t, err)
	grid, geom := locate(t, testimage.PNG(testimage.Linear(bars, 6, 80, 12, 10)), symbology.EAN13)

	s, err := sampler.New(sampler.Aperture{Diameter: 5}).Sample(grid, geom)
	require.NoError(t, err)

	assert.Equal(t, locator.KindLinear, s.Kind)
	assert.Len(t, s.Trace, int(geom.Band.Length)+1)
	// The first bar starts half a pixel before the symbol start; its centre is dark.
	idx := int(geom.Band.SymbolStart + 3)
	assert.InDelta(t, 0.0, s.Trace[idx].Reflectance, 1e-9)
	assert.InDelta(t, 1.0, s.Trace[0].Reflectance, 1e-9)
}

func TestSampleOutOfBounds(t *testing.T) {
	grid := reflectance.NewGrid(40, 40, 1)
	edges := make([]float64, 11)
	for i := range edges {
		edges[i] = -2.5 + 4*float64(i)
	}
	geom := &locator.Geometry{
		Kind:        locator.KindMatrix,
		Rows:        10,
		Cols:        10,
		ModuleSize:  4,
		ColumnEdges: edges,
		RowEdges:    edges,
	}

	_, err := sampler.New(sampler.Aperture{Diameter: 3}).Sample(grid, geom)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSamplingOutOfBounds), "got %v", err)
}

func TestSampleQuietZoneOffGrid(t *testing.T) {
	// A symbol filling the grid edge to edge: the ring falls outside but the
	// modules do not.
	grid := reflectance.NewGrid(40, 40, 1)
	edges := make([]float64, 11)
	for i := range edges {
		edges[i] = -0.5 + 4*float64(i)
	}
	geom := &locator.Geometry{
		Kind:        locator.KindMatrix,
		Rows:        10,
		Cols:        10,
		ModuleSize:  4,
		ColumnEdges: edges,
		RowEdges:    edges,
	}

	s, err := sampler.New(sampler.Aperture{Diameter: 3}).Sample(grid, geom)
	require.NoError(t, err)
	assert.Equal(t, 44, s.QuietOutside)
	assert.Empty(t, s.Quiet)
}

func TestParsePolicy(t *testing.T) {
	p, err := sampler.ParsePolicy("point")
	require.NoError(t, err)
	assert.Equal(t, sampler.PolicyPoint, p)
	_, err = sampler.ParsePolicy("square")
	assert.Error(t, err)
}
