package reflectance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suryanandx/2d-code-verifier/internal/datamatrix"
	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/testimage"
)

func TestNormalizeUniformIsIdentity(t *testing.T) {
	n := NewNormalizer(Options{MaxPixels: 1 << 20, MaxDimension: 4096, Flatten: true})
	grid, err := n.Normalize(testimage.PNG(testimage.Uniform(64, 48, 255)))
	require.NoError(t, err)

	assert.Equal(t, 64, grid.Width)
	assert.Equal(t, 48, grid.Height)
	lo, hi := grid.Range()
	assert.InDelta(t, 1.0, lo, 1e-9)
	assert.InDelta(t, 1.0, hi, 1e-9)
}

func TestNormalizeLuminanceIsLinear(t *testing.T) {
	n := NewNormalizer(Options{MaxPixels: 1 << 20, MaxDimension: 4096})
	grid, err := n.Normalize(testimage.PNG(testimage.Uniform(8, 8, 128)))
	require.NoError(t, err)

	// sRGB 128 is roughly 21.6% linear reflectance.
	assert.InDelta(t, 0.216, grid.At(3, 3), 0.002)
}

func TestNormalizeAppliesOffset(t *testing.T) {
	n := NewNormalizer(Options{MaxPixels: 1 << 20, MaxDimension: 4096, Offset: -0.1, Pitch: 0.02})
	grid, err := n.Normalize(testimage.PNG(testimage.Uniform(8, 8, 255)))
	require.NoError(t, err)

	assert.InDelta(t, 0.9, grid.At(0, 0), 1e-9)
	assert.Equal(t, -0.1, grid.Offset)
	assert.Equal(t, 0.02, grid.Pitch)
}

func TestNormalizeFlattensShadedSymbol(t *testing.T) {
	modules, err := datamatrix.Encode("VERIFY-CODE!")
	require.NoError(t, err)
	// 16x16 modules at 8 px with a two module quiet zone: the solid leg is
	// column 16..23, the solid bottom row is y 136..143.
	src := testimage.Shade(testimage.Matrix(modules, 8, 2), 0.6, 1.0)
	data := testimage.PNG(src)

	raw, err := NewNormalizer(Options{MaxPixels: 1 << 20, MaxDimension: 4096}).Normalize(data)
	require.NoError(t, err)
	flat, err := NewNormalizer(Options{MaxPixels: 1 << 20, MaxDimension: 4096, Flatten: true}).Normalize(data)
	require.NoError(t, err)

	require.Less(t, raw.At(20, 4), 0.5, "fixture should be shaded")

	inkLeft, inkRight := flat.At(19, 80), flat.At(140, 140)
	paperLeft, paperRight := flat.At(20, 4), flat.At(140, 4)
	assert.Less(t, inkLeft, 0.05)
	assert.Less(t, inkRight, 0.05)
	assert.Greater(t, paperLeft, 0.85)
	assert.Greater(t, paperRight, 0.85)
	assert.InDelta(t, paperLeft, paperRight, 0.1)
}

func TestNormalizeFlattenKeepsUnshadedSymbol(t *testing.T) {
	modules, err := datamatrix.Encode("VERIFY-CODE!")
	require.NoError(t, err)
	flat, err := NewNormalizer(Options{MaxPixels: 1 << 20, MaxDimension: 4096, Flatten: true}).
		Normalize(testimage.PNG(testimage.Matrix(modules, 8, 2)))
	require.NoError(t, err)

	lo, hi := flat.Range()
	assert.InDelta(t, 0.0, lo, 1e-9)
	assert.InDelta(t, 1.0, hi, 1e-9)
}

func TestNormalizeResolutionExceeded(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"pixel count", Options{MaxPixels: 100, MaxDimension: 4096}},
		{"dimension", Options{MaxPixels: 1 << 20, MaxDimension: 16}},
	}
	data := testimage.PNG(testimage.Uniform(32, 32, 200))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNormalizer(tt.opts).Normalize(data)
			assert.True(t, apperrors.IsKind(err, apperrors.KindResolutionExceeded), "got %v", err)
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	n := NewNormalizer(Options{MaxPixels: 1 << 20, MaxDimension: 4096})

	for _, data := range [][]byte{nil, []byte("definitely not an image")} {
		_, err := n.Normalize(data)
		assert.True(t, apperrors.IsKind(err, apperrors.KindImageDecode), "got %v", err)
	}

	// Valid header, truncated body.
	png := testimage.PNG(testimage.Uniform(32, 32, 200))
	_, err := n.Normalize(png[:len(png)/2])
	assert.True(t, apperrors.IsKind(err, apperrors.KindImageDecode), "got %v", err)
}

func TestDiscMean(t *testing.T) {
	g := NewGrid(10, 10, 1)
	g.Set(5, 5, 0)

	v, ok := g.DiscMean(5, 5, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.8, v, 1e-9) // centre plus four neighbours

	_, ok = g.DiscMean(0.2, 5, 1)
	assert.False(t, ok)

	v, ok = g.DiscMean(5, 5, 0.2)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}
