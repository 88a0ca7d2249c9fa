package symbology

import (
	"testing"

	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		hint string
		want Symbology
	}{
		{"", Auto},
		{"AUTO", Auto},
		{"DataMatrix", DataMatrix},
		{"15415", DataMatrix},
		{"ean-13", EAN13},
		{" linear ", EAN13},
	}
	for _, tt := range tests {
		got, err := Parse(tt.hint)
		require.NoError(t, err, tt.hint)
		assert.Equal(t, tt.want, got, tt.hint)
	}
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse("qrcode")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnsupportedSymbology))
}

func TestStandard(t *testing.T) {
	assert.Equal(t, ISO15415, DataMatrix.Standard())
	assert.Equal(t, ISO15416, EAN13.Standard())
	assert.Equal(t, Standard(""), Auto.Standard())
	assert.Equal(t, "ean13", EAN13.String())
}
