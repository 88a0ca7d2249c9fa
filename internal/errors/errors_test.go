package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"decode", NewPipelineError(KindImageDecode, "normalize", "bad header", nil), http.StatusBadRequest},
		{"resolution", NewPipelineError(KindResolutionExceeded, "normalize", "", nil), http.StatusRequestEntityTooLarge},
		{"not found", NewPipelineError(KindSymbolNotFound, "locate", "", nil), http.StatusUnprocessableEntity},
		{"sampling", NewPipelineError(KindSamplingOutOfBounds, "sample", "", nil), http.StatusUnprocessableEntity},
		{"symbology", NewPipelineError(KindUnsupportedSymbology, "", "qr", nil), http.StatusBadRequest},
		{"cancelled", Cancelled("metrics", context.Canceled), http.StatusInternalServerError},
		{"wrapped pipeline", fmt.Errorf("run: %w", NewPipelineError(KindSymbolNotFound, "locate", "", nil)), http.StatusUnprocessableEntity},
		{"app error", NewNotFoundError("report not found", nil), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetStatusCode(tt.err))
		})
	}
}

func TestPipelineErrorMessageAndUnwrap(t *testing.T) {
	err := Cancelled("decode", context.DeadlineExceeded)

	assert.Equal(t, "InternalError [decode]: cancelled: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsKind(err, KindInternal))
	assert.False(t, IsKind(err, KindDecode))
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewValidationError("missing file", nil))
	assert.True(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(err, ErrorTypeNetwork))
}
