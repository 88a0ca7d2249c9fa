// Package symbology enumerates the symbol families the verifier can grade.
package symbology

import (
	"strings"

	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
)

type Symbology int

const (
	Auto Symbology = iota
	DataMatrix
	EAN13
)

// Standard names the grading model applied to a symbology.
type Standard string

const (
	ISO15415 Standard = "ISO/IEC 15415"
	ISO15416 Standard = "ISO/IEC 15416"
)

func (s Symbology) String() string {
	switch s {
	case DataMatrix:
		return "datamatrix"
	case EAN13:
		return "ean13"
	default:
		return "auto"
	}
}

// Standard returns the grading standard, or "" for Auto.
func (s Symbology) Standard() Standard {
	switch s {
	case DataMatrix:
		return ISO15415
	case EAN13:
		return ISO15416
	default:
		return ""
	}
}

// Parse maps a user supplied hint to a Symbology. The empty string means Auto.
func Parse(hint string) (Symbology, error) {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "", "auto":
		return Auto, nil
	case "datamatrix", "data-matrix", "data_matrix", "dm", "2d", "15415":
		return DataMatrix, nil
	case "ean13", "ean-13", "ean_13", "linear", "1d", "15416":
		return EAN13, nil
	default:
		return Auto, apperrors.NewPipelineError(apperrors.KindUnsupportedSymbology, "", hint, nil)
	}
}
