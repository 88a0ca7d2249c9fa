//go:build !(cgo && linux)

package hri

import "context"

type unavailableReader struct{}

// NewTesseractReader returns a Reader that always fails with ErrUnavailable;
// Tesseract is only linked into cgo builds on Linux.
func NewTesseractReader() Reader {
	return unavailableReader{}
}

func (unavailableReader) ReadText(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}
