//go:build cgo && linux

package hri

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

type tesseractReader struct{}

// NewTesseractReader returns a Reader backed by the Tesseract library.
func NewTesseractReader() Reader {
	return tesseractReader{}
}

func (tesseractReader) ReadText(ctx context.Context, img []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist("0123456789"); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
