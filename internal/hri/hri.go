// Package hri checks the human-readable interpretation printed under a linear
// symbol against the decoded payload. The result is advisory and never feeds
// into grading.
package hri

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"
	"unicode"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// ErrUnavailable is returned by readers built without an OCR engine.
var ErrUnavailable = errors.New("hri: OCR engine not available in this build")

// The printed digits sit within textDepthModules of the bars. The leading
// digit extends into the left quiet zone.
const (
	textDepthModules = 12
	textLeadModules  = 11
	textTrailModules = 7
)

// Reader extracts text from an encoded image.
type Reader interface {
	ReadText(ctx context.Context, img []byte, language string) (string, error)
}

// Checker runs the HRI comparison for verified reports.
type Checker struct {
	reader   Reader
	language string
}

// NewChecker returns a checker that recognises text with reader in the given
// Tesseract language.
func NewChecker(reader Reader, language string) *Checker {
	return &Checker{reader: reader, language: language}
}

// Applies reports whether rep is a decoded linear symbol, the only kind that
// carries printed digits.
func Applies(rep *models.SymbolReport) bool {
	return rep != nil && rep.Decode.Succeeded && rep.DecodedData != nil && rep.Symbology == symbology.EAN13.String()
}

// Check reads the text printed beside the located bars of image and compares
// it with the payload of rep.
// It returns nil when the report has nothing to check; OCR failures are
// recorded in ProcessingError.
func (c *Checker) Check(ctx context.Context, image []byte, rep *models.SymbolReport) *models.HRIResult {
	if !Applies(rep) {
		return nil
	}
	expected := *rep.DecodedData
	log := logger.WithFields(logrus.Fields{"component": "hri", "expected": expected})

	region, err := textRegion(image, rep)
	if err != nil {
		log.WithError(err).Warn("HRI region extraction failed")
		return &models.HRIResult{Expected: expected, ProcessingError: err.Error()}
	}
	text, err := c.reader.ReadText(ctx, region, c.language)
	if err != nil {
		log.WithError(err).Warn("HRI text recognition failed")
		return &models.HRIResult{Expected: expected, ProcessingError: err.Error()}
	}

	res := Compare(text, expected)
	log.WithFields(logrus.Fields{
		"text":          res.Text,
		"edit_distance": res.EditDistance,
		"match":         res.Match,
	}).Debug("HRI check complete")
	return &res
}

// Compare scores recognised text against the expected payload. Whitespace is
// ignored for the edit distance; the word error rate uses the printed grouping.
func Compare(text, expected string) models.HRIResult {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, text)

	dist := levenshtein.Distance(normalized, expected)
	longest := len(normalized)
	if len(expected) > longest {
		longest = len(expected)
	}
	score := 1.0
	if longest > 0 {
		score = 1 - float64(dist)/float64(longest)
	}

	wordErrorRate := 0.0
	if ref := printedGroups(expected); len(ref) > 0 {
		wordErrorRate, _ = wer.WER(ref, strings.Fields(strings.ToUpper(text)))
	}

	return models.HRIResult{
		Text:          strings.TrimSpace(text),
		Expected:      expected,
		EditDistance:  dist,
		MatchScore:    score,
		WordErrorRate: wordErrorRate,
		Match:         dist == 0,
	}
}

// printedGroups splits a payload the way it is printed under the bars:
// EAN-13 as 1 + 6 + 6 digits, anything else by whitespace.
func printedGroups(payload string) []string {
	if len(payload) == 13 {
		return []string{payload[:1], payload[1:7], payload[7:]}
	}
	return strings.Fields(payload)
}

// textRegion crops the area where the digits are printed relative to the
// located bars, turns it upright, converts it to grayscale and doubles its
// size for the OCR engine.
func textRegion(data []byte, rep *models.SymbolReport) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	bars := image.Rect(rep.Bounds.X, rep.Bounds.Y, rep.Bounds.X+rep.Bounds.Width, rep.Bounds.Y+rep.Bounds.Height).Add(b.Min)
	if bars.Empty() {
		return nil, fmt.Errorf("report carries no symbol bounds")
	}
	m := math.Max(rep.ModuleSize, 1)
	depth := int(math.Ceil(textDepthModules * m))
	lead := int(math.Ceil(textLeadModules * m))
	trail := int(math.Ceil(textTrailModules * m))

	// Rotation is the clockwise turn from the upright symbol, whose digits
	// are printed below the bars.
	var r image.Rectangle
	switch rep.Rotation {
	case 90:
		r = image.Rect(bars.Min.X-depth, bars.Min.Y-lead, bars.Min.X, bars.Max.Y+trail)
	case 180:
		r = image.Rect(bars.Min.X-trail, bars.Min.Y-depth, bars.Max.X+lead, bars.Min.Y)
	case 270:
		r = image.Rect(bars.Max.X, bars.Min.Y-trail, bars.Max.X+depth, bars.Max.Y+lead)
	default:
		r = image.Rect(bars.Min.X-lead, bars.Max.Y, bars.Max.X+trail, bars.Max.Y+depth)
	}
	r = r.Intersect(b)
	if r.Empty() {
		return nil, fmt.Errorf("no room for text beside the symbol (%dx%d image)", b.Dx(), b.Dy())
	}

	band := imaging.Crop(img, r)
	switch rep.Rotation {
	case 90:
		band = imaging.Rotate90(band)
	case 180:
		band = imaging.Rotate180(band)
	case 270:
		band = imaging.Rotate270(band)
	}
	gray := imaging.Grayscale(band)
	scaled := imaging.Resize(gray, gray.Bounds().Dx()*2, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode text band: %w", err)
	}
	return buf.Bytes(), nil
}
