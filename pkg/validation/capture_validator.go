package validation

import (
	"fmt"
	"sort"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// CaptureThresholds defines when a capture is flagged as unsuitable for
// verification. None of them affect grading.
type CaptureThresholds struct {
	// MinModulePixels is the smallest module, in pixels, that samples reliably.
	MinModulePixels float64
	// MaxApertureRatio is the largest aperture diameter relative to the module size.
	MaxApertureRatio float64
	// MinSymbolContrast flags washed-out captures.
	MinSymbolContrast float64
	// MinWidth and MinHeight bound the captured image.
	MinWidth  int
	MinHeight int
}

// DefaultCaptureThresholds returns the default capture thresholds
func DefaultCaptureThresholds() CaptureThresholds {
	return CaptureThresholds{
		MinModulePixels:   4,
		MaxApertureRatio:  0.8,
		MinSymbolContrast: 0.4,
		MinWidth:          64,
		MinHeight:         32,
	}
}

// CaptureValidator checks the conditions a verification ran under.
type CaptureValidator struct {
	thresholds CaptureThresholds
}

// NewCaptureValidator creates a validator with default thresholds
func NewCaptureValidator() *CaptureValidator {
	return &CaptureValidator{thresholds: DefaultCaptureThresholds()}
}

// NewCaptureValidatorWithThresholds creates a validator with custom thresholds
func NewCaptureValidatorWithThresholds(thresholds CaptureThresholds) *CaptureValidator {
	return &CaptureValidator{thresholds: thresholds}
}

// QualityIssue represents a capture validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning", "info"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// CaptureMetrics are the measurements the validator inspects.
type CaptureMetrics struct {
	Width            int
	Height           int
	ModuleSize       float64
	ApertureDiameter float64
	SymbolContrast   float64
	// ThresholdAttempt is the 1-based locator attempt that found the symbol.
	ThresholdAttempt int
	// QuietOutside counts quiet-zone positions that fell outside the image.
	QuietOutside int
	Rotation     int
}

// Validate returns every issue found, ordered by severity then type.
func (cv *CaptureValidator) Validate(m CaptureMetrics) []QualityIssue {
	var issues []QualityIssue
	t := cv.thresholds

	if m.Width < t.MinWidth || m.Height < t.MinHeight {
		issues = append(issues, QualityIssue{
			Type:        "low_resolution",
			Message:     fmt.Sprintf("Image is %dx%d pixels; verification needs at least %dx%d.", m.Width, m.Height, t.MinWidth, t.MinHeight),
			Severity:    SeverityError,
			ActualValue: float64(m.Width * m.Height),
			Threshold:   float64(t.MinWidth * t.MinHeight),
		})
	}

	if m.ModuleSize > 0 && m.ModuleSize < t.MinModulePixels {
		issues = append(issues, QualityIssue{
			Type:        "small_module",
			Message:     "Modules are too small to sample reliably. Capture the symbol at a higher resolution.",
			Severity:    SeverityWarning,
			ActualValue: m.ModuleSize,
			Threshold:   t.MinModulePixels,
		})
	}

	if m.ModuleSize > 0 && m.ApertureDiameter > t.MaxApertureRatio*m.ModuleSize {
		issues = append(issues, QualityIssue{
			Type:        "aperture_too_large",
			Message:     "Measuring aperture is large relative to the module size; contrast metrics will read low.",
			Severity:    SeverityWarning,
			ActualValue: m.ApertureDiameter / m.ModuleSize,
			Threshold:   t.MaxApertureRatio,
		})
	}

	if m.SymbolContrast < t.MinSymbolContrast {
		issues = append(issues, QualityIssue{
			Type:        "low_contrast",
			Message:     "Symbol contrast is low. Check lighting and print density.",
			Severity:    SeverityWarning,
			ActualValue: m.SymbolContrast,
			Threshold:   t.MinSymbolContrast,
		})
	}

	if m.QuietOutside > 0 {
		issues = append(issues, QualityIssue{
			Type:        "quiet_zone_clipped",
			Message:     "The quiet zone extends past the image edge. Leave a margin around the symbol.",
			Severity:    SeverityWarning,
			ActualValue: float64(m.QuietOutside),
		})
	}

	if m.ThresholdAttempt > 1 {
		issues = append(issues, QualityIssue{
			Type:        "threshold_retry",
			Message:     fmt.Sprintf("Symbol was found on threshold attempt %d.", m.ThresholdAttempt),
			Severity:    SeverityInfo,
			ActualValue: float64(m.ThresholdAttempt),
		})
	}

	if m.Rotation != 0 {
		issues = append(issues, QualityIssue{
			Type:        "rotated",
			Message:     fmt.Sprintf("Symbol is rotated %d degrees.", m.Rotation),
			Severity:    SeverityInfo,
			ActualValue: float64(m.Rotation),
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if severityRank[issues[i].Severity] != severityRank[issues[j].Severity] {
			return severityRank[issues[i].Severity] < severityRank[issues[j].Severity]
		}
		return issues[i].Type < issues[j].Type
	})
	return issues
}

var severityRank = map[string]int{SeverityError: 0, SeverityWarning: 1, SeverityInfo: 2}

// ConvertIssuesToMessages converts issues to plain messages
func (cv *CaptureValidator) ConvertIssuesToMessages(issues []QualityIssue) []string {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (cv *CaptureValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
