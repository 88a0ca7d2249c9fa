package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Aperture sampling policies.
const (
	AperturePolicyDisc  = "disc"
	AperturePolicyPoint = "point"
)

// GradeThresholds are the minimum scores for grades A through D; anything
// below D is F.
type GradeThresholds struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
	D float64 `yaml:"d"`
}

// Calibration is the process-wide, read-only configuration shared by every
// verification run.
type Calibration struct {
	ApertureDiameter  float64         `yaml:"aperture_diameter"`
	AperturePolicy    string          `yaml:"aperture_policy"`
	MaxPixels         int             `yaml:"max_pixels"`
	MaxDimension      int             `yaml:"max_dimension"`
	LocatorAttempts   int             `yaml:"locator_attempts"`
	ReflectanceOffset float64         `yaml:"reflectance_offset"`
	PixelPitch        float64         `yaml:"pixel_pitch"`
	MetricWorkers     int             `yaml:"metric_workers"`
	Grades            GradeThresholds `yaml:"grades"`
}

// DefaultCalibration returns the calibration used when nothing is configured.
func DefaultCalibration() Calibration {
	return Calibration{
		ApertureDiameter: 5,
		AperturePolicy:   AperturePolicyDisc,
		MaxPixels:        25_000_000,
		MaxDimension:     8192,
		LocatorAttempts:  3,
		PixelPitch:       1,
		MetricWorkers:    4,
		Grades:           GradeThresholds{A: 0.90, B: 0.80, C: 0.70, D: 0.60},
	}
}

func calibrationFromEnv() Calibration {
	c := DefaultCalibration()
	c.ApertureDiameter = parseFloatOrDefault("APERTURE_DIAMETER", c.ApertureDiameter)
	c.AperturePolicy = strings.ToLower(getEnvOrDefault("APERTURE_POLICY", c.AperturePolicy))
	c.MaxPixels = int(parseIntOrDefault("MAX_PIXELS", int64(c.MaxPixels)))
	c.MaxDimension = int(parseIntOrDefault("MAX_DIMENSION", int64(c.MaxDimension)))
	c.LocatorAttempts = int(parseIntOrDefault("LOCATOR_ATTEMPTS", int64(c.LocatorAttempts)))
	c.ReflectanceOffset = parseFloatOrDefault("REFLECTANCE_OFFSET", c.ReflectanceOffset)
	c.PixelPitch = parseFloatOrDefault("PIXEL_PITCH", c.PixelPitch)
	c.MetricWorkers = int(parseIntOrDefault("METRIC_WORKERS", int64(c.MetricWorkers)))
	c.Grades.A = parseFloatOrDefault("GRADE_A", c.Grades.A)
	c.Grades.B = parseFloatOrDefault("GRADE_B", c.Grades.B)
	c.Grades.C = parseFloatOrDefault("GRADE_C", c.Grades.C)
	c.Grades.D = parseFloatOrDefault("GRADE_D", c.Grades.D)
	return c
}

// MergeFile overlays the non-zero values of a YAML calibration file.
func (c *Calibration) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read calibration file: %w", err)
	}
	return c.MergeYAML(data)
}

// MergeYAML overlays the non-zero values of a YAML document.
func (c *Calibration) MergeYAML(data []byte) error {
	var overlay Calibration
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse calibration: %w", err)
	}
	if overlay.ApertureDiameter != 0 {
		c.ApertureDiameter = overlay.ApertureDiameter
	}
	if overlay.AperturePolicy != "" {
		c.AperturePolicy = strings.ToLower(overlay.AperturePolicy)
	}
	if overlay.MaxPixels != 0 {
		c.MaxPixels = overlay.MaxPixels
	}
	if overlay.MaxDimension != 0 {
		c.MaxDimension = overlay.MaxDimension
	}
	if overlay.LocatorAttempts != 0 {
		c.LocatorAttempts = overlay.LocatorAttempts
	}
	if overlay.ReflectanceOffset != 0 {
		c.ReflectanceOffset = overlay.ReflectanceOffset
	}
	if overlay.PixelPitch != 0 {
		c.PixelPitch = overlay.PixelPitch
	}
	if overlay.MetricWorkers != 0 {
		c.MetricWorkers = overlay.MetricWorkers
	}
	if overlay.Grades != (GradeThresholds{}) {
		c.Grades = overlay.Grades
	}
	return nil
}

// Validate rejects calibrations the pipeline cannot run with.
func (c Calibration) Validate() error {
	if c.ApertureDiameter <= 0 {
		return fmt.Errorf("aperture diameter must be > 0 (got %g)", c.ApertureDiameter)
	}
	if c.AperturePolicy != AperturePolicyDisc && c.AperturePolicy != AperturePolicyPoint {
		return fmt.Errorf("unknown aperture policy %q", c.AperturePolicy)
	}
	if c.MaxPixels <= 0 || c.MaxDimension <= 0 {
		return fmt.Errorf("resolution bounds must be > 0 (got pixels=%d, dimension=%d)", c.MaxPixels, c.MaxDimension)
	}
	if c.LocatorAttempts < 1 || c.LocatorAttempts > 5 {
		return fmt.Errorf("locator attempts must be between 1 and 5 (got %d)", c.LocatorAttempts)
	}
	if c.ReflectanceOffset < -1 || c.ReflectanceOffset > 1 {
		return fmt.Errorf("reflectance offset must be within [-1, 1] (got %g)", c.ReflectanceOffset)
	}
	if c.PixelPitch <= 0 {
		return fmt.Errorf("pixel pitch must be > 0 (got %g)", c.PixelPitch)
	}
	if c.MetricWorkers < 1 {
		return fmt.Errorf("metric workers must be >= 1 (got %d)", c.MetricWorkers)
	}
	g := c.Grades
	if !(g.A <= 1 && g.A > g.B && g.B > g.C && g.C > g.D && g.D > 0) {
		return fmt.Errorf("grade thresholds must satisfy 1 >= A > B > C > D > 0 (got %+v)", g)
	}
	return nil
}

// Fingerprint is a stable textual form of the calibration, folded into report checksums.
func (c Calibration) Fingerprint() string {
	return fmt.Sprintf("aperture=%g/%s;limits=%d/%d;attempts=%d;offset=%g;pitch=%g;grades=%g/%g/%g/%g",
		c.ApertureDiameter, c.AperturePolicy, c.MaxPixels, c.MaxDimension, c.LocatorAttempts,
		c.ReflectanceOffset, c.PixelPitch, c.Grades.A, c.Grades.B, c.Grades.C, c.Grades.D)
}
