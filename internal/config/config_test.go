package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.Equal(t, 20*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, DefaultCalibration(), cfg.Calibration)
	assert.False(t, cfg.HRICheck)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOCATOR_ATTEMPTS", "5")
	t.Setenv("APERTURE_POLICY", "POINT")
	t.Setenv("ALLOWED_IMAGE_HOSTS", "cdn.example.com, img.example.com")
	t.Setenv("HRI_CHECK", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.Calibration.LocatorAttempts)
	assert.Equal(t, AperturePolicyPoint, cfg.Calibration.AperturePolicy)
	assert.Equal(t, []string{"cdn.example.com", "img.example.com"}, cfg.AllowedImageHosts)
	assert.True(t, cfg.HRICheck)
}

func TestLoadFromEnvRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "PORT", "http"},
		{"attempts", "LOCATOR_ATTEMPTS", "9"},
		{"policy", "APERTURE_POLICY", "square"},
		{"grades", "GRADE_B", "0.95"},
		{"azure without key", "AZURE_STORAGE_ACCOUNT", "acct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestCalibrationFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	doc := []byte("aperture_diameter: 7.5\nlocator_attempts: 4\ngrades:\n  a: 0.95\n  b: 0.85\n  c: 0.75\n  d: 0.65\n")
	require.NoError(t, os.WriteFile(path, doc, 0o600))
	t.Setenv("CALIBRATION_FILE", path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 7.5, cfg.Calibration.ApertureDiameter)
	assert.Equal(t, 4, cfg.Calibration.LocatorAttempts)
	assert.Equal(t, AperturePolicyDisc, cfg.Calibration.AperturePolicy)
	assert.Equal(t, GradeThresholds{A: 0.95, B: 0.85, C: 0.75, D: 0.65}, cfg.Calibration.Grades)
}

func TestFingerprintChangesWithCalibration(t *testing.T) {
	a := DefaultCalibration()
	b := DefaultCalibration()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.ApertureDiameter = 3
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
