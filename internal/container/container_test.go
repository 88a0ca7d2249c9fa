package container

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Suryanandx/2d-code-verifier/internal/config"
	"github.com/Suryanandx/2d-code-verifier/internal/datamatrix"
	"github.com/Suryanandx/2d-code-verifier/internal/metrics"
	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
	"github.com/Suryanandx/2d-code-verifier/internal/testimage"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "0",
		RequestTimeout:     5 * time.Second,
		ImageFetchTimeout:  5 * time.Second,
		AnalysisTimeout:    5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		DBPath:             filepath.Join(t.TempDir(), "reports.db"),
		ArchiveDir:         t.TempDir(),
		Calibration:        config.DefaultCalibration(),
	}
}

func TestNewContainer(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	defer c.Close()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health returned %d", rec.Code)
	}
	if c.Service() == nil || c.Config() == nil {
		t.Error("container accessors returned nil")
	}

	var body struct {
		Stats map[string]json.RawMessage `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if _, ok := body.Stats["total_verifications"]; !ok {
		t.Errorf("health stats missing event counters: %s", rec.Body.String())
	}
	var jobs metrics.EngineStats
	if err := json.Unmarshal(body.Stats["metric_jobs"], &jobs); err != nil {
		t.Fatalf("decode metric_jobs: %v", err)
	}
	if jobs.Measurements != 0 {
		t.Errorf("fresh container reports %d measurements", jobs.Measurements)
	}
}

func TestContainerStatsFollowVerifications(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	defer c.Close()

	modules, err := datamatrix.Encode("CONTAINER")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.verifier.Verify(context.Background(), testimage.PNG(testimage.Matrix(modules, 8, 2)), symbology.Auto); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	jobs, ok := c.stats()["metric_jobs"].(metrics.EngineStats)
	if !ok {
		t.Fatalf("metric_jobs has type %T", c.stats()["metric_jobs"])
	}
	if jobs.Measurements != 1 || jobs.Jobs == 0 || jobs.Jobs != jobs.CompletedJobs {
		t.Errorf("unexpected pool totals %+v", jobs)
	}
}

func TestNewContainerRejectsBadCalibration(t *testing.T) {
	cfg := testConfig(t)
	cfg.Calibration.Grades.B = 0.95
	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for an invalid calibration")
	}
}
