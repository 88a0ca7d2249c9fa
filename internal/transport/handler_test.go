package transport

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suryanandx/2d-code-verifier/internal/config"
	"github.com/Suryanandx/2d-code-verifier/internal/datamatrix"
	"github.com/Suryanandx/2d-code-verifier/internal/observer"
	"github.com/Suryanandx/2d-code-verifier/internal/repository"
	"github.com/Suryanandx/2d-code-verifier/internal/service"
	"github.com/Suryanandx/2d-code-verifier/internal/storage"
	"github.com/Suryanandx/2d-code-verifier/internal/testimage"
	"github.com/Suryanandx/2d-code-verifier/internal/verifier"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestHandler(t *testing.T, maxBody int64) http.Handler {
	t.Helper()
	v, err := verifier.New(config.DefaultCalibration())
	require.NoError(t, err)
	archive, err := storage.NewLocalArchive(t.TempDir())
	require.NoError(t, err)

	counters := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(counters)

	svc := service.NewVerificationService(service.Dependencies{
		Verifier:   v,
		Repository: repository.NewMemoryRepository(),
		Fetcher:    storage.NewHTTPImageFetcher(),
		Archive:    archive,
		Events:     events,
	})
	cfg := &config.Config{RequestTimeout: 10 * time.Second, MaxRequestBodySize: maxBody}
	return NewHandler(svc, cfg, counters.GetMetrics)
}

func symbolPNG(t *testing.T) []byte {
	t.Helper()
	modules, err := datamatrix.Encode("HTTP-TEST")
	require.NoError(t, err)
	return testimage.PNG(testimage.Matrix(modules, 8, 2))
}

func uploadRequest(t *testing.T, data []byte, hint string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "symbol.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	if hint != "" {
		require.NoError(t, w.WriteField("symbology", hint))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze_image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeImageAndFollowUpRoutes(t *testing.T) {
	h := newTestHandler(t, 10<<20)
	data := symbolPNG(t)

	resp := serve(h, uploadRequest(t, data, "datamatrix"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out models.AnalysisResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, models.GradeA, out.Grade)
	require.NotNil(t, out.DecodedData)
	assert.Equal(t, "HTTP-TEST", *out.DecodedData)
	assert.Equal(t, [2]int{out.Report.Image.Width, out.Report.Image.Height}, out.Size)
	assert.Contains(t, out.Scores, models.MetricSymbolContrast)
	assert.NotEmpty(t, out.ScanLine)
	assert.Equal(t, out.Report.ScanLine, out.ScanLine)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &top))
	assert.Contains(t, top, "scan_line")

	resp = serve(h, httptest.NewRequest(http.MethodGet, "/reports/"+out.ID, nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var stored models.ReportRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stored))
	assert.Equal(t, out.Report.Checksum, stored.Report.Checksum)

	resp = serve(h, httptest.NewRequest(http.MethodGet, "/reports/"+out.ID+"/scan_line.png", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))

	resp = serve(h, httptest.NewRequest(http.MethodGet, "/reports/"+out.ID+"/chart", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "echarts")

	resp = serve(h, httptest.NewRequest(http.MethodGet, "/reports/"+out.ID+"/image", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, data, resp.Body.Bytes())

	resp = serve(h, httptest.NewRequest(http.MethodGet, "/reports?limit=5", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Reports []models.ReportSummary `json:"reports"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, out.ID, list.Reports[0].ID)
}

func TestAnalyzeImageErrors(t *testing.T) {
	h := newTestHandler(t, 10<<20)

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"missing file", httptest.NewRequest(http.MethodPost, "/analyze_image", strings.NewReader("")), http.StatusBadRequest},
		{"bad hint", uploadRequest(t, symbolPNG(t), "qr"), http.StatusBadRequest},
		{"not an image", uploadRequest(t, []byte("plain text"), ""), http.StatusBadRequest},
		{"no symbol", uploadRequest(t, testimage.PNG(testimage.Uniform(120, 120, 128)), ""), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(h, tt.req)
			assert.Equal(t, tt.code, resp.Code, resp.Body.String())

			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
			assert.Equal(t, http.StatusText(tt.code), errResp.Error)
		})
	}
}

func TestAnalyzeURLValidation(t *testing.T) {
	h := newTestHandler(t, 10<<20)

	req := httptest.NewRequest(http.MethodPost, "/analyze_url", strings.NewReader(`{"url":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/analyze_url", strings.NewReader(`{"url":"https://example.com/file.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(h, req).Code)
}

func TestRequestTooLarge(t *testing.T) {
	h := newTestHandler(t, 16)
	req := httptest.NewRequest(http.MethodPost, "/analyze_url",
		strings.NewReader(`{"url":"https://example.com/a-rather-long-image-name.png"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(h, req).Code)
}

func TestReportRoutesNotFound(t *testing.T) {
	h := newTestHandler(t, 10<<20)
	for _, path := range []string{"/reports/unknown", "/reports/unknown/chart", "/reports/unknown/scan_line.png", "/reports/unknown/image"} {
		assert.Equal(t, http.StatusNotFound, serve(h, httptest.NewRequest(http.MethodGet, path, nil)).Code, path)
	}
	assert.Equal(t, http.StatusBadRequest, serve(h, httptest.NewRequest(http.MethodGet, "/reports?limit=zero", nil)).Code)
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(t, 10<<20)
	resp := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "available", body["status"])
	assert.Contains(t, body, "stats")
}
