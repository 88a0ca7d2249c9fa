package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Suryanandx/2d-code-verifier/internal/chart"
	"github.com/Suryanandx/2d-code-verifier/internal/config"
	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/service"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

const (
	version      = "1.0.0"
	maxListLimit = 100
)

// StatsFunc reports service counters for the health endpoint.
type StatsFunc func() map[string]interface{}

type handler struct {
	svc   service.VerificationService
	cfg   *config.Config
	stats StatsFunc
}

func NewHandler(svc service.VerificationService, cfg *config.Config, stats StatsFunc) http.Handler {
	h := &handler{svc: svc, cfg: cfg, stats: stats}
	r := gin.Default()

	// Add middleware
	r.Use(requestSizeLimiter(cfg.MaxRequestBodySize))

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.POST("/analyze_image", h.analyzeImage)
	r.POST("/analyze_url", h.analyzeURL)
	r.GET("/reports", h.listReports)
	r.GET("/reports/:id", h.getReport)
	r.GET("/reports/:id/scan_line.png", h.scanLine)
	r.GET("/reports/:id/chart", h.scoreChart)
	r.GET("/reports/:id/image", h.archivedImage)

	return r
}

func (h *handler) analyzeImage(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logRequest(c, "Processing image upload")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "missing multipart field \"file\"", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable upload", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable upload", err)
		return
	}

	rec, err := h.svc.VerifyUpload(ctx, data, c.PostForm("symbology"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "verification failed", err)
		return
	}
	h.respondRecord(c, rec, startTime, fileHeader.Filename)
}

func (h *handler) analyzeURL(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logRequest(c, "Processing image URL verification")

	var req models.AnalyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, "request too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	rec, err := h.svc.VerifyURL(ctx, req.URL, req.Symbology)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "verification failed", err)
		return
	}
	h.respondRecord(c, rec, startTime, req.URL)
}

func (h *handler) respondRecord(c *gin.Context, rec *models.ReportRecord, startTime time.Time, source string) {
	duration := time.Since(startTime)
	logger.WithFields(logrus.Fields{
		"report_id":          rec.ID,
		"source":             source,
		"symbology":          rec.Report.Symbology,
		"grade":              rec.Report.OverallGrade,
		"decoded":            rec.Report.Decode.Succeeded,
		"processing_time_ms": duration.Milliseconds(),
	}).Info("Verification completed successfully")

	c.JSON(http.StatusOK, models.NewAnalysisResponse(rec, duration))
}

func (h *handler) listReports(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, http.StatusBadRequest, "invalid limit", fmt.Errorf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = min(n, maxListLimit)
	}

	list, err := h.svc.ListReports(c.Request.Context(), limit)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list, "count": len(list)})
}

func (h *handler) getReport(c *gin.Context) {
	rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) scanLine(c *gin.Context) {
	rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	data, err := chart.ScanLinePNG(rec.Report)
	if err != nil {
		respondError(c, chartStatus(err), "failed to render scan line", err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (h *handler) scoreChart(c *gin.Context) {
	rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	data, err := chart.ScoresHTML(rec.Report, fmt.Sprintf("report %s, %s", rec.ID, rec.CreatedAt.Format(time.RFC3339)))
	if err != nil {
		respondError(c, chartStatus(err), "failed to render chart", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

func (h *handler) archivedImage(c *gin.Context) {
	data, err := h.svc.ArchivedImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to load image", err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func (h *handler) loadRecord(c *gin.Context) (*models.ReportRecord, bool) {
	rec, err := h.svc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to load report", err)
		return nil, false
	}
	return rec, true
}

func (h *handler) healthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "available",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if h.stats != nil {
		body["stats"] = h.stats()
	}
	c.JSON(http.StatusOK, body)
}

func chartStatus(err error) int {
	if errors.Is(err, chart.ErrNoData) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func logRequest(c *gin.Context, msg string) {
	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info(msg)
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	fields := logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}
	var pe *apperrors.PipelineError
	if errors.As(err, &pe) {
		fields["kind"] = pe.Kind
		fields["stage"] = pe.Stage
	}
	entry := logger.WithError(err).WithFields(fields)
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
