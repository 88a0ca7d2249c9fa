package models

import "time"

// AnalyzeURLRequest asks the service to fetch and verify a remote image.
type AnalyzeURLRequest struct {
	URL       string `json:"url" binding:"required,url"`
	Symbology string `json:"symbology,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ReportRecord is a stored verification: the report plus bookkeeping that
// must stay outside the deterministic report.
type ReportRecord struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	Source     string        `json:"source,omitempty"`
	ArchiveKey string        `json:"archive_key,omitempty"`
	Report     *SymbolReport `json:"report"`
	HRI        *HRIResult    `json:"hri,omitempty"`
}

// AnalysisResponse is the HTTP response for a verification.
type AnalysisResponse struct {
	ID                string             `json:"id"`
	CreatedAt         time.Time          `json:"created_at"`
	ProcessingTimeSec float64            `json:"processing_time_sec"`
	Grade             Grade              `json:"grade"`
	Scores            map[string]float64 `json:"scores"`
	DecodedData       *string            `json:"decoded_data"`
	Size              [2]int             `json:"size"`
	ScanLine          []ScanLinePoint    `json:"scan_line"`
	Report            *SymbolReport      `json:"report"`
	HRI               *HRIResult         `json:"hri,omitempty"`
}

// NewAnalysisResponse flattens a record into the response shape.
func NewAnalysisResponse(rec *ReportRecord, elapsed time.Duration) *AnalysisResponse {
	return &AnalysisResponse{
		ID:                rec.ID,
		CreatedAt:         rec.CreatedAt,
		ProcessingTimeSec: elapsed.Seconds(),
		Grade:             rec.Report.OverallGrade,
		Scores:            rec.Report.Scores(),
		DecodedData:       rec.Report.DecodedData,
		Size:              [2]int{rec.Report.Image.Width, rec.Report.Image.Height},
		ScanLine:          rec.Report.ScanLine,
		Report:            rec.Report,
		HRI:               rec.HRI,
	}
}

// ReportSummary is one row of the report listing.
type ReportSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Symbology   string    `json:"symbology"`
	Grade       Grade     `json:"grade"`
	DecodedData *string   `json:"decoded_data"`
	Source      string    `json:"source,omitempty"`
}
