package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 20

// ReportRepository stores verification records. Reports inside a record are
// treated as immutable; implementations never modify them.
type ReportRepository interface {
	// Save assigns an ID when the record has none and stamps CreatedAt when it is zero.
	Save(ctx context.Context, rec *models.ReportRecord) error

	// Get returns ErrReportNotFound for unknown ids.
	Get(ctx context.Context, id string) (*models.ReportRecord, error)

	// List returns the newest records first.
	List(ctx context.Context, limit int) ([]models.ReportSummary, error)

	Close() error
}

// IDGenerator produces record ids.
type IDGenerator func() string

// NewV7 returns time-ordered UUIDv7 ids, so lexical order follows creation order.
func NewV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// prepare fills the bookkeeping fields of rec before it is stored.
func prepare(rec *models.ReportRecord, newID IDGenerator, now func() time.Time) error {
	if rec == nil || rec.Report == nil {
		return ErrInvalidRecord
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now().UTC()
	}
	return nil
}

func summarize(rec *models.ReportRecord) models.ReportSummary {
	return models.ReportSummary{
		ID:          rec.ID,
		CreatedAt:   rec.CreatedAt,
		Symbology:   rec.Report.Symbology,
		Grade:       rec.Report.OverallGrade,
		DecodedData: rec.Report.DecodedData,
		Source:      rec.Source,
	}
}
