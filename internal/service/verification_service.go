package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/hri"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/observer"
	"github.com/Suryanandx/2d-code-verifier/internal/repository"
	"github.com/Suryanandx/2d-code-verifier/internal/storage"
	"github.com/Suryanandx/2d-code-verifier/internal/symbology"
	"github.com/Suryanandx/2d-code-verifier/internal/verifier"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
	"github.com/Suryanandx/2d-code-verifier/pkg/validation"
)

// Record sources
const (
	SourceUpload = "upload"
	SourceURL    = "url"
)

// VerificationService verifies images and keeps the resulting records
type VerificationService interface {
	// VerifyUpload verifies image bytes received directly from a client.
	VerifyUpload(ctx context.Context, image []byte, hint string) (*models.ReportRecord, error)

	// VerifyURL fetches a remote image and verifies it.
	VerifyURL(ctx context.Context, imageURL string, hint string) (*models.ReportRecord, error)

	GetReport(ctx context.Context, id string) (*models.ReportRecord, error)
	ListReports(ctx context.Context, limit int) ([]models.ReportSummary, error)

	// ArchivedImage returns the original bytes of a verified image when archiving is enabled.
	ArchivedImage(ctx context.Context, id string) ([]byte, error)
}

// Dependencies are the collaborators of the service. Archive, HRI and Events may be nil.
type Dependencies struct {
	Verifier        *verifier.Verifier
	Repository      repository.ReportRepository
	Fetcher         storage.ImageFetcher
	Archive         storage.Archive
	URLValidator    *validation.URLValidator
	HRI             *hri.Checker
	Events          observer.Subject
	AnalysisTimeout time.Duration
	NewID           repository.IDGenerator
}

type verificationService struct {
	deps Dependencies
}

// NewVerificationService creates a new verification service
func NewVerificationService(deps Dependencies) VerificationService {
	if deps.URLValidator == nil {
		deps.URLValidator = validation.NewURLValidator()
	}
	if deps.NewID == nil {
		deps.NewID = repository.NewV7
	}
	return &verificationService{deps: deps}
}

func (s *verificationService) VerifyUpload(ctx context.Context, image []byte, hint string) (*models.ReportRecord, error) {
	if len(image) == 0 {
		return nil, apperrors.NewValidationError("image is empty", nil)
	}
	return s.verify(ctx, image, hint, SourceUpload)
}

func (s *verificationService) VerifyURL(ctx context.Context, imageURL string, hint string) (*models.ReportRecord, error) {
	if err := s.deps.URLValidator.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}
	if _, err := symbology.Parse(hint); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := s.deps.Fetcher.FetchImage(ctx, imageURL)
	if err != nil {
		s.notify(ctx, observer.VerificationEvent{
			EventType:      observer.ImageFetchFailed,
			Source:         imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		var appErr *apperrors.AppError
		switch {
		case errors.As(err, &appErr):
			return nil, err
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewTimeoutError("Image fetch timeout", err)
		default:
			return nil, apperrors.NewNetworkError("Failed to fetch image", err)
		}
	}
	s.notify(ctx, observer.VerificationEvent{
		EventType:      observer.ImageFetched,
		Source:         imageURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"bytes": len(data)},
	})
	return s.verify(ctx, data, hint, imageURL)
}

func (s *verificationService) verify(ctx context.Context, image []byte, hint, source string) (*models.ReportRecord, error) {
	sym, err := symbology.Parse(hint)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	s.notify(ctx, observer.VerificationEvent{EventType: observer.VerificationStarted, Source: source})

	runCtx := ctx
	if s.deps.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.deps.AnalysisTimeout)
		defer cancel()
	}
	rep, err := s.deps.Verifier.Verify(runCtx, image, sym)
	if err != nil {
		s.notify(ctx, observer.VerificationEvent{
			EventType:      observer.VerificationFailed,
			Source:         source,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	rec := &models.ReportRecord{ID: s.deps.NewID(), Source: source, Report: rep}
	if s.deps.HRI != nil {
		rec.HRI = s.deps.HRI.Check(ctx, image, rep)
	}
	if s.deps.Archive != nil {
		key, err := s.deps.Archive.Put(ctx, storage.ArchiveKey(rec.ID, image), image)
		if err != nil {
			logger.WithError(err).WithField("report_id", rec.ID).Warn("Failed to archive image")
		} else {
			rec.ArchiveKey = key
		}
	}

	if err := s.deps.Repository.Save(ctx, rec); err != nil {
		return nil, apperrors.NewInternalError("failed to store report", err)
	}

	elapsed := time.Since(start)
	s.notify(ctx, observer.VerificationEvent{
		EventType:      observer.VerificationCompleted,
		ReportID:       rec.ID,
		Source:         source,
		Symbology:      rep.Symbology,
		Grade:          rep.OverallGrade,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata: map[string]interface{}{
			"decoded":  rep.Decode.Succeeded,
			"checksum": rep.Checksum,
		},
	})
	s.notify(ctx, observer.VerificationEvent{EventType: observer.ReportStored, ReportID: rec.ID, Success: true})

	logger.WithFields(logrus.Fields{
		"report_id": rec.ID,
		"grade":     rep.OverallGrade,
		"archived":  rec.ArchiveKey != "",
		"hri":       rec.HRI != nil,
	}).Debug("Verification record saved")
	return rec, nil
}

func (s *verificationService) GetReport(ctx context.Context, id string) (*models.ReportRecord, error) {
	rec, err := s.deps.Repository.Get(ctx, id)
	if errors.Is(err, repository.ErrReportNotFound) {
		return nil, apperrors.NewNotFoundError("report not found", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load report", err)
	}
	return rec, nil
}

func (s *verificationService) ListReports(ctx context.Context, limit int) ([]models.ReportSummary, error) {
	list, err := s.deps.Repository.List(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list reports", err)
	}
	return list, nil
}

func (s *verificationService) ArchivedImage(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.deps.Archive == nil || rec.ArchiveKey == "" {
		return nil, apperrors.NewNotFoundError("image not archived", storage.ErrNotArchived)
	}
	data, err := s.deps.Archive.Get(ctx, rec.ArchiveKey)
	if errors.Is(err, storage.ErrNotArchived) {
		return nil, apperrors.NewNotFoundError("image not archived", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read archived image", err)
	}
	return data, nil
}

func (s *verificationService) notify(ctx context.Context, event observer.VerificationEvent) {
	if s.deps.Events != nil {
		s.deps.Events.NotifyObservers(ctx, event)
	}
}
