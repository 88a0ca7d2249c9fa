package repository

import "errors"

var (
	// ErrReportNotFound indicates no record exists for the requested id
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidRecord indicates a record without a report was passed to Save
	ErrInvalidRecord = errors.New("invalid report record")

	// ErrRepositoryUnavailable indicates the repository has been closed
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
