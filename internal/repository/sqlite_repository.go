package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository stores records in a SQLite database. The full report is
// kept as JSON; metric rows are denormalized for querying.
type SQLiteRepository struct {
	db    *sql.DB
	newID IDGenerator
	now   func() time.Time
}

// NewSQLiteRepository opens (or creates) the database at path and migrates it.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db, newID: NewV7, now: time.Now}, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, rec *models.ReportRecord) error {
	if err := prepare(rec, r.newID, r.now); err != nil {
		return err
	}
	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	var hriJSON sql.NullString
	if rec.HRI != nil {
		b, err := json.Marshal(rec.HRI)
		if err != nil {
			return fmt.Errorf("encode hri: %w", err)
		}
		hriJSON = sql.NullString{String: string(b), Valid: true}
	}
	var decoded sql.NullString
	if rec.Report.DecodedData != nil {
		decoded = sql.NullString{String: *rec.Report.DecodedData, Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, created_at, checksum, symbology, grade, decoded_data, source, archive_key, report_json, hri_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UTC().Format(timeLayout), rec.Report.Checksum, rec.Report.Symbology,
		string(rec.Report.OverallGrade), decoded, rec.Source, rec.ArchiveKey, string(reportJSON), hriJSON,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_metrics (report_id, position, name, raw_value, score, grade)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare metric insert: %w", err)
	}
	defer stmt.Close()
	for i, m := range rec.Report.Metrics {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, m.Name, m.RawValue, m.Score, string(m.Grade)); err != nil {
			return fmt.Errorf("insert metric %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.ReportRecord, error) {
	var (
		rec        models.ReportRecord
		createdAt  string
		reportJSON string
		hriJSON    sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, archive_key, report_json, hri_json
		FROM reports WHERE id = ?`, id,
	).Scan(&rec.ID, &createdAt, &rec.Source, &rec.ArchiveKey, &reportJSON, &hriJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}

	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", id, err)
	}
	rec.Report = &models.SymbolReport{}
	if err := json.Unmarshal([]byte(reportJSON), rec.Report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	if hriJSON.Valid {
		rec.HRI = &models.HRIResult{}
		if err := json.Unmarshal([]byte(hriJSON.String), rec.HRI); err != nil {
			return nil, fmt.Errorf("decode hri %s: %w", id, err)
		}
	}
	return &rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, symbology, grade, decoded_data, source
		FROM reports ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]models.ReportSummary, 0, limit)
	for rows.Next() {
		var (
			s         models.ReportSummary
			createdAt string
			grade     string
			decoded   sql.NullString
		)
		if err := rows.Scan(&s.ID, &createdAt, &s.Symbology, &grade, &decoded, &s.Source); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		if s.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", s.ID, err)
		}
		s.Grade = models.Grade(grade)
		if decoded.Valid {
			v := decoded.String
			s.DecodedData = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
