package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// MemoryRepository keeps records in process memory. It is used when no
// database path is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*models.ReportRecord
	closed  bool
	newID   IDGenerator
	now     func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*models.ReportRecord),
		newID:   NewV7,
		now:     time.Now,
	}
}

func (r *MemoryRepository) Save(ctx context.Context, rec *models.ReportRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRepositoryUnavailable
	}
	if err := prepare(rec, r.newID, r.now); err != nil {
		return err
	}
	stored := *rec
	r.records[rec.ID] = &stored
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.ReportRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRepositoryUnavailable
	}
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	out := *rec
	return &out, nil
}

func (r *MemoryRepository) List(ctx context.Context, limit int) ([]models.ReportSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRepositoryUnavailable
	}

	all := make([]models.ReportSummary, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, summarize(rec))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
