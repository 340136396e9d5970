package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// RunTracker persists replan run state. The SQL implementation backs
// server-side runs; the in-memory one serves offline CLI runs where no
// database is configured.
type RunTracker interface {
	CreateRun(ctx context.Context, run *ReplanRun) error
	UpdateRun(ctx context.Context, run *ReplanRun) error
	GetRun(ctx context.Context, id int64) (*ReplanRun, error)
	GetLatestRun(ctx context.Context) (*ReplanRun, error)
	RecordOutcome(ctx context.Context, runID int64, status ProductStatus) error
}

// SQLRunTracker stores runs in the replan_runs table.
type SQLRunTracker struct {
	db *sql.DB
}

func NewSQLRunTracker(db *sql.DB) *SQLRunTracker {
	return &SQLRunTracker{db: db}
}

func (r *SQLRunTracker) CreateRun(ctx context.Context, run *ReplanRun) error {
	query := `
		INSERT INTO replan_runs (
			status, total_products, processed_products,
			skipped_products, failed_products, started_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	return r.db.QueryRowContext(
		ctx, query,
		run.Status, run.TotalProducts, run.ProcessedProducts,
		run.SkippedProducts, run.FailedProducts, run.StartedAt,
	).Scan(&run.ID)
}

func (r *SQLRunTracker) UpdateRun(ctx context.Context, run *ReplanRun) error {
	query := `
		UPDATE replan_runs
		SET status = $1, total_products = $2, completed_at = $3, error_message = $4
		WHERE id = $5
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.TotalProducts, run.CompletedAt, run.ErrorMessage, run.ID,
	)
	return err
}

func (r *SQLRunTracker) GetRun(ctx context.Context, id int64) (*ReplanRun, error) {
	query := `
		SELECT id, status, total_products, processed_products,
		       skipped_products, failed_products, started_at, completed_at, error_message
		FROM replan_runs
		WHERE id = $1
	`
	return r.scanRun(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLRunTracker) GetLatestRun(ctx context.Context) (*ReplanRun, error) {
	query := `
		SELECT id, status, total_products, processed_products,
		       skipped_products, failed_products, started_at, completed_at, error_message
		FROM replan_runs
		ORDER BY started_at DESC
		LIMIT 1
	`
	run, err := r.scanRun(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (r *SQLRunTracker) scanRun(row *sql.Row) (*ReplanRun, error) {
	run := &ReplanRun{}
	err := row.Scan(
		&run.ID, &run.Status, &run.TotalProducts, &run.ProcessedProducts,
		&run.SkippedProducts, &run.FailedProducts,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RecordOutcome atomically bumps the counter for one product outcome, so
// concurrent workers never lose updates.
func (r *SQLRunTracker) RecordOutcome(ctx context.Context, runID int64, status ProductStatus) error {
	var column string
	switch status {
	case ProductOK:
		column = "processed_products"
	case ProductSkipped:
		column = "skipped_products"
	case ProductFailed:
		column = "failed_products"
	default:
		return nil
	}

	query := `UPDATE replan_runs SET ` + column + ` = ` + column + ` + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, runID)
	return err
}

// MemoryRunTracker keeps runs in memory for offline and test use.
type MemoryRunTracker struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]*ReplanRun
}

func NewMemoryRunTracker() *MemoryRunTracker {
	return &MemoryRunTracker{runs: make(map[int64]*ReplanRun)}
}

func (m *MemoryRunTracker) CreateRun(ctx context.Context, run *ReplanRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	run.ID = m.nextID
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

func (m *MemoryRunTracker) UpdateRun(ctx context.Context, run *ReplanRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.runs[run.ID]
	if !ok {
		return errors.New("run not found")
	}
	stored.Status = run.Status
	stored.TotalProducts = run.TotalProducts
	stored.CompletedAt = run.CompletedAt
	stored.ErrorMessage = run.ErrorMessage
	return nil
}

func (m *MemoryRunTracker) GetRun(ctx context.Context, id int64) (*ReplanRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.runs[id]
	if !ok {
		return nil, errors.New("run not found")
	}
	copied := *stored
	return &copied, nil
}

func (m *MemoryRunTracker) GetLatestRun(ctx context.Context) (*ReplanRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *ReplanRun
	for _, run := range m.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *MemoryRunTracker) RecordOutcome(ctx context.Context, runID int64, status ProductStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.runs[runID]
	if !ok {
		return errors.New("run not found")
	}
	switch status {
	case ProductOK:
		stored.ProcessedProducts++
	case ProductSkipped:
		stored.SkippedProducts++
	case ProductFailed:
		stored.FailedProducts++
	}
	return nil
}

// completeRun stamps a terminal status on a run.
func completeRun(run *ReplanRun, status RunStatus, errMsg string) {
	run.Status = status
	run.ErrorMessage = errMsg
	now := time.Now()
	run.CompletedAt = &now
}
