package pipeline

import (
	"time"
)

// Config holds configuration for a replan run.
type Config struct {
	WorkerCount     int           // Number of concurrent workers
	MinObservations int           // Products with fewer sales days are skipped
	RetryAttempts   int           // Number of retries per product on failure
	RetryBackoff    time.Duration // Backoff duration between retries
	OutputDir       string        // Directory for run report CSVs
	ReportPrefix    string        // Object storage prefix for uploaded reports
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:     4,
		MinObservations: 2,
		RetryAttempts:   3,
		RetryBackoff:    5 * time.Second,
		OutputDir:       "data/reports/replan",
		ReportPrefix:    "reports/replan",
	}
}

// RunStatus represents the current state of a replan run.
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// ReplanRun tracks a single bulk recompute over the catalog.
type ReplanRun struct {
	ID                int64
	Status            RunStatus
	TotalProducts     int
	ProcessedProducts int
	SkippedProducts   int
	FailedProducts    int
	StartedAt         time.Time
	CompletedAt       *time.Time
	ErrorMessage      string
}

// ProductStatus represents the outcome for a single product.
type ProductStatus string

const (
	ProductOK      ProductStatus = "ok"
	ProductSkipped ProductStatus = "skipped"
	ProductFailed  ProductStatus = "failed"
)

// ProductResult is one row of the run report.
type ProductResult struct {
	Product      string
	Status       ProductStatus
	Observations int
	AvgDaily     float64
	SafetyStock  float64
	ReorderPoint float64
	OrderQty     float64
	Error        string
}
