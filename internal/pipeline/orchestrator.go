package pipeline

import (
	"context"
	"fmt"

	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
	"github.com/novamart/novamart-dashboard/backend-go/internal/storage"
)

// Orchestrator wires one replan run together: product list, worker pool,
// run tracking and the run report.
type Orchestrator struct {
	cfg     Config
	tracker RunTracker
	source  repository.DemandSource
	sink    RecommendationSink
	store   storage.ObjectStorage
	resolve PolicyResolver
}

// NewOrchestrator creates an orchestrator. store may be nil when reports
// should stay local only.
func NewOrchestrator(cfg Config, tracker RunTracker, source repository.DemandSource, sink RecommendationSink, store storage.ObjectStorage, resolve PolicyResolver) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		tracker: tracker,
		source:  source,
		sink:    sink,
		store:   store,
		resolve: resolve,
	}
}

// Run recomputes policies for the given products, or the whole catalog when
// products is empty. Returns the finished run and the report path.
func (o *Orchestrator) Run(ctx context.Context, products []string) (*ReplanRun, string, error) {
	if len(products) == 0 {
		all, err := o.source.ListProductNames(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list products: %w", err)
		}
		products = all
	}

	report := NewReportWriter(o.cfg, o.store)
	worker := NewWorker(o.cfg, o.tracker, o.source, o.sink, o.resolve, report)

	run, err := worker.ProcessBatch(ctx, products)
	if err != nil {
		return run, "", err
	}

	reportPath, err := report.Finalize(ctx)
	if err != nil {
		return run, "", err
	}

	return run, reportPath, nil
}

// LatestRun exposes the most recent run for status endpoints.
func (o *Orchestrator) LatestRun(ctx context.Context) (*ReplanRun, error) {
	return o.tracker.GetLatestRun(ctx)
}
