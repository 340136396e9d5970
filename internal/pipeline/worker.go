package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-dashboard/backend-go/internal/demand"
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
	"github.com/novamart/novamart-dashboard/backend-go/internal/stockopt"
)

// RecommendationSink receives the recommendations a run produces.
type RecommendationSink interface {
	SaveRecommendation(ctx context.Context, rec *domain.StockPolicyRecommendation) error
}

// NopSink discards recommendations. Offline runs that only want the report
// use it in place of a database.
type NopSink struct{}

func (NopSink) SaveRecommendation(ctx context.Context, rec *domain.StockPolicyRecommendation) error {
	return nil
}

// PolicyResolver returns the replenishment parameters to use for a product.
type PolicyResolver func(product string) domain.PolicyParams

// Worker recomputes stock policies for a batch of products using a pool of
// goroutines. Individual product failures are recorded and do not stop the
// run; only infrastructure errors (cancelled context, tracker writes) do.
type Worker struct {
	cfg     Config
	tracker RunTracker
	source  repository.DemandSource
	sink    RecommendationSink
	engine  *stockopt.Engine
	resolve PolicyResolver
	report  *ReportWriter
}

func NewWorker(cfg Config, tracker RunTracker, source repository.DemandSource, sink RecommendationSink, resolve PolicyResolver, report *ReportWriter) *Worker {
	return &Worker{
		cfg:     cfg,
		tracker: tracker,
		source:  source,
		sink:    sink,
		engine:  stockopt.NewEngine(),
		resolve: resolve,
		report:  report,
	}
}

// ProcessBatch runs the recompute for the given products and returns the
// finished run with final counters.
func (w *Worker) ProcessBatch(ctx context.Context, products []string) (*ReplanRun, error) {
	log.Info().Int("products", len(products)).Msg("replan: starting batch")

	run := &ReplanRun{
		Status:        StatusPending,
		TotalProducts: len(products),
		StartedAt:     time.Now(),
	}
	if err := w.tracker.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create replan run: %w", err)
	}

	run.Status = StatusProcessing
	if err := w.tracker.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update replan run: %w", err)
	}

	if err := w.processProductsParallel(ctx, run, products); err != nil {
		completeRun(run, StatusFailed, err.Error())
		w.tracker.UpdateRun(ctx, run)
		return run, err
	}

	completeRun(run, StatusCompleted, "")
	if err := w.tracker.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to complete replan run: %w", err)
	}

	// Counters were bumped tracker-side by concurrent workers; refresh the
	// struct before reporting them.
	final, err := w.tracker.GetRun(ctx, run.ID)
	if err != nil {
		return run, nil
	}

	log.Info().
		Int("processed", final.ProcessedProducts).
		Int("skipped", final.SkippedProducts).
		Int("failed", final.FailedProducts).
		Msg("replan: batch completed")

	return final, nil
}

// processProductsParallel fans products out to a worker pool.
func (w *Worker) processProductsParallel(ctx context.Context, run *ReplanRun, products []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	workerCount := w.cfg.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	jobChan := make(chan string, len(products))
	errChan := make(chan error, workerCount)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for product := range jobChan {
				if err := w.processProduct(ctx, run, product); err != nil {
					log.Error().Err(err).Int("worker", workerID).Str("product", product).
						Msg("replan: tracker write failed")
					select {
					case errChan <- err:
					default:
					}
				}
			}
		}(i)
	}

	for _, product := range products {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return ctx.Err()
		case jobChan <- product:
		}
	}
	close(jobChan)

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return err
	}

	return nil
}

// processProduct computes one product and records the outcome. The returned
// error is infrastructure-level only; compute failures become a failed row.
func (w *Worker) processProduct(ctx context.Context, run *ReplanRun, product string) error {
	result := w.computeProduct(ctx, product)

	w.report.Add(result)
	if err := w.tracker.RecordOutcome(ctx, run.ID, result.Status); err != nil {
		return err
	}

	switch result.Status {
	case ProductSkipped:
		log.Debug().Str("product", product).Int("observations", result.Observations).
			Msg("replan: skipped, not enough history")
	case ProductFailed:
		log.Warn().Str("product", product).Str("reason", result.Error).
			Msg("replan: product failed")
	default:
		log.Debug().Str("product", product).Float64("reorder_point", result.ReorderPoint).
			Msg("replan: product recomputed")
	}
	return nil
}

func (w *Worker) computeProduct(ctx context.Context, product string) ProductResult {
	result := ProductResult{Product: product}

	series, err := w.source.GetDemandSeries(ctx, product, time.Time{})
	if err != nil {
		result.Status = ProductFailed
		result.Error = err.Error()
		return result
	}

	result.Observations = series.Len()
	if series.Len() < w.cfg.MinObservations {
		result.Status = ProductSkipped
		return result
	}

	stats, err := demand.Extract(series)
	if err != nil {
		result.Status = ProductFailed
		result.Error = err.Error()
		return result
	}

	rec, err := w.engine.Recommend(product, stats, w.resolve(product))
	if err != nil {
		result.Status = ProductFailed
		result.Error = err.Error()
		return result
	}

	if err := w.saveWithRetry(ctx, &rec); err != nil {
		result.Status = ProductFailed
		result.Error = err.Error()
		return result
	}

	result.Status = ProductOK
	result.AvgDaily = rec.AvgDailyDemand
	result.SafetyStock = rec.SafetyStock
	result.ReorderPoint = rec.ReorderPoint
	result.OrderQty = rec.RecommendedReorderQty
	return result
}

// saveWithRetry retries transient persistence failures. Context cancellation
// is terminal.
func (w *Worker) saveWithRetry(ctx context.Context, rec *domain.StockPolicyRecommendation) error {
	attempts := w.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = w.sink.SaveRecommendation(ctx, rec)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt < attempts {
			log.Warn().Err(lastErr).Str("product", rec.Product).Int("attempt", attempt).
				Msg("replan: save failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.cfg.RetryBackoff):
			}
		}
	}
	return lastErr
}
