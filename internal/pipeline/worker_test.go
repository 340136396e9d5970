package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

type fakeSource struct {
	series map[string]domain.DemandSeries
	errs   map[string]error
}

func (f *fakeSource) GetDemandSeries(ctx context.Context, product string, since time.Time) (domain.DemandSeries, error) {
	if err, ok := f.errs[product]; ok {
		return domain.DemandSeries{}, err
	}
	return f.series[product], nil
}

func (f *fakeSource) ListProductNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.series)+len(f.errs))
	for name := range f.series {
		names = append(names, name)
	}
	for name := range f.errs {
		names = append(names, name)
	}
	return names, nil
}

type captureSink struct {
	mu       sync.Mutex
	failures int
	saved    []*domain.StockPolicyRecommendation
}

func (c *captureSink) SaveRecommendation(ctx context.Context, rec *domain.StockPolicyRecommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("connection reset")
	}
	c.saved = append(c.saved, rec)
	return nil
}

func seriesOf(product string, quantities ...float64) domain.DemandSeries {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s := domain.DemandSeries{Product: product}
	for i, q := range quantities {
		s.Points = append(s.Points, domain.DemandPoint{
			Date:     start.AddDate(0, 0, i),
			Quantity: q,
		})
	}
	return s
}

func fixedPolicy(string) domain.PolicyParams {
	return domain.PolicyParams{
		LeadTimeDays:       7,
		SafetyStockPercent: 20,
		ServiceLevel:       0.95,
	}
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.WorkerCount = 2
	cfg.RetryBackoff = time.Millisecond
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestOrchestratorRunRecomputesCatalog(t *testing.T) {
	source := &fakeSource{series: map[string]domain.DemandSeries{
		"SKU-A": seriesOf("SKU-A", 10, 12, 11, 9, 10),
		"SKU-B": seriesOf("SKU-B", 3, 4, 5, 4),
		"SKU-C": seriesOf("SKU-C", 7),
	}}
	sink := &captureSink{}
	tracker := NewMemoryRunTracker()

	o := NewOrchestrator(testConfig(t), tracker, source, sink, nil, fixedPolicy)
	run, reportPath, err := o.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", run.Status)
	}
	if run.TotalProducts != 3 {
		t.Errorf("TotalProducts = %d, want 3", run.TotalProducts)
	}
	if run.ProcessedProducts != 2 {
		t.Errorf("ProcessedProducts = %d, want 2", run.ProcessedProducts)
	}
	if run.SkippedProducts != 1 {
		t.Errorf("SkippedProducts = %d, want 1 (single observation)", run.SkippedProducts)
	}
	if run.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
	if len(sink.saved) != 2 {
		t.Errorf("sink received %d recommendations, want 2", len(sink.saved))
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Errorf("report has %d lines, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "product,status,") {
		t.Errorf("unexpected report header: %s", lines[0])
	}
}

func TestOrchestratorRunSubset(t *testing.T) {
	source := &fakeSource{series: map[string]domain.DemandSeries{
		"SKU-A": seriesOf("SKU-A", 10, 12, 11),
		"SKU-B": seriesOf("SKU-B", 3, 4, 5),
	}}
	sink := &captureSink{}

	o := NewOrchestrator(testConfig(t), NewMemoryRunTracker(), source, sink, nil, fixedPolicy)
	run, _, err := o.Run(context.Background(), []string{"SKU-B"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.TotalProducts != 1 || run.ProcessedProducts != 1 {
		t.Errorf("run = %+v, want exactly the requested product", run)
	}
	if len(sink.saved) != 1 || sink.saved[0].Product != "SKU-B" {
		t.Errorf("saved = %+v, want one recommendation for SKU-B", sink.saved)
	}
}

func TestWorkerRecordsProductFailures(t *testing.T) {
	source := &fakeSource{
		series: map[string]domain.DemandSeries{
			"SKU-A": seriesOf("SKU-A", 10, 12, 11),
		},
		errs: map[string]error{
			"SKU-BAD": errors.New("series query failed"),
		},
	}
	sink := &captureSink{}

	o := NewOrchestrator(testConfig(t), NewMemoryRunTracker(), source, sink, nil, fixedPolicy)
	run, reportPath, err := o.Run(context.Background(), []string{"SKU-A", "SKU-BAD"})
	if err != nil {
		t.Fatalf("Run() error = %v; product failures must not fail the run", err)
	}

	if run.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed despite product failure", run.Status)
	}
	if run.FailedProducts != 1 {
		t.Errorf("FailedProducts = %d, want 1", run.FailedProducts)
	}
	if run.ProcessedProducts != 1 {
		t.Errorf("ProcessedProducts = %d, want 1", run.ProcessedProducts)
	}

	data, _ := os.ReadFile(reportPath)
	if !strings.Contains(string(data), "series query failed") {
		t.Error("report should carry the failure reason")
	}
}

func TestWorkerRetriesTransientSaves(t *testing.T) {
	source := &fakeSource{series: map[string]domain.DemandSeries{
		"SKU-A": seriesOf("SKU-A", 10, 12, 11),
	}}
	sink := &captureSink{failures: 1}

	o := NewOrchestrator(testConfig(t), NewMemoryRunTracker(), source, sink, nil, fixedPolicy)
	run, _, err := o.Run(context.Background(), []string{"SKU-A"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.ProcessedProducts != 1 || run.FailedProducts != 0 {
		t.Errorf("run = %+v, want the save retried to success", run)
	}
	if len(sink.saved) != 1 {
		t.Errorf("saved %d recommendations, want 1", len(sink.saved))
	}
}

func TestWorkerHonorsCancelledContext(t *testing.T) {
	source := &fakeSource{series: map[string]domain.DemandSeries{
		"SKU-A": seriesOf("SKU-A", 10, 12, 11),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(testConfig(t), NewMemoryRunTracker(), source, &captureSink{}, nil, fixedPolicy)
	run, _, err := o.Run(ctx, []string{"SKU-A"})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if run != nil && run.Status == StatusCompleted {
		t.Errorf("run should not complete under a cancelled context, got %q", run.Status)
	}
}

func TestReportWriterEmptyRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()

	rw := NewReportWriter(cfg, nil)
	reportPath, err := rw.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if filepath.Dir(reportPath) != cfg.OutputDir {
		t.Errorf("report written to %s, want %s", filepath.Dir(reportPath), cfg.OutputDir)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	if !strings.HasPrefix(string(data), "product,status,") {
		t.Error("empty run should still write the header row")
	}
}

func TestMemoryRunTrackerLatest(t *testing.T) {
	tracker := NewMemoryRunTracker()
	ctx := context.Background()

	first := &ReplanRun{Status: StatusCompleted, StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	second := &ReplanRun{Status: StatusProcessing, StartedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	if err := tracker.CreateRun(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := tracker.CreateRun(ctx, second); err != nil {
		t.Fatal(err)
	}

	latest, err := tracker.GetLatestRun(ctx)
	if err != nil {
		t.Fatalf("GetLatestRun() error = %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest run ID = %d, want %d", latest.ID, second.ID)
	}
}
