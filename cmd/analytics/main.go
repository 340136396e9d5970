// cmd/analytics/main.go
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/novamart/novamart-dashboard/backend-go/internal/config"
	"github.com/novamart/novamart-dashboard/backend-go/internal/demand"
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
	"github.com/novamart/novamart-dashboard/backend-go/internal/forecast"
	"github.com/novamart/novamart-dashboard/backend-go/internal/ingest"
	"github.com/novamart/novamart-dashboard/backend-go/internal/pipeline"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository/postgres"
	"github.com/novamart/novamart-dashboard/backend-go/internal/stockopt"
)

// sourceFlags let every command run against either a live database or a
// plain directory of export files.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "Database connection string",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "csv-dir",
			Usage:   "Directory of sales export CSVs (offline mode, no database)",
			EnvVars: []string{"ANALYTICS_CSV_DIR"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Usage:   "Path to a policy profile YAML file",
			EnvVars: []string{"POLICY_PROFILE_FILE"},
		},
	}
}

func policyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "lead-time",
			Usage:   "Replenishment lead time in days",
			Value:   7,
			EnvVars: []string{"POLICY_LEAD_TIME_DAYS"},
		},
		&cli.Float64Flag{
			Name:    "ss-percent",
			Usage:   "Safety stock as a percent of average daily demand",
			Value:   20,
			EnvVars: []string{"POLICY_SAFETY_STOCK_PERCENT"},
		},
		&cli.Float64Flag{
			Name:    "service-level",
			Usage:   "Target service level in (0, 0.999)",
			Value:   0.95,
			EnvVars: []string{"POLICY_SERVICE_LEVEL"},
		},
	}
}

func productFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "product",
		Usage:    "Product name to analyze",
		Required: true,
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "analytics",
		Usage: "Inventory analytics from the command line, online or offline",
		Commands: []*cli.Command{
			{
				Name:  "recommend",
				Usage: "Compute a reorder policy recommendation for a product",
				Flags: append(append(sourceFlags(), policyFlags()...), productFlag(),
					&cli.Float64Flag{
						Name:  "on-hand",
						Usage: "Current inventory on hand (enables coverage metrics)",
						Value: -1,
					}),
				Action: runRecommend,
			},
			{
				Name:  "simulate",
				Usage: "Simulate stock levels under the recommended policy",
				Flags: append(append(sourceFlags(), policyFlags()...), productFlag(),
					&cli.IntFlag{Name: "days", Usage: "Days to simulate", Value: 30},
					&cli.Int64Flag{Name: "seed", Usage: "RNG seed (0 picks one)", Value: 0}),
				Action: runSimulate,
			},
			{
				Name:  "backtest",
				Usage: "Score every forecast model on a product's held-out history",
				Flags: append(sourceFlags(), productFlag(),
					&cli.IntFlag{Name: "horizon", Usage: "Forecast horizon in days", Value: 14}),
				Action: runBacktest,
			},
			{
				Name:   "summary",
				Usage:  "Print demand summaries for the whole catalog",
				Flags:  sourceFlags(),
				Action: runSummary,
			},
			{
				Name:  "replan",
				Usage: "Recompute reorder policies for every product",
				Flags: append(append(sourceFlags(), policyFlags()...),
					&cli.IntFlag{Name: "workers", Usage: "Concurrent products", Value: 4},
					&cli.StringFlag{Name: "report-dir", Usage: "Directory for the run report CSV", Value: "data/reports/replan"}),
				Action: runReplan,
			},
			{
				Name:  "fetch",
				Usage: "Mirror a Google Drive folder of exports into a local directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "folder-id",
						Usage:    "Drive folder to mirror",
						Required: true,
						EnvVars:  []string{"DRIVE_FOLDER_ID"},
					},
					&cli.StringFlag{
						Name:    "credentials",
						Usage:   "Service account credentials JSON (inline or @path)",
						EnvVars: []string{"DRIVE_CREDENTIALS_JSON"},
					},
					&cli.StringFlag{
						Name:    "out",
						Usage:   "Download directory",
						Value:   "./data/exports",
						EnvVars: []string{"ANALYTICS_CSV_DIR"},
					},
				},
				Action: runFetch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openSource picks the demand source for a command. Offline CSV mode wins
// when both are configured, so a stray DATABASE_URL does not surprise an
// analyst working from files.
func openSource(c *cli.Context) (repository.DemandSource, func(), error) {
	if dir := c.String("csv-dir"); dir != "" {
		return ingest.NewCSVSource(dir), func() {}, nil
	}

	dbURL := c.String("db-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("either --csv-dir or --db-url is required")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := postgres.NewSalesRepository(postgres.NewDBFromSQL(db, "pgx"))
	return repo, func() { db.Close() }, nil
}

// resolveParams layers precedence: profile file, then explicit flags.
func resolveParams(c *cli.Context, product string) (domain.PolicyParams, error) {
	params := domain.PolicyParams{
		LeadTimeDays:       c.Int("lead-time"),
		SafetyStockPercent: c.Float64("ss-percent"),
		ServiceLevel:       c.Float64("service-level"),
	}

	if path := c.String("profile"); path != "" {
		profiles, err := config.LoadPolicyProfiles(path)
		if err != nil {
			return domain.PolicyParams{}, err
		}
		resolved := profiles.Resolve(product)
		// Explicit flags still win over the profile.
		if !c.IsSet("lead-time") {
			params.LeadTimeDays = resolved.LeadTimeDays
		}
		if !c.IsSet("ss-percent") {
			params.SafetyStockPercent = resolved.SafetyStockPercent
		}
		if !c.IsSet("service-level") {
			params.ServiceLevel = resolved.ServiceLevel
		}
	}

	return params, params.Validate()
}

func recommendForProduct(c *cli.Context, source repository.DemandSource, product string) (domain.DemandStatistics, domain.StockPolicyRecommendation, error) {
	series, err := source.GetDemandSeries(c.Context, product, time.Time{})
	if err != nil {
		return domain.DemandStatistics{}, domain.StockPolicyRecommendation{}, err
	}
	stats, err := demand.Extract(series)
	if err != nil {
		return domain.DemandStatistics{}, domain.StockPolicyRecommendation{}, err
	}

	params, err := resolveParams(c, product)
	if err != nil {
		return domain.DemandStatistics{}, domain.StockPolicyRecommendation{}, err
	}

	rec, err := stockopt.NewEngine().Recommend(product, stats, params)
	return stats, rec, err
}

func runRecommend(c *cli.Context) error {
	source, closeSource, err := openSource(c)
	if err != nil {
		return err
	}
	defer closeSource()

	product := c.String("product")
	stats, rec, err := recommendForProduct(c, source, product)
	if err != nil {
		return err
	}

	fmt.Printf("Product: %s\n", product)
	fmt.Printf("  Observations:        %d\n", stats.Observations)
	fmt.Printf("  Avg daily demand:    %.2f\n", stats.AvgDailyDemand)
	fmt.Printf("  Demand std dev:      %.2f\n", stats.DemandStd)
	fmt.Printf("  Trend slope:         %+.4f units/day\n", stats.TrendSlope)
	fmt.Printf("  Coef. of variation:  %.1f%%\n", stats.CoefficientOfVariation)
	fmt.Println()
	fmt.Printf("Policy (lead time %dd, service level %.2f):\n", rec.LeadTimeDays, rec.ServiceLevel)
	fmt.Printf("  Safety stock:        %.0f (statistical %.0f, percentage %.0f)\n",
		rec.SafetyStock, rec.StatisticalSafetyStock, rec.PercentageSafetyStock)
	fmt.Printf("  Reorder point:       %.0f\n", rec.ReorderPoint)
	fmt.Printf("  Economic order qty:  %.0f\n", rec.EconomicOrderQty)
	fmt.Printf("  Recommended qty:     %.0f\n", rec.RecommendedReorderQty)

	if onHand := c.Float64("on-hand"); onHand >= 0 {
		metrics := stockopt.ComputeMetrics(rec, &onHand)
		fmt.Println()
		fmt.Printf("Position (on hand %.0f):\n", onHand)
		fmt.Printf("  Days of inventory:   %.1f\n", metrics.DaysOfInventory)
		fmt.Printf("  Annual turnover:     %.1f\n", metrics.InventoryTurnover)
		fmt.Printf("  Stockout risk:       %.0f%%\n", metrics.StockoutProbability*100)
		fmt.Printf("  Safety coverage:     %.1fx\n", metrics.SafetyStockCoverage)
	}
	return nil
}

func runSimulate(c *cli.Context) error {
	source, closeSource, err := openSource(c)
	if err != nil {
		return err
	}
	defer closeSource()

	product := c.String("product")
	_, rec, err := recommendForProduct(c, source, product)
	if err != nil {
		return err
	}

	result := stockopt.Simulate(rec, stockopt.SimOptions{
		Days: c.Int("days"),
		Seed: c.Int64("seed"),
	})

	fmt.Printf("Simulated %d day(s) for %s (seed %d): %d reorder(s)\n",
		result.Days, product, result.Seed, result.Reorders)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tDEMAND\tSTOCK\tREORDERED")
	for _, day := range result.Levels {
		reordered := ""
		if day.Reordered {
			reordered = "yes"
		}
		fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%s\n", day.Day, day.Demand, day.StockLevel, reordered)
	}
	return w.Flush()
}

func runBacktest(c *cli.Context) error {
	source, closeSource, err := openSource(c)
	if err != nil {
		return err
	}
	defer closeSource()

	product := c.String("product")
	series, err := source.GetDemandSeries(c.Context, product, time.Time{})
	if err != nil {
		return err
	}

	scores, err := forecast.DefaultAdapter().Grade(c.Context, series, c.Int("horizon"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tMAPE\tRMSE\tNOTE")
	for _, score := range scores {
		if score.Metrics == nil {
			fmt.Fprintf(w, "%s\t-\t-\t%s\n", score.Model, score.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%.1f%%\t%.2f\t\n", score.Model, score.Metrics.MAPE, score.Metrics.RMSE)
	}
	return w.Flush()
}

func runSummary(c *cli.Context) error {
	source, closeSource, err := openSource(c)
	if err != nil {
		return err
	}
	defer closeSource()

	names, err := source.ListProductNames(c.Context)
	if err != nil {
		return err
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tTOTAL\tAVG/DAY\tCV%\tTREND\tVOLATILITY")
	for _, name := range names {
		series, err := source.GetDemandSeries(c.Context, name, time.Time{})
		if err != nil {
			return err
		}
		summary, err := demand.Summarize(series)
		if err != nil {
			// Cataloged products without sales have nothing to summarize.
			continue
		}
		fmt.Fprintf(w, "%s\t%.0f\t%.1f\t%.0f\t%s\t%s\n",
			summary.Product, summary.TotalUnits, summary.AvgDaily,
			summary.CoefficientOfVariation, summary.TrendLabel, summary.VolatilityLabel)
	}
	return w.Flush()
}

func runReplan(c *cli.Context) error {
	source, closeSource, err := openSource(c)
	if err != nil {
		return err
	}
	defer closeSource()

	defaults := domain.PolicyParams{
		LeadTimeDays:       c.Int("lead-time"),
		SafetyStockPercent: c.Float64("ss-percent"),
		ServiceLevel:       c.Float64("service-level"),
	}
	if err := defaults.Validate(); err != nil {
		return err
	}

	resolve := pipeline.PolicyResolver(func(string) domain.PolicyParams { return defaults })
	if path := c.String("profile"); path != "" {
		profiles, err := config.LoadPolicyProfiles(path)
		if err != nil {
			return err
		}
		resolve = profiles.Resolve
	}

	cfg := pipeline.DefaultConfig()
	cfg.WorkerCount = c.Int("workers")
	cfg.OutputDir = c.String("report-dir")

	// CLI runs are throwaway analyses: track in memory, persist nothing.
	orchestrator := pipeline.NewOrchestrator(cfg, pipeline.NewMemoryRunTracker(), source, pipeline.NopSink{}, nil, resolve)
	run, reportPath, err := orchestrator.Run(c.Context, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Replan %s: %d processed, %d skipped, %d failed (of %d)\n",
		run.Status, run.ProcessedProducts, run.SkippedProducts, run.FailedProducts, run.TotalProducts)
	if reportPath != "" {
		fmt.Printf("Report written to %s\n", reportPath)
	}
	if run.ErrorMessage != "" {
		return fmt.Errorf("replan finished with errors: %s", run.ErrorMessage)
	}
	return nil
}

func runFetch(c *cli.Context) error {
	credentials := c.String("credentials")
	if after, ok := strings.CutPrefix(credentials, "@"); ok {
		raw, err := os.ReadFile(after)
		if err != nil {
			return fmt.Errorf("failed to read credentials file: %w", err)
		}
		credentials = string(raw)
	}

	client, err := ingest.NewDriveClient(credentials)
	if err != nil {
		return err
	}

	paths, err := ingest.NewDownloader(client).DownloadFolderCSV(c.Context, ingest.DownloadOptions{
		FolderID:    c.String("folder-id"),
		DownloadDir: c.String("out"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded %d file(s):\n", len(paths))
	for _, p := range paths {
		fmt.Printf("  %s\n", p)
	}
	return nil
}
