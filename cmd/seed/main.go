package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/novamart/novamart-dashboard/backend-go/internal/types"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

// nullIfEmpty returns NULL if the string is empty, otherwise returns the string
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func initDB(c *cli.Context) error {
	// Initialize database connection
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, types.DBKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(types.DBKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFromContext(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(types.DBKey).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not found in context")
	}
	return db, nil
}

func migrationsFlags() []cli.Flag {
	return []cli.Flag{
		newDBURLFlag(),
		&cli.StringFlag{
			Name:    "migrations-dir",
			Usage:   "Directory containing SQL migration files",
			Value:   "./scripts/migrations",
			EnvVars: []string{"MIGRATIONS_DIR"},
		},
		&cli.BoolFlag{
			Name:    "reset-db",
			Usage:   "Drop the schema and re-run migrations (development only)",
			EnvVars: []string{"RESET_DB"},
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed the database with catalog data and sales history",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply SQL migrations (optionally resetting the schema first)",
				Flags:  migrationsFlags(),
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "master",
				Usage: "Seed master data (stores and the product catalog)",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing master seed data",
						Value:   "./data/seeds/master",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runMasterSeed,
			},
			{
				Name:   "sales",
				Usage:  "Seed sales history from a directory of export files",
				Flags:  salesSeedFlags(),
				Before: initDB,
				After:  closeDB,
				Action: SeedSalesData,
			},
			{
				Name:   "pull",
				Usage:  "Download sales exports from the object store, then seed them",
				Flags:  pullFlags(),
				Before: initDB,
				After:  closeDB,
				Action: runPull,
			},
			{
				Name:  "all",
				Usage: "Seed master data and sales history in one run",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing master seed data",
						Value:   "./data/seeds/master",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				}, salesSeedFlags()...),
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					// First seed the catalog, then layer sales on top of it
					if err := runMasterSeed(c); err != nil {
						return fmt.Errorf("error seeding master data: %w", err)
					}
					if err := SeedSalesData(c); err != nil {
						return fmt.Errorf("error seeding sales data: %w", err)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runMigrate(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	if err := maybeResetDatabase(c, db); err != nil {
		return err
	}
	return runMigrations(c.Context, db, c.String("migrations-dir"))
}

// maybeResetDatabase drops and recreates the public schema when --reset-db is
// set. Everything goes, including migration state.
func maybeResetDatabase(c *cli.Context, db *sql.DB) error {
	if !c.Bool("reset-db") {
		return nil
	}

	log.Println("Resetting database schema...")
	if _, err := db.ExecContext(c.Context, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`); err != nil {
		return fmt.Errorf("failed to reset schema: %w", err)
	}
	return nil
}

// runMigrations applies every .sql file in dir, ordered by filename. Files
// are numbered (001_, 002_, ...) so lexical order is application order.
func runMigrations(ctx context.Context, db *sql.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	if len(files) == 0 {
		return fmt.Errorf("no .sql files found in %s", dir)
	}

	for _, name := range files {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", path, err)
		}
		log.Printf("Applying migration %s", name)
		if _, err := db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
	}

	log.Printf("Applied %d migration(s)", len(files))
	return nil
}

func runMasterSeed(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}
	dataDir := c.String("data-dir")

	ctx := c.Context

	// Start a transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Defer a rollback in case anything fails.
	defer tx.Rollback()

	log.Println("Starting master data seeding...")

	if err := seedStores(ctx, tx, filepath.Join(dataDir, "stores.csv")); err != nil {
		return fmt.Errorf("failed to seed stores: %w", err)
	}
	if err := seedProducts(ctx, tx, filepath.Join(dataDir, "products.csv")); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Println("Master data seeding completed successfully!")
	return nil
}

// seedStores loads stores.csv (column: name). Missing file is fine; stores
// are also created on the fly during sales ingestion.
func seedStores(ctx context.Context, tx *sql.Tx, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		log.Printf("No stores file at %s, skipping", filePath)
		return nil
	}

	log.Printf("Seeding stores from %s", filePath)

	rows, header, err := openSeedCSV(filePath)
	if err != nil {
		return err
	}
	defer rows.close()

	nameIdx, err := headerIndex(header, "name")
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO stores (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`

	count := 0
	for {
		record, err := rows.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		name := strings.TrimSpace(record[nameIdx])
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, name); err != nil {
			return fmt.Errorf("failed to insert store %s: %w", name, err)
		}
		count++
	}

	log.Printf("Successfully seeded %d store(s)", count)
	return nil
}

// seedProducts loads products.csv (columns: sku, name, category, unit_cost).
// Category and unit_cost may be empty.
func seedProducts(ctx context.Context, tx *sql.Tx, filePath string) error {
	log.Printf("Seeding products from %s", filePath)

	rows, header, err := openSeedCSV(filePath)
	if err != nil {
		return err
	}
	defer rows.close()

	skuIdx, err := headerIndex(header, "sku")
	if err != nil {
		return err
	}
	nameIdx, err := headerIndex(header, "name")
	if err != nil {
		return err
	}
	categoryIdx, err := headerIndex(header, "category")
	if err != nil {
		return err
	}
	costIdx, err := headerIndex(header, "unit_cost")
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO products (sku, name, category, unit_cost)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			unit_cost = EXCLUDED.unit_cost,
			updated_at = NOW()
	`

	count := 0
	for {
		record, err := rows.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		sku := strings.TrimSpace(record[skuIdx])
		if sku == "" {
			continue
		}

		cost, err := parseNullableFloat(record[costIdx])
		if err != nil {
			return fmt.Errorf("invalid unit_cost for sku %s: %w", sku, err)
		}

		if _, err := tx.ExecContext(ctx, query,
			sku,
			strings.TrimSpace(record[nameIdx]),
			nullIfEmpty(strings.TrimSpace(record[categoryIdx])),
			cost,
		); err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", sku, err)
		}
		count++
	}

	log.Printf("Successfully seeded %d product(s)", count)
	return nil
}

// seedCSV wraps a CSV file so callers get a read/close pair without juggling
// the underlying file handle.
type seedCSV struct {
	file   *os.File
	reader *csv.Reader
}

func (s *seedCSV) read() ([]string, error) { return s.reader.Read() }
func (s *seedCSV) close() error            { return s.file.Close() }

func openSeedCSV(filePath string) (*seedCSV, []string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	return &seedCSV{file: file, reader: reader}, header, nil
}

func headerIndex(header []string, column string) (int, error) {
	for i, h := range header {
		if h == column {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q not found in header: %v", column, header)
}

func parseNullableFloat(value string) (sql.NullFloat64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullFloat64{}, nil
	}

	cleaned := strings.ReplaceAll(value, ",", "")
	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("invalid float value %s: %w", value, err)
	}

	return sql.NullFloat64{Float64: num, Valid: true}, nil
}
