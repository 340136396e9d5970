package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// defaultStore is assumed when an export has no store column. The original
// NovaMart exports are single-store and carry only Date, Product, Quantity.
const defaultStore = "NovaMart"

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
}

// columnAliases maps canonical column names to the header spellings seen in
// the various POS export flavors. Matching is case-insensitive.
var columnAliases = map[string][]string{
	"date":     {"date"},
	"product":  {"product", "name", "item"},
	"quantity": {"quantity", "units", "qty"},
	"store":    {"store", "store_name", "outlet"},
	"sku":      {"sku", "sku_code"},
	"category": {"category"},
}

var requiredColumns = []string{"date", "product", "quantity"}

// ParseSalesCSV reads a sales export and returns one record per row. The
// header row is required. Store, SKU and category columns are optional; a
// missing SKU column means the product name is the product identity.
func ParseSalesCSV(r io.Reader) ([]domain.SalesRecord, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap, err := resolveHeader(header)
	if err != nil {
		return nil, err
	}

	var records []domain.SalesRecord
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		row++

		rec, err := parseRow(record, colMap)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func resolveHeader(header []string) (map[string]int, error) {
	colMap := make(map[string]int)
	for i, col := range header {
		normalized := strings.ToLower(strings.TrimSpace(col))
		for canonical, aliases := range columnAliases {
			for _, alias := range aliases {
				if normalized == alias {
					if _, seen := colMap[canonical]; !seen {
						colMap[canonical] = i
					}
				}
			}
		}
	}

	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}
	return colMap, nil
}

func parseRow(record []string, colMap map[string]int) (domain.SalesRecord, error) {
	getValue := func(colName string) string {
		if idx, ok := colMap[colName]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	var rec domain.SalesRecord

	dateStr := getValue("date")
	date, err := parseDate(dateStr)
	if err != nil {
		return rec, err
	}

	product := getValue("product")
	if product == "" {
		return rec, fmt.Errorf("empty product name")
	}

	qty, err := parseQuantity(getValue("quantity"))
	if err != nil {
		return rec, err
	}

	rec.Date = date
	rec.Product = product
	rec.Units = qty
	rec.Category = getValue("category")

	rec.SKU = getValue("sku")
	if rec.SKU == "" {
		rec.SKU = product
	}
	rec.StoreName = getValue("store")
	if rec.StoreName == "" {
		rec.StoreName = defaultStore
	}

	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// parseQuantity tolerates thousands separators, which some spreadsheet
// exports insert.
func parseQuantity(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	cleaned := strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative quantity %q", s)
	}
	return f, nil
}
