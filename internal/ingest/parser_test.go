package ingest

import (
	"strings"
	"testing"
	"time"
)

func TestParseSalesCSVCanonicalExport(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Product,Quantity",
		"2024-03-01,Wireless Earbuds,42",
		"2024-03-02,Wireless Earbuds,38",
		"2024-03-01,Smart Watch,17",
	}, "\n")

	records, err := ParseSalesCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseSalesCSV() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	first := records[0]
	wantDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(wantDate) {
		t.Errorf("Date = %v, want %v", first.Date, wantDate)
	}
	if first.Product != "Wireless Earbuds" {
		t.Errorf("Product = %q", first.Product)
	}
	if first.Units != 42 {
		t.Errorf("Units = %v, want 42", first.Units)
	}
	if first.SKU != "Wireless Earbuds" {
		t.Errorf("SKU should fall back to product name, got %q", first.SKU)
	}
	if first.StoreName != defaultStore {
		t.Errorf("StoreName = %q, want %q", first.StoreName, defaultStore)
	}
}

func TestParseSalesCSVRichExport(t *testing.T) {
	csv := strings.Join([]string{
		"date,STORE,sku,product,category,units",
		"2024-03-01,Downtown,WX-100,Wireless Earbuds,Audio,\"1,204\"",
	}, "\n")

	records, err := ParseSalesCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseSalesCSV() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.StoreName != "Downtown" {
		t.Errorf("StoreName = %q", rec.StoreName)
	}
	if rec.SKU != "WX-100" {
		t.Errorf("SKU = %q", rec.SKU)
	}
	if rec.Category != "Audio" {
		t.Errorf("Category = %q", rec.Category)
	}
	if rec.Units != 1204 {
		t.Errorf("Units = %v, want 1204 after separator cleanup", rec.Units)
	}
}

func TestParseSalesCSVMissingColumn(t *testing.T) {
	csv := "Date,Product\n2024-03-01,Wireless Earbuds"

	_, err := ParseSalesCSV(strings.NewReader(csv))
	if err == nil {
		t.Fatal("expected error for missing quantity column")
	}
	if !strings.Contains(err.Error(), "quantity") {
		t.Errorf("error should name the missing column, got %v", err)
	}
}

func TestParseSalesCSVBadRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"bad date", "not-a-date,Widget,5"},
		{"empty product", "2024-03-01,,5"},
		{"bad quantity", "2024-03-01,Widget,many"},
		{"negative quantity", "2024-03-01,Widget,-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csv := "Date,Product,Quantity\n" + tt.row
			_, err := ParseSalesCSV(strings.NewReader(csv))
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !strings.Contains(err.Error(), "row 2") {
				t.Errorf("error should carry the row number, got %v", err)
			}
		})
	}
}

func TestParseSalesCSVAcceptsAlternateDates(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Product,Quantity",
		"2024-03-05 00:00:00,Widget,9",
		"03/06/2024,Widget,11",
	}, "\n")

	records, err := ParseSalesCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseSalesCSV() error = %v", err)
	}
	if got := records[0].Date; !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp date = %v", got)
	}
	if got := records[1].Date; !got.Equal(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("slash date = %v", got)
	}
}
