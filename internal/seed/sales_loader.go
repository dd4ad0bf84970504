package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"teatracker/m/internal/ledger"
)

// Result counts what a load did.
type Result struct {
	Imported int
	Skipped  int
}

// LoadSales imports historical sales from a CSV file. Rows that fail
// validation are logged and skipped; a missing file is not an error.
func LoadSales(ctx context.Context, svc *ledger.Service, csvPath string, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	file, err := os.Open(csvPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no sales seed file", "path", csvPath)
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("seed: open %s: %w", csvPath, err)
	}
	defer file.Close()
	return ReadSales(ctx, svc, file, logger)
}

// ReadSales imports sales from CSV read from r.
func ReadSales(ctx context.Context, svc *ledger.Service, r io.Reader, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("seed: read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"date", "kgs", "price"} {
		if _, ok := index[col]; !ok {
			return Result{}, fmt.Errorf("seed: missing column %q", col)
		}
	}

	var res Result
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn("unreadable sales row", "line", line, "error", err)
			res.Skipped++
			continue
		}
		in, err := parseRow(record, index)
		if err == nil {
			_, err = svc.ImportSale(ctx, in)
		}
		if err != nil {
			logger.Warn("sales row skipped", "line", line, "error", err)
			res.Skipped++
			continue
		}
		res.Imported++
	}

	logger.Info("seeded sales", "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

func parseRow(record []string, index map[string]int) (ledger.SaleInput, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	amount := func(name string) (decimal.Decimal, error) {
		v := field(name)
		if v == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %q is not a number", name, v)
		}
		return d, nil
	}

	in := ledger.SaleInput{
		Date:        field("date"),
		Name:        field("name"),
		Phone:       field("phone"),
		Business:    field("business"),
		Address:     field("address"),
		PaymentType: field("paymentType"),
	}
	var err error
	if in.Kgs, err = amount("kgs"); err != nil {
		return in, err
	}
	if in.Price, err = amount("price"); err != nil {
		return in, err
	}
	// Payment columns are free text in old sheets; junk reads as zero.
	in.Cash = ledger.ParseAmount(field("cash"))
	in.Online = ledger.ParseAmount(field("online"))
	return in, nil
}
