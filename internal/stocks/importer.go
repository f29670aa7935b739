package stocks

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/auth"
	"github.com/amosgichamba/teabroker-backend/pkg/config"
	"github.com/amosgichamba/teabroker-backend/pkg/db"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
)

// csvColumns is the expected header, in order. batch_number and
// low_stock_threshold may be left blank per row.
var csvColumns = []string{
	"lot_no", "bags", "weight", "purchase_value", "selling_price",
	"mark", "grade", "broker", "sale_code", "batch_number", "low_stock_threshold",
}

// RowError describes one CSV row that did not make it into the catalog.
type RowError struct {
	Line    int    `json:"line"`
	LotNo   string `json:"lot_no,omitempty"`
	Message string `json:"message"`
}

// ImportReport summarizes a CSV import run.
type ImportReport struct {
	Rows      int        `json:"rows"`
	Imported  int        `json:"imported"`
	Failed    int        `json:"failed"`
	RowErrors []RowError `json:"row_errors,omitempty"`
}

// Err folds every row failure into one error for logging, nil when clean.
func (r *ImportReport) Err() error {
	var combined error
	for _, re := range r.RowErrors {
		combined = multierr.Append(combined, fmt.Errorf("line %d: %s", re.Line, re.Message))
	}
	return combined
}

// Importer loads stock lots from CSV in concurrent batches. Each batch is one
// retryable transaction; a bad row fails only its own batch.
type Importer struct {
	runner      txRunner
	repo        Repository
	batchSize   int
	maxWorkers  int
	maxAttempts int
}

// NewImporter wires a CSV importer with the provided dependencies.
func NewImporter(runner txRunner, repo Repository, cfg config.ImportConfig, maxAttempts int) (*Importer, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Importer{
		runner:      runner,
		repo:        repo,
		batchSize:   batchSize,
		maxWorkers:  maxWorkers,
		maxAttempts: maxAttempts,
	}, nil
}

type importRow struct {
	line  int
	stock models.Stock
}

// Import reads the CSV stream and inserts every parseable lot. Row-level
// problems land in the report; only stream-level failures return an error.
func (i *Importer) Import(ctx context.Context, actor auth.Actor, r io.Reader) (*ImportReport, error) {
	if !auth.Can(actor.Role, auth.ActionImportStocks) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "importing stocks requires an admin role")
	}

	rows, report, err := i.parse(r, actor.CognitoID)
	if err != nil {
		return nil, err
	}

	batches := chunk(rows, i.batchSize)

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(i.maxWorkers)

	for _, batch := range batches {
		batch := batch
		group.Go(func() error {
			imported, rowErrs := i.importBatch(groupCtx, actor.CognitoID, batch)
			mu.Lock()
			report.Imported += imported
			report.RowErrors = append(report.RowErrors, rowErrs...)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "importing stocks")
	}

	sort.Slice(report.RowErrors, func(a, b int) bool {
		return report.RowErrors[a].Line < report.RowErrors[b].Line
	})
	report.Failed = report.Rows - report.Imported
	return report, nil
}

// importBatch inserts one batch atomically. A failure voids the whole batch
// and reports every row in it; other batches proceed independently.
func (i *Importer) importBatch(ctx context.Context, adminCognitoID string, batch []importRow) (int, []RowError) {
	err := i.runner.RetryTx(ctx, i.maxAttempts, func(tx *gorm.DB) error {
		repo := i.repo.WithTx(tx)
		for idx := range batch {
			row := &batch[idx]
			if _, err := repo.FindByLotNo(ctx, row.stock.LotNo); err == nil {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("lot %s already exists", row.stock.LotNo))
			} else if err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking lot number")
			}
			if err := repo.Create(ctx, &row.stock); err != nil {
				if db.IsUniqueViolation(err, "stocks_lot_no_key") {
					return pkgerrors.New(pkgerrors.CodeConflict,
						fmt.Sprintf("lot %s already exists", row.stock.LotNo))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stock")
			}
			entry := catalogHistory(&row.stock, enums.StockActionCreated, adminCognitoID)
			if err := repo.AppendHistory(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stock history")
			}
		}
		return nil
	})
	if err == nil {
		return len(batch), nil
	}

	rowErrs := make([]RowError, 0, len(batch))
	for _, row := range batch {
		rowErrs = append(rowErrs, RowError{
			Line:    row.line,
			LotNo:   row.stock.LotNo,
			Message: err.Error(),
		})
	}
	return 0, rowErrs
}

func (i *Importer) parse(r io.Reader, adminCognitoID string) ([]importRow, *ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading csv header")
	}
	if err := validateHeader(header); err != nil {
		return nil, nil, err
	}

	report := &ImportReport{}
	var rows []importRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Rows++
			report.RowErrors = append(report.RowErrors, RowError{Line: line, Message: err.Error()})
			continue
		}

		report.Rows++
		stock, err := parseRecord(record, adminCognitoID)
		if err != nil {
			rowErr := RowError{Line: line, Message: err.Error()}
			if len(record) > 0 {
				rowErr.LotNo = record[0]
			}
			report.RowErrors = append(report.RowErrors, rowErr)
			continue
		}
		rows = append(rows, importRow{line: line, stock: *stock})
	}
	return rows, report, nil
}

func validateHeader(header []string) error {
	if len(header) != len(csvColumns) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("expected %d columns, got %d", len(csvColumns), len(header)))
	}
	for idx, want := range csvColumns {
		if !strings.EqualFold(strings.TrimSpace(header[idx]), want) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("column %d must be %q", idx+1, want))
		}
	}
	return nil
}

func parseRecord(record []string, adminCognitoID string) (*models.Stock, error) {
	if len(record) != len(csvColumns) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(csvColumns), len(record))
	}

	lotNo := strings.TrimSpace(record[0])
	if lotNo == "" {
		return nil, fmt.Errorf("lot_no is required")
	}
	bags, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil || bags < 0 {
		return nil, fmt.Errorf("bags must be a non-negative integer")
	}
	weight, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil || weight.IsNegative() {
		return nil, fmt.Errorf("weight must be a non-negative decimal")
	}
	purchaseValue, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return nil, fmt.Errorf("purchase_value must be a decimal")
	}
	sellingPrice, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return nil, fmt.Errorf("selling_price must be a decimal")
	}

	mark := strings.TrimSpace(record[5])
	grade := strings.TrimSpace(record[6])
	broker := strings.TrimSpace(record[7])
	saleCode := strings.TrimSpace(record[8])
	if mark == "" || grade == "" || broker == "" || saleCode == "" {
		return nil, fmt.Errorf("mark, grade, broker and sale_code are required")
	}

	stock := &models.Stock{
		ID:             uuid.New(),
		LotNo:          lotNo,
		Bags:           bags,
		Weight:         weight,
		PurchaseValue:  purchaseValue,
		SellingPrice:   sellingPrice,
		Mark:           mark,
		Grade:          grade,
		Broker:         broker,
		SaleCode:       saleCode,
		AdminCognitoID: adminCognitoID,
	}
	if batchNumber := strings.TrimSpace(record[9]); batchNumber != "" {
		stock.BatchNumber = &batchNumber
	}
	if raw := strings.TrimSpace(record[10]); raw != "" {
		threshold, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("low_stock_threshold must be a decimal")
		}
		stock.LowStockThreshold = &threshold
	}
	return stock, nil
}

func chunk(rows []importRow, size int) [][]importRow {
	var batches [][]importRow
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[start:end])
	}
	return batches
}
