package stocks

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/amosgichamba/teabroker-backend/pkg/auth"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
)

const exportSheet = "Stocks"

var exportHeaders = []string{
	"Lot No", "Bags", "Weight (kg)", "Purchase Value", "Selling Price",
	"Mark", "Grade", "Broker", "Sale Code", "Batch Number", "Low Stock Threshold",
}

// Exporter writes the whole stock book as an XLSX workbook.
type Exporter struct {
	repo Repository
}

// NewExporter wires an exporter over the stock repository.
func NewExporter(repo Repository) (*Exporter, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &Exporter{repo: repo}, nil
}

// Export streams the workbook to w, lots ordered by lot number.
func (e *Exporter) Export(ctx context.Context, actor auth.Actor, w io.Writer) error {
	if !auth.Can(actor.Role, auth.ActionExportStocks) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "exporting stocks requires an admin role")
	}

	stocks, err := e.repo.ListAll(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stocks")
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating worksheet")
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "addressing header cell")
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing header cell")
		}
	}

	for rowIdx, stock := range stocks {
		if err := writeStockRow(f, rowIdx+2, stock); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing workbook")
	}
	return nil
}

func writeStockRow(f *excelize.File, row int, stock models.Stock) error {
	batchNumber := ""
	if stock.BatchNumber != nil {
		batchNumber = *stock.BatchNumber
	}
	threshold := ""
	if stock.LowStockThreshold != nil {
		threshold = stock.LowStockThreshold.String()
	}

	values := []any{
		stock.LotNo,
		stock.Bags,
		stock.Weight.String(),
		stock.PurchaseValue.String(),
		stock.SellingPrice.String(),
		stock.Mark,
		stock.Grade,
		stock.Broker,
		stock.SaleCode,
		batchNumber,
		threshold,
	}
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "addressing cell")
		}
		if err := f.SetCellValue(exportSheet, cell, value); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing cell")
		}
	}
	return nil
}
