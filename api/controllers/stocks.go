package controllers

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/amosgichamba/teabroker-backend/api/middleware"
	"github.com/amosgichamba/teabroker-backend/api/responses"
	"github.com/amosgichamba/teabroker-backend/api/validators"
	"github.com/amosgichamba/teabroker-backend/internal/stocks"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/logger"
)

type createStockRequest struct {
	LotNo             string           `json:"lot_no" validate:"required"`
	Bags              int              `json:"bags" validate:"min=0"`
	Weight            decimal.Decimal  `json:"weight"`
	PurchaseValue     decimal.Decimal  `json:"purchase_value"`
	SellingPrice      decimal.Decimal  `json:"selling_price"`
	Mark              string           `json:"mark" validate:"required"`
	Grade             string           `json:"grade" validate:"required"`
	Broker            string           `json:"broker" validate:"required"`
	SaleCode          string           `json:"sale_code" validate:"required"`
	BatchNumber       *string          `json:"batch_number"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
}

type updateStockRequest struct {
	LotNo             *string          `json:"lot_no"`
	PurchaseValue     *decimal.Decimal `json:"purchase_value"`
	SellingPrice      *decimal.Decimal `json:"selling_price"`
	Mark              *string          `json:"mark"`
	Grade             *string          `json:"grade"`
	Broker            *string          `json:"broker"`
	SaleCode          *string          `json:"sale_code"`
	BatchNumber       *string          `json:"batch_number"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
}

type adjustStockRequest struct {
	WeightDelta decimal.Decimal `json:"weight_delta"`
	Reason      string          `json:"reason" validate:"required"`
}

func CreateStock(svc stocks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		var req createStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.Create(r.Context(), stocks.CreateInput{
			Actor:             middleware.ActorFromContext(r.Context()),
			LotNo:             req.LotNo,
			Bags:              req.Bags,
			Weight:            req.Weight,
			PurchaseValue:     req.PurchaseValue,
			SellingPrice:      req.SellingPrice,
			Mark:              req.Mark,
			Grade:             req.Grade,
			Broker:            req.Broker,
			SaleCode:          req.SaleCode,
			BatchNumber:       req.BatchNumber,
			LowStockThreshold: req.LowStockThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stock)
	}
}

func GetStock(svc stocks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		stockID, err := validators.ParsePathUUID(chi.URLParam(r, "stockId"), "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.Get(r.Context(), stockID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stock)
	}
}

func ListStocks(svc stocks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := stocks.ListFilter{
			Mark:     strings.TrimSpace(r.URL.Query().Get("mark")),
			Grade:    strings.TrimSpace(r.URL.Query().Get("grade")),
			Broker:   strings.TrimSpace(r.URL.Query().Get("broker")),
			SaleCode: strings.TrimSpace(r.URL.Query().Get("sale_code")),
			LotNo:    strings.TrimSpace(r.URL.Query().Get("lot_no")),
		}

		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"stocks":      page.Stocks,
			"next_cursor": page.NextCursor,
		})
	}
}

func UpdateStock(svc stocks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		stockID, err := validators.ParsePathUUID(chi.URLParam(r, "stockId"), "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.Update(r.Context(), stocks.UpdateInput{
			Actor:             middleware.ActorFromContext(r.Context()),
			StockID:           stockID,
			LotNo:             req.LotNo,
			PurchaseValue:     req.PurchaseValue,
			SellingPrice:      req.SellingPrice,
			Mark:              req.Mark,
			Grade:             req.Grade,
			Broker:            req.Broker,
			SaleCode:          req.SaleCode,
			BatchNumber:       req.BatchNumber,
			LowStockThreshold: req.LowStockThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stock)
	}
}

func DeleteStock(svc stocks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		stockID, err := validators.ParsePathUUID(chi.URLParam(r, "stockId"), "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), stocks.DeleteInput{
			Actor:   middleware.ActorFromContext(r.Context()),
			StockID: stockID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func AdjustStock(svc stocks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		stockID, err := validators.ParsePathUUID(chi.URLParam(r, "stockId"), "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.Adjust(r.Context(), stocks.AdjustInput{
			Actor:       middleware.ActorFromContext(r.Context()),
			StockID:     stockID,
			WeightDelta: req.WeightDelta,
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stock)
	}
}

func ImportStocks(imp *stocks.Importer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if imp == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock importer unavailable"))
			return
		}

		reader, cleanup, err := csvBody(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer cleanup()

		report, err := imp.Import(r.Context(), middleware.ActorFromContext(r.Context()), reader)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func ExportStocks(exp *stocks.Exporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if exp == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock exporter unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="stocks.xlsx"`)
		if err := exp.Export(r.Context(), actor, w); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
	}
}

// csvBody returns the CSV stream from either a multipart upload ("file" part)
// or a raw request body.
func csvBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "csv file part required")
		}
		return file, func() { file.Close() }, nil
	}
	return r.Body, func() {}, nil
}
