package stocks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/internal/ledger"
	"github.com/amosgichamba/teabroker-backend/pkg/auth"
	"github.com/amosgichamba/teabroker-backend/pkg/db"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/pagination"
	"github.com/amosgichamba/teabroker-backend/pkg/types"
)

// Service manages the stock catalog. Weight and bags never change here
// except through Adjust, which delegates to the ledger primitive.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Stock, error)
	Get(ctx context.Context, stockID uuid.UUID) (*models.Stock, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error)
	Update(ctx context.Context, input UpdateInput) (*models.Stock, error)
	Delete(ctx context.Context, input DeleteInput) error
	Adjust(ctx context.Context, input AdjustInput) (*models.Stock, error)
}

type txRunner interface {
	RetryTx(ctx context.Context, maxAttempts int, fn func(tx *gorm.DB) error) error
}

type service struct {
	runner      txRunner
	repo        Repository
	maxAttempts int
}

// CreateInput carries a new lot into the catalog.
type CreateInput struct {
	Actor             auth.Actor
	LotNo             string
	Bags              int
	Weight            decimal.Decimal
	PurchaseValue     decimal.Decimal
	SellingPrice      decimal.Decimal
	Mark              string
	Grade             string
	Broker            string
	SaleCode          string
	BatchNumber       *string
	LowStockThreshold *decimal.Decimal
}

// UpdateInput updates catalog fields on a lot. Weight and bags are absent
// deliberately; they only move through Adjust.
type UpdateInput struct {
	Actor             auth.Actor
	StockID           uuid.UUID
	LotNo             *string
	PurchaseValue     *decimal.Decimal
	SellingPrice      *decimal.Decimal
	Mark              *string
	Grade             *string
	Broker            *string
	SaleCode          *string
	BatchNumber       *string
	LowStockThreshold *decimal.Decimal
}

// DeleteInput removes a lot and its reservations from the catalog.
type DeleteInput struct {
	Actor   auth.Actor
	StockID uuid.UUID
}

// AdjustInput applies a signed weight movement to a lot.
type AdjustInput struct {
	Actor       auth.Actor
	StockID     uuid.UUID
	WeightDelta decimal.Decimal
	Reason      string
}

// NewService wires a stock service with the provided dependencies.
func NewService(runner txRunner, repo Repository, maxAttempts int) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{runner: runner, repo: repo, maxAttempts: maxAttempts}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Stock, error) {
	if !auth.Can(input.Actor.Role, auth.ActionManageStocks) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "managing stocks requires an admin role")
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	stock := &models.Stock{
		ID:                uuid.New(),
		LotNo:             input.LotNo,
		Bags:              input.Bags,
		Weight:            input.Weight,
		PurchaseValue:     input.PurchaseValue,
		SellingPrice:      input.SellingPrice,
		Mark:              input.Mark,
		Grade:             input.Grade,
		Broker:            input.Broker,
		SaleCode:          input.SaleCode,
		BatchNumber:       input.BatchNumber,
		LowStockThreshold: input.LowStockThreshold,
		AdminCognitoID:    input.Actor.CognitoID,
	}

	err := s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByLotNo(ctx, input.LotNo); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("lot %s already exists", input.LotNo))
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking lot number")
		}

		if err := repo.Create(ctx, stock); err != nil {
			if db.IsUniqueViolation(err, "stocks_lot_no_key") {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("lot %s already exists", input.LotNo))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stock")
		}
		entry := catalogHistory(stock, enums.StockActionCreated, input.Actor.CognitoID)
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stock history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *service) Get(ctx context.Context, stockID uuid.UUID) (*models.Stock, error) {
	if stockID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}
	stock, err := s.repo.FindByID(ctx, stockID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stock %s not found", stockID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock")
	}
	return stock, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor is malformed")
	}
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stocks")
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Stock, error) {
	if !auth.Can(input.Actor.Role, auth.ActionManageStocks) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "managing stocks requires an admin role")
	}
	if input.StockID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}

	fields := updateFields(input)
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *models.Stock
	err := s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		stock, err := repo.FindByID(ctx, input.StockID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stock %s not found", input.StockID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock")
		}

		if err := repo.UpdateFields(ctx, stock.ID, fields); err != nil {
			if db.IsUniqueViolation(err, "stocks_lot_no_key") {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("lot %s already exists", *input.LotNo))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating stock")
		}

		reloaded, err := repo.FindByID(ctx, stock.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading stock")
		}
		updated = reloaded

		entry := catalogHistory(reloaded, enums.StockActionUpdated, input.Actor.CognitoID)
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stock history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if !auth.Can(input.Actor.Role, auth.ActionManageStocks) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "managing stocks requires an admin role")
	}
	if input.StockID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}

	return s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		stock, err := repo.FindByID(ctx, input.StockID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stock %s not found", input.StockID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock")
		}

		// Lots allocated to shipments cannot vanish out from under them.
		allocated, err := repo.CountShipmentItems(ctx, stock.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking shipment allocations")
		}
		if allocated > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("lot %s is allocated to %d shipment item(s)", stock.LotNo, allocated))
		}

		if err := repo.DeleteAssignments(ctx, stock.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting assignments")
		}

		// The trail outlives the lot; append before the row disappears.
		entry := catalogHistory(stock, enums.StockActionDeleted, input.Actor.CognitoID)
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stock history")
		}

		if err := repo.Delete(ctx, stock.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting stock")
		}
		return nil
	})
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.Stock, error) {
	if !auth.Can(input.Actor.Role, auth.ActionAdjustStock) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "adjusting stock requires an admin role")
	}

	var adjusted *models.Stock
	err := s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		stock, err := ledger.AdjustStock(ctx, tx, ledger.AdjustStockInput{
			StockID:        input.StockID,
			WeightDelta:    input.WeightDelta,
			Reason:         input.Reason,
			AdminCognitoID: &input.Actor.CognitoID,
		})
		if err != nil {
			return err
		}
		adjusted = stock
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

func validateCreate(input CreateInput) error {
	if input.LotNo == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "lot number is required")
	}
	if input.Mark == "" || input.Grade == "" || input.Broker == "" || input.SaleCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "mark, grade, broker and sale code are required")
	}
	if input.Weight.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "weight must not be negative")
	}
	if input.Bags < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "bags must not be negative")
	}
	return nil
}

func updateFields(input UpdateInput) map[string]any {
	fields := map[string]any{}
	if input.LotNo != nil {
		fields["lot_no"] = *input.LotNo
	}
	if input.PurchaseValue != nil {
		fields["purchase_value"] = *input.PurchaseValue
	}
	if input.SellingPrice != nil {
		fields["selling_price"] = *input.SellingPrice
	}
	if input.Mark != nil {
		fields["mark"] = *input.Mark
	}
	if input.Grade != nil {
		fields["grade"] = *input.Grade
	}
	if input.Broker != nil {
		fields["broker"] = *input.Broker
	}
	if input.SaleCode != nil {
		fields["sale_code"] = *input.SaleCode
	}
	if input.BatchNumber != nil {
		fields["batch_number"] = *input.BatchNumber
	}
	if input.LowStockThreshold != nil {
		fields["low_stock_threshold"] = *input.LowStockThreshold
	}
	return fields
}

func catalogHistory(stock *models.Stock, action enums.StockHistoryAction, adminCognitoID string) *models.StockHistory {
	entry := &models.StockHistory{
		ID:      uuid.New(),
		StockID: stock.ID,
		Action:  action,
		Details: &types.StockHistoryDetails{
			Lot: types.LotSnapshot{
				LotNo:    stock.LotNo,
				Mark:     stock.Mark,
				Grade:    stock.Grade,
				Broker:   stock.Broker,
				SaleCode: stock.SaleCode,
			},
		},
	}
	if adminCognitoID != "" {
		entry.AdminCognitoID = &adminCognitoID
	}
	return entry
}
