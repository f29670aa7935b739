package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/types"
)

// AdjustStockInput captures one signed weight movement against a lot.
type AdjustStockInput struct {
	StockID        uuid.UUID
	WeightDelta    decimal.Decimal
	Reason         string
	AdminCognitoID *string
	UserCognitoID  *string
	ShipmentID     *uuid.UUID
}

// AdjustStock applies a signed weight delta to a lot and appends the matching
// history entry, all inside the caller's transaction. This is the only code
// path that mutates weight and bags.
//
// Bags follow the weight proportionally: weightPerBag is the pre-adjustment
// weight/bags rounded to two decimals, and the bag delta is the ceiling of
// |delta|/weightPerBag carrying the delta's sign. The ceiling applies in both
// directions, so a reduce-then-restore of the same weight can round bags up
// twice; callers relying on exact bag round-trips must not.
func AdjustStock(ctx context.Context, tx *gorm.DB, input AdjustStockInput) (*models.Stock, error) {
	if input.StockID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}
	if input.WeightDelta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAdjustment, "weight delta must be non-zero")
	}

	stock, err := lockStock(ctx, tx, input.StockID)
	if err != nil {
		return nil, err
	}

	newWeight := stock.Weight.Add(input.WeightDelta)
	if newWeight.IsNegative() {
		return nil, pkgerrors.New(
			pkgerrors.CodeInvalidAdjustment,
			fmt.Sprintf("adjustment of %s would drive lot %s negative (current weight %s)",
				input.WeightDelta.String(), stock.LotNo, stock.Weight.String()),
		).WithDetails(map[string]any{
			"stock_id":     stock.ID.String(),
			"weight":       stock.Weight.String(),
			"weight_delta": input.WeightDelta.String(),
		})
	}

	bagsDelta := bagsDeltaFor(stock, input.WeightDelta)
	newBags := stock.Bags + bagsDelta
	if newBags < 0 {
		return nil, pkgerrors.New(
			pkgerrors.CodeInvalidAdjustment,
			fmt.Sprintf("adjustment of %s would consume %d bags but lot %s only has %d",
				input.WeightDelta.String(), -bagsDelta, stock.LotNo, stock.Bags),
		).WithDetails(map[string]any{
			"stock_id":   stock.ID.String(),
			"bags":       stock.Bags,
			"bags_delta": bagsDelta,
		})
	}

	updates := map[string]any{
		"weight": newWeight,
		"bags":   newBags,
	}
	if err := tx.WithContext(ctx).Model(&models.Stock{}).
		Where("id = ?", stock.ID).
		Updates(updates).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating stock")
	}
	stock.Weight = newWeight
	stock.Bags = newBags

	action := enums.StockActionReduced
	if input.WeightDelta.IsPositive() {
		action = enums.StockActionRestored
	}

	entry := &models.StockHistory{
		ID:             uuid.New(),
		StockID:        stock.ID,
		Action:         action,
		AdminCognitoID: input.AdminCognitoID,
		UserCognitoID:  input.UserCognitoID,
		ShipmentID:     input.ShipmentID,
		Details: &types.StockHistoryDetails{
			Lot: lotSnapshot(stock),
			Adjustment: &types.AdjustmentDetails{
				WeightDelta: input.WeightDelta,
				BagsDelta:   bagsDelta,
				Weight:      newWeight,
				Bags:        newBags,
				Reason:      input.Reason,
			},
		},
	}
	// A lot mutation without its audit row must not survive; the append
	// failing aborts the whole transaction.
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stock history")
	}

	return stock, nil
}

func lockStock(ctx context.Context, tx *gorm.DB, stockID uuid.UUID) (*models.Stock, error) {
	query := tx.WithContext(ctx)
	// sqlite (tests) has no row locks; its transactions serialize anyway.
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var stock models.Stock
	if err := query.First(&stock, "id = ?", stockID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stock %s not found", stockID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock")
	}
	return &stock, nil
}

// bagsDeltaFor derives the signed bag movement from the pre-adjustment state.
// Lots with no bags or no weight carry no bag accounting.
func bagsDeltaFor(stock *models.Stock, weightDelta decimal.Decimal) int {
	if stock.Bags <= 0 || stock.Weight.IsZero() {
		return 0
	}
	weightPerBag := stock.Weight.Div(decimal.NewFromInt(int64(stock.Bags))).Round(2)
	if weightPerBag.IsZero() {
		return 0
	}

	magnitude := int(weightDelta.Abs().Div(weightPerBag).Ceil().IntPart())
	if weightDelta.IsNegative() {
		return -magnitude
	}
	return magnitude
}

func lotSnapshot(stock *models.Stock) types.LotSnapshot {
	return types.LotSnapshot{
		LotNo:    stock.LotNo,
		Mark:     stock.Mark,
		Grade:    stock.Grade,
		Broker:   stock.Broker,
		SaleCode: stock.SaleCode,
	}
}
