package assignments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/types"
)

// Service defines the assignment operations. Assigning reserves a whole lot
// for one buyer; it never mutates the lot's weight or bags.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*models.StockAssignment, error)
	BulkAssign(ctx context.Context, input BulkAssignInput) ([]models.StockAssignment, error)
	Unassign(ctx context.Context, input UnassignInput) error
	ListByStock(ctx context.Context, stockID uuid.UUID) ([]models.StockAssignment, error)
	ListByUser(ctx context.Context, userCognitoID string) ([]models.StockAssignment, error)
}

type txRunner interface {
	RetryTx(ctx context.Context, maxAttempts int, fn func(tx *gorm.DB) error) error
}

type service struct {
	runner      txRunner
	repo        Repository
	maxAttempts int
}

// AssignInput captures one stock-to-buyer reservation.
type AssignInput struct {
	StockID        uuid.UUID
	UserCognitoID  string
	AdminCognitoID string
}

// BulkAssignItem is one reservation inside a batch. AssignedWeight overrides
// the reserved amount; when nil the lot's full current weight is reserved.
type BulkAssignItem struct {
	StockID        uuid.UUID
	UserCognitoID  string
	AssignedWeight *decimal.Decimal
}

// BulkAssignInput reserves several lots in a single all-or-nothing batch.
type BulkAssignInput struct {
	Items          []BulkAssignItem
	AdminCognitoID string
}

// UnassignInput releases one stock-to-buyer reservation.
type UnassignInput struct {
	StockID        uuid.UUID
	UserCognitoID  string
	AdminCognitoID string
}

// NewService wires an assignment service with the provided dependencies.
func NewService(runner txRunner, repo Repository, maxAttempts int) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	return &service{runner: runner, repo: repo, maxAttempts: maxAttempts}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.StockAssignment, error) {
	if err := validateAssign(input.StockID, input.UserCognitoID); err != nil {
		return nil, err
	}

	var created *models.StockAssignment
	err := s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assignment, err := s.assignOne(ctx, repo, input.StockID, input.UserCognitoID, input.AdminCognitoID, nil)
		if err != nil {
			return err
		}
		created = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) BulkAssign(ctx context.Context, input BulkAssignInput) ([]models.StockAssignment, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one assignment is required")
	}
	seen := map[uuid.UUID]bool{}
	for _, item := range input.Items {
		if err := validateAssign(item.StockID, item.UserCognitoID); err != nil {
			return nil, err
		}
		if seen[item.StockID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("stock %s appears more than once in the batch", item.StockID))
		}
		seen[item.StockID] = true
		if item.AssignedWeight != nil && !item.AssignedWeight.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("assigned weight for stock %s must be positive", item.StockID))
		}
	}

	var created []models.StockAssignment
	err := s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created = created[:0]
		for _, item := range input.Items {
			assignment, err := s.assignOne(ctx, repo, item.StockID, item.UserCognitoID, input.AdminCognitoID, item.AssignedWeight)
			if err != nil {
				return err
			}
			created = append(created, *assignment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Unassign(ctx context.Context, input UnassignInput) error {
	if err := validateAssign(input.StockID, input.UserCognitoID); err != nil {
		return err
	}

	return s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := repo.FindByStockAndUser(ctx, input.StockID, input.UserCognitoID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("stock %s is not assigned to user %s", input.StockID, input.UserCognitoID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading assignment")
		}

		stock, err := repo.FindStock(ctx, input.StockID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock")
		}

		if err := repo.Delete(ctx, assignment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting assignment")
		}

		// Releasing the reservation restores nothing: the lot's weight was
		// never reduced by assigning it.
		entry := historyEntry(stock, enums.StockActionUnassigned, input.AdminCognitoID, assignment)
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stock history")
		}
		return nil
	})
}

func (s *service) ListByStock(ctx context.Context, stockID uuid.UUID) ([]models.StockAssignment, error) {
	if stockID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}
	assignments, err := s.repo.ListByStockID(ctx, stockID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing assignments")
	}
	return assignments, nil
}

func (s *service) ListByUser(ctx context.Context, userCognitoID string) ([]models.StockAssignment, error) {
	if userCognitoID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user cognito id is required")
	}
	assignments, err := s.repo.ListByUser(ctx, userCognitoID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing assignments")
	}
	return assignments, nil
}

// assignOne runs the shared single-lot path: target user exists, lot exists,
// nobody holds the lot yet, then reserve. Single assigns always reserve the
// full current weight; bulk items may carry an override.
func (s *service) assignOne(ctx context.Context, repo Repository, stockID uuid.UUID, userCognitoID, adminCognitoID string, assignedWeight *decimal.Decimal) (*models.StockAssignment, error) {
	if _, err := repo.FindUser(ctx, userCognitoID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %s not found", userCognitoID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}

	stock, err := repo.FindStock(ctx, stockID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stock %s not found", stockID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock")
	}

	existing, err := repo.ListByStockID(ctx, stockID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing assignments")
	}
	if len(existing) > 0 {
		holders := make([]string, 0, len(existing))
		for _, a := range existing {
			holders = append(holders, a.UserCognitoID)
		}
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyAssigned,
			fmt.Sprintf("lot %s is already assigned", stock.LotNo)).
			WithDetails(map[string]any{
				"stock_id":  stockID.String(),
				"lot_no":    stock.LotNo,
				"assignees": holders,
			})
	}

	weight := stock.Weight
	if assignedWeight != nil {
		weight = *assignedWeight
	}
	assignment := &models.StockAssignment{
		ID:             uuid.New(),
		StockID:        stockID,
		UserCognitoID:  userCognitoID,
		AssignedWeight: weight,
	}
	if err := repo.Create(ctx, assignment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating assignment")
	}

	entry := historyEntry(stock, enums.StockActionAssigned, adminCognitoID, assignment)
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stock history")
	}
	return assignment, nil
}

func validateAssign(stockID uuid.UUID, userCognitoID string) error {
	if stockID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}
	if userCognitoID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user cognito id is required")
	}
	return nil
}

func historyEntry(stock *models.Stock, action enums.StockHistoryAction, adminCognitoID string, assignment *models.StockAssignment) *models.StockHistory {
	entry := &models.StockHistory{
		ID:            uuid.New(),
		StockID:       stock.ID,
		Action:        action,
		UserCognitoID: &assignment.UserCognitoID,
		Details: &types.StockHistoryDetails{
			Lot: types.LotSnapshot{
				LotNo:    stock.LotNo,
				Mark:     stock.Mark,
				Grade:    stock.Grade,
				Broker:   stock.Broker,
				SaleCode: stock.SaleCode,
			},
			Assignment: &types.AssignmentDetails{
				UserCognitoID:  assignment.UserCognitoID,
				AssignedWeight: assignment.AssignedWeight,
			},
		},
	}
	if adminCognitoID != "" {
		entry.AdminCognitoID = &adminCognitoID
	}
	return entry
}
