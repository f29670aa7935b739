package shipments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/internal/ledger"
	"github.com/amosgichamba/teabroker-backend/pkg/auth"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/types"
)

// Service drives the shipment lifecycle. Every weight movement goes through
// the ledger primitive inside the same transaction as the shipment change.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Shipment, error)
	Get(ctx context.Context, actor auth.Actor, shipmentID uuid.UUID) (*models.Shipment, error)
	List(ctx context.Context, actor auth.Actor, status string) ([]models.Shipment, error)
	Update(ctx context.Context, input UpdateInput) (*models.Shipment, error)
	Delete(ctx context.Context, input DeleteInput) error
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Shipment, error)
}

type txRunner interface {
	RetryTx(ctx context.Context, maxAttempts int, fn func(tx *gorm.DB) error) error
}

type service struct {
	runner      txRunner
	repo        Repository
	maxAttempts int
}

// ItemInput is one requested lot allocation.
type ItemInput struct {
	StockID        uuid.UUID
	AssignedWeight decimal.Decimal
}

// CreateInput opens a shipment owned by the acting user.
type CreateInput struct {
	Actor                  auth.Actor
	Consignee              string
	Vessel                 string
	Shipmark               string
	PackagingInstructions  string
	AdditionalInstructions *string
	ShipmentDate           *time.Time
	Items                  []ItemInput
}

// UpdateInput edits a shipment. Nil fields are left untouched; a non-nil
// Items slice replaces the full item set.
type UpdateInput struct {
	Actor                  auth.Actor
	ShipmentID             uuid.UUID
	Consignee              *string
	Vessel                 *string
	Shipmark               *string
	PackagingInstructions  *string
	AdditionalInstructions *string
	ShipmentDate           *time.Time
	Status                 *enums.ShipmentStatus
	Items                  *[]ItemInput
}

// DeleteInput removes a shipment and returns its weight to the lots.
type DeleteInput struct {
	Actor      auth.Actor
	ShipmentID uuid.UUID
}

// UpdateStatusInput moves a shipment through the status chain.
type UpdateStatusInput struct {
	Actor      auth.Actor
	ShipmentID uuid.UUID
	Status     enums.ShipmentStatus
}

// NewService wires a shipment service with the provided dependencies.
func NewService(runner txRunner, repo Repository, maxAttempts int) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("shipment repository required")
	}
	return &service{runner: runner, repo: repo, maxAttempts: maxAttempts}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Shipment, error) {
	if input.Actor.CognitoID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity required")
	}
	if err := validateShipmentFields(input.Consignee, input.Vessel, input.Shipmark, input.PackagingInstructions); err != nil {
		return nil, err
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	shipmentID := uuid.New()
	var created *models.Shipment
	err := s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		items, err := s.deductItems(ctx, tx, repo, shipmentID, input.Actor, input.Items)
		if err != nil {
			return err
		}

		shipment := &models.Shipment{
			ID:                     shipmentID,
			UserCognitoID:          input.Actor.CognitoID,
			Status:                 enums.ShipmentStatusPending,
			Consignee:              input.Consignee,
			Vessel:                 input.Vessel,
			Shipmark:               input.Shipmark,
			PackagingInstructions:  input.PackagingInstructions,
			AdditionalInstructions: input.AdditionalInstructions,
			ShipmentDate:           input.ShipmentDate,
		}
		if err := repo.Create(ctx, shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating shipment")
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating shipment items")
		}

		shipment.Items = items
		if err := s.appendShipmentHistory(ctx, repo, shipment, enums.ShipmentActionCreated, input.Actor, nil); err != nil {
			return err
		}

		created, err = repo.FindByID(ctx, shipmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading shipment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, shipmentID uuid.UUID) (*models.Shipment, error) {
	shipment, err := s.loadShipment(ctx, s.repo, shipmentID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageShipment(actor.Role, actor.CognitoID, shipment.UserCognitoID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shipment belongs to another user")
	}
	return shipment, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, status string) ([]models.Shipment, error) {
	filter := ListFilter{Status: status}
	// Non-elevated callers only ever see their own shipments.
	if !auth.Can(actor.Role, auth.ActionViewAllShipments) {
		filter.UserCognitoID = actor.CognitoID
	}
	shipments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shipments")
	}
	return shipments, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}
	if input.Items != nil {
		if err := validateItems(*input.Items); err != nil {
			return nil, err
		}
	}

	var updated *models.Shipment
	err := s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipment, err := s.loadShipment(ctx, repo, input.ShipmentID)
		if err != nil {
			return err
		}
		if shipment.UserCognitoID != input.Actor.CognitoID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the shipment owner can edit it")
		}
		if shipment.Status == enums.ShipmentStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled shipments cannot be edited")
		}

		fields := map[string]any{}
		if input.Status != nil {
			target := *input.Status
			if !target.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", target))
			}
			if target != enums.ShipmentStatusPending && target != enums.ShipmentStatusCancelled {
				return pkgerrors.New(pkgerrors.CodeForbidden, "owners can only keep a shipment pending or cancel it")
			}
			if target != shipment.Status {
				if !shipment.Status.CanTransitionTo(target) {
					return transitionError(shipment.Status, target)
				}
				fields["status"] = target
			}
		}

		if input.Items != nil {
			// Replace atomically: give every old allocation back first, then
			// validate and deduct the new set against the restored weights.
			if err := s.restoreItems(ctx, tx, shipment, input.Actor, "shipment item replacement"); err != nil {
				return err
			}
			if err := repo.DeleteItems(ctx, shipment.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting shipment items")
			}
			items, err := s.deductItems(ctx, tx, repo, shipment.ID, input.Actor, *input.Items)
			if err != nil {
				return err
			}
			if err := repo.CreateItems(ctx, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating shipment items")
			}
		}

		applyFieldUpdates(fields, input)
		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, shipment.ID, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating shipment")
			}
		}

		updated, err = repo.FindByID(ctx, shipment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading shipment")
		}
		return s.appendShipmentHistory(ctx, repo, updated, enums.ShipmentActionUpdated, input.Actor, nil)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.ShipmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}

	return s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipment, err := s.loadShipment(ctx, repo, input.ShipmentID)
		if err != nil {
			return err
		}
		if !auth.CanManageShipment(input.Actor.Role, input.Actor.CognitoID, shipment.UserCognitoID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "shipment belongs to another user")
		}

		if err := s.restoreItems(ctx, tx, shipment, input.Actor, "shipment deleted"); err != nil {
			return err
		}

		// Snapshot before the rows disappear; history outlives the shipment.
		if err := s.appendShipmentHistory(ctx, repo, shipment, enums.ShipmentActionDeleted, input.Actor, nil); err != nil {
			return err
		}
		if err := repo.Delete(ctx, shipment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting shipment")
		}
		return nil
	})
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.Status))
	}
	if !auth.Can(input.Actor.Role, auth.ActionUpdateShipmentStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "status updates require an elevated role")
	}

	var updated *models.Shipment
	err := s.runner.RetryTx(ctx, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipment, err := s.loadShipment(ctx, repo, input.ShipmentID)
		if err != nil {
			return err
		}
		if !shipment.Status.CanTransitionTo(input.Status) {
			return transitionError(shipment.Status, input.Status)
		}

		// First elevated touch materializes the admin row from the token.
		if err := repo.EnsureAdmin(ctx, &models.Admin{
			CognitoID: input.Actor.CognitoID,
			Email:     input.Actor.Email,
			Name:      input.Actor.Name,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensuring admin record")
		}

		from := shipment.Status
		if err := repo.UpdateFields(ctx, shipment.ID, map[string]any{"status": input.Status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating shipment status")
		}

		shipment.Status = input.Status
		change := &types.StatusChangeDetails{From: string(from), To: string(input.Status)}
		if err := s.appendShipmentHistory(ctx, repo, shipment, enums.ShipmentActionStatusUpdated, input.Actor, change); err != nil {
			return err
		}
		updated = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// deductItems validates availability and takes every requested weight out of
// its lot through the ledger. Requests against the same lot are summed first
// so the availability check sees the true total.
func (s *service) deductItems(ctx context.Context, tx *gorm.DB, repo Repository, shipmentID uuid.UUID, actor auth.Actor, inputs []ItemInput) ([]models.ShipmentItem, error) {
	totals := map[uuid.UUID]decimal.Decimal{}
	order := []uuid.UUID{}
	for _, item := range inputs {
		if _, ok := totals[item.StockID]; !ok {
			order = append(order, item.StockID)
		}
		totals[item.StockID] = totals[item.StockID].Add(item.AssignedWeight)
	}

	for _, stockID := range order {
		total := totals[stockID]
		stock, err := repo.FindStock(ctx, stockID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stock %s not found", stockID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock")
		}
		if stock.Weight.LessThan(total) {
			shortfall := total.Sub(stock.Weight)
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("lot %s holds %s, requested %s (short %s)",
					stock.LotNo, stock.Weight.String(), total.String(), shortfall.String())).
				WithDetails(map[string]any{
					"stock_id":  stockID.String(),
					"lot_no":    stock.LotNo,
					"available": stock.Weight.String(),
					"requested": total.String(),
					"shortfall": shortfall.String(),
				})
		}

		if _, err := ledger.AdjustStock(ctx, tx, ledger.AdjustStockInput{
			StockID:       stockID,
			WeightDelta:   total.Neg(),
			Reason:        "shipment allocation",
			UserCognitoID: actorUserRef(actor),
			ShipmentID:    &shipmentID,
		}); err != nil {
			return nil, err
		}
	}

	items := make([]models.ShipmentItem, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, models.ShipmentItem{
			ID:             uuid.New(),
			ShipmentID:     shipmentID,
			StockID:        input.StockID,
			AssignedWeight: input.AssignedWeight,
		})
	}
	return items, nil
}

// restoreItems gives every current allocation back to its lot.
func (s *service) restoreItems(ctx context.Context, tx *gorm.DB, shipment *models.Shipment, actor auth.Actor, reason string) error {
	totals := map[uuid.UUID]decimal.Decimal{}
	order := []uuid.UUID{}
	for _, item := range shipment.Items {
		if _, ok := totals[item.StockID]; !ok {
			order = append(order, item.StockID)
		}
		totals[item.StockID] = totals[item.StockID].Add(item.AssignedWeight)
	}

	for _, stockID := range order {
		if _, err := ledger.AdjustStock(ctx, tx, ledger.AdjustStockInput{
			StockID:       stockID,
			WeightDelta:   totals[stockID],
			Reason:        reason,
			UserCognitoID: actorUserRef(actor),
			ShipmentID:    &shipment.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) loadShipment(ctx context.Context, repo Repository, shipmentID uuid.UUID) (*models.Shipment, error) {
	shipment, err := repo.FindByID(ctx, shipmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("shipment %s not found", shipmentID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shipment")
	}
	return shipment, nil
}

func (s *service) appendShipmentHistory(ctx context.Context, repo Repository, shipment *models.Shipment, action enums.ShipmentHistoryAction, actor auth.Actor, change *types.StatusChangeDetails) error {
	details := &types.ShipmentHistoryDetails{StatusChange: change}
	if change == nil {
		details.Shipment = shipmentSnapshot(shipment)
	}

	entry := &models.ShipmentHistory{
		ID:         uuid.New(),
		ShipmentID: shipment.ID,
		Action:     action,
		Details:    details,
	}
	if actor.IsElevated() {
		admin := actor.CognitoID
		entry.AdminCognitoID = &admin
	} else {
		user := actor.CognitoID
		entry.UserCognitoID = &user
	}

	if err := repo.AppendHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending shipment history")
	}
	return nil
}

func shipmentSnapshot(shipment *models.Shipment) *types.ShipmentDetails {
	details := &types.ShipmentDetails{
		Consignee:             shipment.Consignee,
		Vessel:                shipment.Vessel,
		Shipmark:              shipment.Shipmark,
		PackagingInstructions: shipment.PackagingInstructions,
	}
	if shipment.AdditionalInstructions != nil {
		details.AdditionalInstructions = *shipment.AdditionalInstructions
	}
	for _, item := range shipment.Items {
		snapshot := types.ShipmentItemSnapshot{
			StockID:        item.StockID.String(),
			AssignedWeight: item.AssignedWeight,
		}
		if item.Stock != nil {
			snapshot.LotNo = item.Stock.LotNo
		}
		details.Items = append(details.Items, snapshot)
	}
	return details
}

func actorUserRef(actor auth.Actor) *string {
	if actor.CognitoID == "" {
		return nil
	}
	id := actor.CognitoID
	return &id
}

func applyFieldUpdates(fields map[string]any, input UpdateInput) {
	if input.Consignee != nil {
		fields["consignee"] = *input.Consignee
	}
	if input.Vessel != nil {
		fields["vessel"] = *input.Vessel
	}
	if input.Shipmark != nil {
		fields["shipmark"] = *input.Shipmark
	}
	if input.PackagingInstructions != nil {
		fields["packaging_instructions"] = *input.PackagingInstructions
	}
	if input.AdditionalInstructions != nil {
		fields["additional_instructions"] = *input.AdditionalInstructions
	}
	if input.ShipmentDate != nil {
		fields["shipment_date"] = *input.ShipmentDate
	}
}

func validateShipmentFields(consignee, vessel, shipmark, packaging string) error {
	if consignee == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "consignee is required")
	}
	if vessel == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "vessel is required")
	}
	if shipmark == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipmark is required")
	}
	if packaging == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "packaging instructions are required")
	}
	return nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one shipment item is required")
	}
	for _, item := range items {
		if item.StockID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item stock id is required")
		}
		if !item.AssignedWeight.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item weight must be positive")
		}
	}
	return nil
}

func transitionError(from, to enums.ShipmentStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move shipment from %s to %s", from, to)).
		WithDetails(map[string]any{"from": string(from), "to": string(to)})
}
