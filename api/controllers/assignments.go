package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amosgichamba/teabroker-backend/api/middleware"
	"github.com/amosgichamba/teabroker-backend/api/responses"
	"github.com/amosgichamba/teabroker-backend/api/validators"
	"github.com/amosgichamba/teabroker-backend/internal/assignments"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/logger"
)

type assignStockRequest struct {
	UserCognitoID string `json:"user_cognito_id" validate:"required"`
}

type bulkAssignRequest struct {
	Items []bulkAssignItem `json:"items" validate:"required,min=1,dive"`
}

type bulkAssignItem struct {
	StockID        uuid.UUID        `json:"stock_id" validate:"required"`
	UserCognitoID  string           `json:"user_cognito_id" validate:"required"`
	AssignedWeight *decimal.Decimal `json:"assigned_weight"`
}

func AssignStock(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		stockID, err := validators.ParsePathUUID(chi.URLParam(r, "stockId"), "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Assign(r.Context(), assignments.AssignInput{
			StockID:        stockID,
			UserCognitoID:  req.UserCognitoID,
			AdminCognitoID: middleware.ActorFromContext(r.Context()).CognitoID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, assignment)
	}
}

func BulkAssignStocks(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		var req bulkAssignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]assignments.BulkAssignItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, assignments.BulkAssignItem{
				StockID:        item.StockID,
				UserCognitoID:  item.UserCognitoID,
				AssignedWeight: item.AssignedWeight,
			})
		}

		created, err := svc.BulkAssign(r.Context(), assignments.BulkAssignInput{
			Items:          items,
			AdminCognitoID: middleware.ActorFromContext(r.Context()).CognitoID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func UnassignStock(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		stockID, err := validators.ParsePathUUID(chi.URLParam(r, "stockId"), "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userCognitoID := strings.TrimSpace(chi.URLParam(r, "userCognitoId"))
		if userCognitoID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user cognito id is required"))
			return
		}

		if err := svc.Unassign(r.Context(), assignments.UnassignInput{
			StockID:        stockID,
			UserCognitoID:  userCognitoID,
			AdminCognitoID: middleware.ActorFromContext(r.Context()).CognitoID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "unassigned"})
	}
}

// ListMyAssignments returns the lots allocated to the calling buyer.
func ListMyAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		list, err := svc.ListByUser(r.Context(), middleware.ActorFromContext(r.Context()).CognitoID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ListStockAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		stockID, err := validators.ParsePathUUID(chi.URLParam(r, "stockId"), "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByStock(r.Context(), stockID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
