package controllers

import (
	"net/http"
	"strings"

	"github.com/amosgichamba/teabroker-backend/api/middleware"
	"github.com/amosgichamba/teabroker-backend/api/responses"
	"github.com/amosgichamba/teabroker-backend/api/validators"
	"github.com/amosgichamba/teabroker-backend/internal/history"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/logger"
)

func ListStockHistory(repo history.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history repository unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := history.StockHistoryFilter{
			Action:         strings.TrimSpace(r.URL.Query().Get("action")),
			UserCognitoID:  strings.TrimSpace(r.URL.Query().Get("user_cognito_id")),
			AdminCognitoID: strings.TrimSpace(r.URL.Query().Get("admin_cognito_id")),
			IncludeStock:   r.URL.Query().Get("include") == "stock",
		}
		if filter.StockID, err = validators.ParseQueryUUID(r, "stock_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.ShipmentID, err = validators.ParseQueryUUID(r, "shipment_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.From, err = validators.ParseQueryTime(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = validators.ParseQueryTime(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Buyers only see events naming them; staff see everything.
		actor := middleware.ActorFromContext(r.Context())
		if !actor.IsElevated() {
			filter.UserCognitoID = actor.CognitoID
		}

		page, err := repo.ListStockHistory(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stock history"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"entries":     page.Entries,
			"next_cursor": page.NextCursor,
		})
	}
}

func ListShipmentHistory(repo history.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history repository unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := history.ShipmentHistoryFilter{
			Action:          strings.TrimSpace(r.URL.Query().Get("action")),
			UserCognitoID:   strings.TrimSpace(r.URL.Query().Get("user_cognito_id")),
			AdminCognitoID:  strings.TrimSpace(r.URL.Query().Get("admin_cognito_id")),
			IncludeShipment: r.URL.Query().Get("include") == "shipment",
		}
		if filter.ShipmentID, err = validators.ParseQueryUUID(r, "shipment_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.From, err = validators.ParseQueryTime(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = validators.ParseQueryTime(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if !actor.IsElevated() {
			filter.UserCognitoID = actor.CognitoID
		}

		page, err := repo.ListShipmentHistory(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shipment history"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"entries":     page.Entries,
			"next_cursor": page.NextCursor,
		})
	}
}
