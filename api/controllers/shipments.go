package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amosgichamba/teabroker-backend/api/middleware"
	"github.com/amosgichamba/teabroker-backend/api/responses"
	"github.com/amosgichamba/teabroker-backend/api/validators"
	"github.com/amosgichamba/teabroker-backend/internal/shipments"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/logger"
)

type shipmentItemRequest struct {
	StockID        uuid.UUID       `json:"stock_id" validate:"required"`
	AssignedWeight decimal.Decimal `json:"assigned_weight"`
}

type createShipmentRequest struct {
	Consignee              string                `json:"consignee" validate:"required"`
	Vessel                 string                `json:"vessel" validate:"required"`
	Shipmark               string                `json:"shipmark" validate:"required"`
	PackagingInstructions  string                `json:"packaging_instructions" validate:"required"`
	AdditionalInstructions *string               `json:"additional_instructions"`
	ShipmentDate           *time.Time            `json:"shipment_date"`
	Items                  []shipmentItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateShipmentRequest struct {
	Consignee              *string                `json:"consignee"`
	Vessel                 *string                `json:"vessel"`
	Shipmark               *string                `json:"shipmark"`
	PackagingInstructions  *string                `json:"packaging_instructions"`
	AdditionalInstructions *string                `json:"additional_instructions"`
	ShipmentDate           *time.Time             `json:"shipment_date"`
	Status                 *string                `json:"status"`
	Items                  *[]shipmentItemRequest `json:"items"`
}

type updateShipmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func CreateShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		var req createShipmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Create(r.Context(), shipments.CreateInput{
			Actor:                  middleware.ActorFromContext(r.Context()),
			Consignee:              req.Consignee,
			Vessel:                 req.Vessel,
			Shipmark:               req.Shipmark,
			PackagingInstructions:  req.PackagingInstructions,
			AdditionalInstructions: req.AdditionalInstructions,
			ShipmentDate:           req.ShipmentDate,
			Items:                  toItemInputs(req.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

func GetShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		shipmentID, err := validators.ParsePathUUID(chi.URLParam(r, "shipmentId"), "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), shipmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func ListShipments(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		status := strings.TrimSpace(r.URL.Query().Get("status"))
		list, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UpdateShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		shipmentID, err := validators.ParsePathUUID(chi.URLParam(r, "shipmentId"), "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateShipmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := shipments.UpdateInput{
			Actor:                  middleware.ActorFromContext(r.Context()),
			ShipmentID:             shipmentID,
			Consignee:              req.Consignee,
			Vessel:                 req.Vessel,
			Shipmark:               req.Shipmark,
			PackagingInstructions:  req.PackagingInstructions,
			AdditionalInstructions: req.AdditionalInstructions,
			ShipmentDate:           req.ShipmentDate,
		}
		if req.Status != nil {
			status, err := enums.ParseShipmentStatus(*req.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}
		if req.Items != nil {
			items := toItemInputs(*req.Items)
			input.Items = &items
		}

		shipment, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func DeleteShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		shipmentID, err := validators.ParsePathUUID(chi.URLParam(r, "shipmentId"), "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), shipments.DeleteInput{
			Actor:      middleware.ActorFromContext(r.Context()),
			ShipmentID: shipmentID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func UpdateShipmentStatus(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		shipmentID, err := validators.ParsePathUUID(chi.URLParam(r, "shipmentId"), "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateShipmentStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseShipmentStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		shipment, err := svc.UpdateStatus(r.Context(), shipments.UpdateStatusInput{
			Actor:      middleware.ActorFromContext(r.Context()),
			ShipmentID: shipmentID,
			Status:     status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func toItemInputs(items []shipmentItemRequest) []shipments.ItemInput {
	out := make([]shipments.ItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, shipments.ItemInput{
			StockID:        item.StockID,
			AssignedWeight: item.AssignedWeight,
		})
	}
	return out
}
