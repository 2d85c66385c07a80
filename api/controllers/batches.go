package controllers

import (
	"net/http"
	"time"

	"github.com/lamnguyen-dev/pharmapos-backend/api/middleware"
	"github.com/lamnguyen-dev/pharmapos-backend/api/responses"
	"github.com/lamnguyen-dev/pharmapos-backend/api/validators"
	batchsvc "github.com/lamnguyen-dev/pharmapos-backend/internal/batches"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

type receiveBatchRequest struct {
	ProductID       string  `json:"product_id" validate:"required,uuid"`
	BatchNumber     string  `json:"batch_number" validate:"required"`
	ManufactureDate string  `json:"manufacture_date" validate:"required"`
	ExpiryDate      *string `json:"expiry_date,omitempty"`
	Qty             int     `json:"qty" validate:"required,min=1"`
	ReceiptRef      *string `json:"receipt_ref,omitempty"`
	Note            *string `json:"note,omitempty"`
}

// ReceiveBatch registers an inbound lot and its import ledger row.
func ReceiveBatch(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload receiveBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := parseUUIDString(payload.ProductID, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mfgDate, err := parseDate(payload.ManufactureDate, "manufacture_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var expiry *time.Time
		if payload.ExpiryDate != nil && *payload.ExpiryDate != "" {
			parsed, err := parseDate(*payload.ExpiryDate, "expiry_date")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			expiry = &parsed
		}

		batch, err := svc.Receive(r.Context(), batchsvc.ReceiveInput{
			ProductID:       productID,
			BatchNumber:     payload.BatchNumber,
			ManufactureDate: mfgDate,
			ExpiryDate:      expiry,
			Qty:             payload.Qty,
			ReceiptRef:      payload.ReceiptRef,
			Note:            payload.Note,
			Actor:           middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

type adjustBatchRequest struct {
	InputDelta  int     `json:"input_delta"`
	OutputDelta int     `json:"output_delta"`
	Note        *string `json:"note,omitempty"`
}

// AdjustBatch applies a manual stock correction.
func AdjustBatch(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.Adjust(r.Context(), batchsvc.AdjustInput{
			BatchID:     id,
			InputDelta:  payload.InputDelta,
			OutputDelta: payload.OutputDelta,
			Note:        payload.Note,
			Actor:       middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// GetBatch loads one batch by id.
func GetBatch(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batch, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// ListProductBatches lists a product's batches in consumption order.
func ListProductBatches(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ListExpiringBatches lists stocked batches expiring within the window.
func ListExpiringBatches(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window := 30 * 24 * time.Hour
		if raw := r.URL.Query().Get("within"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid within duration"))
				return
			}
			window = parsed
		}
		rows, err := svc.ListExpiring(r.Context(), window)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func parseDate(raw, field string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return parsed, nil
}
