package controllers

import (
	"net/http"

	"github.com/lamnguyen-dev/pharmapos-backend/api/middleware"
	"github.com/lamnguyen-dev/pharmapos-backend/api/responses"
	"github.com/lamnguyen-dev/pharmapos-backend/api/validators"
	returnsvc "github.com/lamnguyen-dev/pharmapos-backend/internal/returns"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
)

type returnItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	BatchID   string `json:"batch_id" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"required,min=1"`
}

type createReturnRequest struct {
	OrderID      string              `json:"order_id" validate:"required,uuid"`
	Action       string              `json:"action" validate:"required"`
	Items        []returnItemRequest `json:"items" validate:"required,min=1,dive"`
	NewProductID *string             `json:"new_product_id,omitempty" validate:"omitempty,uuid"`
	NewQty       int                 `json:"new_qty,omitempty"`
	ReceiptRef   *string             `json:"receipt_ref,omitempty"`
	CustomerName *string             `json:"customer_name,omitempty"`
	Note         *string             `json:"note,omitempty"`
}

// CreateReturn opens a pending return or exchange against a completed order.
func CreateReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDString(payload.OrderID, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseReturnAction(payload.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}

		input := returnsvc.CreateInput{
			OrderID:      orderID,
			Action:       action,
			NewQty:       payload.NewQty,
			ReceiptRef:   payload.ReceiptRef,
			CustomerName: payload.CustomerName,
			Note:         payload.Note,
			Actor:        middleware.ActorFromContext(r.Context()),
		}
		if input.NewProductID, err = parseOptionalUUID(payload.NewProductID, "new_product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		for _, item := range payload.Items {
			productID, err := parseUUIDString(item.ProductID, "product_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			batchID, err := parseUUIDString(item.BatchID, "batch_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Items = append(input.Items, returnsvc.ItemInput{
				ProductID: productID,
				BatchID:   batchID,
				Qty:       item.Qty,
			})
		}

		record, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// ProcessReturn executes a pending return or exchange.
func ProcessReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Process(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// GetReturn loads one return record.
func GetReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// ListOrderReturns lists the return records attached to an order.
func ListOrderReturns(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
