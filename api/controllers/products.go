package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamnguyen-dev/pharmapos-backend/api/middleware"
	"github.com/lamnguyen-dev/pharmapos-backend/api/responses"
	"github.com/lamnguyen-dev/pharmapos-backend/api/validators"
	ledgersvc "github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	productsvc "github.com/lamnguyen-dev/pharmapos-backend/internal/products"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
)

type createProductRequest struct {
	SKU         string  `json:"sku" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Unit        string  `json:"unit,omitempty"`
	CategoryID  *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	SupplierID  *string `json:"supplier_id,omitempty" validate:"omitempty,uuid"`
	InputPrice  string  `json:"input_price" validate:"required"`
	OutputPrice string  `json:"output_price" validate:"required"`
}

// CreateProduct registers a new catalog entry.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.CreateInput{
			SKU:  payload.SKU,
			Name: payload.Name,
			Unit: payload.Unit,
		}
		var err error
		if input.InputPrice, err = parsePrice(payload.InputPrice, "input_price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.OutputPrice, err = parsePrice(payload.OutputPrice, "output_price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.CategoryID, err = parseOptionalUUID(payload.CategoryID, "category_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.SupplierID, err = parseOptionalUUID(payload.SupplierID, "supplier_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// GetProduct loads one product by id.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListProducts pages through the catalog.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := productsvc.ListFilters{
			Search:     r.URL.Query().Get("search"),
			ActiveOnly: r.URL.Query().Get("active") == "true",
		}
		if raw := r.URL.Query().Get("category_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category_id"))
				return
			}
			filters.CategoryID = &id
		}

		list, err := svc.List(r.Context(), paginationFromQuery(r), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type updateProductRequest struct {
	Name     *string `json:"name,omitempty"`
	Unit     *string `json:"unit,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateProduct patches the mutable non-price fields.
func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), id, productsvc.UpdateInput{
			Name:     payload.Name,
			Unit:     payload.Unit,
			IsActive: payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type updatePricesRequest struct {
	InputPrice  string  `json:"input_price" validate:"required"`
	OutputPrice string  `json:"output_price" validate:"required"`
	Note        *string `json:"note,omitempty"`
}

// UpdateProductPrices revises both prices and records the change.
func UpdateProductPrices(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePricesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.UpdatePricesInput{
			ProductID: id,
			Note:      payload.Note,
			Actor:     middleware.ActorFromContext(r.Context()),
		}
		if input.InputPrice, err = parsePrice(payload.InputPrice, "input_price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.OutputPrice, err = parsePrice(payload.OutputPrice, "output_price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdatePrices(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListProductMovements pages through a product's stock ledger.
func ListProductMovements(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListProductMovements(r.Context(), id, paginationFromQuery(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListProductPriceChanges pages through a product's price history.
func ListProductPriceChanges(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListProductPriceChanges(r.Context(), id, paginationFromQuery(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parsePrice(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return value, nil
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &id, nil
}
