package controllers

import (
	"net/http"

	"github.com/lamnguyen-dev/pharmapos-backend/api/responses"
	"github.com/lamnguyen-dev/pharmapos-backend/api/validators"
	paymentsvc "github.com/lamnguyen-dev/pharmapos-backend/internal/payments"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/gateway"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
)

// PaymentCallback receives the gateway's signed payment result. The signature
// is verified before any state change; success confirms the order and
// re-deliveries are acknowledged without re-applying.
func PaymentCallback(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cb gateway.Callback
		if err := validators.DecodeJSONBody(r, &cb); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.HandleCallback(r.Context(), cb)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order == nil {
			responses.WriteSuccess(w, map[string]string{"status": "acknowledged"})
			return
		}
		responses.WriteSuccess(w, order)
	}
}
