package controllers

import (
	"net/http"

	"github.com/bannersonthefly/banners-backend/api/responses"
	"github.com/bannersonthefly/banners-backend/api/validators"
	cartsvc "github.com/bannersonthefly/banners-backend/internal/cart"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
)

// CartQuote prices a cart payload server-side.
func CartQuote(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cartsvc.QuoteInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Quote(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
