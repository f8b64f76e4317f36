package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bannersonthefly/banners-backend/api/responses"
	"github.com/bannersonthefly/banners-backend/api/validators"
	recoverysvc "github.com/bannersonthefly/banners-backend/internal/recovery"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
)

// AdminAbandonedCarts lists the recovery funnel for the back office.
func AdminAbandonedCarts(svc recoverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recovery service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type sendRecoveryEmailRequest struct {
	Sequence int `json:"sequenceNumber" validate:"required,gte=1,lte=3"`
}

// AdminSendRecoveryEmail dispatches one recovery email outside the cron
// schedule, for support-driven sends.
func AdminSendRecoveryEmail(svc recoverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recovery service unavailable"))
			return
		}

		cartID, err := uuid.Parse(chi.URLParam(r, "cartId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart id"))
			return
		}

		var payload sendRecoveryEmailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SendRecoveryEmail(r.Context(), cartID, payload.Sequence)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
