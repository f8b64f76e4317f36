package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/bannersonthefly/banners-backend/api/responses"
	"github.com/bannersonthefly/banners-backend/api/validators"
	recoverysvc "github.com/bannersonthefly/banners-backend/internal/recovery"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
)

// emailWebhookRequest mirrors the provider's event envelope. Recovery emails
// carry cart_id and sequence tags, which route the event to its cart.
type emailWebhookRequest struct {
	Type string `json:"type" validate:"required"`
	Data struct {
		EmailID string            `json:"email_id"`
		Tags    map[string]string `json:"tags"`
	} `json:"data"`
}

// EmailWebhook ingests engagement events from the email provider. Events
// that do not belong to a recovery email are acknowledged and dropped;
// bouncing them would only make the provider retry.
func EmailWebhook(svc recoverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recovery service unavailable"))
			return
		}

		var payload emailWebhookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID, err := uuid.Parse(payload.Data.Tags["cart_id"])
		if err != nil {
			responses.WriteSuccess(w, map[string]any{"tracked": false})
			return
		}

		var sequence *int
		if raw := payload.Data.Tags["sequence"]; raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				sequence = &parsed
			}
		}

		result, err := svc.HandleEmailEvent(r.Context(), recoverysvc.EmailEventParams{
			CartID:   cartID,
			RawType:  payload.Type,
			Sequence: sequence,
			EmailID:  payload.Data.EmailID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
