package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bannersonthefly/banners-backend/api/responses"
	"github.com/bannersonthefly/banners-backend/api/validators"
	discountsvc "github.com/bannersonthefly/banners-backend/internal/discounts"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
)

type validateDiscountRequest struct {
	Code  string `json:"code" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

type generateDiscountRequest struct {
	CartID          uuid.UUID `json:"cartId" validate:"required"`
	Percentage      int       `json:"discountPercentage" validate:"required,gt=0,lte=100"`
	ExpirationHours int       `json:"expirationHours" validate:"gte=0"`
}

// DiscountValidate checks a code for the storefront. Business failures come
// back as a 200 with valid=false; the code never leaks why beyond Message.
func DiscountValidate(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discounts service unavailable"))
			return
		}

		var payload validateDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Validate(r.Context(), payload.Code, payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// DiscountGenerate mints a cart-linked recovery code (admin surface).
func DiscountGenerate(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discounts service unavailable"))
			return
		}

		var payload generateDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Generate(r.Context(), discountsvc.GenerateParams{
			CartID:          payload.CartID,
			Percentage:      payload.Percentage,
			ExpirationHours: payload.ExpirationHours,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.IsExisting {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
