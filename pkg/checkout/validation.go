package checkout

import (
	"fmt"

	"github.com/bannersonthefly/banners-backend/pkg/money"
)

// MinimumOrderCents is the store-wide order floor ($20.00).
const MinimumOrderCents = 2000

// SizeLimitSqFt is the advisory threshold above which customers are
// pointed at a custom quote instead of self-serve checkout.
const SizeLimitSqFt = 1000.0

// Validation result codes.
const (
	CodeMinimumOrderMet    = "MINIMUM_ORDER_MET"
	CodeMinimumOrderNotMet = "MINIMUM_ORDER_NOT_MET"
	CodeAdminOverride      = "ADMIN_OVERRIDE"
	CodeTestMode           = "TEST_MODE"
	CodeSizeLimitExceeded  = "SIZE_LIMIT_EXCEEDED"
)

// Context carries the caller-side flags that may bypass order validation.
type Context struct {
	IsAdmin          bool
	BypassValidation bool
	IsTestMode       bool
}

// MinimumOrderDetails exposes the numbers behind a minimum-order decision.
type MinimumOrderDetails struct {
	TotalCents      int  `json:"totalCents"`
	MinimumRequired int  `json:"minimumRequired"`
	ShortfallCents  int  `json:"shortfall,omitempty"`
	IsAdmin         bool `json:"isAdmin,omitempty"`
	IsTestMode      bool `json:"isTestMode,omitempty"`
}

// MinimumOrderResult is a structured validation outcome. Validators
// report, they never error.
type MinimumOrderResult struct {
	Valid   bool                `json:"valid"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details MinimumOrderDetails `json:"details"`
}

var minimumOrderSuggestions = []string{
	"Increase the quantity of your current banner",
	"Choose a larger banner size",
	"Add additional banners to your order",
	"Consider adding grommets, pole pockets, or other options",
}

// MinimumOrderSuggestions lists ways a customer can reach the order floor.
func MinimumOrderSuggestions() []string {
	out := make([]string, len(minimumOrderSuggestions))
	copy(out, minimumOrderSuggestions)
	return out
}

// ValidateMinimumOrder gates checkout on the $20 order floor. Admin and
// test-mode bypasses succeed with their own result codes.
func ValidateMinimumOrder(totalCents int, vctx Context) MinimumOrderResult {
	if vctx.IsAdmin && vctx.BypassValidation {
		return MinimumOrderResult{
			Valid:   true,
			Code:    CodeAdminOverride,
			Message: "Admin override - minimum order validation bypassed",
			Details: MinimumOrderDetails{
				TotalCents:      totalCents,
				MinimumRequired: MinimumOrderCents,
				IsAdmin:         true,
			},
		}
	}

	if vctx.IsTestMode {
		return MinimumOrderResult{
			Valid:   true,
			Code:    CodeTestMode,
			Message: "Test mode - minimum order validation bypassed",
			Details: MinimumOrderDetails{
				TotalCents:      totalCents,
				MinimumRequired: MinimumOrderCents,
				IsTestMode:      true,
			},
		}
	}

	if totalCents < MinimumOrderCents {
		shortfall := MinimumOrderCents - totalCents
		return MinimumOrderResult{
			Valid: false,
			Code:  CodeMinimumOrderNotMet,
			Message: fmt.Sprintf("Order total %s is below the minimum requirement of %s",
				money.Format(totalCents), money.Format(MinimumOrderCents)),
			Details: MinimumOrderDetails{
				TotalCents:      totalCents,
				MinimumRequired: MinimumOrderCents,
				ShortfallCents:  shortfall,
			},
		}
	}

	return MinimumOrderResult{
		Valid:   true,
		Code:    CodeMinimumOrderMet,
		Message: "Order meets minimum requirement",
		Details: MinimumOrderDetails{
			TotalCents:      totalCents,
			MinimumRequired: MinimumOrderCents,
		},
	}
}

// SizeLimitResult is advisory: call sites decide whether an oversized
// banner blocks checkout or just shows the quote message.
type SizeLimitResult struct {
	WithinLimit   bool    `json:"withinLimit"`
	SquareFootage float64 `json:"squareFootage"`
	Code          string  `json:"code,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// SquareFootage converts banner dimensions in inches to square feet.
func SquareFootage(widthIn, heightIn float64) float64 {
	return widthIn * heightIn / 144
}

// ValidateSizeLimit warns when a banner exceeds the self-serve size cap.
func ValidateSizeLimit(widthIn, heightIn float64) SizeLimitResult {
	sqft := SquareFootage(widthIn, heightIn)
	if sqft > SizeLimitSqFt {
		return SizeLimitResult{
			WithinLimit:   false,
			SquareFootage: sqft,
			Code:          CodeSizeLimitExceeded,
			Message:       "Orders over 1,000 sq ft require a custom quote. Please contact us before placing your order.",
		}
	}
	return SizeLimitResult{WithinLimit: true, SquareFootage: sqft}
}
