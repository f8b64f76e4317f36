package enums

import "fmt"

// RecoveryStatus tracks where an abandoned cart sits in the recovery funnel.
type RecoveryStatus string

const (
	// RecoveryStatusActive marks a cart that still sees shopper activity.
	RecoveryStatusActive RecoveryStatus = "active"
	// RecoveryStatusAbandoned marks a cart idle past the abandonment threshold.
	RecoveryStatusAbandoned RecoveryStatus = "abandoned"
	// RecoveryStatusEngaged marks an abandoned cart whose shopper clicked a recovery email.
	RecoveryStatusEngaged RecoveryStatus = "engaged"
	// RecoveryStatusRecovered marks a cart that converted into an order.
	RecoveryStatusRecovered RecoveryStatus = "recovered"
	// RecoveryStatusExpired marks a cart past the recovery window.
	RecoveryStatusExpired RecoveryStatus = "expired"
)

var validRecoveryStatuses = []RecoveryStatus{
	RecoveryStatusActive,
	RecoveryStatusAbandoned,
	RecoveryStatusEngaged,
	RecoveryStatusRecovered,
	RecoveryStatusExpired,
}

var recoveryTransitions = map[RecoveryStatus][]RecoveryStatus{
	RecoveryStatusActive:    {RecoveryStatusAbandoned},
	RecoveryStatusAbandoned: {RecoveryStatusActive, RecoveryStatusEngaged, RecoveryStatusRecovered, RecoveryStatusExpired},
	RecoveryStatusEngaged:   {RecoveryStatusRecovered, RecoveryStatusExpired},
}

// String implements fmt.Stringer.
func (r RecoveryStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecoveryStatus.
func (r RecoveryStatus) IsValid() bool {
	for _, candidate := range validRecoveryStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions.
func (r RecoveryStatus) IsTerminal() bool {
	return len(recoveryTransitions[r]) == 0 && r.IsValid()
}

// CanTransitionTo reports whether moving to next is an allowed funnel transition.
func (r RecoveryStatus) CanTransitionTo(next RecoveryStatus) bool {
	for _, candidate := range recoveryTransitions[r] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseRecoveryStatus converts raw input into a RecoveryStatus.
func ParseRecoveryStatus(value string) (RecoveryStatus, error) {
	for _, candidate := range validRecoveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recovery status %q", value)
}
